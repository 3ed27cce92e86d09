package conversation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-client/internal/conversation"
	"messenger-client/internal/mocks"
	"messenger-client/internal/models"
)

func TestTimelineInsertsOneSeparatorPerDay(t *testing.T) {
	day1 := time.Date(2024, 5, 9, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 10, 0, 15, 0, 0, time.UTC)
	msgs := []models.Message{
		{ID: "m1", Chat: "c1", Content: "late night", Created: day1},
		{ID: "m2", Chat: "c1", Content: "even later", Created: day1.Add(10 * time.Minute)},
		{ID: "m3", Chat: "c1", Content: "new day", Created: day2},
	}

	source := new(mocks.MessageSourceMock)
	source.On("ListMessages", mock.Anything, "c1", 1, 20).
		Return(models.MessageList{Page: 1, PerPage: 20, TotalPages: 1, TotalItems: 3, Items: reversedCopy(msgs)}, nil).Once()
	expectSubscribe(source, "c1")

	engine := conversation.NewEngine(source, conversation.WithPageSize(20), conversation.WithLocation(time.UTC))
	require.NoError(t, engine.Select(context.Background(), models.Chat{ID: "c1"}, "viewer"))

	items := engine.Timeline()
	require.Len(t, items, 5)

	assert.Equal(t, models.TimelineDate, items[0].Kind)
	assert.Equal(t, "date:2024-05-09", items[0].ID)
	assert.Equal(t, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), items[0].Day)

	assert.Equal(t, models.TimelineMessage, items[1].Kind)
	assert.Equal(t, "message:m1", items[1].ID)
	assert.Equal(t, "message:m2", items[2].ID)

	assert.Equal(t, models.TimelineDate, items[3].Kind)
	assert.Equal(t, "date:2024-05-10", items[3].ID)
	assert.Equal(t, "message:m3", items[4].ID)
}

func TestTimelineSeparatorFollowsEngineLocation(t *testing.T) {
	// 23:30 UTC on May 9 is already May 10 in a +02:00 zone.
	zone := time.FixedZone("UTC+2", 2*60*60)
	created := time.Date(2024, 5, 9, 23, 30, 0, 0, time.UTC)

	source := new(mocks.MessageSourceMock)
	source.On("ListMessages", mock.Anything, "c1", 1, 20).
		Return(models.MessageList{Page: 1, PerPage: 20, TotalPages: 1, TotalItems: 1,
			Items: []models.Message{{ID: "m1", Chat: "c1", Created: created}}}, nil).Once()
	expectSubscribe(source, "c1")

	engine := conversation.NewEngine(source, conversation.WithPageSize(20), conversation.WithLocation(zone))
	require.NoError(t, engine.Select(context.Background(), models.Chat{ID: "c1"}, "viewer"))

	items := engine.Timeline()
	require.Len(t, items, 2)
	assert.Equal(t, "date:2024-05-10", items[0].ID)
}

func TestTimelineEmptyWhenNoMessages(t *testing.T) {
	source := new(mocks.MessageSourceMock)
	engine := conversation.NewEngine(source, conversation.WithLocation(time.UTC))
	assert.Nil(t, engine.Timeline())
}

func reversedCopy(msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}
