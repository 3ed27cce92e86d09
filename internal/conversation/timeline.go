package conversation

import (
	"time"

	"messenger-client/internal/models"
)

// Timeline projects the message sequence into display entries, injecting one
// date separator before the first message of each calendar day. The result
// is recomputed on every call and holds no state of its own.
func (e *Engine) Timeline() []models.TimelineItem {
	msgs := e.Messages()
	if len(msgs) == 0 {
		return nil
	}

	items := make([]models.TimelineItem, 0, len(msgs)+1)
	prevDay := ""
	for i := range msgs {
		m := &msgs[i]
		day := m.Created.In(e.loc).Format("2006-01-02")
		if day != prevDay {
			start, _ := time.ParseInLocation("2006-01-02", day, e.loc)
			items = append(items, models.TimelineItem{
				Kind: models.TimelineDate,
				ID:   "date:" + day,
				Day:  start,
			})
			prevDay = day
		}
		items = append(items, models.TimelineItem{
			Kind:    models.TimelineMessage,
			ID:      "message:" + m.ID,
			Message: m,
		})
	}
	return items
}
