// Package tui is the terminal presentation layer: a login form, the
// filterable chat list and the conversation pane with live updates.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"messenger-client/internal/audit"
	"messenger-client/internal/conversation"
	"messenger-client/internal/directory"
	"messenger-client/internal/gateway"
	"messenger-client/internal/models"
)

type state int

const (
	stateLogin state = iota
	stateHome
)

type focusRegion int

const (
	focusList focusRegion = iota
	focusSearch
	focusCompose
)

const chatListWidth = 32

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Align(lipgloss.Center)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	ownMsgStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	listPaneStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderRight(true).PaddingRight(1)
)

type (
	loginResultMsg  struct{ err error }
	chatsLoadedMsg  struct{ err error }
	chatOpenedMsg   struct{ err error }
	olderLoadedMsg  struct{ err error }
	sendResultMsg   struct{ err error }
	engineChangeMsg struct{}
)

// App is the bubbletea model for the whole client.
type App struct {
	ctx     context.Context
	gw      *gateway.Client
	dir     *directory.Directory
	engine  *conversation.Engine
	emitter *audit.Emitter

	state  state
	focus  focusRegion
	width  int
	height int

	email    textinput.Model
	password textinput.Model
	search   textinput.Model
	compose  textinput.Model
	vp       viewport.Model
	sp       spinner.Model

	chats    []models.Chat
	selected int
	status   string

	updates       <-chan struct{}
	cancelUpdates func()
}

// New wires the app model. The engine watcher channel feeds live refreshes
// into the bubbletea loop.
func New(ctx context.Context, gw *gateway.Client, dir *directory.Directory, engine *conversation.Engine, emitter *audit.Emitter) *App {
	email := textinput.New()
	email.Placeholder = "email"
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword

	search := textinput.New()
	search.Placeholder = "search chats"

	compose := textinput.New()
	compose.Placeholder = "type a message"

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	updates, cancel := engine.Subscribe()

	app := &App{
		ctx:           ctx,
		gw:            gw,
		dir:           dir,
		engine:        engine,
		emitter:       emitter,
		state:         stateLogin,
		email:         email,
		password:      password,
		search:        search,
		compose:       compose,
		vp:            viewport.New(80, 20),
		sp:            sp,
		updates:       updates,
		cancelUpdates: cancel,
	}
	if gw.Auth().IsValid() {
		app.state = stateHome
	}
	return app
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, a.sp.Tick, a.waitForEngine()}
	if a.state == stateHome {
		cmds = append(cmds, a.loadChats())
	}
	return tea.Batch(cmds...)
}

func (a *App) waitForEngine() tea.Cmd {
	return func() tea.Msg {
		<-a.updates
		return engineChangeMsg{}
	}
}

func (a *App) login() tea.Cmd {
	identity, password := a.email.Value(), a.password.Value()
	return func() tea.Msg {
		user, err := a.gw.AuthWithPassword(a.ctx, identity, password)
		if err == nil {
			a.emitter.Emit(a.ctx, audit.EventLogin, &user.ID, audit.Payload{})
		}
		return loginResultMsg{err: err}
	}
}

func (a *App) loadChats() tea.Cmd {
	return func() tea.Msg {
		return chatsLoadedMsg{err: a.dir.Load(a.ctx)}
	}
}

func (a *App) openChat(chat models.Chat) tea.Cmd {
	viewerID := a.gw.Auth().User().ID
	return func() tea.Msg {
		err := a.engine.Select(a.ctx, chat, viewerID)
		if err == nil {
			a.emitter.Emit(a.ctx, audit.EventChatOpened, &viewerID, audit.Payload{ChatID: chat.ID})
		}
		return chatOpenedMsg{err: err}
	}
}

func (a *App) loadOlder() tea.Cmd {
	return func() tea.Msg {
		return olderLoadedMsg{err: a.engine.LoadOlder(a.ctx)}
	}
}

func (a *App) sendMessage(content string) tea.Cmd {
	chat := a.engine.Chat()
	viewerID := a.gw.Auth().User().ID
	return func() tea.Msg {
		if chat == nil || strings.TrimSpace(content) == "" {
			return sendResultMsg{}
		}
		msg, err := a.gw.CreateMessage(a.ctx, chat.ID, viewerID, content)
		if err != nil {
			return sendResultMsg{err: err}
		}
		// Optimistic append; the live create event is a no-op duplicate.
		a.engine.AddMessage(msg)
		a.emitter.Emit(a.ctx, audit.EventMessageSent, &viewerID, audit.Payload{ChatID: chat.ID})
		return sendResultMsg{}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.vp.Width = max(20, msg.Width-chatListWidth-4)
		a.vp.Height = max(5, msg.Height-6)
		a.refreshTimeline(true)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			a.shutdown()
			return a, tea.Quit
		}
		if a.state == stateLogin {
			return a.updateLogin(msg)
		}
		return a.updateHome(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.sp, cmd = a.sp.Update(msg)
		return a, cmd

	case loginResultMsg:
		if msg.err != nil {
			a.status = "login failed: " + msg.err.Error()
			return a, nil
		}
		a.state = stateHome
		a.status = ""
		a.focus = focusList
		return a, a.loadChats()

	case chatsLoadedMsg:
		if msg.err != nil {
			a.status = a.dir.Err()
			return a, nil
		}
		a.chats = a.dir.Filtered()
		if a.selected >= len(a.chats) {
			a.selected = 0
		}
		return a, nil

	case chatOpenedMsg:
		if msg.err != nil {
			a.status = "failed to open chat: " + msg.err.Error()
			return a, nil
		}
		a.refreshTimeline(true)
		return a, nil

	case olderLoadedMsg:
		if msg.err != nil {
			a.status = "failed to load older messages"
		}
		a.refreshTimeline(false)
		return a, nil

	case sendResultMsg:
		if msg.err != nil {
			a.status = "failed to send: " + msg.err.Error()
		}
		return a, nil

	case engineChangeMsg:
		a.refreshTimeline(true)
		return a, a.waitForEngine()
	}

	return a, nil
}

func (a *App) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab:
		if a.email.Focused() {
			a.email.Blur()
			a.password.Focus()
		} else {
			a.password.Blur()
			a.email.Focus()
		}
		return a, nil
	case tea.KeyEnter:
		if a.email.Focused() {
			a.email.Blur()
			a.password.Focus()
			return a, nil
		}
		a.status = "signing in..."
		return a, a.login()
	}

	var cmd tea.Cmd
	if a.email.Focused() {
		a.email, cmd = a.email.Update(msg)
	} else {
		a.password, cmd = a.password.Update(msg)
	}
	return a, cmd
}

func (a *App) updateHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab:
		a.cycleFocus()
		return a, nil
	case tea.KeyPgUp:
		return a, a.loadOlder()
	}

	switch a.focus {
	case focusSearch:
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc {
			a.search.Blur()
			a.focus = focusList
			return a, nil
		}
		var cmd tea.Cmd
		a.search, cmd = a.search.Update(msg)
		a.dir.SetSearch(a.search.Value())
		a.chats = a.dir.Filtered()
		if a.selected >= len(a.chats) {
			a.selected = 0
		}
		return a, cmd

	case focusCompose:
		if msg.Type == tea.KeyEnter {
			content := a.compose.Value()
			a.compose.SetValue("")
			return a, a.sendMessage(content)
		}
		var cmd tea.Cmd
		a.compose, cmd = a.compose.Update(msg)
		return a, cmd

	default:
		switch {
		case msg.Type == tea.KeyUp:
			if a.selected > 0 {
				a.selected--
			}
		case msg.Type == tea.KeyDown:
			if a.selected < len(a.chats)-1 {
				a.selected++
			}
		case msg.Type == tea.KeyEnter:
			if a.selected < len(a.chats) {
				return a, a.openChat(a.chats[a.selected])
			}
		case msg.String() == "/":
			a.focus = focusSearch
			a.search.Focus()
		case msg.String() == "r":
			return a, a.loadChats()
		}
		return a, nil
	}
}

func (a *App) cycleFocus() {
	a.search.Blur()
	a.compose.Blur()
	switch a.focus {
	case focusList:
		a.focus = focusCompose
		a.compose.Focus()
	case focusCompose:
		a.focus = focusSearch
		a.search.Focus()
	default:
		a.focus = focusList
	}
}

func (a *App) refreshTimeline(gotoBottom bool) {
	items := a.engine.Timeline()
	viewer := a.engine.ViewerID()

	var b strings.Builder
	for _, item := range items {
		switch item.Kind {
		case models.TimelineDate:
			b.WriteString(separatorStyle.Width(a.vp.Width).Render("── " + item.Day.Format("Mon, 02 Jan 2006") + " ──"))
			b.WriteByte('\n')
		case models.TimelineMessage:
			line := fmt.Sprintf("%s %s: %s",
				dimStyle.Render(item.Message.Created.Local().Format("15:04")),
				authorName(item.Message),
				item.Message.Content)
			if item.Message.Author == viewer {
				line = ownMsgStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	a.vp.SetContent(b.String())
	if gotoBottom {
		a.vp.GotoBottom()
	}
}

func authorName(m *models.Message) string {
	if m.Expand != nil && m.Expand.Author != nil {
		if name := m.Expand.Author.DisplayName(); name != "" {
			return name
		}
	}
	return m.Author
}

func (a *App) shutdown() {
	a.cancelUpdates()
	a.engine.Close()
}

func (a *App) View() string {
	if a.state == stateLogin {
		return a.viewLogin()
	}
	return a.viewHome()
}

func (a *App) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("messenger") + "\n\n")
	b.WriteString("  " + a.email.View() + "\n")
	b.WriteString("  " + a.password.View() + "\n\n")
	if a.status != "" {
		b.WriteString("  " + errorStyle.Render(a.status) + "\n")
	}
	b.WriteString(dimStyle.Render("\n  enter: sign in · tab: switch field · ctrl+c: quit"))
	return b.String()
}

func (a *App) viewHome() string {
	var list strings.Builder
	list.WriteString(a.search.View() + "\n\n")
	if a.dir.IsLoading() {
		list.WriteString(a.sp.View() + " loading...\n")
	}
	if errText := a.dir.Err(); errText != "" {
		list.WriteString(errorStyle.Render(errText) + "\n")
	}
	for i, chat := range a.chats {
		label := truncate(directory.DisplayTitle(chat), chatListWidth-4)
		if i == a.selected {
			list.WriteString(selectedStyle.Render("> "+label) + "\n")
		} else {
			list.WriteString("  " + label + "\n")
		}
	}

	left := listPaneStyle.Width(chatListWidth).Height(max(5, a.height-2)).Render(list.String())

	var right strings.Builder
	header := "no chat selected"
	if chat := a.engine.Chat(); chat != nil {
		header = directory.DisplayTitle(*chat)
		if !a.engine.Live() {
			header += dimStyle.Render("  (offline)")
		}
		if a.engine.HasMore() {
			header += dimStyle.Render("  · pgup for history")
		}
	}
	right.WriteString(titleStyle.Render(header) + "\n")
	if a.engine.IsLoading() || a.engine.IsLoadingMore() {
		right.WriteString(a.sp.View() + " loading messages...\n")
	}
	right.WriteString(a.vp.View() + "\n")
	right.WriteString(a.compose.View() + "\n")
	if a.status != "" {
		right.WriteString(errorStyle.Render(a.status))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, left, right.String())
}

func truncate(s string, n int) string {
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
