// Package ui is the terminal front end: a directory panel, the thread
// viewport and the composer.
package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"chat-client/internal/api"
	"chat-client/internal/attachment"
	"chat-client/internal/directory"
	"chat-client/internal/models"
	"chat-client/internal/session"
	"chat-client/internal/thread"
)

// Panel is the focused panel.
type Panel int

const (
	PanelDirectory Panel = iota
	PanelThread
	PanelComposer
	panelCount
)

// Options tune the app.
type Options struct {
	SearchDebounce time.Duration
	// Identity is the signed-in user. The id may be learned while running.
	Identity *session.Identity
}

type App struct {
	ctx    context.Context
	dir    *directory.Directory
	thread *thread.View
	log    logrus.FieldLogger
	opts   Options
	keys   KeyMap
	styles Styles

	focus  Panel
	width  int
	height int

	search   textinput.Model
	composer textinput.Model
	viewport viewport.Model

	conversations []models.Conversation
	results       []models.User
	cursor        int
	searchSeq     int

	toast      string
	toastError bool
}

func New(ctx context.Context, dir *directory.Directory, view *thread.View, log logrus.FieldLogger, opts Options) *App {
	search := textinput.New()
	search.Placeholder = "search users"
	search.Prompt = "/ "
	search.CharLimit = 64
	search.Focus()

	composer := textinput.New()
	composer.Placeholder = "write a message"
	composer.Prompt = "> "

	return &App{
		ctx:      ctx,
		dir:      dir,
		thread:   view,
		log:      log,
		opts:     opts,
		keys:     DefaultKeyMap(),
		styles:   DefaultStyles(),
		search:   search,
		composer: composer,
		viewport: viewport.New(60, 20),
		width:    100,
		height:   30,
	}
}

// Message types for internal communication.
type conversationsLoadedMsg struct {
	conversations []models.Conversation
	err           error
}

type searchTickMsg struct {
	seq   int
	query string
}

type searchResultMsg struct {
	seq   int
	users []models.User
	err   error
}

type threadLoadedMsg struct {
	conversationID int
	err            error
}

type sendDoneMsg struct {
	conversationID int
	sent           bool
	err            error
}

type conversationStartedMsg struct {
	conversationID int
	err            error
}

type attachedMsg struct {
	file models.PendingAttachment
	err  error
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.loadConversations())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateSizes()
		return a, nil

	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case conversationsLoadedMsg:
		a.conversations = msg.conversations
		if msg.err != nil {
			a.showError(msg.err)
		}
		a.clampCursor()
		return a, nil

	case searchTickMsg:
		if msg.seq != a.searchSeq {
			return a, nil
		}
		return a, a.runSearch(msg.seq, msg.query)

	case searchResultMsg:
		if msg.seq != a.searchSeq {
			return a, nil
		}
		a.results = msg.users
		a.cursor = 0
		if msg.err != nil {
			a.showError(msg.err)
		}
		return a, nil

	case threadLoadedMsg:
		if msg.conversationID != a.thread.ConversationID() {
			return a, nil
		}
		if msg.err != nil {
			a.showError(msg.err)
		}
		a.refreshViewport()
		return a, nil

	case sendDoneMsg:
		switch {
		case msg.sent && msg.conversationID != a.thread.ConversationID():
			a.showInfo("Message sent")
		case msg.sent:
			a.composer.Reset()
			a.refreshViewport()
			if msg.err != nil {
				a.showError(msg.err)
			} else {
				a.showInfo("Message sent")
			}
		case msg.err != nil:
			a.showError(msg.err)
		}
		return a, nil

	case conversationStartedMsg:
		if msg.conversationID <= 0 {
			a.showError(msg.err)
			return a, nil
		}
		a.conversations = a.dir.Conversations()
		a.search.Reset()
		a.results = nil
		a.openConversation(msg.conversationID)
		if msg.err != nil {
			a.showError(msg.err)
		} else {
			a.showInfo("Conversation started")
		}
		return a, a.loadThread(msg.conversationID)

	case attachedMsg:
		if msg.err != nil {
			a.showError(msg.err)
			return a, nil
		}
		a.composer.Reset()
		a.thread.SetText("")
		a.showInfo("Attached " + msg.file.FileName)
		return a, nil
	}

	return a, a.forwardToFocused(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit
	case key.Matches(msg, a.keys.ForceQ) && a.focus == PanelThread:
		return tea.Quit
	case key.Matches(msg, a.keys.Tab):
		a.cycleFocus(1)
		return nil
	case key.Matches(msg, a.keys.ShiftTab):
		a.cycleFocus(-1)
		return nil
	case key.Matches(msg, a.keys.Refresh):
		return a.refresh()
	case key.Matches(msg, a.keys.Start):
		return a.startConversation()
	}

	switch a.focus {
	case PanelDirectory:
		return a.handleDirectoryKey(msg)
	case PanelComposer:
		return a.handleComposerKey(msg)
	default:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return cmd
	}
}

func (a *App) handleDirectoryKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return nil
	case key.Matches(msg, a.keys.Down):
		if a.cursor < a.listLen()-1 {
			a.cursor++
		}
		return nil
	case key.Matches(msg, a.keys.Enter):
		if a.showingResults() {
			if a.cursor < len(a.results) {
				picked := a.results[a.cursor]
				a.dir.Remember(a.ctx, picked.DisplayName)
				a.setFocus(PanelComposer)
				a.showInfo(fmt.Sprintf("Type a first message for %s, then ctrl+n", picked.DisplayName))
			}
			return nil
		}
		if a.cursor >= len(a.conversations) {
			return nil
		}
		id := a.conversations[a.cursor].ID
		a.openConversation(id)
		return a.loadThread(id)
	}

	before := a.search.Value()
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	if a.search.Value() == before {
		return cmd
	}

	a.searchSeq++
	query := a.search.Value()
	if len([]rune(strings.TrimSpace(query))) < directory.MinQueryLength {
		a.results = nil
		a.clampCursor()
		return cmd
	}
	seq := a.searchSeq
	tick := tea.Tick(a.opts.SearchDebounce, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq, query: query}
	})
	return tea.Batch(cmd, tick)
}

func (a *App) handleComposerKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Enter):
		return a.send()
	case key.Matches(msg, a.keys.Attach):
		return a.attach(strings.TrimSpace(a.composer.Value()))
	case key.Matches(msg, a.keys.Detach):
		a.thread.RemoveAttachment()
		return nil
	}

	var cmd tea.Cmd
	a.composer, cmd = a.composer.Update(msg)
	a.thread.SetText(a.composer.Value())
	return cmd
}

func (a *App) forwardToFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.focus {
	case PanelDirectory:
		a.search, cmd = a.search.Update(msg)
	case PanelComposer:
		a.composer, cmd = a.composer.Update(msg)
	default:
		a.viewport, cmd = a.viewport.Update(msg)
	}
	return cmd
}

func (a *App) openConversation(id int) {
	a.dir.Select(id)
	a.thread.Open(id)
	a.composer.Reset()
	a.viewport.SetContent("")
}

func (a *App) cycleFocus(direction int) {
	next := (int(a.focus) + direction + int(panelCount)) % int(panelCount)
	a.setFocus(Panel(next))
}

func (a *App) setFocus(p Panel) {
	a.focus = p
	a.search.Blur()
	a.composer.Blur()
	switch p {
	case PanelDirectory:
		a.search.Focus()
	case PanelComposer:
		a.composer.Focus()
	}
}

func (a *App) showingResults() bool {
	return len(a.results) > 0
}

func (a *App) listLen() int {
	if a.showingResults() {
		return len(a.results)
	}
	return len(a.conversations)
}

func (a *App) clampCursor() {
	if a.cursor >= a.listLen() {
		a.cursor = a.listLen() - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) showError(err error) {
	if err == nil {
		return
	}
	a.log.WithError(err).Debug("showing error toast")
	a.toast = toastFor(err)
	a.toastError = true
}

func (a *App) showInfo(text string) {
	a.toast = text
	a.toastError = false
}

// toastFor maps each failure class to the line shown to the user.
func toastFor(err error) string {
	switch {
	case errors.Is(err, api.ErrUnauthenticated):
		return "Not signed in: provide a token with -token or CHAT_TOKEN"
	case errors.Is(err, directory.ErrCreateFailed):
		return "Could not start the conversation"
	case errors.Is(err, attachment.ErrUploadFailed):
		return "Image upload failed, your draft was kept"
	case errors.Is(err, attachment.ErrNotImage):
		return "Only image files can be attached"
	case errors.Is(err, attachment.ErrTooLarge):
		return "Image is too large"
	case errors.Is(err, thread.ErrNoConversation):
		return "Select a conversation first"
	case errors.Is(err, thread.ErrSendInProgress):
		return "Still sending the previous message"
	case api.IsNetworkOrServer(err):
		return "Network or server error, try ctrl+r"
	default:
		return "Error: " + err.Error()
	}
}

func (a *App) updateSizes() {
	threadWidth := a.width - directoryWidth - 6
	if threadWidth < 20 {
		threadWidth = 20
	}
	threadHeight := a.height - 9
	if threadHeight < 3 {
		threadHeight = 3
	}
	a.viewport.Width = threadWidth
	a.viewport.Height = threadHeight
	a.composer.Width = threadWidth - 4
	a.search.Width = directoryWidth - 6
	a.refreshViewport()
}

func (a *App) refreshViewport() {
	a.viewport.SetContent(a.renderMessages())
	a.viewport.GotoBottom()
}

func (a *App) loadConversations() tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		convs, err := a.dir.List(ctx)
		return conversationsLoadedMsg{conversations: convs, err: err}
	}
}

func (a *App) loadThread(id int) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return threadLoadedMsg{conversationID: id, err: a.thread.Load(ctx)}
	}
}

func (a *App) refresh() tea.Cmd {
	cmds := []tea.Cmd{a.loadConversations()}
	if id := a.thread.ConversationID(); id > 0 {
		cmds = append(cmds, a.loadThread(id))
	}
	return tea.Batch(cmds...)
}

func (a *App) runSearch(seq int, query string) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		users, err := a.dir.Search(ctx, query)
		return searchResultMsg{seq: seq, users: users, err: err}
	}
}

func (a *App) send() tea.Cmd {
	a.thread.SetText(a.composer.Value())
	ctx := a.ctx
	id := a.thread.ConversationID()
	return func() tea.Msg {
		sent, err := a.thread.Send(ctx)
		return sendDoneMsg{conversationID: id, sent: sent, err: err}
	}
}

func (a *App) startConversation() tea.Cmd {
	if !a.showingResults() || a.cursor >= len(a.results) {
		a.showError(fmt.Errorf("%w: pick a user from the search results", directory.ErrCreateFailed))
		return nil
	}
	target := a.results[a.cursor]
	a.dir.Remember(a.ctx, target.DisplayName)
	text := a.composer.Value()
	ctx := a.ctx
	return func() tea.Msg {
		id, err := a.dir.StartConversation(ctx, target.ID, text)
		return conversationStartedMsg{conversationID: id, err: err}
	}
}

func (a *App) attach(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return attachedMsg{err: fmt.Errorf("open attachment: %w", err)}
		}
		defer f.Close()
		file, err := a.thread.AttachFile(filepath.Base(path), f)
		return attachedMsg{file: file, err: err}
	}
}
