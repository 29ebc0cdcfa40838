package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chat-client/internal/models"
	"chat-client/internal/thread"
)

const directoryWidth = 32

func (a *App) View() string {
	left := a.panelStyle(PanelDirectory).
		Width(directoryWidth).
		Height(a.height - 4).
		Render(a.renderDirectory())

	messages := a.panelStyle(PanelThread).Render(a.renderThreadHeader() + "\n" + a.viewport.View())
	composer := a.panelStyle(PanelComposer).Render(a.renderComposer())
	right := lipgloss.JoinVertical(lipgloss.Left, messages, composer)

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left, body, a.renderStatusBar())
}

func (a *App) panelStyle(p Panel) lipgloss.Style {
	if a.focus == p {
		return a.styles.FocusedPanel
	}
	return a.styles.Panel
}

func (a *App) renderDirectory() string {
	var b strings.Builder
	b.WriteString(a.search.View())
	b.WriteString("\n\n")

	if a.showingResults() {
		b.WriteString(a.styles.Title.Render("Users"))
		b.WriteString("\n")
		for i, u := range a.results {
			b.WriteString(a.renderItem(i, u.DisplayName, false))
			b.WriteString("\n")
		}
		return b.String()
	}

	if a.search.Value() == "" {
		if recent := a.dir.Recent(); len(recent) > 0 {
			b.WriteString(a.styles.Muted.Render("recent: " + strings.Join(recent, ", ")))
			b.WriteString("\n\n")
		}
	}

	b.WriteString(a.styles.Title.Render("Conversations"))
	b.WriteString("\n")
	if len(a.conversations) == 0 {
		b.WriteString(a.styles.Muted.Render("  no conversations"))
		return b.String()
	}
	active := a.dir.Active()
	for i, c := range a.conversations {
		b.WriteString(a.renderItem(i, a.conversationLabel(c), c.ID == active))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) renderItem(i int, label string, active bool) string {
	if i == a.cursor && a.focus == PanelDirectory {
		return a.styles.Selected.Render(label)
	}
	if active {
		return a.styles.Unselected.Inherit(a.styles.Active).Render(label)
	}
	return a.styles.Unselected.Render(label)
}

// conversationLabel names a conversation after the other participants.
func (a *App) conversationLabel(c models.Conversation) string {
	var names []string
	for _, p := range c.Participants {
		if a.opts.Identity.Owns(p.ID) {
			continue
		}
		names = append(names, p.DisplayName)
	}
	if len(names) == 0 {
		return c.Title()
	}
	return strings.Join(names, ", ")
}

func (a *App) renderThreadHeader() string {
	conv := a.thread.Conversation()
	if conv.ID == 0 {
		return a.styles.Muted.Render("Select a conversation")
	}
	return a.styles.Title.Render(a.conversationLabel(conv))
}

func (a *App) renderMessages() string {
	msgs := a.thread.Messages()
	if len(msgs) == 0 {
		return a.styles.Muted.Render("No messages yet")
	}

	var b strings.Builder
	for _, m := range msgs {
		name := m.Sender.DisplayName
		style := a.styles.OtherMessage
		if a.thread.IsMine(m) {
			name = "you"
			style = a.styles.OwnMessage
		}
		fmt.Fprintf(&b, "%s %s\n", a.styles.Muted.Render(m.CreatedAt.Local().Format("15:04")), style.Render(name))
		if body := m.Body(); body != "" {
			b.WriteString("  " + body + "\n")
		}
		if m.HasImage() {
			b.WriteString("  " + a.styles.Image.Render("[image] "+*m.ImageURL) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) renderComposer() string {
	line := a.composer.View()
	if file, ok := a.thread.Pending(); ok {
		line = a.styles.Image.Render(fmt.Sprintf("[%s, %d bytes] ", file.FileName, len(file.Data))) + line
	}
	if a.thread.State() == thread.Sending {
		line += a.styles.Muted.Render("  sending...")
	}
	return line
}

func (a *App) renderStatusBar() string {
	var toast string
	if a.toast != "" {
		if a.toastError {
			toast = a.styles.Error.Render(a.toast)
		} else {
			toast = a.styles.Info.Render(a.toast)
		}
	}

	var help []string
	for _, k := range a.keys.ShortHelp() {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	user := ""
	if name := a.opts.Identity.Username(); name != "" {
		user = a.styles.Muted.Render("@"+name) + " "
	}
	return toast + "\n" + user + a.styles.Help.Render(strings.Join(help, " • "))
}
