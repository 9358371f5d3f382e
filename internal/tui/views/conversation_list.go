package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the main conversation table.
type ConversationList struct {
	*tview.Table
	theme    *ui.Theme
	convs    []gateway.Conversation
	visible  []gateway.Conversation
	selected string
	jump     bool
	filter   string
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{Table: table, theme: theme}
	cl.render()
	return cl
}

// Name implements ui.Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Hints implements ui.Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "1-9", Description: "Jump"},
	}
}

// Update replaces the listed conversations. selected is the other user id
// of the conversation last opened; the cursor moves to it when it changes.
func (cl *ConversationList) Update(convs []gateway.Conversation, selected string) {
	cl.convs = convs
	cl.jump = selected != "" && selected != cl.selected
	cl.selected = selected
	cl.render()
}

// SetFilter filters by name, username and last message. Empty clears it.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = strings.TrimSpace(filter)
	cl.render()
}

// Filter returns the active filter.
func (cl *ConversationList) Filter() string { return cl.filter }

func (cl *ConversationList) matches(c gateway.Conversation) bool {
	if cl.filter == "" {
		return true
	}
	f := strings.ToLower(cl.filter)
	fields := []string{c.OtherUser.Name, c.OtherUser.Username}
	if c.LastMessage != nil {
		fields = append(fields, c.LastMessage.Content)
	}
	for _, s := range fields {
		if strings.Contains(strings.ToLower(s), f) {
			return true
		}
	}
	return false
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	cur, _ := cl.GetSelection()
	cl.visible = cl.visible[:0]
	for _, c := range cl.convs {
		if cl.matches(c) {
			cl.visible = append(cl.visible, c)
		}
	}

	if cur < 1 || cur > len(cl.visible) {
		cur = 1
	}
	cl.Select(cur, 0)

	for i, c := range cl.visible {
		row := i + 1
		name := displayName(c.OtherUser)
		color := cl.theme.FgColor
		attrs := tcell.AttrNone
		if c.UnreadCount > 0 {
			name = ui.Badge(c.UnreadCount) + " " + name
			color = cl.theme.UnreadColor
			attrs = tcell.AttrBold
		}

		preview := ""
		when := ""
		switch {
		case c.IsDraft():
			preview = "(new conversation)"
			color = cl.theme.DraftColor
		case c.LastMessage != nil:
			preview = c.LastMessage.Content
			when = formatTimestamp(c.LastMessage.CreatedAt)
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name, true))).
			SetExpansion(1).SetTextColor(color).SetAttributes(attrs))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(truncate(sanitizeForTerminal(preview, true), 60))).
			SetExpansion(2).SetTextColor(color))
		cl.SetCell(row, 2, tview.NewTableCell(when+" ").
			SetTextColor(color).SetAlign(tview.AlignRight))

		if cl.jump && c.OtherUser.ID == cl.selected {
			cl.Select(row, 0)
		}
	}

	cl.jump = false

	if len(cl.visible) == 0 {
		msg := " No conversations yet. Start one with :chat <user-id>"
		if cl.filter != "" {
			msg = " Nothing matches the filter"
		}
		cl.SetCell(1, 0, tview.NewTableCell(msg).SetSelectable(false).SetTextColor(cl.theme.MutedColor))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", len(cl.visible), len(cl.convs), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.convs)))
	}
}

// SelectedConversation returns the conversation under the cursor.
func (cl *ConversationList) SelectedConversation() (gateway.Conversation, bool) {
	row, _ := cl.GetSelection()
	return cl.ByIndex(row)
}

// ByIndex returns the nth visible conversation, counting from 1.
func (cl *ConversationList) ByIndex(n int) (gateway.Conversation, bool) {
	if n < 1 || n > len(cl.visible) {
		return gateway.Conversation{}, false
	}
	return cl.visible[n-1], true
}

func displayName(u gateway.User) string {
	switch {
	case u.Name != "" && u.Username != "":
		return fmt.Sprintf("%s (@%s)", u.Name, u.Username)
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return "@" + u.Username
	default:
		return u.ID
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
