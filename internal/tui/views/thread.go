package views

import (
	"fmt"
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/rpc"
	"github.com/matheus3301/recipebox/internal/tui/ui"
	"github.com/rivo/tview"
)

// Thread shows the messages of the open conversation, oldest first.
type Thread struct {
	*tview.Table
	theme     *ui.Theme
	messages  []gateway.Message
	deletable []string
	title     string
}

// NewThread creates a new message thread view.
func NewThread(theme *ui.Theme) *Thread {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	return &Thread{Table: table, theme: theme, title: "Messages"}
}

// Name implements ui.Component.
func (th *Thread) Name() string { return "Thread" }

// Hints implements ui.Component.
func (th *Thread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "d", Description: "Delete own message"},
		{Key: "r", Description: "Retry"},
		{Key: "Tab", Description: "Details"},
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders a stream response. self is the signed-in user id.
func (th *Thread) Update(resp *rpc.StreamResponse, self string) {
	th.Clear()
	th.messages, th.deletable = nil, nil
	if resp == nil {
		th.SetTitle(" Messages ")
		return
	}
	th.messages = resp.Messages
	th.deletable = resp.Deletable

	name := "Messages"
	if resp.Conversation != nil {
		name = displayName(resp.Conversation.OtherUser)
	}
	th.title = name
	th.SetTitle(fmt.Sprintf(" %s [%s] ", tview.Escape(sanitizeForTerminal(name, true)), resp.State))

	muted := th.theme.MutedColor
	switch {
	case resp.Error != "":
		th.SetCell(0, 0, tview.NewTableCell(" "+tview.Escape(resp.Error)).SetSelectable(false).SetTextColor(th.theme.FlashErrColor))
		th.SetCell(1, 0, tview.NewTableCell(" Press r to retry").SetSelectable(false).SetTextColor(muted))
		return
	case resp.State == "LOADING":
		th.SetCell(0, 0, tview.NewTableCell(" Loading messages...").SetSelectable(false).SetTextColor(muted))
		return
	case len(resp.Messages) == 0:
		th.SetCell(0, 0, tview.NewTableCell(" No messages yet. Press i to say hello.").SetSelectable(false).SetTextColor(muted))
		return
	}

	for row, m := range resp.Messages {
		sender := m.SenderID
		color := th.theme.FgColor
		if resp.Conversation != nil && m.SenderID == resp.Conversation.OtherUser.ID {
			sender = displayName(resp.Conversation.OtherUser)
		}
		if self != "" && m.SenderID == self {
			sender = "You"
			color = th.theme.SelfColor
		}
		th.SetCell(row, 0, tview.NewTableCell(" "+formatTimestamp(m.CreatedAt)).SetTextColor(muted))
		th.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(truncate(sanitizeForTerminal(sender, true), 24))).
			SetTextColor(color).SetAttributes(tcell.AttrBold))
		th.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(m.Content, true))).
			SetExpansion(1).SetTextColor(color))
	}
	th.Select(len(resp.Messages)-1, 0)
	th.ScrollToEnd()
}

// SelectedMessage returns the message under the cursor and whether the
// user may delete it.
func (th *Thread) SelectedMessage() (gateway.Message, bool, bool) {
	row, _ := th.GetSelection()
	if row < 0 || row >= len(th.messages) {
		return gateway.Message{}, false, false
	}
	m := th.messages[row]
	return m, slices.Contains(th.deletable, m.ID), true
}

// Title returns the display name of the open conversation.
func (th *Thread) Title() string { return th.title }
