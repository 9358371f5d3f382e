package views

import (
	"fmt"

	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationInfo shows who the open conversation is with.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{TextView: tv, theme: theme}
}

// Name implements ui.Component.
func (ci *ConversationInfo) Name() string { return "Details" }

// Hints implements ui.Component.
func (ci *ConversationInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}

// Update renders conversation details.
func (ci *ConversationInfo) Update(conv *gateway.Conversation, messages int) {
	ci.Clear()
	if conv == nil {
		return
	}

	fg := ui.Tag(ci.theme.FgColor)
	hl := ui.Tag(ci.theme.TableHeaderFg)
	orDash := func(s string) string {
		if s == "" {
			return "-"
		}
		return tview.Escape(sanitizeForTerminal(s, true))
	}

	id := conv.ID
	if conv.IsDraft() {
		id = "(draft, created by the first message)"
	}
	lastActive := "-"
	if conv.LastMessage != nil {
		lastActive = conv.LastMessage.CreatedAt.Local().Format("2006-01-02 15:04")
	}

	rows := [][2]string{
		{"Name", orDash(conv.OtherUser.Name)},
		{"Username", orDash(conv.OtherUser.Username)},
		{"User ID", orDash(conv.OtherUser.ID)},
		{"Avatar", orDash(conv.OtherUser.AvatarURL)},
		{"Conversation", orDash(id)},
		{"Loaded", fmt.Sprintf("%d messages", messages)},
		{"Last Active", lastActive},
	}
	_, _ = fmt.Fprintln(ci)
	for _, r := range rows {
		_, _ = fmt.Fprintf(ci, " [%s::b]%-13s[-:-:-] [%s]%s[-]\n", fg, r[0]+":", hl, r[1])
	}
	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(displayName(conv.OtherUser), true))))
}
