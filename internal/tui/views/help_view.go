package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/recipebox/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding and command reference.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{TextView: tv}
	hv.render(ui.Tag(theme.MenuKeyColor))
	return hv
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}

var helpSections = []struct {
	title string
	rows  [][2]string
}{
	{"Global", [][2]string{
		{":", "Command mode"},
		{"n", "Notifications"},
		{"Ctrl-R", "Refresh unread counts"},
		{"?", "Help"},
		{"Esc", "Back"},
		{"q", "Quit"},
	}},
	{"Conversations", [][2]string{
		{"Enter", "Open conversation"},
		{"1-9", "Open the Nth conversation"},
		{"/", "Filter (empty to clear)"},
	}},
	{"Thread", [][2]string{
		{"i", "Write a message"},
		{"d", "Delete the selected message (own messages only)"},
		{"r", "Retry loading"},
		{"Tab", "Conversation details"},
	}},
	{"Notifications", [][2]string{
		{"Enter", "Mark read"},
		{"a", "Mark all read"},
		{"d", "Delete"},
		{"m", "Load the next page"},
		{"u", "Toggle unread only"},
	}},
	{"Commands", [][2]string{
		{":chat <user-id> [username]", "Find or start a conversation"},
		{":notifications [unread]", "Open notifications"},
		{":refresh", "Reload conversations and counts"},
		{":logout", "Sign out"},
		{":quit", "Quit"},
	}},
}

func (hv *HelpView) render(kc string) {
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			fmt.Fprintf(&b, "  [%s]%-28s[-:-:-] %s\n", kc, tview.Escape(r[0]), r[1])
		}
	}
	_, _ = fmt.Fprint(hv, b.String())
}
