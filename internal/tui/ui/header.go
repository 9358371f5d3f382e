package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds what the header shows about the daemon session.
type SessionData struct {
	Session             string
	UserID              string
	Status              string
	Polling             bool
	MessagesUnread      int
	NotificationsUnread int
	Uptime              time.Duration
}

// Header shows the session panel, the unread badges and the hints of the
// visible page.
type Header struct {
	*tview.Flex
	theme  *Theme
	info   *tview.TextView
	badges *tview.TextView
	menu   *tview.TextView
}

// NewHeader creates the header row.
func NewHeader(theme *Theme) *Header {
	newText := func() *tview.TextView {
		tv := tview.NewTextView().SetDynamicColors(true)
		tv.SetBackgroundColor(theme.BgColor)
		tv.SetBorderPadding(0, 0, 1, 1)
		return tv
	}
	h := &Header{
		theme:  theme,
		info:   newText(),
		badges: newText(),
		menu:   newText(),
	}
	h.Flex = tview.NewFlex().
		AddItem(h.info, 0, 2, false).
		AddItem(h.badges, 0, 1, false).
		AddItem(h.menu, 0, 2, false)
	return h
}

// SetSession renders the session panel and the badges.
func (h *Header) SetSession(data *SessionData) {
	h.info.Clear()
	h.badges.Clear()
	if data == nil {
		return
	}

	fg := Tag(h.theme.FgColor)
	hl := Tag(h.theme.TableHeaderFg)
	user := data.UserID
	if user == "" {
		user = "-"
	}
	polling := "off"
	if data.Polling {
		polling = "on"
	}
	_, _ = fmt.Fprintf(h.info,
		"[%s::b]Session:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Status:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Polling:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]",
		fg, hl, tview.Escape(data.Session),
		fg, hl, tview.Escape(user),
		fg, hl, data.Status,
		fg, hl, polling,
		fg, hl, formatDuration(data.Uptime),
	)

	_, _ = fmt.Fprintf(h.badges, "%s\n%s",
		h.badge("Messages", data.MessagesUnread),
		h.badge("Notifications", data.NotificationsUnread))
}

func (h *Header) badge(label string, n int) string {
	if n == 0 {
		return fmt.Sprintf("[%s]%s[-]", Tag(h.theme.MutedColor), label)
	}
	return fmt.Sprintf("[%s::b]%s %s[-:-:-]", Tag(h.theme.BadgeColor), label, Badge(n))
}

// SetHints renders the key hints of the visible page.
func (h *Header) SetHints(hints []MenuHint) {
	h.menu.Clear()
	kc := Tag(h.theme.MenuKeyColor)
	lines := make([]string, 0, len(hints))
	for _, hint := range hints {
		lines = append(lines, fmt.Sprintf("[%s::b]<%s>[-:-:-] %s", kc, tview.Escape(hint.Key), hint.Description))
	}
	_, _ = fmt.Fprint(h.menu, strings.Join(lines, "\n"))
}

// Badge formats an unread count the way the badges show it.
func Badge(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "(99+)"
	default:
		return fmt.Sprintf("(%d)", n)
	}
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
