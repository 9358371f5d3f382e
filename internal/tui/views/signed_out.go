package views

import (
	"fmt"

	"github.com/matheus3301/recipebox/internal/tui/ui"
	"github.com/rivo/tview"
)

// SignedOut is shown while the daemon has no usable credentials.
type SignedOut struct {
	*tview.TextView
	theme *ui.Theme
}

// NewSignedOut creates the signed-out page.
func NewSignedOut(theme *ui.Theme) *SignedOut {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Login Required ")
	tv.SetTitleColor(theme.TitleColor)

	return &SignedOut{TextView: tv, theme: theme}
}

// Name implements ui.Component.
func (so *SignedOut) Name() string { return "Login" }

// Hints implements ui.Component.
func (so *SignedOut) Hints() []ui.MenuHint { return nil }

// Show renders the login instructions for session. reason is the daemon
// status, e.g. SIGNED_OUT or ERROR.
func (so *SignedOut) Show(session, reason string) {
	so.Clear()
	flag := ""
	if session != "" {
		flag = " --session " + session
	}
	_, _ = fmt.Fprintf(so,
		"\n\n[%s::b]Session is %s[-:-:-]\n\n"+
			"Sign in from another terminal:\n\n"+
			"[%s]recipeboxctl%s login --access-token <token> --refresh-token <token> --user-id <id>[-]\n\n"+
			"[%s]This screen updates when the daemon becomes active.[-]",
		ui.Tag(so.theme.FlashWarnColor), tview.Escape(reason),
		ui.Tag(so.theme.MenuKeyColor), tview.Escape(flag),
		ui.Tag(so.theme.MutedColor))
}
