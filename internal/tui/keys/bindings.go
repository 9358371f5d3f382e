package keys

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/recipebox/internal/tui/ui"
)

// Action is one key binding.
type Action struct {
	Key     tcell.Key
	Rune    rune
	Hint    ui.MenuHint
	Handler func()
	// Hidden bindings work but are not listed in the header.
	Hidden bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds key bindings per page, in registration order. Page
// bindings take precedence over global ones.
type Registry struct {
	global []*Action
	pages  map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]*Action)}
}

// AddGlobal registers a binding active on every page.
func (r *Registry) AddGlobal(a *Action) {
	r.global = append(r.global, a)
}

// AddPage registers a binding active on the named page.
func (r *Registry) AddPage(page string, a *Action) {
	r.pages[page] = append(r.pages[page], a)
}

// Hints returns the visible hints for a page, page bindings first.
func (r *Registry) Hints(page string) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, list := range [][]*Action{r.pages[page], r.global} {
		for _, a := range list {
			if !a.Hidden {
				hints = append(hints, a.Hint)
			}
		}
	}
	return hints
}

// HandleEvent runs the first binding of page matching ev. It returns true
// if a handler ran.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	for _, list := range [][]*Action{r.pages[page], r.global} {
		for _, a := range list {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
