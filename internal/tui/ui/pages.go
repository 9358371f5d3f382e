package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Pages is a stack of named pages over tview.Pages. Every pushed page is a
// Component so the header can show its breadcrumb and hints.
type Pages struct {
	*tview.Pages
	stack    []Component
	onChange func(stack []Component)
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{Pages: tview.NewPages()}
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func(stack []Component)) {
	p.onChange = fn
}

// Add registers a page without showing it.
func (p *Pages) Add(c Component, item tview.Primitive) {
	p.AddPage(c.Name(), item, true, false)
}

// Push shows c on top of the stack. Pushing the current top is a no-op.
func (p *Pages) Push(c Component) {
	if top := p.Top(); top != nil && top.Name() == c.Name() {
		return
	}
	if top := p.Top(); top != nil {
		p.HidePage(top.Name())
	}
	p.stack = append(p.stack, c)
	p.ShowPage(c.Name())
	p.SendToFront(c.Name())
	p.notify()
}

// Pop removes the top page and shows the previous one. The root page is
// never popped. It returns false when nothing was popped.
func (p *Pages) Pop() bool {
	if len(p.stack) <= 1 {
		return false
	}
	p.HidePage(p.stack[len(p.stack)-1].Name())
	p.stack = p.stack[:len(p.stack)-1]
	current := p.stack[len(p.stack)-1].Name()
	p.ShowPage(current)
	p.SendToFront(current)
	p.notify()
	return true
}

// Top returns the visible page, or nil when the stack is empty.
func (p *Pages) Top() Component {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

// Depth returns the current stack depth.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Reset clears the stack and shows only c.
func (p *Pages) Reset(c Component) {
	for _, old := range p.stack {
		p.HidePage(old.Name())
	}
	p.stack = []Component{c}
	p.ShowPage(c.Name())
	p.SendToFront(c.Name())
	p.notify()
}

func (p *Pages) notify() {
	if p.onChange != nil {
		stack := make([]Component, len(p.stack))
		copy(stack, p.stack)
		p.onChange(stack)
	}
}

// Crumbs renders the page stack as a breadcrumb trail.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &Crumbs{TextView: tv, theme: theme}
}

// Update renders the breadcrumb trail from the page stack.
func (c *Crumbs) Update(stack []Component) {
	c.Clear()
	parts := make([]string, 0, len(stack))
	for i, page := range stack {
		fg, bg := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg
		if i == len(stack)-1 {
			fg, bg = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:b] %s [-:-:-]", Tag(fg), Tag(bg), tview.Escape(page.Name())))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " "))
}
