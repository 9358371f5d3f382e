package ui

// MenuHint describes a keyboard shortcut for display in the header.
type MenuHint struct {
	Key         string
	Description string
}

// Component is implemented by every page of the TUI.
type Component interface {
	// Name is the breadcrumb label of the page.
	Name() string
	Hints() []MenuHint
}
