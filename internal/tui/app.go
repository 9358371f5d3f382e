// Package tui is the terminal client of the session daemon.
package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/recipebox/internal/status"
	"github.com/matheus3301/recipebox/internal/tui/client"
	"github.com/matheus3301/recipebox/internal/tui/keys"
	"github.com/matheus3301/recipebox/internal/tui/model"
	"github.com/matheus3301/recipebox/internal/tui/ui"
	"github.com/matheus3301/recipebox/internal/tui/views"
	"github.com/rivo/tview"
)

const callTimeout = 15 * time.Second

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	root     *tview.Flex
	theme    *ui.Theme
	pages    *ui.Pages
	focus    map[string]tview.Primitive
	header   *ui.Header
	crumbs   *ui.Crumbs
	prompt   *ui.Prompt
	flash    *ui.FlashModel
	flashBar *ui.FlashBar
	registry *keys.Registry
	vm       *model.ViewModel
	session  string

	convList  *views.ConversationList
	thread    *views.Thread
	info      *views.ConversationInfo
	notifs    *views.NotificationList
	help      *views.HelpView
	signedOut *views.SignedOut

	active     bool
	unreadOnly bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		theme:     theme,
		pages:     ui.NewPages(),
		focus:     make(map[string]tview.Primitive),
		header:    ui.NewHeader(theme),
		crumbs:    ui.NewCrumbs(theme),
		prompt:    ui.NewPrompt(theme),
		flash:     ui.NewFlashModel(),
		flashBar:  ui.NewFlashBar(theme),
		registry:  keys.NewRegistry(),
		vm:        model.NewViewModel(c.Inbox),
		session:   sessionName,
		convList:  views.NewConversationList(theme),
		thread:    views.NewThread(theme),
		info:      views.NewConversationInfo(theme),
		notifs:    views.NewNotificationList(theme),
		help:      views.NewHelpView(theme),
		signedOut: views.NewSignedOut(theme),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.setupLayout()
	a.setupBindings()
	a.setupPrompt()
	a.signedOut.Show(sessionName, "connecting")
	a.pages.Reset(a.convList)

	return a
}

func (a *App) setupLayout() {
	for _, p := range []struct {
		c    ui.Component
		item tview.Primitive
	}{
		{a.convList, a.convList},
		{a.thread, a.thread},
		{a.info, a.info},
		{a.notifs, a.notifs},
		{a.help, a.help},
		{a.signedOut, a.signedOut},
	} {
		a.pages.Add(p.c, p.item)
		a.focus[p.c.Name()] = p.item
	}

	a.pages.SetOnChange(func(stack []ui.Component) {
		a.crumbs.Update(stack)
		top := stack[len(stack)-1]
		a.header.SetHints(append(top.Hints(), a.registry.Hints("")...))
		a.app.SetFocus(a.focus[top.Name()])
	})

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.header, 6, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flashBar, 1, 0, false)
	a.root.SetBackgroundColor(a.theme.BgColor)
	a.app.SetRoot(a.root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Text input owns every key while it is focused.
		if a.app.GetFocus() == a.prompt.InputField {
			return event
		}
		if event.Key() == tcell.KeyEscape {
			a.pages.Pop()
			return nil
		}
		top := a.pages.Top()
		if top != nil && a.registry.HandleEvent(top.Name(), event) {
			return nil
		}
		return event
	})
}

func (a *App) runeAction(r rune, label string, fn func()) *keys.Action {
	return &keys.Action{Key: tcell.KeyRune, Rune: r, Hint: ui.MenuHint{Key: string(r), Description: label}, Handler: fn}
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(a.runeAction(':', "Command", func() { a.showPrompt(ui.PromptCommand) }))
	a.registry.AddGlobal(a.runeAction('n', "Notifications", a.showNotifications))
	a.registry.AddGlobal(a.runeAction('?', "Help", func() { a.pages.Push(a.help) }))
	a.registry.AddGlobal(a.runeAction('q', "Quit", a.Stop))
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyCtrlR, Hint: ui.MenuHint{Key: "Ctrl-R", Description: "Refresh"},
		Handler: a.refresh,
	})

	page := func(c ui.Component, r rune, fn func()) {
		act := a.runeAction(r, "", fn)
		act.Hidden = true
		a.registry.AddPage(c.Name(), act)
	}

	list := a.convList
	a.registry.AddPage(list.Name(), &keys.Action{Key: tcell.KeyEnter, Hidden: true, Handler: func() {
		if conv, ok := list.SelectedConversation(); ok {
			a.open(func(ctx context.Context) error { return a.vm.OpenConversation(ctx, conv) })
		}
	}})
	page(list, '/', func() { a.showPrompt(ui.PromptFilter) })
	for n := 1; n <= 9; n++ {
		page(list, rune('0'+n), func() {
			if conv, ok := list.ByIndex(n); ok {
				a.open(func(ctx context.Context) error { return a.vm.OpenConversation(ctx, conv) })
			}
		})
	}

	page(a.thread, 'i', func() { a.showPrompt(ui.PromptCompose) })
	page(a.thread, 'r', func() { a.do(a.vm.Retry, nil) })
	page(a.thread, 'd', a.deleteSelectedMessage)
	a.registry.AddPage(a.thread.Name(), &keys.Action{Key: tcell.KeyTab, Hidden: true, Handler: func() {
		if s := a.vm.Stream(); s != nil && s.Conversation != nil {
			a.info.Update(s.Conversation, len(s.Messages))
			a.pages.Push(a.info)
		}
	}})

	nl := a.notifs
	a.registry.AddPage(nl.Name(), &keys.Action{Key: tcell.KeyEnter, Hidden: true, Handler: func() {
		if n, ok := nl.SelectedNotification(); ok && !n.IsRead {
			a.do(func(ctx context.Context) error { return a.vm.MarkNotificationRead(ctx, n.ID) }, nil)
		}
	}})
	page(nl, 'a', func() { a.do(a.vm.MarkAllNotificationsRead, nil) })
	page(nl, 'd', func() {
		if n, ok := nl.SelectedNotification(); ok {
			a.do(func(ctx context.Context) error { return a.vm.DeleteNotification(ctx, n.ID) }, nil)
		}
	})
	page(nl, 'm', func() { a.do(a.vm.LoadMoreNotifications, nil) })
	page(nl, 'u', func() {
		a.unreadOnly = !a.unreadOnly
		unread := a.unreadOnly
		a.do(func(ctx context.Context) error { return a.vm.LoadNotifications(ctx, unread) }, nil)
	})
}

func (a *App) setupPrompt() {
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		case ui.PromptFilter:
			a.convList.SetFilter(text)
		case ui.PromptCompose:
			a.do(func(ctx context.Context) error { return a.vm.Send(ctx, text) }, nil)
		}
	})
	a.prompt.SetOnCancel(func(ui.PromptMode) { a.hidePrompt() })
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt.InputField)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	if top := a.pages.Top(); top != nil {
		a.app.SetFocus(a.focus[top.Name()])
	}
}

func (a *App) runCommand(cmd Command) {
	if err := cmd.Validate(); err != nil {
		a.flash.Err(err)
		a.render()
		return
	}
	switch cmd.Name {
	case "chat":
		userID, username := cmd.Args[0], ""
		if len(cmd.Args) > 1 {
			username = cmd.Args[1]
		}
		a.open(func(ctx context.Context) error { return a.vm.StartConversation(ctx, userID, username) })
	case "notifications":
		a.unreadOnly = len(cmd.Args) == 1
		a.showNotifications()
	case "refresh":
		a.refresh()
	case "logout":
		a.do(a.vm.Logout, func() { a.flash.Info("Signed out") })
	case "help":
		a.pages.Push(a.help)
	case "quit":
		a.Stop()
	}
}

// do runs a daemon call off the UI goroutine, flashes its error and
// redraws. then runs on the UI goroutine after a successful call.
func (a *App) do(fn func(ctx context.Context) error, then func()) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		err := fn(ctx)
		if err != nil {
			a.flash.Err(err)
		}
		a.app.QueueUpdateDraw(func() {
			if err == nil && then != nil {
				then()
			}
			a.render()
		})
	}()
}

// open runs a call that opens a conversation and shows the thread. The
// thread is shown on load errors too, so they can be retried.
func (a *App) open(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		err := fn(ctx)
		if err != nil {
			a.flash.Err(err)
		}
		a.app.QueueUpdateDraw(func() {
			if a.vm.Stream() != nil {
				a.pages.Push(a.thread)
			}
			a.render()
		})
	}()
}

func (a *App) showNotifications() {
	unread := a.unreadOnly
	a.pages.Push(a.notifs)
	a.do(func(ctx context.Context) error { return a.vm.LoadNotifications(ctx, unread) }, nil)
}

func (a *App) refresh() {
	a.do(func(ctx context.Context) error {
		if err := a.vm.LoadConversations(ctx, false); err != nil {
			return err
		}
		return a.vm.RefreshUnread(ctx)
	}, func() { a.flash.Info("Refreshed") })
}

func (a *App) deleteSelectedMessage() {
	m, deletable, ok := a.thread.SelectedMessage()
	switch {
	case !ok:
		return
	case !deletable:
		a.flash.Warn("You can only delete your own messages")
		a.render()
	default:
		a.do(func(ctx context.Context) error { return a.vm.DeleteMessage(ctx, m.ID) }, func() { a.flash.Info("Message deleted") })
	}
}

// render copies the view model into the views. It runs on the UI
// goroutine.
func (a *App) render() {
	st := a.vm.Status()
	self := ""
	if st != nil {
		self = st.UserID
		a.header.SetSession(&ui.SessionData{
			Session:             st.Session,
			UserID:              st.UserID,
			Status:              st.Status,
			Polling:             st.Polling,
			MessagesUnread:      st.MessagesUnread,
			NotificationsUnread: st.NotificationsUnread,
			Uptime:              time.Duration(st.UptimeMs) * time.Millisecond,
		})
		a.followStatus(status.State(st.Status))
	}

	convs, selected := a.vm.Conversations()
	a.convList.Update(convs, selected)
	a.thread.Update(a.vm.Stream(), self)
	a.notifs.Update(a.vm.Feed())
	a.flashBar.Update(a.flash.Current())
}

// followStatus swaps between the login page and the conversation list as
// the daemon signs in and out.
func (a *App) followStatus(s status.State) {
	switch s {
	case status.Active:
		if !a.active {
			a.active = true
			a.pages.Reset(a.convList)
			a.do(func(ctx context.Context) error { return a.vm.LoadConversations(ctx, false) }, nil)
		}
	case status.SignedOut, status.Error:
		if a.active || a.pages.Top() != a.signedOut {
			a.active = false
			a.signedOut.Show(a.session, string(s))
			a.pages.Reset(a.signedOut)
		}
	}
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		if err := a.vm.LoadStatus(ctx); err != nil {
			a.flash.Err(err)
		}
		cancel()
		a.app.QueueUpdateDraw(a.render)
	}()
	go a.vm.Watch(a.ctx, nil)
	go a.refreshLoop()

	defer a.cancel()
	return a.app.Run()
}

// refreshLoop redraws on view model changes, and every second for the
// uptime and flash expiry.
func (a *App) refreshLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.vm.RefreshCh():
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
			_ = a.vm.LoadStatus(ctx)
			cancel()
		case <-a.ctx.Done():
			return
		}
		a.app.QueueUpdateDraw(a.render)
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
