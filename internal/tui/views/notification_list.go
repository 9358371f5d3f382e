package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/rpc"
	"github.com/matheus3301/recipebox/internal/tui/ui"
	"github.com/rivo/tview"
)

// NotificationList is the paginated notification feed.
type NotificationList struct {
	*tview.Table
	theme *ui.Theme
	items []gateway.Notification
}

// NewNotificationList creates the notification table.
func NewNotificationList(theme *ui.Theme) *NotificationList {
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
	table.SetTitle(" Notifications ")

	return &NotificationList{Table: table, theme: theme}
}

// Name implements ui.Component.
func (nl *NotificationList) Name() string { return "Notifications" }

// Hints implements ui.Component.
func (nl *NotificationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Mark read"},
		{Key: "a", Description: "Mark all read"},
		{Key: "d", Description: "Delete"},
		{Key: "m", Description: "Load more"},
		{Key: "u", Description: "Unread only"},
		{Key: "Esc", Description: "Back"},
	}
}

var typeLabels = map[gateway.NotificationType]string{
	gateway.NotificationLike:         "LIKE",
	gateway.NotificationComment:      "COMMENT",
	gateway.NotificationFollow:       "FOLLOW",
	gateway.NotificationMessage:      "MESSAGE",
	gateway.NotificationRecipeMatch:  "MATCH",
	gateway.NotificationMention:      "MENTION",
	gateway.NotificationRecipeShared: "SHARED",
}

// Update renders a feed response.
func (nl *NotificationList) Update(resp *rpc.NotificationsResponse) {
	row, _ := nl.GetSelection()
	nl.Clear()
	nl.items = nil

	for col, h := range []string{"  ", " TYPE", " MESSAGE", " WHEN"} {
		cell := tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(nl.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold)
		if col == 2 {
			cell.SetExpansion(1)
		}
		nl.SetCell(0, col, cell)
	}
	if resp == nil {
		return
	}
	nl.items = resp.Items

	for i, n := range resp.Items {
		color, mark, attrs := nl.theme.MutedColor, " ", tcell.AttrNone
		if !n.IsRead {
			color, mark, attrs = nl.theme.UnreadColor, "•", tcell.AttrBold
		}
		label, ok := typeLabels[n.Type]
		if !ok {
			label = string(n.Type)
		}
		nl.SetCell(i+1, 0, tview.NewTableCell(" "+mark).SetTextColor(nl.theme.BadgeColor))
		nl.SetCell(i+1, 1, tview.NewTableCell(" "+tview.Escape(label)).SetTextColor(color))
		nl.SetCell(i+1, 2, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(n.Message, true))).
			SetExpansion(1).SetTextColor(color).SetAttributes(attrs))
		nl.SetCell(i+1, 3, tview.NewTableCell(formatTimestamp(n.CreatedAt)+" ").SetTextColor(color).SetAlign(tview.AlignRight))
	}

	switch {
	case resp.Error != "":
		nl.SetCell(len(resp.Items)+1, 2, tview.NewTableCell(" "+tview.Escape(resp.Error)).SetSelectable(false).SetTextColor(nl.theme.FlashErrColor))
	case len(resp.Items) == 0:
		nl.SetCell(1, 2, tview.NewTableCell(" You're all caught up").SetSelectable(false).SetTextColor(nl.theme.MutedColor))
	case resp.HasMore:
		nl.SetCell(len(resp.Items)+1, 2, tview.NewTableCell(" Press m to load more").SetSelectable(false).SetTextColor(nl.theme.MutedColor))
	}

	scope := "all"
	if resp.UnreadOnly {
		scope = "unread"
	}
	p := resp.Pagination
	nl.SetTitle(fmt.Sprintf(" Notifications (%s) %d of %d, page %d/%d ", scope, len(resp.Items), p.Total, p.Page, max(p.TotalPages, 1)))
	if len(resp.Items) > 0 {
		nl.Select(min(max(row, 1), len(resp.Items)), 0)
	}
}

// SelectedNotification returns the notification under the cursor.
func (nl *NotificationList) SelectedNotification() (gateway.Notification, bool) {
	row, _ := nl.GetSelection()
	if row < 1 || row > len(nl.items) {
		return gateway.Notification{}, false
	}
	return nl.items[row-1], true
}
