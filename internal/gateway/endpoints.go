package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListConversations returns the current user's conversations in server order.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	if _, err := c.Into(ctx, http.MethodGet, "/messages/conversations", nil, nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// ListMessages returns the messages of one conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var msgs []Message
	path := "/messages/conversations/" + url.PathEscape(conversationID) + "/messages"
	if _, err := c.Into(ctx, http.MethodGet, path, nil, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage creates a message, and the conversation if none exists yet.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	var msg Message
	if _, err := c.Into(ctx, http.MethodPost, "/messages/send", req, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkConversationRead marks every message of a conversation as read.
func (c *Client) MarkConversationRead(ctx context.Context, conversationID string) error {
	path := "/messages/conversations/" + url.PathEscape(conversationID) + "/read"
	_, err := c.Do(ctx, http.MethodPut, path, nil, nil)
	return err
}

// DeleteMessage deletes one of the current user's messages.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	_, err := c.Do(ctx, http.MethodDelete, "/messages/messages/"+url.PathEscape(messageID), nil, nil)
	return err
}

// MessageUnreadCount returns the authoritative unread message count.
func (c *Client) MessageUnreadCount(ctx context.Context) (int, error) {
	return c.count(ctx, "/messages/unread-count")
}

// ListNotifications fetches one page of the notification feed.
func (c *Client) ListNotifications(ctx context.Context, q NotificationQuery) (*NotificationPage, error) {
	params := map[string]string{}
	if q.Page > 0 {
		params["page"] = strconv.Itoa(q.Page)
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	if q.UnreadOnly {
		params["unread_only"] = "true"
	}

	env, err := c.Do(ctx, http.MethodGet, "/notifications", nil, params)
	if err != nil {
		return nil, err
	}
	items, err := decodeNotifications(env.Data)
	if err != nil {
		return nil, fmt.Errorf("GET /notifications: %w", err)
	}

	page := &NotificationPage{Items: items}
	if env.Pagination != nil {
		page.Pagination = *env.Pagination
	} else {
		// Servers that omit pagination return everything in one page.
		page.Pagination = Pagination{Page: max(q.Page, 1), Limit: q.Limit, Total: len(items), TotalPages: 1}
	}
	return page, nil
}

// NotificationUnreadCount returns the authoritative unread notification count.
func (c *Client) NotificationUnreadCount(ctx context.Context) (int, error) {
	return c.count(ctx, "/notifications/unread-count")
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := c.Do(ctx, http.MethodPut, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
	return err
}

// MarkAllNotificationsRead marks the whole feed as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := c.Do(ctx, http.MethodPut, "/notifications/read-all", nil, nil)
	return err
}

// DeleteNotification deletes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	_, err := c.Do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) count(ctx context.Context, path string) (int, error) {
	env, err := c.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return 0, err
	}
	n, err := decodeCount(env.Data)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", path, err)
	}
	return n, nil
}

// decodeCount accepts a bare number or an object with count/unread_count.
func decodeCount(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var obj struct {
		Count       *int `json:"count"`
		UnreadCount *int `json:"unread_count"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, fmt.Errorf("decode unread count: %w", err)
	}
	switch {
	case obj.Count != nil:
		return *obj.Count, nil
	case obj.UnreadCount != nil:
		return *obj.UnreadCount, nil
	}
	return 0, fmt.Errorf("decode unread count: no count field in %s", string(raw))
}

// decodeNotifications accepts a bare array or {"notifications": [...]}.
func decodeNotifications(raw json.RawMessage) ([]Notification, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var items []Notification
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return wrapped.Notifications, nil
}
