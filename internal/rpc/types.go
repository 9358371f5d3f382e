package rpc

import (
	"encoding/json"
	"time"

	"github.com/matheus3301/recipebox/internal/gateway"
)

// Empty is the request of calls without arguments.
type Empty struct{}

// Ack is the response of calls that only report success.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// StatusResponse describes the daemon and its session.
type StatusResponse struct {
	Session             string            `json:"session"`
	Status              string            `json:"status"`
	Since               time.Time         `json:"since"`
	UptimeMs            int64             `json:"uptime_ms"`
	UserID              string            `json:"user_id,omitempty"`
	ExpiresAt           time.Time         `json:"expires_at,omitzero"`
	Polling             bool              `json:"polling"`
	MessagesUnread      int               `json:"messages_unread"`
	NotificationsUnread int               `json:"notifications_unread"`
	Checkpoints         map[string]string `json:"checkpoints,omitempty"`

	// LastPolled is the last successful poll of each unread counter.
	LastPolled map[string]time.Time `json:"last_polled,omitempty"`
}

// LoginRequest hands provider-issued tokens to the daemon.
type LoginRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	// ExpiresIn is the access token lifetime in seconds, 0 if unknown.
	ExpiresIn int64 `json:"expires_in,omitempty"`
}

// ListConversationsRequest lists conversations. Cached skips the server.
type ListConversationsRequest struct {
	Cached bool `json:"cached,omitempty"`
}

// ConversationsResponse is the conversation list.
type ConversationsResponse struct {
	Conversations []gateway.Conversation `json:"conversations"`
	Selected      string                 `json:"selected,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// StartConversationRequest finds or drafts the conversation with a user.
type StartConversationRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

// OpenConversationRequest opens a conversation by server id, or by the
// other user's id for drafts.
type OpenConversationRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// StreamResponse is the state of the message view.
type StreamResponse struct {
	State        string                `json:"state"`
	Conversation *gateway.Conversation `json:"conversation,omitempty"`
	Messages     []gateway.Message     `json:"messages"`
	// Deletable lists the ids of the messages the user may delete.
	Deletable []string `json:"deletable,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// SendMessageRequest posts to the open conversation.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse carries a message created by the server.
type MessageResponse struct {
	Message gateway.Message `json:"message"`
}

// DeleteMessageRequest deletes one of the user's messages.
type DeleteMessageRequest struct {
	MessageID string `json:"message_id"`
}

// ListNotificationsRequest fetches a page of notifications. Page 0 means 1,
// Limit 0 the configured page size. Cached skips the server.
type ListNotificationsRequest struct {
	Page       int  `json:"page,omitempty"`
	Limit      int  `json:"limit,omitempty"`
	UnreadOnly bool `json:"unread_only,omitempty"`
	Cached     bool `json:"cached,omitempty"`
}

// NotificationsResponse is the loaded notification feed.
type NotificationsResponse struct {
	Items      []gateway.Notification `json:"items"`
	Pagination gateway.Pagination     `json:"pagination"`
	UnreadOnly bool                   `json:"unread_only"`
	HasMore    bool                   `json:"has_more"`
	// Fetched is false when LoadMore had nothing left to load.
	Fetched bool   `json:"fetched"`
	Error   string `json:"error,omitempty"`
}

// NotificationRequest addresses one notification.
type NotificationRequest struct {
	ID string `json:"id"`
}

// UnreadResponse carries both badge counts.
type UnreadResponse struct {
	Messages      int `json:"messages"`
	Notifications int `json:"notifications"`
}

// WatchEventsRequest subscribes to bus events whose kind starts with Prefix.
type WatchEventsRequest struct {
	Prefix string `json:"prefix,omitempty"`
}

// EventEnvelope is one bus event sent to a watcher.
type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	Session          string          `json:"session"`
	OccurredAtUnixMs int64           `json:"occurred_at_unix_ms"`
	Kind             string          `json:"kind"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}
