package gateway

import "time"

// User is the compact profile embedded in conversations.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Message is a direct message between two users.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Conversation is a server-side pairing of the current user with OtherUser.
// An empty ID marks a local draft that has not been created server-side yet.
type Conversation struct {
	ID          string    `json:"id"`
	OtherUser   User      `json:"other_user"`
	LastMessage *Message  `json:"last_message"`
	UnreadCount int       `json:"unread_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsDraft reports whether the conversation only exists locally.
func (c Conversation) IsDraft() bool { return c.ID == "" }

// NotificationType enumerates the notification kinds the backend emits.
type NotificationType string

const (
	NotificationLike         NotificationType = "like"
	NotificationComment      NotificationType = "comment"
	NotificationFollow       NotificationType = "follow"
	NotificationMessage      NotificationType = "message"
	NotificationRecipeMatch  NotificationType = "recipe_match"
	NotificationMention      NotificationType = "mention"
	NotificationRecipeShared NotificationType = "recipe_shared"
)

// Notification is one entry of the notification feed. Data carries free-form
// actor/target references and is passed through untouched.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Data      map[string]any   `json:"data,omitempty"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// Pagination mirrors the envelope's pagination block.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NotificationQuery selects a page of the notification feed.
type NotificationQuery struct {
	Page       int
	Limit      int
	UnreadOnly bool
}

// NotificationPage is one fetched page of notifications.
type NotificationPage struct {
	Items      []Notification
	Pagination Pagination
}

// SendMessageRequest is the body of POST /messages/send.
type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}
