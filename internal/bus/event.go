package bus

import "time"

// Event kinds published by the sync core. Subscribers filter by prefix, so
// "unread." receives both counters and "stream." every view transition.
const (
	KindSessionStatus      = "session.status_changed"
	KindMessageUnread      = "unread.messages.changed"
	KindNotificationUnread = "unread.notifications.changed"
	KindConversations      = "conversations.changed"
	KindStreamState        = "stream.state_changed"
	KindStreamMessages     = "stream.messages_changed"
	KindNotifications      = "notifications.changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
