package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// InboxClient is the client API for the Inbox service.
type InboxClient interface {
	GetStatus(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StatusResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*Ack, error)
	Logout(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error)
	ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ConversationsResponse, error)
	StartConversation(ctx context.Context, in *StartConversationRequest, opts ...grpc.CallOption) (*StreamResponse, error)
	OpenConversation(ctx context.Context, in *OpenConversationRequest, opts ...grpc.CallOption) (*StreamResponse, error)
	RetryMessages(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StreamResponse, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*MessageResponse, error)
	DeleteMessage(ctx context.Context, in *DeleteMessageRequest, opts ...grpc.CallOption) (*Ack, error)
	ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*NotificationsResponse, error)
	LoadMoreNotifications(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*NotificationsResponse, error)
	MarkNotificationRead(ctx context.Context, in *NotificationRequest, opts ...grpc.CallOption) (*Ack, error)
	MarkAllNotificationsRead(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error)
	DeleteNotification(ctx context.Context, in *NotificationRequest, opts ...grpc.CallOption) (*Ack, error)
	RefreshUnread(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*UnreadResponse, error)
	WatchEvents(ctx context.Context, in *WatchEventsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[EventEnvelope], error)
}

type inboxClient struct {
	cc grpc.ClientConnInterface
}

// NewInboxClient returns a client over cc. Every call uses the JSON codec.
func NewInboxClient(cc grpc.ClientConnInterface) InboxClient {
	return &inboxClient{cc: cc}
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(Codec)}, opts...)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inboxClient) GetStatus(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, "GetStatus", in, opts)
}

func (c *inboxClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, "Login", in, opts)
}

func (c *inboxClient) Logout(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, "Logout", in, opts)
}

func (c *inboxClient) ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ConversationsResponse, error) {
	return invoke[ConversationsResponse](ctx, c.cc, "ListConversations", in, opts)
}

func (c *inboxClient) StartConversation(ctx context.Context, in *StartConversationRequest, opts ...grpc.CallOption) (*StreamResponse, error) {
	return invoke[StreamResponse](ctx, c.cc, "StartConversation", in, opts)
}

func (c *inboxClient) OpenConversation(ctx context.Context, in *OpenConversationRequest, opts ...grpc.CallOption) (*StreamResponse, error) {
	return invoke[StreamResponse](ctx, c.cc, "OpenConversation", in, opts)
}

func (c *inboxClient) RetryMessages(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StreamResponse, error) {
	return invoke[StreamResponse](ctx, c.cc, "RetryMessages", in, opts)
}

func (c *inboxClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	return invoke[MessageResponse](ctx, c.cc, "SendMessage", in, opts)
}

func (c *inboxClient) DeleteMessage(ctx context.Context, in *DeleteMessageRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, "DeleteMessage", in, opts)
}

func (c *inboxClient) ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*NotificationsResponse, error) {
	return invoke[NotificationsResponse](ctx, c.cc, "ListNotifications", in, opts)
}

func (c *inboxClient) LoadMoreNotifications(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*NotificationsResponse, error) {
	return invoke[NotificationsResponse](ctx, c.cc, "LoadMoreNotifications", in, opts)
}

func (c *inboxClient) MarkNotificationRead(ctx context.Context, in *NotificationRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, "MarkNotificationRead", in, opts)
}

func (c *inboxClient) MarkAllNotificationsRead(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, "MarkAllNotificationsRead", in, opts)
}

func (c *inboxClient) DeleteNotification(ctx context.Context, in *NotificationRequest, opts ...grpc.CallOption) (*Ack, error) {
	return invoke[Ack](ctx, c.cc, "DeleteNotification", in, opts)
}

func (c *inboxClient) RefreshUnread(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*UnreadResponse, error) {
	return invoke[UnreadResponse](ctx, c.cc, "RefreshUnread", in, opts)
}

func (c *inboxClient) WatchEvents(ctx context.Context, in *WatchEventsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[EventEnvelope], error) {
	stream, err := c.cc.NewStream(ctx, &InboxServiceDesc.Streams[0], fullMethod("WatchEvents"), withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchEventsRequest, EventEnvelope]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
