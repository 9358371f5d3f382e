package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnimplementedInboxServer answers every call with codes.Unimplemented.
// Embed it to implement a subset of the service.
type UnimplementedInboxServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedInboxServer) GetStatus(context.Context, *Empty) (*StatusResponse, error) {
	return nil, unimplemented("GetStatus")
}

func (UnimplementedInboxServer) Login(context.Context, *LoginRequest) (*Ack, error) {
	return nil, unimplemented("Login")
}

func (UnimplementedInboxServer) Logout(context.Context, *Empty) (*Ack, error) {
	return nil, unimplemented("Logout")
}

func (UnimplementedInboxServer) ListConversations(context.Context, *ListConversationsRequest) (*ConversationsResponse, error) {
	return nil, unimplemented("ListConversations")
}

func (UnimplementedInboxServer) StartConversation(context.Context, *StartConversationRequest) (*StreamResponse, error) {
	return nil, unimplemented("StartConversation")
}

func (UnimplementedInboxServer) OpenConversation(context.Context, *OpenConversationRequest) (*StreamResponse, error) {
	return nil, unimplemented("OpenConversation")
}

func (UnimplementedInboxServer) RetryMessages(context.Context, *Empty) (*StreamResponse, error) {
	return nil, unimplemented("RetryMessages")
}

func (UnimplementedInboxServer) SendMessage(context.Context, *SendMessageRequest) (*MessageResponse, error) {
	return nil, unimplemented("SendMessage")
}

func (UnimplementedInboxServer) DeleteMessage(context.Context, *DeleteMessageRequest) (*Ack, error) {
	return nil, unimplemented("DeleteMessage")
}

func (UnimplementedInboxServer) ListNotifications(context.Context, *ListNotificationsRequest) (*NotificationsResponse, error) {
	return nil, unimplemented("ListNotifications")
}

func (UnimplementedInboxServer) LoadMoreNotifications(context.Context, *Empty) (*NotificationsResponse, error) {
	return nil, unimplemented("LoadMoreNotifications")
}

func (UnimplementedInboxServer) MarkNotificationRead(context.Context, *NotificationRequest) (*Ack, error) {
	return nil, unimplemented("MarkNotificationRead")
}

func (UnimplementedInboxServer) MarkAllNotificationsRead(context.Context, *Empty) (*Ack, error) {
	return nil, unimplemented("MarkAllNotificationsRead")
}

func (UnimplementedInboxServer) DeleteNotification(context.Context, *NotificationRequest) (*Ack, error) {
	return nil, unimplemented("DeleteNotification")
}

func (UnimplementedInboxServer) RefreshUnread(context.Context, *Empty) (*UnreadResponse, error) {
	return nil, unimplemented("RefreshUnread")
}

func (UnimplementedInboxServer) WatchEvents(*WatchEventsRequest, grpc.ServerStreamingServer[EventEnvelope]) error {
	return unimplemented("WatchEvents")
}
