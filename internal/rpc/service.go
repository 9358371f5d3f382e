// Package rpc defines the daemon's Inbox control-plane service: message
// types, the gRPC service descriptor and a typed client. Messages are
// encoded as JSON under the "json" content-subtype.
package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "recipebox.v1.Inbox"

// InboxServer is implemented by the daemon.
type InboxServer interface {
	GetStatus(context.Context, *Empty) (*StatusResponse, error)
	Login(context.Context, *LoginRequest) (*Ack, error)
	Logout(context.Context, *Empty) (*Ack, error)
	ListConversations(context.Context, *ListConversationsRequest) (*ConversationsResponse, error)
	StartConversation(context.Context, *StartConversationRequest) (*StreamResponse, error)
	OpenConversation(context.Context, *OpenConversationRequest) (*StreamResponse, error)
	RetryMessages(context.Context, *Empty) (*StreamResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*MessageResponse, error)
	DeleteMessage(context.Context, *DeleteMessageRequest) (*Ack, error)
	ListNotifications(context.Context, *ListNotificationsRequest) (*NotificationsResponse, error)
	LoadMoreNotifications(context.Context, *Empty) (*NotificationsResponse, error)
	MarkNotificationRead(context.Context, *NotificationRequest) (*Ack, error)
	MarkAllNotificationsRead(context.Context, *Empty) (*Ack, error)
	DeleteNotification(context.Context, *NotificationRequest) (*Ack, error)
	RefreshUnread(context.Context, *Empty) (*UnreadResponse, error)
	WatchEvents(*WatchEventsRequest, grpc.ServerStreamingServer[EventEnvelope]) error
}

// RegisterInboxServer registers srv on s.
func RegisterInboxServer(s grpc.ServiceRegistrar, srv InboxServer) {
	s.RegisterService(&InboxServiceDesc, srv)
}

// InboxServiceDesc is the grpc.ServiceDesc for the Inbox service.
var InboxServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InboxServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetStatus", InboxServer.GetStatus),
		unary("Login", InboxServer.Login),
		unary("Logout", InboxServer.Logout),
		unary("ListConversations", InboxServer.ListConversations),
		unary("StartConversation", InboxServer.StartConversation),
		unary("OpenConversation", InboxServer.OpenConversation),
		unary("RetryMessages", InboxServer.RetryMessages),
		unary("SendMessage", InboxServer.SendMessage),
		unary("DeleteMessage", InboxServer.DeleteMessage),
		unary("ListNotifications", InboxServer.ListNotifications),
		unary("LoadMoreNotifications", InboxServer.LoadMoreNotifications),
		unary("MarkNotificationRead", InboxServer.MarkNotificationRead),
		unary("MarkAllNotificationsRead", InboxServer.MarkAllNotificationsRead),
		unary("DeleteNotification", InboxServer.DeleteNotification),
		unary("RefreshUnread", InboxServer.RefreshUnread),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "recipebox/v1/inbox",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(InboxServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(InboxServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(InboxServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchEventsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(InboxServer).WatchEvents(in, &grpc.GenericServerStream[WatchEventsRequest, EventEnvelope]{ServerStream: stream})
}
