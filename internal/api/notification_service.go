package api

import (
	"context"

	"github.com/matheus3301/recipebox/internal/notifications"
	"github.com/matheus3301/recipebox/internal/rpc"
	"github.com/matheus3301/recipebox/internal/status"
	intsync "github.com/matheus3301/recipebox/internal/sync"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// NotificationService exposes the notification feed.
type NotificationService struct {
	machine *status.Machine
	engine  *intsync.Engine
}

// NewNotificationService creates a new notification service.
func NewNotificationService(machine *status.Machine, engine *intsync.Engine) *NotificationService {
	return &NotificationService{machine: machine, engine: engine}
}

func (s *NotificationService) ListNotifications(ctx context.Context, req *rpc.ListNotificationsRequest) (*rpc.NotificationsResponse, error) {
	if err := requireActive(s.machine); err != nil {
		return nil, err
	}
	resp := &rpc.NotificationsResponse{}
	if !req.Cached {
		if err := s.engine.Feed.Fetch(ctx, req.Page, req.Limit, req.UnreadOnly); err != nil && surface(err) {
			return nil, toStatus("list notifications", err)
		}
		resp.Fetched = true
	}
	return fillFeed(resp, s.engine.Feed), nil
}

func (s *NotificationService) LoadMoreNotifications(ctx context.Context, _ *rpc.Empty) (*rpc.NotificationsResponse, error) {
	if err := requireActive(s.machine); err != nil {
		return nil, err
	}
	fetched, err := s.engine.Feed.LoadMore(ctx)
	if err != nil && surface(err) {
		return nil, toStatus("load more notifications", err)
	}
	return fillFeed(&rpc.NotificationsResponse{Fetched: fetched}, s.engine.Feed), nil
}

func fillFeed(resp *rpc.NotificationsResponse, f *notifications.Feed) *rpc.NotificationsResponse {
	snap := f.Snapshot()
	resp.Items = snap.Items
	resp.Pagination = snap.Pagination
	resp.UnreadOnly = snap.UnreadOnly
	resp.HasMore = f.HasMore()
	resp.Error = snap.Err
	return resp
}

func (s *NotificationService) MarkNotificationRead(ctx context.Context, req *rpc.NotificationRequest) (*rpc.Ack, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	if err := s.engine.Feed.MarkAsRead(ctx, req.ID); err != nil {
		return nil, toStatus("mark notification read", err)
	}
	return &rpc.Ack{Success: true, Message: "notification marked read"}, nil
}

func (s *NotificationService) MarkAllNotificationsRead(ctx context.Context, _ *rpc.Empty) (*rpc.Ack, error) {
	if err := requireActive(s.machine); err != nil {
		return nil, err
	}
	if err := s.engine.Feed.MarkAllAsRead(ctx); err != nil {
		return nil, toStatus("mark all notifications read", err)
	}
	return &rpc.Ack{Success: true, Message: "all notifications marked read"}, nil
}

func (s *NotificationService) DeleteNotification(ctx context.Context, req *rpc.NotificationRequest) (*rpc.Ack, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	if err := s.engine.Feed.Delete(ctx, req.ID); err != nil {
		return nil, toStatus("delete notification", err)
	}
	return &rpc.Ack{Success: true, Message: "notification deleted"}, nil
}

func (s *NotificationService) check(req *rpc.NotificationRequest) error {
	if err := requireActive(s.machine); err != nil {
		return err
	}
	if req.ID == "" {
		return grpcstatus.Errorf(codes.InvalidArgument, "notification id is required")
	}
	return nil
}
