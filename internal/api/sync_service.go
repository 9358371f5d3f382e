package api

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/matheus3301/recipebox/internal/bus"
	"github.com/matheus3301/recipebox/internal/rpc"
	"github.com/matheus3301/recipebox/internal/status"
	intsync "github.com/matheus3301/recipebox/internal/sync"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// SyncService refreshes the unread badges and streams bus events to
// watchers.
type SyncService struct {
	machine     *status.Machine
	engine      *intsync.Engine
	bus         *bus.Bus
	sessionName string
	logger      *zap.Logger
}

// NewSyncService creates a new sync service.
func NewSyncService(machine *status.Machine, engine *intsync.Engine, b *bus.Bus, sessionName string, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{machine: machine, engine: engine, bus: b, sessionName: sessionName, logger: logger}
}

func (s *SyncService) RefreshUnread(ctx context.Context, _ *rpc.Empty) (*rpc.UnreadResponse, error) {
	if err := requireActive(s.machine); err != nil {
		return nil, err
	}
	if err := s.engine.RefreshUnread(ctx); err != nil {
		if surface(err) {
			return nil, toStatus("refresh unread", err)
		}
		s.logger.Debug("unread refresh failed, keeping previous counts", zap.Error(err))
	}
	return &rpc.UnreadResponse{
		Messages:      s.engine.Messages.Count(),
		Notifications: s.engine.Notifications.Count(),
	}, nil
}

func (s *SyncService) WatchEvents(req *rpc.WatchEventsRequest, stream grpc.ServerStreamingServer[rpc.EventEnvelope]) error {
	ch, unsub := s.bus.Subscribe(req.Prefix, 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			payload, err := json.Marshal(evt.Payload)
			if err != nil {
				s.logger.Warn("failed to encode event payload", zap.String("kind", evt.Kind), zap.Error(err))
				payload = nil
			}
			if err := stream.Send(&rpc.EventEnvelope{
				EventID:          uuid.New().String(),
				Session:          s.sessionName,
				OccurredAtUnixMs: evt.Timestamp.UnixMilli(),
				Kind:             evt.Kind,
				Payload:          payload,
			}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
