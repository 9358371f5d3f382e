package api

import (
	"context"

	"github.com/matheus3301/recipebox/internal/rpc"
	"github.com/matheus3301/recipebox/internal/status"
	intsync "github.com/matheus3301/recipebox/internal/sync"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// MessageService sends and deletes messages in the open conversation.
type MessageService struct {
	machine *status.Machine
	engine  *intsync.Engine
	logger  *zap.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(machine *status.Machine, engine *intsync.Engine, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{machine: machine, engine: engine, logger: logger}
}

func (s *MessageService) SendMessage(ctx context.Context, req *rpc.SendMessageRequest) (*rpc.MessageResponse, error) {
	if err := requireActive(s.machine); err != nil {
		return nil, err
	}
	msg, err := s.engine.Stream.Send(ctx, req.Content)
	if err != nil {
		return nil, toStatus("send message", err)
	}
	return &rpc.MessageResponse{Message: *msg}, nil
}

func (s *MessageService) DeleteMessage(ctx context.Context, req *rpc.DeleteMessageRequest) (*rpc.Ack, error) {
	if err := requireActive(s.machine); err != nil {
		return nil, err
	}
	if req.MessageID == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "message id is required")
	}
	if err := s.engine.Stream.Delete(ctx, req.MessageID); err != nil {
		return nil, toStatus("delete message", err)
	}
	s.logger.Debug("message deleted", zap.String("message_id", req.MessageID))
	return &rpc.Ack{Success: true, Message: "message deleted"}, nil
}
