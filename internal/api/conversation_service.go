package api

import (
	"context"
	"errors"

	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/rpc"
	"github.com/matheus3301/recipebox/internal/status"
	"github.com/matheus3301/recipebox/internal/stream"
	intsync "github.com/matheus3301/recipebox/internal/sync"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// ConversationService exposes the conversation list and the message view.
// Load failures come back as the component's error state so views can offer
// a retry; only session and deadline errors are RPC errors.
type ConversationService struct {
	machine *status.Machine
	engine  *intsync.Engine
	self    func() string
}

// NewConversationService creates a new conversation service.
func NewConversationService(machine *status.Machine, engine *intsync.Engine, self func() string) *ConversationService {
	return &ConversationService{machine: machine, engine: engine, self: self}
}

func (s *ConversationService) ListConversations(ctx context.Context, req *rpc.ListConversationsRequest) (*rpc.ConversationsResponse, error) {
	if err := requireActive(s.machine); err != nil {
		return nil, err
	}
	if !req.Cached {
		if err := s.engine.Conversations.List(ctx); err != nil && surface(err) {
			return nil, toStatus("list conversations", err)
		}
	}
	snap := s.engine.Conversations.Snapshot()
	return &rpc.ConversationsResponse{
		Conversations: snap.Conversations,
		Selected:      snap.Selected,
		Error:         snap.Err,
	}, nil
}

func (s *ConversationService) StartConversation(ctx context.Context, req *rpc.StartConversationRequest) (*rpc.StreamResponse, error) {
	if err := requireActive(s.machine); err != nil {
		return nil, err
	}
	if req.UserID == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "user id is required")
	}
	if s.self != nil && req.UserID == s.self() {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "cannot start a conversation with yourself")
	}

	target := gateway.User{ID: req.UserID, Username: req.Username, Name: req.Name}
	conv, err := s.engine.Conversations.CreateOrGet(ctx, target)
	if err != nil {
		return nil, toStatus("start conversation", err)
	}
	return s.open(ctx, conv)
}

func (s *ConversationService) OpenConversation(ctx context.Context, req *rpc.OpenConversationRequest) (*rpc.StreamResponse, error) {
	if err := requireActive(s.machine); err != nil {
		return nil, err
	}
	conv, ok := s.lookup(req)
	if !ok {
		// The list may not have been loaded yet by this client.
		if err := s.engine.Conversations.List(ctx); err != nil && surface(err) {
			return nil, toStatus("open conversation", err)
		}
		conv, ok = s.lookup(req)
	}
	if !ok {
		return nil, grpcstatus.Errorf(codes.NotFound, "conversation not found")
	}
	s.engine.Conversations.Select(conv)
	return s.open(ctx, conv)
}

func (s *ConversationService) lookup(req *rpc.OpenConversationRequest) (gateway.Conversation, bool) {
	switch {
	case req.ConversationID != "":
		return s.engine.Conversations.Get(req.ConversationID)
	case req.UserID != "":
		return s.engine.Conversations.FindByUser(req.UserID)
	default:
		return gateway.Conversation{}, false
	}
}

func (s *ConversationService) open(ctx context.Context, conv gateway.Conversation) (*rpc.StreamResponse, error) {
	if err := s.engine.Stream.Open(ctx, conv); err != nil && surface(err) {
		return nil, toStatus("open conversation", err)
	}
	return streamResponse(s.engine.Stream), nil
}

func (s *ConversationService) RetryMessages(ctx context.Context, _ *rpc.Empty) (*rpc.StreamResponse, error) {
	if err := requireActive(s.machine); err != nil {
		return nil, err
	}
	if err := s.engine.Stream.Retry(ctx); err != nil {
		if surface(err) || errors.Is(err, stream.ErrNoConversation) || errors.Is(err, stream.ErrNothingToRetry) {
			return nil, toStatus("retry", err)
		}
	}
	return streamResponse(s.engine.Stream), nil
}

func streamResponse(v *stream.View) *rpc.StreamResponse {
	snap := v.Snapshot()
	resp := &rpc.StreamResponse{
		State:        string(snap.State),
		Conversation: snap.Conversation,
		Messages:     snap.Messages,
		Error:        snap.Err,
	}
	for _, m := range snap.Messages {
		if v.CanDelete(m) {
			resp.Deletable = append(resp.Deletable, m.ID)
		}
	}
	return resp
}
