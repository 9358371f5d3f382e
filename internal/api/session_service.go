package api

import (
	"context"
	"time"

	"github.com/matheus3301/recipebox/internal/auth"
	"github.com/matheus3301/recipebox/internal/rpc"
	"github.com/matheus3301/recipebox/internal/status"
	"github.com/matheus3301/recipebox/internal/store"
	intsync "github.com/matheus3301/recipebox/internal/sync"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// SessionService answers status queries and moves the session between
// signed-in and signed-out.
type SessionService struct {
	sessionName string
	startedAt   time.Time
	machine     *status.Machine
	session     *auth.Session
	engine      *intsync.Engine
	logger      *zap.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(sessionName string, machine *status.Machine, session *auth.Session, engine *intsync.Engine, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessionName: sessionName,
		startedAt:   time.Now(),
		machine:     machine,
		session:     session,
		engine:      engine,
		logger:      logger,
	}
}

func (s *SessionService) GetStatus(_ context.Context, _ *rpc.Empty) (*rpc.StatusResponse, error) {
	current := s.machine.Current()

	resp := &rpc.StatusResponse{
		Session:  s.sessionName,
		Status:   string(current),
		Since:    s.machine.Since(),
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
	}
	if s.session != nil {
		resp.UserID = s.session.UserID()
		resp.ExpiresAt = s.session.ExpiresAt()
	}
	if s.engine != nil {
		resp.Polling = s.engine.Polling()
		resp.MessagesUnread = s.engine.Messages.Count()
		resp.NotificationsUnread = s.engine.Notifications.Count()
		if cps, err := s.engine.Checkpoints(); err == nil {
			resp.Checkpoints = cps
		} else {
			s.logger.Warn("failed to read checkpoints", zap.Error(err))
		}
		if polled, err := s.engine.LastPolled(); err == nil {
			resp.LastPolled = polled
		} else {
			s.logger.Warn("failed to read poll times", zap.Error(err))
		}
	}
	return resp, nil
}

func (s *SessionService) Login(_ context.Context, req *rpc.LoginRequest) (*rpc.Ack, error) {
	if s.session == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "session not initialized")
	}
	if req.AccessToken == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "access token is required")
	}
	if req.UserID == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "user id is required")
	}

	creds := store.Credentials{
		UserID:       req.UserID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	}
	if req.ExpiresIn > 0 {
		creds.ExpiresAt = time.Now().Add(time.Duration(req.ExpiresIn) * time.Second).UnixMilli()
	}
	if err := s.session.Login(creds); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "login: %v", err)
	}
	if err := activate(s.machine); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "login: %v", err)
	}
	return &rpc.Ack{Success: true, Message: "signed in as " + req.UserID}, nil
}

func (s *SessionService) Logout(_ context.Context, _ *rpc.Empty) (*rpc.Ack, error) {
	if s.session == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "session not initialized")
	}
	if err := s.session.Logout(); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "logout: %v", err)
	}
	if s.machine.Current() != status.SignedOut {
		if err := s.machine.Transition(status.SignedOut); err != nil {
			return nil, grpcstatus.Errorf(codes.Internal, "logout: %v", err)
		}
	}
	s.logger.Info("signed out")
	return &rpc.Ack{Success: true, Message: "signed out"}, nil
}

// activate moves the machine to ACTIVE from wherever it is.
func activate(m *status.Machine) error {
	switch m.Current() {
	case status.Active:
		return nil
	case status.Error:
		if err := m.Transition(status.SignedOut); err != nil {
			return err
		}
	}
	return m.Transition(status.Active)
}

// requireActive fails calls that need a signed-in session.
func requireActive(m *status.Machine) error {
	if m.Current() != status.Active {
		return grpcstatus.Errorf(codes.Unauthenticated, "not signed in (status %s)", m.Current())
	}
	return nil
}
