package daemon

import (
	"context"

	"github.com/matheus3301/recipebox/internal/api"
	"github.com/matheus3301/recipebox/internal/auth"
	"github.com/matheus3301/recipebox/internal/bus"
	"github.com/matheus3301/recipebox/internal/config"
	"github.com/matheus3301/recipebox/internal/gateway"
	"github.com/matheus3301/recipebox/internal/lock"
	"github.com/matheus3301/recipebox/internal/logging"
	"github.com/matheus3301/recipebox/internal/session"
	"github.com/matheus3301/recipebox/internal/status"
	"github.com/matheus3301/recipebox/internal/store"
	intsync "github.com/matheus3301/recipebox/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default
	Config      *config.Config
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	if p.Config == nil {
		p.Config = config.Default()
	}
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideSession,
			provideGateway,
			provideReconciler,
			provideSyncEngine,
			provideInbox,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) *config.Config {
	return p.Config
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, cfg.Log.Level)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is only opened by the
// instance that holds it.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideSession(cfg *config.Config, db *store.DB, logger *zap.Logger) *auth.Session {
	var refresher auth.Refresher
	if cfg.Auth.RefreshURL != "" {
		refresher = auth.NewProviderRefresher(cfg.Auth.RefreshURL, cfg.Auth.APIKey, cfg.API.Timeout.Duration)
	}
	return auth.NewSession(db, refresher, logger.Named("auth"))
}

func provideGateway(cfg *config.Config, sess *auth.Session, machine *status.Machine, logger *zap.Logger) *gateway.Client {
	return gateway.New(cfg.API.BaseURL, sess,
		gateway.WithTimeout(cfg.API.Timeout.Duration),
		gateway.WithUserAgent(cfg.API.UserAgent),
		gateway.WithLogger(logger.Named("gateway")),
		gateway.WithAuthLostHook(func(err error) {
			logger.Warn("session lost, login required", zap.Error(err))
			if machine.Current() == status.Active {
				_ = machine.Transition(status.SignedOut)
			}
		}),
	)
}

func provideReconciler(db *store.DB, logger *zap.Logger) *intsync.Reconciler {
	return intsync.NewReconciler(db, logger)
}

func provideSyncEngine(cfg *config.Config, gw *gateway.Client, m *status.Machine, rec *intsync.Reconciler, sess *auth.Session, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(gw, m, rec, intsync.Options{
		MessagesInterval:      cfg.Polling.MessagesInterval.Duration,
		NotificationsInterval: cfg.Polling.NotificationsInterval.Duration,
		PageSize:              cfg.Notifications.PageSize,
		Self:                  sess.UserID,
	}, b, logger)
}

func provideInbox(p Params, m *status.Machine, sess *auth.Session, engine *intsync.Engine, b *bus.Bus, logger *zap.Logger) *api.Inbox {
	return &api.Inbox{
		SessionService:      api.NewSessionService(p.SessionName, m, sess, engine, logger),
		ConversationService: api.NewConversationService(m, engine, sess.UserID),
		MessageService:      api.NewMessageService(m, engine, logger),
		NotificationService: api.NewNotificationService(m, engine),
		SyncService:         api.NewSyncService(m, engine, b, p.SessionName, logger),
	}
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, sess *auth.Session, engine *intsync.Engine, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start following session status before it changes.
			engine.Start(context.Background())

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			restoreSession(sess, machine, logger)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			engine.Stop()
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}

// restoreSession moves the machine out of BOOTING based on stored credentials.
func restoreSession(sess *auth.Session, machine *status.Machine, logger *zap.Logger) {
	found, err := sess.Restore()
	switch {
	case err != nil:
		logger.Error("failed to restore session", zap.Error(err))
		_ = machine.Transition(status.Error)
	case found:
		logger.Info("stored session restored", zap.String("user_id", sess.UserID()))
		_ = machine.Transition(status.Active)
	default:
		logger.Info("no stored session, login required")
		_ = machine.Transition(status.SignedOut)
	}
}
