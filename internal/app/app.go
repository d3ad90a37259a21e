package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/studybuddy-backend/internal/data/db"
	"github.com/yungbote/studybuddy-backend/internal/data/repos"
	"github.com/yungbote/studybuddy-backend/internal/http"
	"github.com/yungbote/studybuddy-backend/internal/jobs"
	"github.com/yungbote/studybuddy-backend/internal/observability"
	"github.com/yungbote/studybuddy-backend/internal/platform/llm"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/platform/mailer"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    repos.Set
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

type options struct {
	log    *logger.Logger
	db     *gorm.DB
	llm    llm.Client
	mailer mailer.Mailer
}

type Option func(*options)

// WithLogger replaces the logger built from LOG_MODE.
func WithLogger(log *logger.Logger) Option { return func(o *options) { o.log = log } }

// WithDB uses an existing, already migrated connection instead of opening one.
func WithDB(gdb *gorm.DB) Option { return func(o *options) { o.db = gdb } }

func WithLLM(client llm.Client) Option { return func(o *options) { o.llm = client } }

func WithMailer(m mailer.Mailer) Option { return func(o *options) { o.mailer = m } }

func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := o.log
	if log == nil {
		l, err := logger.New(cfg.LogMode)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		log = l
	}
	cfg.Warn(log)

	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)
	a.Metrics = observability.Init(log)

	if o.db != nil {
		a.DB = o.db
	} else {
		svc, err := OpenDB(log, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := svc.AutoMigrateAll(); err != nil {
			_ = svc.Close()
			a.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		a.dbService = svc
		a.DB = svc.DB()
	}

	a.Repos = repos.NewSet(a.DB, log)

	clients, err := wireClients(log, cfg, a.Repos, o)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients

	serviceset, err := wireServices(a.DB, log, cfg, a.Repos, clients)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Services = serviceset

	handlerset := wireHandlers(log, a.DB, serviceset)
	middleware := wireMiddleware(log, serviceset)
	a.Router = wireRouter(log, cfg, a.Metrics, handlerset, middleware)
	return a, nil
}

// OpenDB connects using cfg.DB without migrating.
func OpenDB(log *logger.Logger, cfg Config) (*db.Service, error) {
	svc, err := db.NewService(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	return svc, nil
}

// Start launches background work: the unverified-account sweeper and the
// metrics listener.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Cfg.SweepEnabled && a.Services.Sweeper != nil {
		jobs.NewWorker(a.Log, a.Services.Sweeper, a.Cfg.SweepInterval).Start(ctx)
	}
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.Addr)
	return (&http.Server{Engine: a.Router}).RunContext(ctx, a.Cfg.Addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
