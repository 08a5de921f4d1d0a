package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/learn/internal/api"
	"github.com/victornm/learn/internal/attempt"
	"github.com/victornm/learn/internal/catalog"
	"github.com/victornm/learn/internal/event"
	"github.com/victornm/learn/internal/report"
	"github.com/victornm/learn/internal/session"
	"github.com/victornm/learn/internal/stopwatch"
	"github.com/victornm/learn/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Redis struct {
		Addrs      []string
		Pass       string
		Prefix     string
		SessionTTL time.Duration
	}

	Catalog struct {
		// Source is either "file" or "postgres".
		Source string
		Dir    string
		// Migrate creates the catalog tables on start when Source is postgres.
		Migrate bool

		Postgres struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	Report struct {
		BaseURL string
		Timeout time.Duration
	}

	Stopwatch struct {
		Interval time.Duration
	}

	Attempts struct {
		// IdleTTL is how long an untouched attempt is kept in memory.
		IdleTTL time.Duration
	}
}

// DefaultConfig is overridden by the config file and environment.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 9090
	c.Redis.Addrs = []string{"localhost:6379"}
	c.Redis.Prefix = "learn"
	c.Redis.SessionTTL = 24 * time.Hour
	c.Catalog.Source = catalog.SourceFile
	c.Catalog.Dir = "lessons"
	c.Report.Timeout = 10 * time.Second
	c.Stopwatch.Interval = time.Second
	c.Attempts.IdleTTL = 2 * time.Hour
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis    redis.UniversalClient
		postgres *pgxpool.Pool
	}

	catalog catalog.Store

	service struct {
		session *session.Service
		attempt *attempt.Service
		report  *report.Client
	}

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server

	sweepCtx  context.Context
	stopSweep context.CancelFunc
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}
	s.sweepCtx, s.stopSweep = context.WithCancel(context.Background())

	s.eb = event.NewBus(event.WithTimeout(c.Report.Timeout))

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initCatalog(); err != nil {
		return nil, fmt.Errorf("server: init catalog: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if s.c.Catalog.Source == catalog.SourcePostgres {
		if err := s.initPostgres(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Addrs,
		Password: s.c.Redis.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pc := s.c.Catalog.Postgres
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", pc.User, pc.Pass, pc.Addr, pc.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return err
	}

	s.infra.postgres = db
	return nil
}

func (s *Server) initCatalog() error {
	switch s.c.Catalog.Source {
	case catalog.SourceFile:
		fs, err := catalog.LoadDir(s.c.Catalog.Dir)
		if err != nil {
			return err
		}
		s.catalog = fs

	case catalog.SourcePostgres:
		pg := catalog.NewPGStore(s.infra.postgres)
		if s.c.Catalog.Migrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := pg.Migrate(ctx); err != nil {
				return err
			}
		}
		s.catalog = pg

	default:
		return fmt.Errorf("unknown source %q", s.c.Catalog.Source)
	}

	return nil
}

func (s *Server) initService() {
	s.service.session = session.NewService(session.Config{
		Redis:   s.infra.redis,
		Catalog: s.catalog,
		Prefix:  s.c.Redis.Prefix,
		TTL:     s.c.Redis.SessionTTL,
	})

	s.service.attempt = attempt.NewService(attempt.Config{
		Catalog:   s.catalog,
		Publisher: s.eb,
		Stopwatch: stopwatch.Config{Interval: s.c.Stopwatch.Interval},
	})

	s.service.report = report.NewClient(report.Config{
		BaseURL: s.c.Report.BaseURL,
		Timeout: s.c.Report.Timeout,
	})
	s.service.report.Subscribe(s.eb)
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Router:  e,
		Catalog: s.catalog,
		Session: s.service.session,
		Attempt: s.service.attempt,
	})

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptors()...)
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := s.sweepCtx

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		s.sweep(ctx)
		return nil
	})

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

// sweep drops idle attempts until ctx is done.
func (s *Server) sweep(ctx context.Context) {
	idle := s.c.Attempts.IdleTTL
	if idle <= 0 {
		return
	}

	t := time.NewTicker(idle / 4)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.service.attempt.Sweep(ctx, idle)
		}
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.stopSweep()

	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	// Attempts still open are dropped unreported. Stopping the bus waits for reports
	// already queued.
	s.service.attempt.Close()
	s.eb.Stop()

	if err := s.infra.redis.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}

	if s.infra.postgres != nil {
		s.infra.postgres.Close()
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
