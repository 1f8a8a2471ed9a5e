// Package admin exposes the daemon's HTTP telemetry surface: health, ready,
// status, and prometheus metrics.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/gemctl/internal/cache"
	"github.com/danmuck/gemctl/internal/observability"
	"github.com/danmuck/gemctl/internal/scheduler"
)

const version = "0.1.0"

// Config holds the admin listener settings.
type Config struct {
	ListenAddr  string   `toml:"listen_addr"`
	CORSOrigins []string `toml:"cors_origins"`
}

func DefaultConfig() Config {
	return Config{ListenAddr: ""}
}

// Server serves the telemetry routes over one gin engine.
type Server struct {
	cfg     Config
	sched   *scheduler.Scheduler
	store   *cache.Store
	router  *gin.Engine
	started time.Time

	httpSrv *http.Server
}

func NewServer(cfg Config, sched *scheduler.Scheduler, store *cache.Store) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:     cfg,
		sched:   sched,
		store:   store,
		router:  r,
		started: time.Now(),
	}
	s.registerRoutes()
	return s
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost", "http://127.0.0.1"}
	}
	return origins
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": "gemctl",
			"version": version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(s.started).String(),
			"service": "gemctl",
			"version": version,
		})
	})

	s.router.GET("/status", func(c *gin.Context) {
		var conns scheduler.Snapshot
		active := 0
		if s.sched != nil {
			conns = s.sched.Counters().Snapshot()
			active = s.sched.ActiveConnections()
		}
		var cacheStats cache.Stats
		if s.store != nil {
			cacheStats = s.store.Stats()
		}
		c.JSON(http.StatusOK, gin.H{
			"uptime":             time.Since(s.started).String(),
			"connections":        conns,
			"active_connections": active,
			"cache":              cacheStats,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Serve blocks until the listener fails or Shutdown is called. An empty
// listen address disables the admin surface.
func (s *Server) Serve() error {
	if s.cfg.ListenAddr == "" {
		return nil
	}
	s.httpSrv = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", s.cfg.ListenAddr).Msg("admin_serving")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
