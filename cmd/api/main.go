package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dialer-platform/internal/agents"
	"dialer-platform/internal/audit"
	"dialer-platform/internal/auth"
	"dialer-platform/internal/config"
	"dialer-platform/internal/crm"
	"dialer-platform/internal/dialer"
	"dialer-platform/internal/events"
	"dialer-platform/internal/httpapi"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/live"
	"dialer-platform/internal/mirror"
	"dialer-platform/internal/reporting"
	"dialer-platform/internal/telephony"
	"dialer-platform/pkg/logger"
	"dialer-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	// Persistence mirror and rate limiting are both optional: the engine is
	// fully in-memory and must come up without either backend.
	var db *sql.DB
	if cfg.MirrorEnabled() {
		opened, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer opened.Close()
		db = opened
	}

	var rdb *redis.Client
	if cfg.RateLimitEnabled() {
		opened, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer opened.Close()
		rdb = opened
	}

	// Stores and services.
	leadRepo := leads.NewMemoryRepo()
	leadSvc := leads.NewService(leadRepo)
	if !cfg.IsProduction() {
		if err := leads.Seed(rootCtx, leadRepo); err != nil {
			log.Error("lead seed failed", "err", err)
			os.Exit(1)
		}
	}

	agentSvc := agents.NewService(agents.NewMemoryRepo())
	crmSvc := crm.NewService(crm.NewMemoryRepo(), leadRepo, log)
	auditSvc := audit.NewService(audit.NewMemoryRepo())

	bus := events.NewBus[dialer.Event]()
	defer bus.Close()

	provider := telephony.NewMockProvider(cfg.Dialer.MinDialDelay, cfg.Dialer.MaxDialDelay)

	engineOpts := dialer.Options{
		Concurrency: cfg.Dialer.Concurrency,
		SyncWait:    cfg.Dialer.SyncWait,
		Logger:      log,
	}
	if db != nil {
		engineOpts.Mirror = mirror.NewPostgres(db, log)
	}
	engine := dialer.NewEngine(dialer.NewStore(), leadRepo, provider, crmSvc, bus, engineOpts)

	reportSvc := reporting.NewService(engine)

	hub := live.NewHub(log)
	go live.Bridge(rootCtx, bus, hub)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:    authManager,
		Agents:  agentSvc,
		Leads:   leadSvc,
		Engine:  engine,
		CRM:     crmSvc,
		Reports: reportSvc,
		Audit:   auditSvc,
		Log:     log,
	}
	registerRoutes(r, h, authManager, rdb, hub, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "provider", provider.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
