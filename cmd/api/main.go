package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voiceagent-dashboard/internal/activity"
	"voiceagent-dashboard/internal/airtable"
	"voiceagent-dashboard/internal/apikeys"
	"voiceagent-dashboard/internal/auth"
	"voiceagent-dashboard/internal/config"
	"voiceagent-dashboard/internal/crm"
	"voiceagent-dashboard/internal/gemini"
	"voiceagent-dashboard/internal/httpapi"
	"voiceagent-dashboard/internal/reconcile"
	"voiceagent-dashboard/internal/vapi"
	"voiceagent-dashboard/pkg/db"
	"voiceagent-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
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

	sqlDB, err := db.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), db.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	rdb, err := db.OpenRedis(rootCtx, db.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Services
	activitySvc := activity.NewService(activity.NewPostgresRepo(sqlDB))
	crmRepo := crm.NewPostgresRepo(sqlDB)
	crmSvc := crm.NewService(crmRepo, activitySvc)
	keysSvc := apikeys.NewService(apikeys.NewPostgresRepo(sqlDB)).WithActivity(activitySvc)
	authSvc := auth.NewService(auth.NewPostgresUserStore(sqlDB), authManager)

	vapiClient := vapi.NewClient(cfg.Vapi.BaseURL)
	airtableClient := airtable.NewClient(cfg.Airtable.BaseURL, cfg.Airtable.APIToken, cfg.Airtable.BaseID, cfg.Airtable.TableID)
	reconciler := reconcile.New(crmRepo).WithActivity(activitySvc)
	summarizer := gemini.NewSummarizer(gemini.NewClient(cfg.Gemini.BaseURL), rdb)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:       authSvc,
		CRM:        crmSvc,
		Keys:       keysSvc,
		Vapi:       vapiClient,
		Airtable:   airtableClient,
		Reconciler: reconciler,
		Summarizer: summarizer,
		Redis:      rdb,
	}
	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
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
