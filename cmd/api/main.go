package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"atas/api/internal/app"
	"atas/api/internal/config"
	"atas/api/internal/email"
	"atas/api/internal/export"
	"atas/api/internal/gitrepo"
	"atas/api/internal/jobs"
	"atas/api/internal/logging"
	"atas/api/internal/processing"
	"atas/api/internal/search"
	"atas/api/internal/session"
	"atas/api/internal/storage"
	"atas/api/internal/store"
)

const exportCacheTTL = 30 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Production: cfg.Production()})
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, store.MigrationsFS(cfg.MigrationsDir))
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("versions", applied))
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		return err
	}

	dataStore := store.NewPostgresStore(db)
	deps := app.Deps{
		Store:    dataStore,
		Git:      gitrepo.New(cfg.ReposDir),
		Exporter: export.NewService(exportCacheTTL, logger),
		Mailer: email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, logger),
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
		deps.Wizards = redisStore
		logger.Info("using redis for sessions")
	} else {
		deps.Wizards = session.NewMemoryStore()
		logger.Info("using postgres for refresh tokens and memory for wizard sessions")
	}

	var objects *storage.Service
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		minioStore, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.MinioBucket,
		})
		if err != nil {
			return err
		}
		objects = storage.NewService(minioStore)
		deps.Objects = objects
	} else {
		logger.Warn("object storage disabled; uploads are unavailable")
	}

	var engine search.Engine
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
		engine = meiliClient
	}
	deps.Search = search.NewService(engine, search.NewPgSearch(dataStore), logger)

	var queue jobs.Queue
	if strings.TrimSpace(cfg.NATSURL) != "" {
		queue, err = jobs.NewNATSQueue(ctx, cfg.NATSURL, logger)
		if err != nil {
			return err
		}
	} else {
		queue = jobs.NewMemoryQueue(0, 0, logger)
		logger.Info("running processing jobs in-process")
	}
	defer queue.Close()
	deps.Queue = queue

	service := app.New(cfg, deps, logger)

	transcriber, generator, err := processing.New(cfg.LLMProvider, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel,
		cfg.TranscribeBaseURL, cfg.TranscribeAPIKey, cfg.TranscribeModel)
	if err != nil {
		return err
	}
	var pipelineObjects processing.Objects
	if objects != nil {
		pipelineObjects = objects
	}
	pipeline := processing.NewPipeline(dataStore, pipelineObjects, transcriber, generator, cfg.LLMProvider, logger)
	pipeline.AfterSave = service.AfterProcessing
	if err := queue.Start(ctx, pipeline.Process); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.NewHTTPServer(service, cfg.CORSOrigin, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("atas api listening", zap.String("addr", cfg.Addr), zap.String("llm_provider", cfg.LLMProvider))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
