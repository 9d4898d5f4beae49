// Package main wires together the job scraper service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/api"
	archivegcs "github.com/pfitan-web/aijobscraper/internal/archive/gcs"
	archivememory "github.com/pfitan-web/aijobscraper/internal/archive/memory"
	"github.com/pfitan-web/aijobscraper/internal/classify"
	"github.com/pfitan-web/aijobscraper/internal/clock/system"
	"github.com/pfitan-web/aijobscraper/internal/config"
	"github.com/pfitan-web/aijobscraper/internal/id/uuid"
	"github.com/pfitan-web/aijobscraper/internal/jobs"
	"github.com/pfitan-web/aijobscraper/internal/logging"
	"github.com/pfitan-web/aijobscraper/internal/metrics"
	publishermemory "github.com/pfitan-web/aijobscraper/internal/publisher/memory"
	publisherpubsub "github.com/pfitan-web/aijobscraper/internal/publisher/pubsub"
	"github.com/pfitan-web/aijobscraper/internal/scheduler"
	"github.com/pfitan-web/aijobscraper/internal/scrape"
	"github.com/pfitan-web/aijobscraper/internal/session"
	"github.com/pfitan-web/aijobscraper/internal/source"
	storagememory "github.com/pfitan-web/aijobscraper/internal/storage/memory"
	storagepostgres "github.com/pfitan-web/aijobscraper/internal/storage/postgres"
	storageredis "github.com/pfitan-web/aijobscraper/internal/storage/redis"
	"github.com/pfitan-web/aijobscraper/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshots, cleanup, err := buildSnapshotStore(ctx, cfg)
	if err != nil {
		logger.Fatal("snapshot store init failed", zap.Error(err))
	}
	defer cleanup()

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	archiver, err := buildArchiver(ctx, cfg)
	if err != nil {
		logger.Fatal("archiver init failed", zap.Error(err))
	}

	idGen := uuid.NewGenerator()
	clock := system.New()

	registry := source.NewRegistry(
		source.NewLinkedIn(source.LinkedInConfig{
			BaseURL:   cfg.Scraper.LinkedInBaseURL,
			UserAgent: cfg.Scraper.UserAgent,
		}, idGen, logger.Named("linkedin")),
		source.NewGoogleJobs(source.GoogleJobsConfig{
			BaseURL: cfg.Scraper.SerpAPIBaseURL,
			APIKey:  cfg.Scraper.SerpAPIKey,
		}, logger.Named("googlejobs")),
		source.NewFranceTravail(source.FranceTravailConfig{
			TokenURL:     cfg.Scraper.FranceTravailTokenURL,
			SearchURL:    cfg.Scraper.FranceTravailSearchURL,
			ClientID:     cfg.Scraper.FranceTravailClientID,
			ClientSecret: cfg.Scraper.FranceTravailSecret,
		}, logger.Named("francetravail")),
		source.NewHelloWork(idGen, logger.Named("hellowork"), archiver),
		source.NewJobijoba(idGen, logger.Named("jobijoba"), archiver),
		source.NewCustom(idGen, logger.Named("custom")),
	)

	sessions := func() jobs.BrowserSession {
		return session.New(session.Config{
			UserAgent:         cfg.Browser.UserAgent,
			ExecutablePath:    cfg.Browser.ExecPath,
			NavigationTimeout: cfg.TabTimeout(),
		})
	}
	orchestrator := scrape.NewOrchestrator(registry, sessions, logger.Named("scrape"))
	pipeline := classify.NewPipeline(classify.NewHTTPScorer(classify.HTTPScorerConfig{
		BaseURL:  cfg.AI.BackendURL,
		Provider: cfg.AI.Provider,
		Timeout:  cfg.AITimeout(),
	}), logger.Named("classify"))

	board := store.NewBoard(snapshots, logger.Named("board"))
	if err := board.Hydrate(ctx); err != nil {
		logger.Warn("board hydrate failed, starting empty", zap.Error(err))
	}

	var apiServer *api.Server
	sched := scheduler.New(func() { apiServer.RunScheduled() }, logger.Named("scheduler"))
	apiServer = api.NewServer(
		orchestrator,
		pipeline,
		board,
		snapshots,
		publisher,
		sched,
		clock,
		cfg,
		logger.Named("api"),
	)

	if settings, err := snapshots.LoadSettings(ctx); err == nil && settings.Schedule != "" {
		if err := sched.Apply(settings.Schedule); err != nil {
			logger.Warn("restore schedule failed", zap.Error(err))
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")
	orchestrator.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildSnapshotStore(ctx context.Context, cfg config.Config) (jobs.SnapshotStore, func(), error) {
	switch cfg.Storage.Provider {
	case "memory":
		return storagememory.NewStore(), func() {}, nil
	case "redis":
		s, err := storageredis.NewStore(ctx, storageredis.StoreConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := storagepostgres.NewStore(ctx, storagepostgres.StoreConfig{
			DSN:      cfg.Storage.Postgres.DSN,
			MaxConns: cfg.Storage.Postgres.MaxConns,
			MinConns: cfg.Storage.Postgres.MinConns,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (jobs.Publisher, error) {
	if !cfg.PubSub.Enabled {
		return publishermemory.New(), nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return publisherpubsub.New(client), nil
}

func buildArchiver(ctx context.Context, cfg config.Config) (jobs.Archiver, error) {
	switch cfg.Archive.Provider {
	case "none":
		return nil, nil
	case "memory":
		return archivememory.NewBlobStore(), nil
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return archivegcs.New(client, archivegcs.Config{Bucket: cfg.Archive.GCSBucket})
	default:
		return nil, fmt.Errorf("unknown archive provider %q", cfg.Archive.Provider)
	}
}
