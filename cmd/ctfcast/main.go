package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctfcast/internal/config"
	"ctfcast/internal/constants"
	"ctfcast/internal/database"
	"ctfcast/internal/privacy"
	"ctfcast/internal/queue"
	"ctfcast/internal/retry"
	"ctfcast/internal/service"
	"ctfcast/internal/tracing"
	"ctfcast/pkg/circuitbreaker"
	"ctfcast/pkg/discord"
	"ctfcast/pkg/gzctf"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("ctfcast %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting ctfcast")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	token := os.Getenv("DISCORD_BOT_TOKEN")
	if token == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN environment variable is required")
	}

	// Initialize OpenTelemetry tracing
	tracingManager := tracing.NewManager(tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Initialize database with exponential backoff retry
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(constants.DefaultRetryBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(constants.DefaultDBMaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})

	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	deliveryQueue := queue.NewDeliveryQueue(db, cfg.Queue.MaxAttempts, logger)
	if err := deliveryQueue.Load(ctx); err != nil {
		return fmt.Errorf("failed to load pending notifications: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"channel": privacy.MaskChannelID(cfg.Discord.ChannelID),
		"token":   privacy.MaskToken(token),
	}).Info("Discord transport configured")

	transport := discord.NewRESTClient(
		cfg.Discord.APIBaseURL,
		token,
		cfg.Discord.ChannelID,
		time.Duration(cfg.Discord.TimeoutSec)*time.Second,
		cfg.Discord.MessagesPerSec,
	)

	deliveryBackoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Queue.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Queue.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		Jitter:       false,
	})

	worker := queue.NewWorker(
		deliveryQueue,
		transport,
		deliveryBackoff,
		time.Duration(cfg.Queue.TickMs)*time.Millisecond,
		time.Duration(cfg.Queue.SendTimeoutSec)*time.Second,
		logger,
	)
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start delivery worker: %w", err)
	}
	defer worker.Stop()

	feedBreaker := circuitbreaker.New("gzctf-feed",
		constants.DefaultFeedBreakerFailures,
		time.Duration(constants.DefaultFeedBreakerCooldownSec)*time.Second,
		logger)
	feed := gzctf.NewGuardedClient(
		gzctf.NewClient(cfg.GZCTF.BaseURL, time.Duration(cfg.GZCTF.TimeoutSec)*time.Second),
		feedBreaker)
	poller := service.NewNoticePoller(
		feed,
		deliveryQueue,
		cfg.GZCTF.Games,
		time.Duration(cfg.GZCTF.PollIntervalSec)*time.Second,
		logger,
	)
	if err := poller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start notice poller: %w", err)
	}
	defer poller.Stop()

	scheduler := service.NewScheduler(db, cfg.RetentionDays, constants.DefaultCleanupIntervalHours, logger)
	go scheduler.Start(ctx)

	if cfg.Discord.GatewayEnabled {
		gateway := discord.NewGateway(cfg.Discord.GatewayURL, token, logger)
		if err := gateway.Start(ctx); err != nil {
			logger.Warnf("Failed to start gateway presence: %v", err)
		} else {
			defer gateway.Stop()
		}
	}

	server := NewServer(cfg.Server.Port, deliveryQueue, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}
