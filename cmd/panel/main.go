// Command panel runs the game-server control plane: the HTTP API, the
// scheduler's crash watchers, and the auto-backup ticker in one process.
// Grounded on manman/host/main.go's run()-returns-error-then-log.Fatalf
// shape and graceful-shutdown-on-signal pattern.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aypapol/panel/internal/api"
	"github.com/aypapol/panel/internal/backup"
	"github.com/aypapol/panel/internal/config"
	"github.com/aypapol/panel/internal/dockerrt"
	"github.com/aypapol/panel/internal/logging"
	"github.com/aypapol/panel/internal/migrate"
	"github.com/aypapol/panel/internal/notify"
	"github.com/aypapol/panel/internal/scheduler"
	"github.com/aypapol/panel/internal/store"
	"github.com/aypapol/panel/internal/store/postgres"
	"github.com/aypapol/panel/internal/webauth"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Configure(logging.Config{
		ServiceName: "panel",
		JSONFormat:  cfg.JSONLogs,
	})
	logger := logging.Get("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	st, pool, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	dockerClient, err := dockerrt.New(cfg.DockerSocket)
	if err != nil {
		return fmt.Errorf("connect to docker: %w", err)
	}
	defer dockerClient.Close()

	notifier := buildNotifier(cfg, st)
	if closer, ok := notifier.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	sched := scheduler.New(dockerClient, st, notifier, cfg.NamePrefix, logging.Get("scheduler"))

	if err := sched.RecoverOrphans(ctx); err != nil {
		logger.Warn("failed to recover orphaned servers on startup", "error", err)
	}

	var uploader backup.Uploader
	if cfg.S3Bucket != "" {
		u, err := backup.NewS3Uploader(ctx, backup.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			logger.Warn("failed to initialize s3 offload, backups stay local-only", "error", err)
		} else {
			uploader = u
		}
	}

	backupEngine := backup.New(st, dockerClient, uploader, cfg.BackupRoot, cfg.DataDir, sched.ContainerName, logging.Get("backup"))
	go backupEngine.RunAutoBackupLoop(ctx)

	var auth *webauth.Authenticator
	if cfg.OIDCIssuer != "" {
		auth, err = webauth.New(ctx, st, webauth.Config{
			Issuer:        cfg.OIDCIssuer,
			ClientID:      cfg.OIDCClientID,
			ClientSecret:  cfg.OIDCClientSecret,
			RedirectURL:   cfg.OIDCRedirectURL,
			SessionSecret: cfg.SessionSecret,
		})
		if err != nil {
			return fmt.Errorf("initialize oidc authenticator: %w", err)
		}
	} else {
		logger.Warn("OIDC_ISSUER not set; user-session login is disabled")
	}

	apiServer := api.New(api.Deps{
		Store:      st,
		Runtime:    dockerClient,
		Scheduler:  sched,
		Backups:    backupEngine,
		Notifier:   notifier,
		Auth:       auth,
		BotAPIKey:  cfg.BotAPIKey,
		NamePrefix: cfg.NamePrefix,
		PublicURL:  cfg.PublicURL,
		DataDir:    cfg.DataDir,
		BackupRoot: cfg.BackupRoot,
		Logger:     logging.Get("api"),
	})

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams hold the connection open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	go expireSessionsLoop(ctx, st)

	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrate.New(db).Up()
}

// buildNotifier assembles the Composite Notifier from whichever sinks are
// configured; any of the three may be absent.
func buildNotifier(cfg *config.Config, st *store.Store) notify.Notifier {
	composite := &notify.Composite{}

	if cfg.DiscordAPIBaseURL != "" && cfg.DiscordBotToken != "" {
		composite.Channel = notify.NewChannelNotifier(st.BotSettings, cfg.DiscordAPIBaseURL, cfg.DiscordBotToken)
	}
	if cfg.DiscordWebhookURL != "" {
		composite.Webhook = notify.NewWebhookNotifier(cfg.DiscordWebhookURL)
	}
	if cfg.RabbitMQURL != "" {
		if eb, err := notify.NewEventBusNotifier(cfg.RabbitMQURL); err != nil {
			logging.Get("notify").Warn("failed to connect event bus notifier", "error", err)
		} else {
			composite.EventBus = eb
		}
	}

	return composite
}

// expireSessionsLoop periodically sweeps AuthSession rows past their
// expires_at so the sessions table doesn't grow unbounded.
func expireSessionsLoop(ctx context.Context, st *store.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if n, err := st.AuthSessions.ExpireOlderThan(ctx, time.Now()); err != nil {
			logging.Get("main").Warn("failed to expire auth sessions", "error", err)
		} else if n > 0 {
			logging.Get("main").Info("expired auth sessions", "count", n)
		}
	}
}
