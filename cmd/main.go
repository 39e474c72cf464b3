// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/lets-meet/internal/calendar"
	"github.com/Shivanand-hulikatti/lets-meet/internal/database"
	"github.com/Shivanand-hulikatti/lets-meet/internal/handler"
	"github.com/Shivanand-hulikatti/lets-meet/internal/live"
	"github.com/Shivanand-hulikatti/lets-meet/internal/mail"
	"github.com/Shivanand-hulikatti/lets-meet/internal/repository"
	"github.com/Shivanand-hulikatti/lets-meet/internal/service"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "letsmeet",
		Usage: "Group availability scheduling API.",
		Flags: storeFlags(),
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application_failed", "error", err)
		os.Exit(1)
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}, Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "db-driver", Value: driverPostgres, EnvVars: []string{"DB_DRIVER"}, Usage: "postgres or sqlite"},
		&cli.StringFlag{Name: "sqlite-path", Value: "letsmeet.db", EnvVars: []string{"SQLITE_PATH"}},
		&cli.StringFlag{Name: "db-host", Value: "localhost", EnvVars: []string{"DB_HOST"}},
		&cli.StringFlag{Name: "db-port", Value: "5432", EnvVars: []string{"DB_PORT"}},
		&cli.StringFlag{Name: "db-user", Value: "postgres", EnvVars: []string{"DB_USER"}},
		&cli.StringFlag{Name: "db-password", Value: "postgres", EnvVars: []string{"DB_PASSWORD"}},
		&cli.StringFlag{Name: "db-name", Value: "letsmeet", EnvVars: []string{"DB_NAME"}},
		&cli.StringFlag{Name: "db-sslmode", Value: "disable", EnvVars: []string{"DB_SSLMODE"}},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Value: "8080", EnvVars: []string{"PORT"}},
			&cli.StringSliceFlag{Name: "cors-origin", Value: cli.NewStringSlice("http://localhost:3000"), EnvVars: []string{"CORS_ALLOWED_ORIGINS"}},
			&cli.StringFlag{Name: "public-url", Value: "http://localhost:3000", EnvVars: []string{"PUBLIC_URL"}, Usage: "frontend base URL used in emails"},
			&cli.StringFlag{Name: "resend-api-key", EnvVars: []string{"RESEND_API_KEY"}},
			&cli.StringFlag{Name: "mail-from", Value: "Let's Meet <noreply@letsmeet.app>", EnvVars: []string{"MAIL_FROM"}},
			&cli.StringFlag{Name: "calendar-domain", Value: "letsmeet.app", EnvVars: []string{"CALENDAR_DOMAIN"}},
			&cli.DurationFlag{Name: "meeting-duration", Value: calendar.DefaultDuration, EnvVars: []string{"MEETING_DURATION"}},
			&cli.IntFlag{Name: "invite-workers", Value: 2, EnvVars: []string{"INVITE_WORKERS"}},
			&cli.IntFlag{Name: "invite-queue", Value: 64, EnvVars: []string{"INVITE_QUEUE"}},
		},
		Action: serve,
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and exit.",
		Action: func(c *cli.Context) error {
			logger := setupLogger(c.String("log-level"))
			s, err := openStore(c, logger)
			if err != nil {
				return err
			}
			s.close()
			logger.Info("migrations_applied", "driver", c.String("db-driver"))
			return nil
		},
	}
}

func serve(c *cli.Context) error {
	logger := setupLogger(c.String("log-level"))
	slog.SetDefault(logger)

	// ── 1. Connect to the event store ─────────────────────────────────────
	s, err := openStore(c, logger)
	if err != nil {
		return err
	}
	defer s.close()

	// ── 2. Invite delivery ────────────────────────────────────────────────
	var sender mail.Sender
	if key := c.String("resend-api-key"); key != "" {
		sender = mail.NewResendSender(key, c.String("mail-from"), logger)
		logger.Info("mail_sender_configured", "provider", "resend")
	} else {
		sender = mail.NewNoopSender(logger)
		logger.Warn("mail_sender_configured", "provider", "noop", "hint", "set RESEND_API_KEY for real delivery")
	}
	dispatcher := mail.NewDispatcher(sender, mail.DispatcherConfig{
		Workers:   c.Int("invite-workers"),
		QueueSize: c.Int("invite-queue"),
	}, logger)

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(dispatchCtx)
	}()

	// ── 3. Wire up layers ────────────────────────────────────────────────
	hub := live.NewHub()
	duration := c.Duration("meeting-duration")
	svc := service.NewEventService(service.Deps{
		Events:          s.events,
		Availability:    s.availability,
		Calendar:        calendar.NewBuilder(c.String("calendar-domain"), duration),
		Publisher:       hub,
		Mailer:          dispatcher,
		PublicURL:       c.String("public-url"),
		MeetingDuration: duration,
	}, logger)
	origins := splitOrigins(c.StringSlice("cors-origin"))
	eventHandler := handler.NewEventHandler(svc, hub, origins, logger)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	port := c.String("port")
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      handler.NewRouter(eventHandler, origins, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "addr", "http://localhost:"+port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		stopDispatch()
		wg.Wait()
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	stopDispatch()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server_stopped")
	return nil
}

// store bundles the repositories of the selected driver with their cleanup.
type store struct {
	events       service.EventStore
	availability service.AvailabilityStore
	close        func()
}

// openStore connects to the configured database and applies migrations.
func openStore(c *cli.Context, logger *slog.Logger) (*store, error) {
	switch driver := c.String("db-driver"); driver {
	case driverPostgres:
		cfg := database.Config{
			Host:     c.String("db-host"),
			Port:     c.String("db-port"),
			User:     c.String("db-user"),
			Password: c.String("db-password"),
			DBName:   c.String("db-name"),
			SSLMode:  c.String("db-sslmode"),
		}
		pool, err := database.NewPool(c.Context, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if err := database.MigratePostgres(cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database: %w", err)
		}
		logger.Info("database_connected", "driver", driver, "host", cfg.Host, "name", cfg.DBName)
		return &store{
			events:       repository.NewEventRepository(pool),
			availability: repository.NewAvailabilityRepository(pool),
			close:        pool.Close,
		}, nil

	case driverSQLite:
		path := c.String("sqlite-path")
		db, err := database.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if err := database.MigrateSQLite(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("database: %w", err)
		}
		logger.Info("database_connected", "driver", driver, "path", path)
		return &store{
			events:       repository.NewSQLiteEventRepository(db),
			availability: repository.NewSQLiteAvailabilityRepository(db),
			close:        closer(db, logger),
		}, nil

	default:
		return nil, fmt.Errorf("unknown db driver %q (want %s or %s)", driver, driverPostgres, driverSQLite)
	}
}

func closer(db *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("database_close_failed", "error", err)
		}
	}
}

// splitOrigins accepts both repeated flags and a comma separated env value.
func splitOrigins(values []string) []string {
	var out []string
	for _, v := range values {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
