package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"fitstudio/internal/api"
	"fitstudio/internal/config"
	"fitstudio/internal/conflicts"
	"fitstudio/internal/db"
	"fitstudio/internal/events"
	"fitstudio/internal/metrics"
	"fitstudio/internal/notify"
	"fitstudio/internal/planner"
	"fitstudio/internal/settings"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("STUDIO_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = newLogger(cfg)

	database, err := db.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	loc := cfg.Location()
	settingsSvc := settings.NewService(database, loc, logger)

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if ttl := cfg.CacheTTL(); ttl > 0 {
			settingsSvc.UseCache(settings.NewCache(rdb, ttl, logger))
		}
	}

	detector, err := conflicts.NewDetector(database, loc, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create conflict detector")
	}

	bus := events.NewEventBus()
	if cfg.TelegramEnabled() {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("create telegram bot error")
		}
		notify.NewStaffNotifier(bot, cfg.Telegram.ChatIDs, cfg.Studio.Name, logger).Attach(bus)
		logger.Info().Int("chats", len(cfg.Telegram.ChatIDs)).Msg("staff notifications enabled")
	}

	plan := planner.New(settingsSvc, detector, bus, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seedOpeningHours(ctx, cfg, plan, &logger)

	if cfg.Backup.Enabled {
		backups := db.NewBackupService(database, db.BackupConfig{
			Enabled:       true,
			Path:          cfg.Backup.Path,
			Interval:      cfg.BackupInterval(),
			RetentionDays: cfg.Backup.RetentionDays,
		}, &logger)
		go backups.Start(ctx)
	}

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	limiter := api.NewWriteLimiter(cfg.HTTP.WriteRateLimit, cfg.HTTP.WriteBurst)
	server := api.NewServer(plan, settingsSvc, loc, limiter, logger)

	logger.Info().Str("studio", cfg.Studio.Name).Str("timezone", loc.String()).Msg("studio backend started")
	if err := server.Run(ctx, fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
		logger.Error().Err(err).Msg("api server error")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Log.Format == "json" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// seedOpeningHours applies the default opening hours file when the store has
// none, then watches it. Edits replace the undated version unless they are
// invalid or conflict with booked sessions.
func seedOpeningHours(ctx context.Context, cfg *config.Config, plan *planner.Planner, logger *zerolog.Logger) {
	path := cfg.Studio.OpeningHoursPath
	seed, err := config.LoadOpeningHours(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("default opening hours not loaded")
		return
	}

	applied, err := plan.EnsureDefault(ctx, seed.Defaults.Hours, seed.CreatedBy)
	if err != nil {
		logger.Error().Err(err).Msg("apply default opening hours")
	} else if applied {
		logger.Info().Str("path", path).Msg("default opening hours seeded")
	}

	err = config.WatchOpeningHours(ctx, path, cfg.WatchInterval(), *logger, func(c *config.OpeningHoursConfig) {
		res, err := plan.ApplyDefault(ctx, c.Defaults.Hours, c.CreatedBy)
		switch {
		case err != nil:
			logger.Error().Err(err).Str("path", path).Msg("apply edited opening hours")
		case res.Saved:
			logger.Info().Str("path", path).Str("setting_id", res.Setting.ID).Msg("edited opening hours applied")
		case len(res.Conflicts) > 0:
			logger.Warn().Str("path", path).Int("conflicts", len(res.Conflicts)).Msg("edited opening hours blocked by booked sessions")
		case len(res.Errors) > 0:
			logger.Warn().Str("path", path).Int("errors", len(res.Errors)).Msg("edited opening hours rejected by validation")
		}
	})
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("watch default opening hours")
	}
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
