package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/sketchroom/internal/archive"
	"github.com/playperu/sketchroom/internal/cache"
	"github.com/playperu/sketchroom/internal/config"
	"github.com/playperu/sketchroom/internal/database"
	"github.com/playperu/sketchroom/internal/game"
	"github.com/playperu/sketchroom/internal/handler/health"
	"github.com/playperu/sketchroom/internal/handler/socket"
	"github.com/playperu/sketchroom/internal/hub"
	"github.com/playperu/sketchroom/internal/migrations"
	"github.com/playperu/sketchroom/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Words ---
	words := game.DefaultWords()
	if cfg.WordsFile != "" {
		if words, err = game.LoadWords(cfg.WordsFile); err != nil {
			return fmt.Errorf("loading words: %w", err)
		}
	}
	logger.Info("word list ready", "words", len(words), "file", cfg.WordsFile)

	checks := map[string]health.Checker{}
	var observers game.Observers

	// --- SQLite (match archive) ---
	var archiver *archive.Archiver
	var matches server.MatchLister
	if cfg.DBPath != "" {
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("connecting to sqlite: %w", err)
		}
		defer db.Close()

		if err := migrations.Run(ctx, db); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to sqlite", "path", cfg.DBPath)

		store := archive.NewStore(db)
		archiver = archive.NewArchiver(store, logger)
		matches = store
		observers = append(observers, archiver)
		checks["sqlite"] = health.CheckerFunc(store.Ping)
	}

	// --- Redis (live leaderboard mirror) ---
	var leaderboard *cache.Leaderboard
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		leaderboard = cache.NewLeaderboard(rdb, logger)
		observers = append(observers, leaderboard)
		checks["redis"] = health.CheckerFunc(leaderboard.Ping)
	}

	// --- Game ---
	h := hub.New(logger)
	rooms := game.NewRegistry(nil)
	engine := game.New(rooms, game.Options{
		Emitter:          h,
		Scoring:          cfg.Scoring,
		Words:            game.NewWordList(words, nil),
		Observer:         observers,
		Logger:           logger,
		RequireGuessText: cfg.RequireGuessText,
	})

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr(), logger, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, rooms, checks).Routes())
		r.Mount("/socket", socket.NewHandler(logger, h, engine, cfg.AllowedOrigins).Routes())
		r.Mount("/api", server.NewAPI(logger, rooms, matches).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr())
		return srv.Run(gctx)
	})

	if archiver != nil {
		g.Go(func() error { return archiver.Run(gctx) })
	}
	if leaderboard != nil {
		g.Go(func() error { return leaderboard.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		h.Close()
		engine.Close()
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
