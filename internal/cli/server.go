package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam-session-service/internal/attempt"
	"exam-session-service/internal/config"
	"exam-session-service/internal/domain"
	"exam-session-service/internal/infra/memory"
	pgstore "exam-session-service/internal/infra/postgres"
	redisstore "exam-session-service/internal/infra/redis"
	transport "exam-session-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam attempt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.Interval(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.TestLoader = memory.NewStaticTestLoader(sampleTestSets())
	if pool != nil {
		loader = pgstore.NewTestLoader(pool)
	}

	testTTL := config.Interval(cfg.Test.TTL, 10*time.Minute)
	var tests attempt.TestRepository
	if redisClient != nil {
		tests = redisstore.NewTestRepository(redisClient, loader, testTTL)
	} else {
		tests = memory.NewTestRepository(loader, testTTL)
	}

	var ranks attempt.RankSource
	var board *redisstore.RankSource
	if redisClient != nil {
		board = redisstore.NewRankSource(redisClient, 50)
		ranks = board
	} else {
		ranks = memory.NewScriptedRankSource(sampleRankSnapshots()...)
	}

	var results attempt.ResultStore
	switch {
	case redisClient != nil:
		results = redisstore.NewResultStore(redisClient, redisTTL, board)
	case pool != nil:
		results = pgstore.NewResultStore(pool)
	default:
		results = memory.NewResultStore()
	}

	service := attempt.NewService(
		memory.NewSessionStore(),
		tests,
		results,
		ranks,
		attempt.TickerScheduler{},
		attempt.Config{
			TickInterval: config.Interval(cfg.Attempt.Tick, time.Second),
			RankInterval: config.Interval(cfg.Attempt.RankInterval, 30*time.Second),
		},
	)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting exam service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleTestSets provides minimal content for running without Postgres.
func sampleTestSets() map[string]domain.TestSet {
	return map[string]domain.TestSet{
		"demo-1": {
			ID:              "demo-1",
			Title:           "Demo aptitude test",
			DurationSeconds: 300,
			Questions: []domain.Question{
				{
					ID:      "q1",
					Ordinal: 1,
					Prompt:  "What is 2 + 2?",
					Options: []domain.Option{
						{Label: "A", Text: "3"},
						{Label: "B", Text: "4"},
						{Label: "C", Text: "5"},
						{Label: "D", Text: "22"},
					},
					Correct: "B",
					Subject: "Maths",
				},
				{
					ID:      "q2",
					Ordinal: 2,
					Prompt:  "Which planet is known as the red planet?",
					Options: []domain.Option{
						{Label: "A", Text: "Venus"},
						{Label: "B", Text: "Jupiter"},
						{Label: "C", Text: "Mars"},
						{Label: "D", Text: "Saturn"},
					},
					Correct: "C",
					Subject: "General Knowledge",
				},
			},
		},
	}
}

// sampleRankSnapshots seeds the scripted rank source used without Redis.
func sampleRankSnapshots() []domain.RankSnapshot {
	return []domain.RankSnapshot{
		{
			Entries: []domain.RankEntry{
				{ParticipantID: "p-100", Score: 24, Rank: 1},
				{ParticipantID: "p-101", Score: 19, Rank: 2},
			},
			UserRank: 3,
		},
		{
			Entries: []domain.RankEntry{
				{ParticipantID: "p-101", Score: 31, Rank: 1},
				{ParticipantID: "p-100", Score: 27, Rank: 2},
			},
			UserRank: 2,
		},
	}
}
