package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anemoia/internal/aggregator"
	"anemoia/internal/config"
	"anemoia/internal/database"
	"anemoia/internal/domain"
	"anemoia/internal/feed"
	"anemoia/internal/ranking"
	"anemoia/internal/scheduler"
	"anemoia/internal/summarizer"

	"github.com/joho/godotenv"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	start := time.Now()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.ErrorContext(ctx, "Failed to load .env file",
				"error", err)

			return err
		}
	} else {
		log.InfoContext(ctx, ".env file is loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return err
	}

	feeds, err := config.LoadFeeds(cfg.FeedsPath)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load feeds",
			"error", err,
			"feedsPath", cfg.FeedsPath)

		return err
	}
	log.InfoContext(ctx, "Feeds are loaded",
		"feedsPath", cfg.FeedsPath,
		"latestCount", len(feeds.For(domain.BucketLatest)),
		"topCount", len(feeds.For(domain.BucketTop)),
		"curatedCount", len(feeds.For(domain.BucketCurated)))

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return err
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	client := &http.Client{Timeout: cfg.HTTPTimeout}

	agg := aggregator.New(
		feed.NewFetcher(client, log),
		client,
		initOpenAISummarizer(ctx, cfg, log),
		initRand(cfg),
		aggregator.Options{
			MaxEntries:        cfg.MaxEntries,
			SummaryMaxChars:   cfg.SummaryMaxChars,
			DefaultFeeds:      config.DefaultFeeds(),
			AbortOnFetchError: cfg.AbortOnFetchError,
			Weights:           ranking.DefaultWeights(),
			Counts: map[domain.Bucket]int{
				domain.BucketLatest:  cfg.LatestCount,
				domain.BucketTop:     cfg.TopCount,
				domain.BucketCurated: cfg.CuratedCount,
			},
		},
		log,
	)

	cycle := func(ctx context.Context) error {
		_, cycleErr := agg.Cycle(ctx, db, feeds)
		return cycleErr
	}

	if cfg.Schedule == "" {
		if err = cycle(ctx); err != nil {
			log.ErrorContext(ctx, "Failed to run aggregation cycle",
				"error", err,
				"elapsedMs", time.Since(start).Milliseconds())

			return err
		}

		return nil
	}

	sched := scheduler.New(ctx, cfg.Schedule, cycle, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", cfg.Schedule,
			"timezone", scheduler.Timezone)

		return err
	}
	log.InfoContext(ctx, "Scheduler is started",
		"spec", cfg.Schedule,
		"timezone", scheduler.Timezone)

	sched.RunNow()

	<-ctx.Done()
	log.InfoContext(ctx, "Shutdown signal is received")

	sched.Stop()
	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())

	return nil
}

func initRand(cfg config.Config) *rand.Rand {
	if cfg.RandomSeed == 0 {
		return nil
	}

	return rand.New(rand.NewPCG(cfg.RandomSeed, cfg.RandomSeed))
}

func initOpenAISummarizer(ctx context.Context, cfg config.Config, log *slog.Logger) summarizer.Summarizer {
	if cfg.OpenAIAPIKey == "" {
		log.InfoContext(ctx, "OPENAI_API_KEY is missing so feed summaries are kept as is",
			"envVar", "OPENAI_API_KEY")

		return nil
	}

	s, err := summarizer.NewOpenAISummarizer(cfg.OpenAIAPIKey)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create OpenAI summarizer so feed summaries are kept as is",
			"error", err,
			"envVar", "OPENAI_API_KEY")

		return nil
	}

	log.InfoContext(ctx, "OpenAI summarizer is initialized",
		"provider", "openai")

	return s
}
