package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"slices"
	"time"

	"anemoia/internal/domain"
	"anemoia/internal/feed"
	"anemoia/internal/ranking"
	"anemoia/internal/summarizer"
)

type Source interface {
	Fetch(ctx context.Context, feedURL string) (*domain.RawFeed, error)
}

type Store interface {
	Replace(ctx context.Context, bucket domain.Bucket, articles []domain.Article) error
}

// FeedSet resolves the feed URLs configured for a bucket.
type FeedSet interface {
	For(bucket domain.Bucket) []string
}

type Options struct {
	MaxEntries      int
	SummaryMaxChars int
	DefaultFeeds    []string
	// AbortOnFetchError stops the run at the first feed that fails instead
	// of skipping it.
	AbortOnFetchError bool
	Weights           ranking.Weights
	Curate            ranking.CurateOptions
	Counts            map[domain.Bucket]int
	Now               func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxEntries <= 0 {
		o.MaxEntries = feed.DefaultMaxEntries
	}
	if o.SummaryMaxChars <= 0 {
		o.SummaryMaxChars = feed.DefaultSummaryMaxChars
	}
	if o.Weights == nil {
		o.Weights = ranking.DefaultWeights()
	}
	// Only the zero value means defaults, so a survival fraction of 0 can
	// be configured together with a source.
	if o.Curate == (ranking.CurateOptions{}) {
		o.Curate = ranking.CurateOptions{
			DroppableSource:  ranking.DefaultDroppableSource,
			SurvivalFraction: ranking.DefaultSurvivalFraction,
		}
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	return o
}

// Aggregator is not safe for concurrent runs: the random source is shared.
type Aggregator struct {
	source     Source
	logoClient *http.Client
	summarizer summarizer.Summarizer
	rng        *rand.Rand
	opts       Options
	log        *slog.Logger
}

// New builds an aggregator. A nil summarizer keeps feed summaries as they are;
// a nil rng is seeded from the clock.
func New(
	source Source,
	logoClient *http.Client,
	s summarizer.Summarizer,
	rng *rand.Rand,
	opts Options,
	log *slog.Logger,
) *Aggregator {
	opts = opts.withDefaults()

	if rng == nil {
		seed := uint64(opts.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	return &Aggregator{
		source:     source,
		logoClient: logoClient,
		summarizer: s,
		rng:        rng,
		opts:       opts,
		log:        log,
	}
}

func (a *Aggregator) Latest(ctx context.Context, feedURLs []string, count int) ([]domain.Article, error) {
	return a.NewRun().Latest(ctx, feedURLs, count)
}

func (a *Aggregator) Ranked(ctx context.Context, feedURLs []string, count int) ([]domain.Article, error) {
	return a.NewRun().Ranked(ctx, feedURLs, count)
}

func (a *Aggregator) Random(ctx context.Context, feedURLs []string, count int) ([]domain.Article, error) {
	return a.NewRun().Random(ctx, feedURLs, count)
}

type CycleReport struct {
	Articles    map[domain.Bucket]int
	Skipped     []domain.Bucket
	FetchErrors int
	LogoProbes  int
	Elapsed     time.Duration
}

// Cycle ranks every bucket in order and replaces its stored contents.
// A bucket whose feeds all failed is skipped and keeps its stored articles.
// Any other ranking or store failure aborts the remaining buckets, which keep
// whatever the previous cycle left.
func (a *Aggregator) Cycle(ctx context.Context, store Store, feeds FeedSet) (CycleReport, error) {
	start := time.Now()
	run := a.NewRun()

	report := CycleReport{Articles: make(map[domain.Bucket]int, len(domain.Buckets))}
	finish := func() {
		report.FetchErrors = run.FetchErrors()
		report.LogoProbes = run.logos.Probes()
		report.Elapsed = time.Since(start)
	}

	for _, bucket := range domain.Buckets {
		articles, err := run.Rank(ctx, bucket, feeds.For(bucket), a.opts.Counts[bucket])
		if errors.Is(err, ErrNoFeedsFetched) {
			report.Skipped = append(report.Skipped, bucket)

			a.log.WarnContext(ctx, "Every feed of bucket failed so stored articles are kept",
				"error", err,
				"bucket", bucket)

			continue
		}
		if err != nil {
			finish()
			return report, err
		}

		if err = store.Replace(ctx, bucket, articles); err != nil {
			finish()
			return report, err
		}

		report.Articles[bucket] = len(articles)

		a.log.InfoContext(ctx, "Bucket is replaced",
			"bucket", bucket,
			"articleCount", len(articles))
	}

	finish()

	a.log.InfoContext(ctx, "Aggregation cycle is finished",
		"articleCounts", report.Articles,
		"skippedBuckets", report.Skipped,
		"fetchErrors", report.FetchErrors,
		"logoProbes", report.LogoProbes,
		"elapsedMs", report.Elapsed.Milliseconds())

	return report, nil
}

func (a *Aggregator) feedURLs(feedURLs []string) []string {
	if len(feedURLs) == 0 {
		return slices.Clone(a.opts.DefaultFeeds)
	}

	return feedURLs
}
