package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"anemoia/internal/domain"
	"anemoia/internal/feed"
	"anemoia/internal/ranking"
	"anemoia/internal/summarizer"
)

// ErrNoFeedsFetched is returned by Pool when feeds were requested but every
// one of them failed. It wraps the individual feed.ErrFetch errors.
var ErrNoFeedsFetched = errors.New("no feed could be fetched")

type fetchResult struct {
	raw *domain.RawFeed
	err error
}

// Run is one aggregation run. Each feed is fetched at most once and each
// logo probed at most once, however many buckets use them.
type Run struct {
	agg     *Aggregator
	logos   *feed.LogoValidator
	now     time.Time
	fetched map[string]fetchResult
}

func (a *Aggregator) NewRun() *Run {
	return &Run{
		agg:     a,
		logos:   feed.NewLogoValidator(a.logoClient, a.log),
		now:     a.opts.Now(),
		fetched: make(map[string]fetchResult),
	}
}

// FetchErrors counts feeds that failed during the run.
func (r *Run) FetchErrors() int {
	n := 0
	for _, res := range r.fetched {
		if res.err != nil {
			n++
		}
	}

	return n
}

func (r *Run) Rank(ctx context.Context, bucket domain.Bucket, feedURLs []string, count int) ([]domain.Article, error) {
	switch bucket {
	case domain.BucketLatest:
		return r.Latest(ctx, feedURLs, count)
	case domain.BucketTop:
		return r.Ranked(ctx, feedURLs, count)
	case domain.BucketCurated:
		return r.Random(ctx, feedURLs, count)
	default:
		return nil, fmt.Errorf("rank bucket: unknown bucket %q", bucket)
	}
}

// Latest returns pooled articles newest first.
func (r *Run) Latest(ctx context.Context, feedURLs []string, count int) ([]domain.Article, error) {
	pool, err := r.Pool(ctx, feedURLs)
	if err != nil {
		return nil, err
	}

	return ranking.Chronological(pool, count), nil
}

// Ranked returns pooled articles by ascending score.
func (r *Run) Ranked(ctx context.Context, feedURLs []string, count int) ([]domain.Article, error) {
	pool, err := r.Pool(ctx, feedURLs)
	if err != nil {
		return nil, err
	}

	ranked, unknown := ranking.ScoreWeighted(pool, r.now, r.agg.opts.Weights, count)
	if len(unknown) > 0 {
		r.agg.log.WarnContext(ctx, "Sources are missing from weight table so weight 0 is used",
			"sources", unknown)
	}

	return ranked, nil
}

// Random returns a thinned and shuffled pool.
func (r *Run) Random(ctx context.Context, feedURLs []string, count int) ([]domain.Article, error) {
	pool, err := r.Pool(ctx, feedURLs)
	if err != nil {
		return nil, err
	}

	return ranking.Curated(pool, r.agg.rng, r.agg.opts.Curate, count), nil
}

// Pool fetches feeds in order and returns their normalized articles with
// source and validated logo attached. Failing feeds are skipped unless
// AbortOnFetchError is set. When every feed fails the error wraps
// ErrNoFeedsFetched instead of returning an empty pool.
func (r *Run) Pool(ctx context.Context, feedURLs []string) ([]domain.Article, error) {
	var (
		pool      []domain.Article
		fetchErrs []error
		fetchedOK int
	)

	for _, feedURL := range r.agg.feedURLs(feedURLs) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pool feeds: %w", err)
		}

		raw, err := r.fetch(ctx, feedURL)
		if err != nil {
			if r.agg.opts.AbortOnFetchError {
				return nil, err
			}

			fetchErrs = append(fetchErrs, err)
			continue
		}

		fetchedOK++

		normalized, skipped := feed.Normalize(raw, feed.NormalizeOptions{
			MaxEntries:      r.agg.opts.MaxEntries,
			SummaryMaxChars: r.agg.opts.SummaryMaxChars,
			Now:             r.now,
		})
		if skipped > 0 {
			r.agg.log.WarnContext(ctx, "Skipping feed entries with empty link",
				"feedURL", feedURL,
				"feedTitle", normalized.Name,
				"skipped", skipped)
		}

		logo := r.validLogo(ctx, normalized.Logo)
		r.condenseSummaries(ctx, raw, normalized.Entries)

		for _, article := range normalized.Entries {
			article.Logo = logo
			pool = append(pool, article)
		}
	}

	if fetchedOK == 0 && len(fetchErrs) > 0 {
		return nil, fmt.Errorf("%w (failed = %d): %w", ErrNoFeedsFetched, len(fetchErrs), errors.Join(fetchErrs...))
	}

	return pool, nil
}

func (r *Run) fetch(ctx context.Context, feedURL string) (*domain.RawFeed, error) {
	if res, ok := r.fetched[feedURL]; ok {
		return res.raw, res.err
	}

	raw, err := r.agg.source.Fetch(ctx, feedURL)
	if err != nil && !errors.Is(err, feed.ErrFetch) {
		err = fmt.Errorf("%w: %w", feed.ErrFetch, err)
	}

	// Cancellation is not the feed's fault and must not stick for the run.
	if ctx.Err() == nil {
		r.fetched[feedURL] = fetchResult{raw: raw, err: err}
	}

	if err != nil {
		r.agg.log.ErrorContext(ctx, "Failed to fetch feed",
			"error", err,
			"feedURL", feedURL,
			"abort", r.agg.opts.AbortOnFetchError)
	}

	return raw, err
}

func (r *Run) validLogo(ctx context.Context, logo *string) *string {
	if logo == nil {
		return nil
	}

	if !r.logos.Validate(ctx, *logo).Usable() {
		return nil
	}

	return logo
}

func (r *Run) condenseSummaries(ctx context.Context, raw *domain.RawFeed, articles []domain.Article) {
	if r.agg.summarizer == nil || len(articles) == 0 {
		return
	}

	maxChars := r.agg.opts.SummaryMaxChars

	rawSummaries := make(map[string]string, len(raw.Entries))
	for _, entry := range raw.Entries {
		rawSummaries[strings.TrimSpace(entry.Link)] = entry.Summary
	}

	for i := range articles {
		rawSummary := rawSummaries[articles[i].Link]

		// Only summaries that opened with markup fell back to the full text.
		if strings.TrimSpace(feed.FormatSummary(rawSummary, maxChars)) != "" {
			continue
		}

		text := feed.PlainText(rawSummary)
		if utf8.RuneCountInString(text) <= maxChars {
			continue
		}

		summary, err := r.agg.summarizer.Summarize(ctx, summarizer.Input{
			Text:      text,
			SourceURL: articles[i].Link,
			MaxChars:  maxChars,
		})
		if err != nil {
			r.agg.log.WarnContext(ctx, "Failed to condense summary so truncated one is used",
				"error", err,
				"link", articles[i].Link,
				"textLen", len(text))

			continue
		}

		if condensed := feed.FormatSummary(summary, maxChars); strings.TrimSpace(condensed) != "" {
			articles[i].Summary = condensed
		}
	}
}
