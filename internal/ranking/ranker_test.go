package ranking_test

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"anemoia/internal/domain"
	"anemoia/internal/ranking"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // Test fixture.

func article(source string, link string, age time.Duration) domain.Article {
	return domain.Article{
		Title:  link,
		Link:   link,
		Source: source,
		Date:   now.Add(-age),
	}
}

func mixedPool() []domain.Article {
	return []domain.Article{
		article("Reuters: Top News", "https://r/1", 3*time.Hour),
		article("BBC News - World", "https://b/1", 30*time.Minute),
		article("Al Jazeera English", "https://a/1", time.Hour),
		article("BBC News - World", "https://b/2", 5*time.Hour),
		article("Reuters: World News", "https://r/2", 10*time.Minute),
	}
}

func TestChronological(t *testing.T) {
	pool := mixedPool()
	original := slices.Clone(pool)

	ranked := ranking.Chronological(pool, 0)

	if len(ranked) != len(pool) {
		t.Fatalf("expected %d articles, got %d", len(pool), len(ranked))
	}

	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Date.Before(ranked[i].Date) {
			t.Fatalf("expected descending dates at %d: %s before %s", i, ranked[i-1].Date, ranked[i].Date)
		}
	}

	if ranked[0].Link != "https://r/2" {
		t.Fatalf("expected newest first, got %q", ranked[0].Link)
	}

	if !slices.EqualFunc(pool, original, func(a, b domain.Article) bool { return a.Link == b.Link }) {
		t.Fatalf("expected input pool to be left untouched")
	}
}

func TestChronologicalTruncates(t *testing.T) {
	ranked := ranking.Chronological(mixedPool(), 2)

	if len(ranked) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(ranked))
	}

	if got := ranking.Chronological(mixedPool(), 100); len(got) != 5 {
		t.Fatalf("expected count above pool size to keep all, got %d", len(got))
	}
}

func TestChronologicalESTScenario(t *testing.T) {
	est, _ := time.Parse(time.RFC3339, "2018-01-01T05:00:00Z")
	utc, _ := time.Parse(time.RFC3339, "2018-01-02T00:00:00Z")

	pool := []domain.Article{
		{Title: "first", Link: "https://x/1", Source: "X", Date: est},
		{Title: "second", Link: "https://x/2", Source: "X", Date: utc},
	}

	ranked := ranking.Chronological(pool, 0)
	if ranked[0].Title != "second" {
		t.Fatalf("expected second entry first, got %q", ranked[0].Title)
	}
}

func TestScore(t *testing.T) {
	a := article("Reuters: Top News", "https://r/1", 100*time.Second)

	score, ok := ranking.Score(a, now, ranking.DefaultWeights())
	if !ok {
		t.Fatalf("expected known source")
	}

	if want := 100.0/25 + 80; score != want {
		t.Fatalf("expected %v, got %v", want, score)
	}
}

func TestScoreUnknownSource(t *testing.T) {
	a := article("Unknown Daily", "https://u/1", 50*time.Second)

	score, ok := ranking.Score(a, now, ranking.DefaultWeights())
	if ok {
		t.Fatalf("expected unknown source")
	}

	if score != 2 {
		t.Fatalf("expected weight 0 default, got %v", score)
	}

	if _, err := ranking.StrictScore(a, now, ranking.DefaultWeights()); err == nil {
		t.Fatalf("expected strict score to fail")
	}
}

func TestScoreWeighted(t *testing.T) {
	pool := append(mixedPool(), article("Unknown Daily", "https://u/1", time.Minute))

	ranked, unknown := ranking.ScoreWeighted(pool, now, ranking.DefaultWeights(), 0)

	if len(ranked) != len(pool) {
		t.Fatalf("expected %d articles, got %d", len(pool), len(ranked))
	}

	for i, a := range ranked {
		if a.Score == nil {
			t.Fatalf("expected score on article %d", i)
		}
		if i > 0 && *ranked[i-1].Score > *a.Score {
			t.Fatalf("expected ascending scores at %d: %v > %v", i, *ranked[i-1].Score, *a.Score)
		}
	}

	if !slices.Equal(unknown, []string{"Unknown Daily"}) {
		t.Fatalf("unexpected unknown sources: %v", unknown)
	}

	for _, a := range pool {
		if a.Score != nil {
			t.Fatalf("expected input pool to stay unscored")
		}
	}

	if top, _ := ranking.ScoreWeighted(pool, now, ranking.DefaultWeights(), 3); len(top) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(top))
	}
}

func droppablePool(droppable int, others int) []domain.Article {
	var pool []domain.Article
	for i := range droppable {
		pool = append(pool, article(ranking.DefaultDroppableSource, fmt.Sprintf("https://d/%d", i), time.Hour))
	}
	for i := range others {
		pool = append(pool, article("Al Jazeera English", fmt.Sprintf("https://o/%d", i), time.Hour))
	}

	return pool
}

func defaultCurate() ranking.CurateOptions {
	return ranking.CurateOptions{
		DroppableSource:  ranking.DefaultDroppableSource,
		SurvivalFraction: ranking.DefaultSurvivalFraction,
	}
}

func links(articles []domain.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Link)
	}

	return out
}

func TestCuratedDeterministicWithSeed(t *testing.T) {
	pool := droppablePool(10, 0)

	first := ranking.Curated(pool, rand.New(rand.NewPCG(42, 7)), defaultCurate(), 0)
	second := ranking.Curated(pool, rand.New(rand.NewPCG(42, 7)), defaultCurate(), 0)

	if !slices.Equal(links(first), links(second)) {
		t.Fatalf("expected identical results for identical seeds: %v vs %v", links(first), links(second))
	}
}

func TestCuratedKeepsOthersAndNoDuplicates(t *testing.T) {
	pool := droppablePool(10, 5)

	for seed := range uint64(50) {
		curated := ranking.Curated(pool, rand.New(rand.NewPCG(seed, seed)), defaultCurate(), 0)

		if len(curated) < 5 || len(curated) > len(pool) {
			t.Fatalf("seed %d: unexpected size %d", seed, len(curated))
		}

		seen := make(map[string]struct{})
		others := 0
		for _, a := range curated {
			if _, ok := seen[a.Link]; ok {
				t.Fatalf("seed %d: duplicate article %q", seed, a.Link)
			}
			seen[a.Link] = struct{}{}

			if a.Source != ranking.DefaultDroppableSource {
				others++
			}
		}

		if others != 5 {
			t.Fatalf("seed %d: expected all 5 other articles kept, got %d", seed, others)
		}
	}
}

func TestCuratedSurvivalRate(t *testing.T) {
	const (
		runs      = 200
		droppable = 10
	)

	rng := rand.New(rand.NewPCG(1, 2))
	kept := 0

	for range runs {
		kept += len(ranking.Curated(droppablePool(droppable, 0), rng, defaultCurate(), 0))
	}

	rate := float64(kept) / (runs * droppable)
	if rate < 0.6 || rate > 0.8 {
		t.Fatalf("expected survival rate near %v, got %v", ranking.DefaultSurvivalFraction, rate)
	}
}

func TestCuratedTruncates(t *testing.T) {
	curated := ranking.Curated(droppablePool(0, 8), rand.New(rand.NewPCG(3, 3)), defaultCurate(), 4)

	if len(curated) != 4 {
		t.Fatalf("expected 4 articles, got %d", len(curated))
	}
}

func TestCuratedNilRand(t *testing.T) {
	curated := ranking.Curated(droppablePool(0, 6), nil, defaultCurate(), 0)

	if len(curated) != 6 {
		t.Fatalf("expected all 6 articles, got %d", len(curated))
	}
}
