package ranking

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"time"

	"anemoia/internal/domain"
)

const (
	// DefaultDroppableSource is thinned out by the curated policy.
	DefaultDroppableSource = "BBC News - World"
	// DefaultSurvivalFraction is the chance a droppable article is kept.
	DefaultSurvivalFraction = 0.7
)

// Chronological orders the pool newest first and keeps at most count
// articles; count <= 0 keeps all. The pool is not modified.
func Chronological(pool []domain.Article, count int) []domain.Article {
	ranked := slices.Clone(pool)

	slices.SortStableFunc(ranked, func(a, b domain.Article) int {
		return b.Date.Compare(a.Date)
	})

	return truncate(ranked, count)
}

// ScoreWeighted attaches a score to every article and orders ascending by it.
// Sources missing from weights score with weight 0 and are reported in unknown.
func ScoreWeighted(
	pool []domain.Article,
	now time.Time,
	weights Weights,
	count int,
) (ranked []domain.Article, unknown []string) {
	ranked = slices.Clone(pool)
	seen := make(map[string]struct{})

	for i := range ranked {
		score, ok := Score(ranked[i], now, weights)
		ranked[i].Score = &score

		if ok {
			continue
		}
		if _, dup := seen[ranked[i].Source]; !dup {
			seen[ranked[i].Source] = struct{}{}
			unknown = append(unknown, ranked[i].Source)
		}
	}

	slices.SortStableFunc(ranked, func(a, b domain.Article) int {
		return cmp.Compare(*a.Score, *b.Score)
	})

	return truncate(ranked, count), unknown
}

type CurateOptions struct {
	DroppableSource  string
	SurvivalFraction float64
}

// Curated keeps each article from the droppable source with probability
// SurvivalFraction, shuffles the survivors and keeps at most count.
// Results are deterministic for a given rng state; a nil rng is seeded from
// the clock.
func Curated(pool []domain.Article, rng *rand.Rand, opts CurateOptions, count int) []domain.Article {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	kept := make([]domain.Article, 0, len(pool))

	for _, article := range pool {
		if article.Source == opts.DroppableSource && rng.Float64() > opts.SurvivalFraction {
			continue
		}

		kept = append(kept, article)
	}

	rng.Shuffle(len(kept), func(i, j int) {
		kept[i], kept[j] = kept[j], kept[i]
	})

	return truncate(kept, count)
}

func truncate(articles []domain.Article, count int) []domain.Article {
	if count <= 0 || count >= len(articles) {
		return articles
	}

	return articles[:count]
}
