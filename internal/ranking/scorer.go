package ranking

import (
	"errors"
	"fmt"
	"time"

	"anemoia/internal/domain"
)

const scoreSecondsDivisor = 25

// ErrUnknownSource is returned by StrictScore for sources missing from the weights.
var ErrUnknownSource = errors.New("unknown source")

// Weights maps exact feed titles to a score penalty added to article age.
type Weights map[string]float64

// DefaultWeights returns a fresh copy of the editorial weight table.
func DefaultWeights() Weights {
	return Weights{
		"Reuters: Top News":   80,
		"Reuters: World News": 80,
		"BBC News - World":    0,
		"World News - Breaking international news and headlines | Sky News": 15,
		"Al Jazeera English": 15,
	}
}

func (w Weights) Lookup(source string) (float64, bool) {
	weight, ok := w[source]
	return weight, ok
}

// Score is the article age in seconds divided by 25 plus its source weight.
// Sources missing from the table weigh 0; ok reports whether it was found.
func Score(article domain.Article, now time.Time, weights Weights) (score float64, ok bool) {
	weight, ok := weights.Lookup(article.Source)

	return now.Sub(article.Date).Seconds()/scoreSecondsDivisor + weight, ok
}

func StrictScore(article domain.Article, now time.Time, weights Weights) (float64, error) {
	score, ok := Score(article, now, weights)
	if !ok {
		return 0, fmt.Errorf("%w (source = %q)", ErrUnknownSource, article.Source)
	}

	return score, nil
}
