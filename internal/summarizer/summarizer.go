package summarizer

import (
	"context"
)

// Input describes the payload for a summary request.
type Input struct {
	// Text is the plain text of the article description.
	Text string
	// SourceURL is the article link, passed along as context for the model.
	SourceURL string
	// MaxChars bounds the length of the returned summary.
	MaxChars int
}

// Summarizer condenses article text into a short teaser.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}
