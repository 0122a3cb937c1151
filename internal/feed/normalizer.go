package feed

import (
	"strings"
	"time"

	"anemoia/internal/domain"
)

const (
	DefaultMaxEntries      = 10
	DefaultSummaryMaxChars = 250

	ellipsis = "..."
)

var apostropheReplacer = strings.NewReplacer( //nolint:gochecknoglobals // Immutable.
	"&#39;", "'",
	"&#039;", "'",
	"&#x27;", "'",
	"&#X27;", "'",
	"&apos;", "'",
)

var newlineReplacer = strings.NewReplacer("\n", "", "\r", "") //nolint:gochecknoglobals // Immutable.

type NormalizeOptions struct {
	MaxEntries      int
	SummaryMaxChars int
	Now             time.Time
}

func (o NormalizeOptions) withDefaults() NormalizeOptions {
	if o.MaxEntries <= 0 {
		o.MaxEntries = DefaultMaxEntries
	}
	if o.SummaryMaxChars <= 0 {
		o.SummaryMaxChars = DefaultSummaryMaxChars
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}

	return o
}

// Normalize converts the first MaxEntries raw entries into articles owned by
// the feed. Entries without a link are dropped and counted in skipped.
// The feed logo is extracted but not validated.
func Normalize(raw *domain.RawFeed, opts NormalizeOptions) (feed domain.Feed, skipped int) {
	opts = opts.withDefaults()

	feed = domain.Feed{
		Name:     strings.TrimSpace(raw.Title),
		Logo:     FeedLogo(raw.Image),
		Subtitle: strings.TrimSpace(raw.Subtitle),
	}
	if feed.Name == "" {
		feed.Name = raw.URL
	}

	entries := raw.Entries
	if len(entries) > opts.MaxEntries {
		entries = entries[:opts.MaxEntries]
	}

	feed.Entries = make([]domain.Article, 0, len(entries))
	for _, entry := range entries {
		article, ok := normalizeEntry(entry, feed.Name, opts)
		if !ok {
			skipped++
			continue
		}

		feed.Entries = append(feed.Entries, article)
	}

	return feed, skipped
}

func normalizeEntry(entry domain.RawEntry, source string, opts NormalizeOptions) (domain.Article, bool) {
	link := strings.TrimSpace(entry.Link)
	if link == "" {
		return domain.Article{}, false
	}

	title := strings.TrimSpace(FormatTitle(entry.Title))
	if title == "" {
		title = link
	}

	date, err := ParseDate(entryDate(entry.Published, entry.Date), opts.Now)
	if err != nil {
		date = opts.Now.UTC()
	}

	return domain.Article{
		Title:     title,
		Link:      link,
		Summary:   summaryFromRaw(entry.Summary, opts.SummaryMaxChars),
		Thumbnail: Thumbnail(entry),
		Date:      date,
		Source:    source,
	}, true
}

func FormatTitle(title string) string {
	return apostropheReplacer.Replace(title)
}

// FormatSummary drops line breaks and everything from the first '<' onward,
// then caps the result at maxChars runes including the ellipsis. Trailing
// spaces are dropped. Applying it twice with the same cap is a no-op.
func FormatSummary(summary string, maxChars int) string {
	summary = newlineReplacer.Replace(summary)

	if i := strings.IndexByte(summary, '<'); i >= 0 {
		summary = summary[:i]
	}

	runes := []rune(summary)
	if len(runes) <= maxChars {
		return strings.TrimRight(summary, " ")
	}

	if maxChars <= len(ellipsis) {
		return strings.TrimRight(string(runes[:max(maxChars, 0)]), " ")
	}

	head := strings.TrimRight(string(runes[:maxChars-len(ellipsis)]), " ")

	return head + ellipsis
}

// summaryFromRaw falls back to the markup's text content when the summary
// opens with a tag and nothing precedes it.
func summaryFromRaw(raw string, maxChars int) string {
	summary := FormatSummary(raw, maxChars)
	if strings.TrimSpace(summary) != "" || !strings.Contains(raw, "<") {
		return summary
	}

	return FormatSummary(PlainText(raw), maxChars)
}

// Thumbnail prefers media:thumbnail over media:content.
func Thumbnail(entry domain.RawEntry) *string {
	if len(entry.MediaThumbnail) > 0 {
		return nonEmpty(entry.MediaThumbnail[0].URL)
	}
	if len(entry.MediaContent) > 0 {
		return nonEmpty(entry.MediaContent[0].URL)
	}

	return nil
}

func FeedLogo(img *domain.RawImage) *string {
	if img == nil {
		return nil
	}
	if logo := nonEmpty(img.Href); logo != nil {
		return logo
	}

	return nonEmpty(img.Link)
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	return &s
}
