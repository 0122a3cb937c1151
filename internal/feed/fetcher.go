package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"anemoia/internal/domain"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	DefaultClientTimeout = 20 * time.Second

	mediaNamespace = "media"
)

// ErrFetch marks a network, timeout or malformed document failure for one feed.
var ErrFetch = errors.New("fetch feed")

type Fetcher struct {
	libParser *gofeed.Parser
	log       *slog.Logger
}

func NewFetcher(client *http.Client, log *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultClientTimeout}
	}

	libParser := gofeed.NewParser()
	libParser.Client = client
	libParser.UserAgent = userAgent

	return &Fetcher{
		libParser: libParser,
		log:       log,
	}
}

// Fetch makes a single attempt to download and parse feedURL.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*domain.RawFeed, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, fmt.Errorf("%w: feed URL is empty", ErrFetch)
	}

	start := time.Now()

	parsed, err := f.libParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w (URL = %s): %w", ErrFetch, feedURL, err)
	}

	f.log.DebugContext(ctx, "Feed is fetched",
		"feedURL", feedURL,
		"itemCount", len(parsed.Items),
		"elapsedMs", time.Since(start).Milliseconds())

	return toRawFeed(feedURL, parsed), nil
}

func toRawFeed(feedURL string, parsed *gofeed.Feed) *domain.RawFeed {
	raw := &domain.RawFeed{
		URL:      feedURL,
		Title:    parsed.Title,
		Subtitle: parsed.Description,
		Image:    rawImage(parsed),
		Entries:  make([]domain.RawEntry, 0, len(parsed.Items)),
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		raw.Entries = append(raw.Entries, domain.RawEntry{
			Title:          item.Title,
			Link:           item.Link,
			Summary:        item.Description,
			Published:      item.Published,
			Date:           item.Updated,
			MediaThumbnail: mediaURLs(item.Extensions, "thumbnail"),
			MediaContent:   mediaURLs(item.Extensions, "content"),
		})
	}

	return raw
}

func rawImage(parsed *gofeed.Feed) *domain.RawImage {
	var img domain.RawImage

	if parsed.Image != nil {
		img.Href = parsed.Image.URL
	}
	// gofeed drops the RSS <image><link>, which points at the site rather
	// than a picture anyway. The iTunes channel image is the fallback.
	if parsed.ITunesExt != nil {
		img.Link = parsed.ITunesExt.Image
	}

	if img.Href == "" && img.Link == "" {
		return nil
	}

	return &img
}

func mediaURLs(extensions ext.Extensions, name string) []domain.RawMedia {
	media, ok := extensions[mediaNamespace]
	if !ok {
		return nil
	}

	var urls []domain.RawMedia
	for _, e := range media[name] {
		urls = append(urls, domain.RawMedia{URL: e.Attrs["url"]})
	}

	// media:group wraps thumbnails and content on some publishers.
	for _, group := range media["group"] {
		for _, e := range group.Children[name] {
			urls = append(urls, domain.RawMedia{URL: e.Attrs["url"]})
		}
	}

	return urls
}
