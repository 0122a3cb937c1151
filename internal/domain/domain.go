package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Bucket string

const (
	BucketLatest  Bucket = "latest"
	BucketTop     Bucket = "top"
	BucketCurated Bucket = "curated"
)

// Buckets lists every bucket in aggregation cycle order.
var Buckets = []Bucket{BucketLatest, BucketTop, BucketCurated} //nolint:gochecknoglobals // Closed enum.

func ParseBucket(name string) (Bucket, error) {
	b := Bucket(strings.ToLower(strings.TrimSpace(name)))
	switch b {
	case BucketLatest, BucketTop, BucketCurated:
		return b, nil
	default:
		return "", fmt.Errorf("unknown bucket %q", name)
	}
}

// RawFeed is a parsed feed document before normalization.
type RawFeed struct {
	URL      string
	Title    string
	Subtitle string
	Image    *RawImage
	Entries  []RawEntry
}

type RawImage struct {
	Href string
	Link string
}

type RawEntry struct {
	Title          string
	Link           string
	Summary        string
	Published      string
	Date           string
	MediaThumbnail []RawMedia
	MediaContent   []RawMedia
}

type RawMedia struct {
	URL string
}

type Feed struct {
	Name     string
	Logo     *string
	Subtitle string
	Entries  []Article
}

type Article struct {
	Title     string
	Link      string
	Summary   string
	Thumbnail *string
	Date      time.Time
	Source    string
	Logo      *string
	Score     *float64
}

func (a Article) Validate() error {
	var errs []error

	if strings.TrimSpace(a.Title) == "" {
		errs = append(errs, errors.New("title is empty"))
	}
	if strings.TrimSpace(a.Link) == "" {
		errs = append(errs, errors.New("link is empty"))
	}
	if strings.TrimSpace(a.Source) == "" {
		errs = append(errs, errors.New("source is empty"))
	}

	return errors.Join(errs...)
}

type Subscriber struct {
	Email     string
	Confirmed bool
}
