package database_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"anemoia/internal/database"
	"anemoia/internal/domain"
)

func newTestDB(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"), slog.Default())
	if err != nil {
		t.Fatalf("failed to create DB: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("failed to close DB: %v", err)
		}
	})

	return db
}

func ptr[T any](v T) *T {
	return &v
}

func sampleArticles() []domain.Article {
	return []domain.Article{
		{
			Title:     "Second",
			Link:      "https://example.com/2",
			Summary:   "Summary two",
			Thumbnail: ptr("https://example.com/2.jpg"),
			Date:      time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC),
			Source:    "Example News",
			Logo:      ptr("https://example.com/logo.png"),
			Score:     ptr(84.5),
		},
		{
			Title:   "First",
			Link:    "https://example.com/1",
			Summary: "",
			Date:    time.Date(2018, 1, 1, 5, 0, 0, 0, time.UTC),
			Source:  "Example News",
		},
	}
}

func TestReplaceAndReadRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	want := sampleArticles()

	if err := db.Replace(ctx, domain.BucketTop, want); err != nil {
		t.Fatalf("unexpected replace error: %v", err)
	}

	got, err := db.ReadBucket(ctx, domain.BucketTop)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d articles, got %d", len(want), len(got))
	}

	for i := range want {
		assertArticleEqual(t, want[i], got[i])
	}
}

func TestReplaceSwapsContents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	articles := sampleArticles()

	if err := db.Replace(ctx, domain.BucketLatest, articles); err != nil {
		t.Fatalf("unexpected replace error: %v", err)
	}

	if err := db.Replace(ctx, domain.BucketLatest, articles[1:]); err != nil {
		t.Fatalf("unexpected replace error: %v", err)
	}

	got, err := db.ReadBucket(ctx, domain.BucketLatest)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}

	if len(got) != 1 || got[0].Link != articles[1].Link {
		t.Fatalf("expected only the newest cycle to remain, got %+v", got)
	}

	other, err := db.ReadBucket(ctx, domain.BucketCurated)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}

	if len(other) != 0 {
		t.Fatalf("expected other buckets to stay empty, got %d", len(other))
	}
}

func TestReplaceInvalidArticleKeepsPreviousContents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Replace(ctx, domain.BucketCurated, sampleArticles()); err != nil {
		t.Fatalf("unexpected replace error: %v", err)
	}

	broken := append(sampleArticles(), domain.Article{Title: "No link", Source: "X"})
	if err := db.Replace(ctx, domain.BucketCurated, broken); err == nil {
		t.Fatalf("expected validation error")
	}

	got, err := db.ReadBucket(ctx, domain.BucketCurated)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected previous contents to survive, got %d", len(got))
	}
}

func TestUnknownBucket(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.ReadBucket(ctx, domain.Bucket("latest_articles; drop table subscribers")); !errors.Is(err, database.ErrUnknownBucket) {
		t.Fatalf("expected ErrUnknownBucket, got %v", err)
	}

	if err := db.Replace(ctx, domain.Bucket("nope"), nil); !errors.Is(err, database.ErrUnknownBucket) {
		t.Fatalf("expected ErrUnknownBucket, got %v", err)
	}
}

func TestAddSubscriber(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.AddSubscriber(ctx, "  Reader@Example.com "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := db.AddSubscriber(ctx, "not an email"); err == nil {
		t.Fatalf("expected invalid email to be rejected")
	}

	subscribers, err := db.Subscribers(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(subscribers) != 1 {
		t.Fatalf("expected 1 subscriber, got %d", len(subscribers))
	}

	if subscribers[0].Email != "reader@example.com" || subscribers[0].Confirmed {
		t.Fatalf("unexpected subscriber: %+v", subscribers[0])
	}
}

func TestNewIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	for range 2 {
		db, err := database.New(ctx, path, slog.Default())
		if err != nil {
			t.Fatalf("failed to open DB: %v", err)
		}

		if err = db.Close(); err != nil {
			t.Fatalf("failed to close DB: %v", err)
		}
	}
}

func assertArticleEqual(t *testing.T, want domain.Article, got domain.Article) {
	t.Helper()

	if got.Title != want.Title || got.Link != want.Link || got.Summary != want.Summary || got.Source != want.Source {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if !got.Date.Equal(want.Date) || got.Date.Location() != time.UTC {
		t.Fatalf("expected date %s, got %s", want.Date, got.Date)
	}

	assertStringPtr(t, "logo", want.Logo, got.Logo)
	assertStringPtr(t, "thumbnail", want.Thumbnail, got.Thumbnail)

	switch {
	case want.Score == nil && got.Score != nil:
		t.Fatalf("expected nil score, got %v", *got.Score)
	case want.Score != nil && (got.Score == nil || *got.Score != *want.Score):
		t.Fatalf("expected score %v, got %v", *want.Score, got.Score)
	}
}

func assertStringPtr(t *testing.T, name string, want *string, got *string) {
	t.Helper()

	switch {
	case want == nil && got != nil:
		t.Fatalf("expected nil %s, got %q", name, *got)
	case want != nil && (got == nil || *got != *want):
		t.Fatalf("expected %s %q, got %v", name, *want, got)
	}
}
