package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"anemoia/internal/domain"
	"anemoia/internal/feed"
)

// ErrUnknownBucket is returned for bucket names outside the closed set.
var ErrUnknownBucket = errors.New("unknown bucket")

type bucketQueries struct {
	table  string
	clear  string
	insert string
	sel    string
}

func newBucketQueries(table string) bucketQueries {
	return bucketQueries{
		table: table,
		clear: "delete from " + table,
		insert: "insert into " + table +
			" (date, link, logo, score, source, summary, title, thumbnail)" +
			" values (?, ?, ?, ?, ?, ?, ?, ?)",
		sel: "select date, link, logo, score, source, summary, title, thumbnail from " + table +
			" order by rowid",
	}
}

//nolint:gochecknoglobals // Table names are fixed per bucket and never come from callers.
var bucketTables = map[domain.Bucket]bucketQueries{
	domain.BucketLatest:  newBucketQueries("latest_articles"),
	domain.BucketTop:     newBucketQueries("top_articles"),
	domain.BucketCurated: newBucketQueries("curated_articles"),
}

func queriesFor(bucket domain.Bucket) (bucketQueries, error) {
	q, ok := bucketTables[bucket]
	if !ok {
		return bucketQueries{}, fmt.Errorf("%w %q", ErrUnknownBucket, bucket)
	}

	return q, nil
}

// Replace swaps the bucket contents for articles in one transaction, so
// readers see either the previous cycle or the new one.
func (d *Database) Replace(ctx context.Context, bucket domain.Bucket, articles []domain.Article) (err error) {
	q, err := queriesFor(bucket)
	if err != nil {
		return err
	}

	for i, a := range articles {
		if err = a.Validate(); err != nil {
			return fmt.Errorf("validate article %d: %w", i, err)
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			d.log.ErrorContext(ctx, "Failed to roll back transaction",
				"error", rollbackErr,
				"bucket", bucket,
				"operation", "Replace")
		}
	}()

	if _, err = tx.ExecContext(ctx, q.clear); err != nil {
		return fmt.Errorf("clear %s: %w", q.table, err)
	}

	stmt, err := tx.PrepareContext(ctx, q.insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			d.log.ErrorContext(ctx, "Failed to close statement",
				"error", closeErr,
				"bucket", bucket,
				"operation", "Replace")
		}
	}()

	for _, a := range articles {
		if _, err = stmt.ExecContext(ctx,
			a.Date.UTC().Format(time.RFC3339Nano),
			a.Link,
			nullString(a.Logo),
			nullFloat(a.Score),
			a.Source,
			a.Summary,
			a.Title,
			nullString(a.Thumbnail),
		); err != nil {
			return fmt.Errorf("insert into %s: %w", q.table, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ReadBucket returns the bucket's articles in the order they were ranked.
func (d *Database) ReadBucket(ctx context.Context, bucket domain.Bucket) ([]domain.Article, error) {
	q, err := queriesFor(bucket)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, q.sel)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"bucket", bucket,
				"operation", "ReadBucket")
		}
	}()

	now := time.Now()

	var articles []domain.Article
	for rows.Next() {
		var (
			a         domain.Article
			date      string
			logo      sql.NullString
			score     sql.NullFloat64
			thumbnail sql.NullString
		)

		if err = rows.Scan(&date, &a.Link, &logo, &score, &a.Source, &a.Summary, &a.Title, &thumbnail); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		a.Date, err = feed.ParseDate(date, now)
		if err != nil {
			d.log.WarnContext(ctx, "Failed to parse stored date",
				"error", err,
				"bucket", bucket,
				"link", a.Link)

			a.Date = now.UTC()
		}

		if logo.Valid {
			a.Logo = &logo.String
		}
		if score.Valid {
			a.Score = &score.Float64
		}
		if thumbnail.Valid {
			a.Thumbnail = &thumbnail.String
		}

		articles = append(articles, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return articles, nil
}

func (d *Database) AddSubscriber(ctx context.Context, email string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("parse email: %w", err)
	}

	query := "insert into subscribers (email, confirmed) values (?, 0)"

	_, err = d.db.ExecContext(ctx, query, strings.ToLower(addr.Address))

	return err
}

func (d *Database) Subscribers(ctx context.Context) ([]domain.Subscriber, error) {
	query := "select email, confirmed from subscribers order by rowid"

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"operation", "Subscribers")
		}
	}()

	var subscribers []domain.Subscriber
	for rows.Next() {
		var s domain.Subscriber
		if err = rows.Scan(&s.Email, &s.Confirmed); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		subscribers = append(subscribers, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return subscribers, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{Float64: *f, Valid: true}
}
