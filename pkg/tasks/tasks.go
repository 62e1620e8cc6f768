// Package tasks contains the periodic jobs: news ingestion from the feed provider
// and the purge of today's news. Both share the pool with the http handlers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/newspulse/pkg/feed"
	"github.com/umputun/newspulse/pkg/pool"
	"github.com/umputun/newspulse/pkg/repository"
)

//go:generate moq -out mocks/store.go -pkg mocks -skip-ensure -fmt goimports . NewsStore
//go:generate moq -out mocks/source.go -pkg mocks -skip-ensure -fmt goimports ../feed Source

// NewsStore is the storage used by the tasks
type NewsStore interface {
	Insert(ctx context.Context, title string, description *string, published time.Time) (int64, error)
	DeleteByDate(ctx context.Context, day time.Time) (int64, error)
}

// Ingest pulls articles from the feed provider and stores the ones with a title
type Ingest struct {
	Source feed.Source
	Store  NewsStore
	Now    func() time.Time // ingestion time, time.Now if nil
}

// Run is a single ingestion. Provider failures are returned, nothing inserted before is rolled back.
func (i *Ingest) Run(ctx context.Context) error {
	lgr.Printf("[INFO] fetching news from %v", i.Source)
	articles, err := i.Source.Articles(ctx)
	if err != nil {
		return fmt.Errorf("fetch articles: %w", err)
	}
	lgr.Printf("[INFO] fetched %d articles", len(articles))

	inserted, skipped := 0, 0
	for _, a := range articles {
		if !a.HasTitle() {
			skipped++
			continue
		}
		if _, err := i.Store.Insert(ctx, a.Title, a.Description, now(i.Now)); err != nil {
			if fatalStoreError(err) {
				return fmt.Errorf("store article: %w", err)
			}
			lgr.Printf("[WARN] failed to store article %q: %v", a.Title, err)
			continue
		}
		inserted++
	}

	lgr.Printf("[INFO] inserted %d articles, %d without title skipped", inserted, skipped)
	return nil
}

// Purge removes everything published today, by the local clock at run time
type Purge struct {
	Store NewsStore
	Now   func() time.Time // time.Now if nil
}

// Run deletes today's news
func (p *Purge) Run(ctx context.Context) error {
	today := now(p.Now)
	deleted, err := p.Store.DeleteByDate(ctx, today)
	if err != nil {
		return fmt.Errorf("purge news for %s: %w", today.Format(repository.DayLayout), err)
	}
	lgr.Printf("[INFO] purged %d news for %s", deleted, today.Format(repository.DayLayout))
	return nil
}

// fatalStoreError reports errors making further inserts pointless
func fatalStoreError(err error) bool {
	return errors.Is(err, pool.ErrConfig) || errors.Is(err, pool.ErrConnection)
}

func now(fn func() time.Time) time.Time {
	if fn == nil {
		return time.Now()
	}
	return fn()
}
