// Package revisions records which wiki revision each substance page was at
// when its data was extracted.
package revisions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/tripcorpus/internal/database"
	"github.com/TobiSchelling/tripcorpus/internal/fetch"
)

// ErrNoRevisions is returned for a history feed without entries.
var ErrNoRevisions = errors.New("history feed has no revisions")

// Store persists revisions.
type Store interface {
	UpsertRevision(r database.Revision) error
}

// Result holds the results of a recording run.
type Result struct {
	Recorded int
	Missing  []string
}

// Tracker reads page-history feeds from the wiki.
type Tracker struct {
	fetcher fetch.Fetcher
	urls    fetch.URLs
	parser  *gofeed.Parser
}

// NewTracker creates a new revision tracker.
func NewTracker(fetcher fetch.Fetcher, urls fetch.URLs) *Tracker {
	return &Tracker{fetcher: fetcher, urls: urls, parser: gofeed.NewParser()}
}

// Parse returns the most recent revision listed in a page-history feed.
func (t *Tracker) Parse(substance string, raw []byte) (*database.Revision, error) {
	feed, err := t.parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing history feed: %w", err)
	}

	var latest *database.Revision
	for _, item := range feed.Items {
		rev := parseItem(substance, item)
		if rev == nil {
			continue
		}
		if latest == nil || rev.UpdatedAt.After(latest.UpdatedAt) {
			latest = rev
		}
	}
	if latest == nil {
		return nil, ErrNoRevisions
	}
	return latest, nil
}

func parseItem(substance string, item *gofeed.Item) *database.Revision {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	if link == "" {
		return nil
	}

	var updated time.Time
	if item.UpdatedParsed != nil {
		updated = *item.UpdatedParsed
	} else if item.PublishedParsed != nil {
		updated = *item.PublishedParsed
	} else {
		return nil
	}

	var author string
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		author = strings.TrimSpace(item.Authors[0].Name)
	}

	return &database.Revision{
		Substance: substance,
		Link:      link,
		Author:    author,
		UpdatedAt: updated.UTC(),
	}
}

// Latest fetches the history feed of one page and returns its newest revision.
func (t *Tracker) Latest(ctx context.Context, wikiID string) (*database.Revision, error) {
	page, err := t.fetcher.Get(ctx, t.urls.WikiHistoryFeed(wikiID))
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("%s: %w", wikiID, fetch.ErrNoPage)
	}
	rev, err := t.Parse(wikiID, page.Raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", wikiID, err)
	}
	return rev, nil
}

// RecordAll stores the newest revision of every page. Pages whose feed lists
// no revisions are logged and reported as missing.
func (t *Tracker) RecordAll(ctx context.Context, wikiIDs []string, store Store) (*Result, error) {
	r := &Result{}
	for _, id := range wikiIDs {
		rev, err := t.Latest(ctx, id)
		if errors.Is(err, ErrNoRevisions) {
			log.Printf("No revisions listed for %s", id)
			r.Missing = append(r.Missing, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := store.UpsertRevision(*rev); err != nil {
			return nil, fmt.Errorf("storing revision of %s: %w", id, err)
		}
		r.Recorded++
	}
	log.Printf("Recorded %d wiki revisions", r.Recorded)
	return r, nil
}
