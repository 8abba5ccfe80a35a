package revisions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TobiSchelling/tripcorpus/internal/database"
	"github.com/TobiSchelling/tripcorpus/internal/fetch"
	"github.com/TobiSchelling/tripcorpus/internal/fetch/fetchtest"
)

const historyFeed = `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom" xml:lang="en">
  <id>https://wiki.test/w/index.php?title=LSD&amp;action=history</id>
  <title>LSD - Revision history</title>
  <updated>2024-03-02T10:00:00Z</updated>
  <entry>
    <id>https://wiki.test/w/index.php?title=LSD&amp;diff=200&amp;oldid=150</id>
    <title>LSD</title>
    <link rel="alternate" type="text/html" href="https://wiki.test/w/index.php?title=LSD&amp;diff=200&amp;oldid=150"/>
    <updated>2024-03-02T10:00:00Z</updated>
    <summary type="html">fixed dosage table</summary>
    <author><name>Editor Two</name></author>
  </entry>
  <entry>
    <id>https://wiki.test/w/index.php?title=LSD&amp;diff=150&amp;oldid=100</id>
    <title>LSD</title>
    <link rel="alternate" type="text/html" href="https://wiki.test/w/index.php?title=LSD&amp;diff=150&amp;oldid=100"/>
    <updated>2023-11-20T08:30:00Z</updated>
    <author><name>Editor One</name></author>
  </entry>
</feed>`

const emptyFeed = `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <id>https://wiki.test/w/index.php?title=DMT&amp;action=history</id>
  <title>DMT - Revision history</title>
  <updated>2024-03-02T10:00:00Z</updated>
</feed>`

var testURLs = fetch.URLs{WikiBase: "https://wiki.test"}

type memStore struct {
	revs []database.Revision
}

func (m *memStore) UpsertRevision(r database.Revision) error {
	m.revs = append(m.revs, r)
	return nil
}

func TestParsePicksNewestEntry(t *testing.T) {
	tr := NewTracker(&fetchtest.Static{}, testURLs)
	rev, err := tr.Parse("LSD", []byte(historyFeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rev.Author != "Editor Two" {
		t.Errorf("expected Editor Two, got %q", rev.Author)
	}
	if !rev.UpdatedAt.Equal(time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %v", rev.UpdatedAt)
	}
	if rev.Link != "https://wiki.test/w/index.php?title=LSD&diff=200&oldid=150" {
		t.Errorf("unexpected link %q", rev.Link)
	}
}

func TestParseEmptyFeed(t *testing.T) {
	tr := NewTracker(&fetchtest.Static{}, testURLs)
	if _, err := tr.Parse("DMT", []byte(emptyFeed)); !errors.Is(err, ErrNoRevisions) {
		t.Errorf("expected ErrNoRevisions, got %v", err)
	}
}

func TestRecordAll(t *testing.T) {
	fetcher := &fetchtest.Static{Pages: map[string]string{
		testURLs.WikiHistoryFeed("LSD"): historyFeed,
		testURLs.WikiHistoryFeed("DMT"): emptyFeed,
	}}
	store := &memStore{}

	r, err := NewTracker(fetcher, testURLs).RecordAll(context.Background(), []string{"LSD", "DMT"}, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Recorded != 1 || len(r.Missing) != 1 || r.Missing[0] != "DMT" {
		t.Errorf("unexpected result %+v", r)
	}
	if len(store.revs) != 1 || store.revs[0].Substance != "LSD" {
		t.Errorf("unexpected stored revisions %+v", store.revs)
	}
}

func TestRecordAllFailsOnMissingPage(t *testing.T) {
	_, err := NewTracker(&fetchtest.Static{}, testURLs).RecordAll(context.Background(), []string{"LSD"}, &memStore{})
	if !errors.Is(err, fetch.ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
}
