package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/TobiSchelling/tripcorpus/internal/dataset"
	"github.com/TobiSchelling/tripcorpus/internal/fetch"
	"github.com/TobiSchelling/tripcorpus/internal/markup"
)

// Markers around the report text on a report page.
const (
	BodyStart = "<!-- Start Body -->"
	BodyEnd   = "<!-- End Body -->"
)

// SpamMarkers appear in pages carrying injected spam scripts.
var SpamMarkers = []string{"concatemoji", "createElement"}

var controlChars = func() *strings.Replacer {
	pairs := make([]string, 0, 2*31)
	for c := rune(1); c < 32; c++ {
		pairs = append(pairs, string(c), " ")
	}
	return strings.NewReplacer(pairs...)
}()

// ExtractBody returns the markup between the first start marker and the
// last end marker.
func ExtractBody(raw string) (string, bool) {
	start := strings.Index(raw, BodyStart)
	end := strings.LastIndex(raw, BodyEnd)
	if start < 0 || end < 0 || end < start+len(BodyStart) {
		return "", false
	}
	return raw[start+len(BodyStart) : end], true
}

// Clean replaces every ASCII control character 0x01-0x1F with a space.
func Clean(text string) string {
	return controlChars.Replace(text)
}

// IsSpam reports whether text carries a known spam signature.
func IsSpam(text string) bool {
	for _, m := range SpamMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// Stats counts what happened to the report links of one harvest.
type Stats struct {
	Links       int
	Kept        int
	Spam        int
	MissingBody int
}

// Harvester collects trip reports from the archive.
type Harvester struct {
	fetcher  fetch.Fetcher
	urls     fetch.URLs
	fallback bool
	Stats    Stats
}

// NewHarvester creates a new harvester. With fallback set, a report page
// lacking the body markers is reduced to its main content by readability
// instead of being skipped.
func NewHarvester(fetcher fetch.Fetcher, urls fetch.URLs, fallback bool) *Harvester {
	return &Harvester{fetcher: fetcher, urls: urls, fallback: fallback}
}

func (h *Harvester) get(ctx context.Context, rawURL string) (*fetch.Page, error) {
	page, err := h.fetcher.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("%s: %w", rawURL, fetch.ErrNoPage)
	}
	return page, nil
}

// DrugID reads the archive's internal drug id from the hidden form field
// of a general listing page.
func DrugID(doc markup.Node) (string, error) {
	input := markup.First(doc.Find(`input[name="S"]`))
	if input == nil {
		return "", fmt.Errorf("drug id input: %w", markup.ErrNotFound)
	}
	id, ok := input.Attr("value")
	if !ok {
		return "", fmt.Errorf("drug id value: %w", markup.ErrNotFound)
	}
	return id, nil
}

// ReportLinks returns every report link in the results table of a full
// listing page, resolved against the page URL.
func ReportLinks(page *fetch.Page) ([]string, error) {
	marker := markup.First(page.Doc.Find(`tr[height="8"]`))
	if marker == nil {
		return nil, fmt.Errorf("results table: %w", markup.ErrNotFound)
	}
	table := marker.Parent()
	if table == nil {
		return nil, fmt.Errorf("results table: %w", markup.ErrNotFound)
	}

	var links []string
	for _, a := range table.Find("a") {
		href, ok := a.Attr("href")
		if !ok {
			continue
		}
		ref, err := page.URL.Parse(href)
		if err != nil {
			return nil, fmt.Errorf("report link %q: %w", href, err)
		}
		links = append(links, ref.String())
	}
	return links, nil
}

// ReportText turns a report page into cleaned plain text. The second
// result is false when the page has no report body.
func (h *Harvester) ReportText(page *fetch.Page) (string, bool, error) {
	var text string
	if fragment, ok := ExtractBody(string(page.Raw)); ok {
		doc, err := markup.ParseString(fragment)
		if err != nil {
			return "", false, err
		}
		text = doc.Text()
	} else {
		if !h.fallback {
			return "", false, nil
		}
		article, err := readability.FromReader(bytes.NewReader(page.Raw), page.URL)
		if err != nil {
			return "", false, nil
		}
		log.Printf("\tNo body markers in %s, using main content", page.URL)
		text = article.TextContent
	}
	return Clean(text), true, nil
}

// Reports returns the report bodies for one substance.
func (h *Harvester) Reports(ctx context.Context, archiveID string) ([]string, error) {
	general, err := h.get(ctx, h.urls.ArchiveGeneral(archiveID))
	if err != nil {
		return nil, err
	}
	drugID, err := DrugID(general.Doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", archiveID, err)
	}

	listing, err := h.get(ctx, h.urls.ArchiveAll(drugID))
	if err != nil {
		return nil, err
	}
	links, err := ReportLinks(listing)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", archiveID, err)
	}

	reports := []string{}
	for _, link := range links {
		h.Stats.Links++
		page, err := h.get(ctx, link)
		if err != nil {
			return nil, err
		}
		text, ok, err := h.ReportText(page)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", link, err)
		}
		if !ok {
			h.Stats.MissingBody++
			continue
		}
		if IsSpam(text) {
			h.Stats.Spam++
			continue
		}
		h.Stats.Kept++
		reports = append(reports, text)
	}
	return reports, nil
}

// Incomplete is returned by Batch when the request quota runs out. The
// batch returned with it holds every substance finished before that.
type Incomplete struct {
	// Pending lists the substances still to harvest, in order.
	Pending []string
	Err     error
}

func (e *Incomplete) Error() string {
	return fmt.Sprintf("%d substances left to harvest: %v", len(e.Pending), e.Err)
}

func (e *Incomplete) Unwrap() error {
	return e.Err
}

// Batch harvests every substance in order. Substances are all-or-nothing:
// one cut short by the quota is pending as a whole.
func (h *Harvester) Batch(ctx context.Context, archiveIDs []string) (dataset.Batch, error) {
	batch := make(dataset.Batch, 0, len(archiveIDs))
	for i, id := range archiveIDs {
		log.Printf("Collecting trip reports for %s...", id)
		reports, err := h.Reports(ctx, id)
		if errors.Is(err, fetch.ErrQuotaExhausted) {
			log.Printf("Request quota exhausted, %d substances pending", len(archiveIDs)-i)
			return batch, &Incomplete{Pending: append([]string(nil), archiveIDs[i:]...), Err: err}
		}
		if err != nil {
			return nil, err
		}
		log.Printf("\tCollected %d trip reports", len(reports))
		batch = append(batch, dataset.SubstanceReports{Substance: id, Reports: reports})
	}
	log.Printf("Total number of trip reports collected: %d", batch.Count())
	return batch, nil
}
