package harvest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/TobiSchelling/tripcorpus/internal/fetch"
	"github.com/TobiSchelling/tripcorpus/internal/fetch/fetchtest"
	"github.com/TobiSchelling/tripcorpus/internal/markup"
)

var testURLs = fetch.URLs{ArchiveBase: "https://archive.test", MaxResults: 10000}

const generalPage = `<html><body><form action="exp.cgi">
<input type="hidden" name="S" value="39">
<input type="submit" value="Show all">
</form></body></html>`

const listingPage = `<html><body>
<table><tr><td><a href="/navigation.shtml">Nav</a></td></tr></table>
<table class="exp-list-table">
<tr height="8"><td></td></tr>
<tr><td><a href="exp.php?ID=1">First</a></td></tr>
<tr><td><a href="exp.php?ID=2">Spam</a></td></tr>
<tr><td><a href="/experiences/exp.php?ID=3">Markers twice</a></td></tr>
<tr><td><a href="exp.php?ID=4">No body</a></td></tr>
</table></body></html>`

func reportPage(body string) string {
	return "<html><head><title>Report</title></head><body><div>header</div>" + body + "<div>footer</div></body></html>"
}

func testPages() map[string]string {
	return map[string]string{
		testURLs.ArchiveGeneral("LSD"): generalPage,
		testURLs.ArchiveAll("39"):      listingPage,
		"https://archive.test/experiences/exp.php?ID=1": reportPage(
			"<!-- Start Body -->\n<p>I took it\tat noon.</p>\r\n<p>Colors <b>shifted</b>.</p><!-- End Body -->"),
		"https://archive.test/experiences/exp.php?ID=2": reportPage(
			`<!-- Start Body --><p>Great</p><script>var s = "wp-emoji-release.min.js?ver=concatemoji";</script><!-- End Body -->`),
		"https://archive.test/experiences/exp.php?ID=3": reportPage(
			"<!-- Start Body -->One<!-- End Body -->Two<!-- Start Body -->Three<!-- End Body -->"),
		"https://archive.test/experiences/exp.php?ID=4": reportPage("<p>Nothing marked</p>"),
	}
}

func TestExtractBody(t *testing.T) {
	got, ok := ExtractBody("a" + BodyStart + "b" + BodyEnd + "c" + BodyEnd)
	if !ok {
		t.Fatal("expected body")
	}
	if got != "b"+BodyEnd+"c" {
		t.Errorf("expected slice up to the last end marker, got %q", got)
	}

	if _, ok := ExtractBody("no markers"); ok {
		t.Error("expected no body without markers")
	}
	if _, ok := ExtractBody(BodyEnd + BodyStart); ok {
		t.Error("expected no body when end precedes start")
	}
}

func TestClean(t *testing.T) {
	got := Clean("a\tb\nc\r\x01d\x1fe\x7f")
	if got != "a b c  d e\x7f" {
		t.Errorf("unexpected %q", got)
	}
}

func TestIsSpam(t *testing.T) {
	if !IsSpam("x concatemoji y") || !IsSpam("document.createElement('script')") {
		t.Error("expected spam markers to be detected")
	}
	if IsSpam("an ordinary report") {
		t.Error("expected ordinary text to pass")
	}
}

func TestDrugID(t *testing.T) {
	doc, _ := markup.ParseString(generalPage)
	id, err := DrugID(doc)
	if err != nil || id != "39" {
		t.Errorf("expected 39, got %q (%v)", id, err)
	}

	doc, _ = markup.ParseString("<html></html>")
	if _, err := DrugID(doc); !errors.Is(err, markup.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReportLinks(t *testing.T) {
	page, _ := fetch.NewPage(testURLs.ArchiveAll("39"), []byte(listingPage))
	links, err := ReportLinks(page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 4 {
		t.Fatalf("expected 4 links from the results table, got %v", links)
	}
	if links[0] != "https://archive.test/experiences/exp.php?ID=1" {
		t.Errorf("unexpected resolved link %q", links[0])
	}
}

func TestReports(t *testing.T) {
	h := NewHarvester(&fetchtest.Static{Pages: testPages()}, testURLs, false)

	reports, err := h.Reports(context.Background(), "LSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d: %q", len(reports), reports)
	}

	first := reports[0]
	if strings.ContainsAny(first, "\t\r\n") {
		t.Errorf("expected control characters to be replaced, got %q", first)
	}
	if !strings.Contains(first, "I took it at noon.") || !strings.Contains(first, "Colors shifted.") {
		t.Errorf("unexpected report text %q", first)
	}
	if strings.Contains(first, "header") || strings.Contains(first, "footer") {
		t.Errorf("expected text outside the markers to be dropped, got %q", first)
	}
	if reports[1] != "OneTwoThree" {
		t.Errorf("expected first start to last end, got %q", reports[1])
	}
	for _, r := range reports {
		if strings.Contains(r, "concatemoji") {
			t.Error("expected spam report to be excluded")
		}
	}

	if h.Stats != (Stats{Links: 4, Kept: 2, Spam: 1, MissingBody: 1}) {
		t.Errorf("unexpected stats %+v", h.Stats)
	}
}

func TestReportTextFallback(t *testing.T) {
	paragraph := strings.Repeat("The distinctive afterglow lasted well into the next morning and the walk home felt calm. ", 8)
	page, _ := fetch.NewPage("https://archive.test/experiences/exp.php?ID=9",
		[]byte("<html><body><nav>menu</nav><article><h1>Report</h1><p>"+paragraph+"</p><p>"+paragraph+"</p></article></body></html>"))

	h := NewHarvester(&fetchtest.Static{}, testURLs, true)
	text, ok, err := h.ReportText(page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected fallback text")
	}
	if !strings.Contains(text, "distinctive afterglow") {
		t.Errorf("expected main content, got %q", text)
	}
}

func TestBatchKeepsOrder(t *testing.T) {
	pages := testPages()
	pages[testURLs.ArchiveGeneral("DMT")] = strings.Replace(generalPage, `value="39"`, `value="18"`, 1)
	pages[testURLs.ArchiveAll("18")] = `<html><body><table><tr height="8"><td></td></tr></table></body></html>`

	h := NewHarvester(&fetchtest.Static{Pages: pages}, testURLs, false)
	batch, err := h.Batch(context.Background(), []string{"DMT", "LSD"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch) != 2 || batch[0].Substance != "DMT" || batch[1].Substance != "LSD" {
		t.Fatalf("unexpected batch order %+v", batch)
	}
	if len(batch[0].Reports) != 0 || len(batch[1].Reports) != 2 {
		t.Errorf("unexpected counts %v", batch.Counts())
	}
}

func TestReportsFailOnBrokenLink(t *testing.T) {
	pages := testPages()
	delete(pages, "https://archive.test/experiences/exp.php?ID=4")

	h := NewHarvester(&fetchtest.Static{Pages: pages}, testURLs, false)
	if _, err := h.Reports(context.Background(), "LSD"); !errors.Is(err, fetch.ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
}

func TestBatchKeepsFinishedSubstancesWhenQuotaRunsOut(t *testing.T) {
	pages := testPages()
	pages[testURLs.ArchiveGeneral("DMT")] = strings.Replace(generalPage, `value="39"`, `value="18"`, 1)
	pages[testURLs.ArchiveAll("18")] = `<html><body><table><tr height="8"><td></td></tr></table></body></html>`

	budget := fetch.NewBudget()
	budget.Limit(testURLs.ArchiveHost(), 3)
	h := NewHarvester(&fetchtest.Static{Pages: pages, Budget: budget}, testURLs, false)

	batch, err := h.Batch(context.Background(), []string{"DMT", "LSD"})
	if !errors.Is(err, fetch.ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}
	var incomplete *Incomplete
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected *Incomplete, got %T", err)
	}
	if len(incomplete.Pending) != 1 || incomplete.Pending[0] != "LSD" {
		t.Errorf("expected LSD pending, got %v", incomplete.Pending)
	}
	if len(batch) != 1 || batch[0].Substance != "DMT" {
		t.Errorf("expected the finished DMT entry, got %+v", batch)
	}
}
