// Package report renders a human-readable summary of the collected dataset.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/tripcorpus/internal/catalog"
	"github.com/TobiSchelling/tripcorpus/internal/cluster"
	"github.com/TobiSchelling/tripcorpus/internal/database"
	"github.com/TobiSchelling/tripcorpus/internal/dosechart"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Names, effects and revision links come from scraped pages.
var sanitizer = bluemonday.UGCPolicy()

//go:embed templates/summary.html
var pageTemplate string

//go:embed static/style.css
var style string

var page = template.Must(template.New("summary").Parse(pageTemplate))

type section struct {
	Name   string
	Anchor string
	Body   template.HTML
}

// Summary is a snapshot of everything collected so far. Charts and
// effects are keyed by wiki id, report counts by archive id.
type Summary struct {
	Substances   []catalog.Row
	Charts       map[string]dosechart.Chart
	Effects      map[string][]string
	ReportCounts map[string]int
	StopWords    int
	Revisions    []database.Revision
	Runs         []*database.RunReport
	Groups       []cluster.Group
}

// Load reads a summary from the database. Rows gives the catalog order;
// ids found only in the database follow in sorted order.
func Load(db *database.DB, rows []catalog.Row) (*Summary, error) {
	s := &Summary{}
	var err error
	if s.Charts, err = db.GetDosecharts(); err != nil {
		return nil, fmt.Errorf("loading dose charts: %w", err)
	}
	if s.Effects, err = db.GetEffects(); err != nil {
		return nil, fmt.Errorf("loading effects: %w", err)
	}
	if s.ReportCounts, err = db.CountReportsBySubstance(); err != nil {
		return nil, fmt.Errorf("loading report counts: %w", err)
	}
	words, err := db.GetStopWords()
	if err != nil {
		return nil, fmt.Errorf("loading stop words: %w", err)
	}
	s.StopWords = len(words)
	if s.Revisions, err = db.GetRevisions(); err != nil {
		return nil, fmt.Errorf("loading revisions: %w", err)
	}
	for _, phase := range []int{1, 2} {
		run, err := db.GetLastRun(phase)
		if err != nil {
			return nil, fmt.Errorf("loading runs: %w", err)
		}
		if run != nil {
			s.Runs = append(s.Runs, run)
		}
	}
	s.Substances = entries(rows, s.Charts, s.Effects, s.ReportCounts)
	s.GroupEffects(cluster.DefaultThreshold)
	return s, nil
}

// GroupEffects recomputes the groups of substances with similar effects.
func (s *Summary) GroupEffects(threshold float64) {
	s.Groups = cluster.Effects(s.Effects, threshold)
}

func (s *Summary) wikiName(id string) string {
	for _, r := range s.Substances {
		if r.WikiID == id {
			return r.Name
		}
	}
	return id
}

func entries(rows []catalog.Row, charts map[string]dosechart.Chart, effects map[string][]string, counts map[string]int) []catalog.Row {
	out := append([]catalog.Row(nil), rows...)
	wiki := make(map[string]bool, len(rows))
	archive := make(map[string]bool, len(rows))
	for _, r := range rows {
		wiki[r.WikiID] = true
		archive[r.ArchiveID] = true
	}

	var wikiOnly, archiveOnly []string
	for id := range charts {
		if !wiki[id] {
			wiki[id] = true
			wikiOnly = append(wikiOnly, id)
		}
	}
	for id := range effects {
		if !wiki[id] {
			wiki[id] = true
			wikiOnly = append(wikiOnly, id)
		}
	}
	for id := range counts {
		if !archive[id] {
			archiveOnly = append(archiveOnly, id)
		}
	}
	sort.Strings(wikiOnly)
	sort.Strings(archiveOnly)
	for _, id := range wikiOnly {
		out = append(out, catalog.Row{Name: id, WikiID: id})
	}
	for _, id := range archiveOnly {
		out = append(out, catalog.Row{Name: id, ArchiveID: id})
	}
	return out
}

// Find returns the entry with the given display name.
func (s *Summary) Find(name string) (catalog.Row, bool) {
	for _, r := range s.Substances {
		if r.Name == name {
			return r, true
		}
	}
	return catalog.Row{}, false
}

func routes(chart dosechart.Chart) []string {
	names := make([]string, 0, len(chart))
	for route := range chart {
		names = append(names, route)
	}
	sort.Strings(names)
	return names
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func commonDose(chart dosechart.Chart) string {
	for _, route := range routes(chart) {
		if d, ok := chart[route].Dosage[dosechart.Common]; ok {
			return fmt.Sprintf("%s %s (%s)", number(d.Quantity), d.Unit, route)
		}
	}
	return "-"
}

// Markdown renders the overview document.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("# Trip report corpus\n\n")

	total := 0
	for _, n := range s.ReportCounts {
		total += n
	}
	fmt.Fprintf(&b, "- Substances: %d\n", len(s.Substances))
	fmt.Fprintf(&b, "- Trip reports: %d\n", total)
	fmt.Fprintf(&b, "- Stop words: %d\n\n", s.StopWords)

	b.WriteString("| Substance | Routes | Common dose | Effects | Reports |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range s.Substances {
		chart := s.Charts[r.WikiID]
		routeList := strings.Join(routes(chart), ", ")
		if routeList == "" {
			routeList = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d |\n",
			r.Name, routeList, commonDose(chart), len(s.Effects[r.WikiID]), s.ReportCounts[r.ArchiveID])
	}

	if len(s.Groups) > 0 {
		b.WriteString("\n## Similar effect profiles\n\n")
		for _, g := range s.Groups {
			names := make([]string, len(g.Substances))
			for i, id := range g.Substances {
				names[i] = s.wikiName(id)
			}
			fmt.Fprintf(&b, "- %s: %d shared effects\n", strings.Join(names, ", "), len(g.Shared))
		}
	}

	if len(s.Runs) > 0 {
		b.WriteString("\n## Runs\n\n")
		for _, r := range s.Runs {
			status := "ok"
			if r.Failed {
				status = "failed"
			}
			fmt.Fprintf(&b, "- Phase %d finished %s: %d reports kept, %d removed (%s)\n",
				r.Phase, r.FinishedAt.Format("2006-01-02 15:04"), r.Reports, r.Removed, status)
		}
	}

	if len(s.Revisions) > 0 {
		b.WriteString("\n## Wiki revisions\n\n")
		for _, r := range s.Revisions {
			author := r.Author
			if author == "" {
				author = "unknown"
			}
			fmt.Fprintf(&b, "- [%s](%s) %s by %s\n", r.Substance, r.Link, r.UpdatedAt.Format("2006-01-02"), author)
		}
	}
	return b.String()
}

// SubstanceMarkdown renders the detail document of one substance.
func (s *Summary) SubstanceMarkdown(r catalog.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Name)
	fmt.Fprintf(&b, "Trip reports: %d\n", s.ReportCounts[r.ArchiveID])

	chart := s.Charts[r.WikiID]
	for _, route := range routes(chart) {
		rec := chart[route]
		fmt.Fprintf(&b, "\n## %s\n\n", route)
		b.WriteString("| Level | Dose |\n|---|---|\n")
		for _, level := range dosechart.Levels {
			if d, ok := rec.Dosage[level]; ok {
				fmt.Fprintf(&b, "| %s | %s %s |\n", level, number(d.Quantity), d.Unit)
			}
		}
		b.WriteString("\n| Phase | Duration |\n|---|---|\n")
		for _, phase := range dosechart.Phases {
			if rng, ok := rec.Duration[phase]; ok {
				span := number(rng.Low)
				if rng.High != rng.Low {
					span += "-" + number(rng.High)
				}
				fmt.Fprintf(&b, "| %s | %s %s |\n", phase, span, rng.Unit)
			}
		}
	}

	if effects := s.Effects[r.WikiID]; len(effects) > 0 {
		b.WriteString("\n## Effects\n\n")
		for _, e := range effects {
			fmt.Fprintf(&b, "- %s\n", strings.ReplaceAll(e, "_", " "))
		}
	}
	return b.String()
}

// HTML converts Markdown to a sanitized HTML fragment.
func HTML(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return sanitizer.SanitizeBytes(buf.Bytes()), nil
}

func anchor(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

// Write stores the overview followed by every substance's details as
// Markdown at mdPath and as a single HTML page at htmlPath.
func (s *Summary) Write(mdPath, htmlPath string) error {
	data := struct {
		Style    template.CSS
		Overview template.HTML
		Sections []section
	}{Style: template.CSS(style)}

	overview := s.Markdown()
	body, err := HTML(overview)
	if err != nil {
		return err
	}
	data.Overview = template.HTML(body) //nolint: gosec

	doc := []string{overview}
	for _, r := range s.Substances {
		detail := s.SubstanceMarkdown(r)
		doc = append(doc, detail)
		body, err := HTML(detail)
		if err != nil {
			return err
		}
		data.Sections = append(data.Sections, section{
			Name:   r.Name,
			Anchor: anchor(r.Name),
			Body:   template.HTML(body), //nolint: gosec
		})
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering summary page: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(mdPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(mdPath, []byte(strings.Join(doc, "\n")), 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
