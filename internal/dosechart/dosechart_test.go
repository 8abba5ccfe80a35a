package dosechart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/TobiSchelling/tripcorpus/internal/fetch"
	"github.com/TobiSchelling/tripcorpus/internal/fetch/fetchtest"
	"github.com/TobiSchelling/tripcorpus/internal/markup"
)

var testURLs = fetch.URLs{WikiBase: "https://wiki.test"}

type row struct {
	href  string
	value string
}

func dose(level, value string) row {
	return row{href: "/wiki/Dosage_classification#" + level, value: value}
}

func dur(phase, value string) row {
	return row{href: "/wiki/Duration#" + phase, value: value}
}

func chartHTML(roa string, rows ...row) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="dosechart-wrapper"><table class="dosechart" data-roa="%s">`, roa)
	for _, r := range rows {
		fmt.Fprintf(&b, `<tr><td class="RowTitle"><a href="%s">x</a></td><td class="RowValues">%s</td></tr>`, r.href, r.value)
	}
	b.WriteString(`</table></div>`)
	return b.String()
}

func pageHTML(charts ...string) string {
	return "<html><body>" + strings.Join(charts, "") + "</body></html>"
}

func parseChart(t *testing.T, html string) Chart {
	t.Helper()
	doc, err := markup.ParseString(html)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	chart, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return chart
}

var lsdSublingual = chartHTML("Sublingual",
	dose("Threshold", "15 µg"),
	dose("Light", "25 - 75 µg"),
	dose("Common", "75 - 150 µg"),
	dose("Strong", "150 - 300 µg"),
	dose("Heavy", "300 µg +"),
	dur("Total", "8 - 12 hours"),
	dur("Onset", "15 - 30 minutes"),
	dur("Peak", "3 - 5 hours"),
)

func TestFullChart(t *testing.T) {
	chart := parseChart(t, pageHTML(lsdSublingual))

	rec, ok := chart["sublingual"]
	if !ok {
		t.Fatalf("expected lower-cased route 'sublingual', got %v", chart)
	}
	want := map[Level]Dose{
		Threshold: {15, "µg"},
		Light:     {25, "µg"},
		Common:    {75, "µg"},
		Strong:    {150, "µg"},
		Heavy:     {300, "µg"},
	}
	for level, w := range want {
		if got := rec.Dosage[level]; got != w {
			t.Errorf("%s: expected %v, got %v", level, w, got)
		}
	}
	if got := rec.Duration[Total]; got != (Range{8, 12, "hours"}) {
		t.Errorf("unexpected total duration %v", got)
	}
	if got := rec.Duration[Onset]; got != (Range{15, 30, "minutes"}) {
		t.Errorf("unexpected onset %v", got)
	}
	if _, ok := rec.Duration[ComeUp]; ok {
		t.Error("expected missing come_up phase to be omitted")
	}
}

func TestSingleLevelSynthesizesNext(t *testing.T) {
	chart := parseChart(t, pageHTML(chartHTML("Oral",
		dose("Common", "10 - 20 mg"),
		dur("Total", "4 - 6 hours"),
	)))

	rec := chart["oral"]
	if len(rec.Dosage) != 2 {
		t.Fatalf("expected 2 levels, got %v", rec.Dosage)
	}
	if got := rec.Dosage[Common]; got != (Dose{10, "mg"}) {
		t.Errorf("unexpected common dose %v", got)
	}
	if got := rec.Dosage[Strong]; got != (Dose{20, "mg"}) {
		t.Errorf("expected synthesized strong dose 20 mg, got %v", got)
	}
}

func TestSingleLevelSynthesizesOnlyOneLevel(t *testing.T) {
	page := pageHTML(chartHTML("Oral",
		dose("Common", "10 - 20 mg"),
		dur("Total", "4 - 6 hours"),
	))

	// Map iteration order varies, so one parse is not enough.
	for i := 0; i < 200; i++ {
		rec := parseChart(t, page)["oral"]
		if _, ok := rec.Dosage[Heavy]; ok {
			t.Fatalf("run %d: expected no heavy dose, got %v", i, rec.Dosage)
		}
		if len(rec.Dosage) != 2 {
			t.Fatalf("run %d: expected 2 levels, got %v", i, rec.Dosage)
		}
	}
}

func TestSingleNumberDurationIsPointRange(t *testing.T) {
	chart := parseChart(t, pageHTML(chartHTML("Oral",
		dose("Light", "5 - 10 mg"),
		dose("Common", "10 - 20 mg"),
		dur("Peak", "2 hours"),
	)))

	if got := chart["oral"].Duration[Peak]; got != (Range{2, 2, "hours"}) {
		t.Errorf("expected (2, 2) hours, got %v", got)
	}
}

func TestRouteWithoutDosageIsOmitted(t *testing.T) {
	chart := parseChart(t, pageHTML(
		chartHTML("Smoked", dur("Total", "5 - 20 minutes")),
		chartHTML("Oral", dose("Common", "1 - 2 mg"), dur("Total", "1 hours")),
	))

	if _, ok := chart["smoked"]; ok {
		t.Error("expected route with only a duration table to be omitted")
	}
	if _, ok := chart["oral"]; !ok {
		t.Error("expected oral route to be kept")
	}
}

func TestRouteWithoutDurationIsOmitted(t *testing.T) {
	chart := parseChart(t, pageHTML(chartHTML("Oral", dose("Common", "1 - 2 mg"))))
	if len(chart) != 0 {
		t.Errorf("expected empty chart, got %v", chart)
	}
}

func TestDosageUnitFallsBackToRememberedHigh(t *testing.T) {
	chart := parseChart(t, pageHTML(chartHTML("Oral",
		dose("Threshold", "5"),
		dose("Light", "10 - 20 mg"),
		dose("Common", "30"),
		dur("Total", "1 - 2 hours"),
	)))

	rec := chart["oral"]
	if _, ok := rec.Dosage[Threshold]; ok {
		t.Error("expected threshold without unit or fallback to be skipped")
	}
	if got := rec.Dosage[Light]; got != (Dose{10, "mg"}) {
		t.Errorf("unexpected light dose %v", got)
	}
	if got := rec.Dosage[Common]; got != (Dose{20, "mg"}) {
		t.Errorf("expected common to fall back to 20 mg, got %v", got)
	}
}

func TestLevelWithoutNumbersIsSkipped(t *testing.T) {
	chart := parseChart(t, pageHTML(chartHTML("Oral",
		dose("Light", "unknown"),
		dose("Common", "1 - 2 mg"),
		dose("Strong", "2 - 4 mg"),
		dur("Total", "1 hours"),
	)))
	if _, ok := chart["oral"].Dosage[Light]; ok {
		t.Error("expected light level without numbers to be skipped")
	}
}

func TestAmbiguousDurationUnitIsFatal(t *testing.T) {
	doc, _ := markup.ParseString(pageHTML(chartHTML("Oral",
		dose("Common", "1 - 2 mg"),
		dur("Total", "30 minutes - 2 hours"),
	)))
	if _, err := FromDocument(doc); !errors.Is(err, ErrUnit) {
		t.Errorf("expected ErrUnit, got %v", err)
	}
}

func TestUnitMatchesGreekMu(t *testing.T) {
	unit, err := Unit("50 - 100 μg", DosageUnits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit != "µg" {
		t.Errorf("expected µg, got %q", unit)
	}
}

func TestUnitErrors(t *testing.T) {
	if _, err := Unit("10 - 20", DosageUnits); !errors.Is(err, ErrUnit) {
		t.Errorf("expected ErrUnit for no unit, got %v", err)
	}
	if _, err := Unit("10 mg or 20 µg", DosageUnits); !errors.Is(err, ErrUnit) {
		t.Errorf("expected ErrUnit for two units, got %v", err)
	}
}

func TestNumbers(t *testing.T) {
	got := Numbers("1.5-2.5 hours")
	if len(got) != 2 || got[0] != 1.5 || got[1] != 2.5 {
		t.Errorf("expected [1.5 2.5], got %v", got)
	}
	got = Numbers(".5 - 10 mg")
	if len(got) != 2 || got[0] != 0.5 || got[1] != 10 {
		t.Errorf("expected [0.5 10], got %v", got)
	}
	if got := Numbers("none"); len(got) != 0 {
		t.Errorf("expected no numbers, got %v", got)
	}
}

func TestHrefs(t *testing.T) {
	if got := LevelHref(Threshold); got != "/wiki/Dosage_classification#Threshold" {
		t.Errorf("unexpected level href %q", got)
	}
	if got := PhaseHref(ComeUp); got != "/wiki/Duration#Come_up" {
		t.Errorf("unexpected phase href %q", got)
	}
	if got := PhaseHref(AfterEffects); got != "/wiki/Duration#After_effects" {
		t.Errorf("unexpected phase href %q", got)
	}
}

func TestLevelNext(t *testing.T) {
	if next, ok := Light.Next(); !ok || next != Common {
		t.Errorf("expected common after light, got %q %v", next, ok)
	}
	if _, ok := Heavy.Next(); ok {
		t.Error("expected no level after heavy")
	}
}

func TestAllDerivesLSA(t *testing.T) {
	static := &fetchtest.Static{Pages: map[string]string{
		testURLs.WikiGeneral("LSD"): pageHTML(lsdSublingual),
		testURLs.WikiGeneral("LSA"): pageHTML(chartHTML("Oral",
			dose("Common", "50 - 100 seeds"),
			dur("Total", "4 - 10 hours"),
		)),
	}}
	ex := NewExtractor(static, testURLs, false)

	charts, err := ex.All(context.Background(), []string{"LSD"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lsa, ok := charts[LSA][LSARoute]
	if !ok {
		t.Fatalf("expected LSA oral route, got %v", charts[LSA])
	}
	if got := lsa.Dosage[Common]; got != (Dose{75 * 15, "µg"}) {
		t.Errorf("expected common LSA dose 1125 µg, got %v", got)
	}
	if len(lsa.Dosage) != len(charts["LSD"]["sublingual"].Dosage) {
		t.Error("expected every LSD level to be scaled")
	}
	if got := lsa.Duration[Total]; got != (Range{4, 10, "hours"}) {
		t.Errorf("expected LSA duration from its own page, got %v", got)
	}
	if got := charts["LSD"]["sublingual"].Dosage[Common]; got.Quantity != 75 {
		t.Errorf("expected LSD chart to stay unscaled, got %v", got)
	}
}

func TestAllFailsOnMissingPage(t *testing.T) {
	ex := NewExtractor(&fetchtest.Static{}, testURLs, false)
	if _, err := ex.All(context.Background(), []string{"LSD"}); !errors.Is(err, fetch.ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
}

func TestDebugModeAbsenceSurfaces(t *testing.T) {
	ex := NewExtractor(&fetchtest.Static{Debug: true}, testURLs, true)
	if _, err := ex.Substance(context.Background(), "LSD"); !errors.Is(err, fetch.ErrNoPage) {
		t.Errorf("expected ErrNoPage, got %v", err)
	}
}
