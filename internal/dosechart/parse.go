package dosechart

import (
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/TobiSchelling/tripcorpus/internal/markup"
)

// ErrUnit means a table cell names zero or several known units.
var ErrUnit = errors.New("unit is not exactly one known unit")

var numberPattern = regexp.MustCompile(`[-+]?\d*\.\d+|\d+`)

// Numbers returns every number in s. A sign glued to a number is the
// range dash of "1.5-2.5", so values are taken as absolute.
func Numbers(s string) []float64 {
	matches := numberPattern.FindAllString(s, -1)
	values := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		values = append(values, math.Abs(v))
	}
	return values
}

// Unit returns the single unit of units that occurs in s. The micro sign
// and the Greek mu compare equal.
func Unit(s string, units []string) (string, error) {
	text := norm.NFKC.String(s)
	var found []string
	for _, u := range units {
		if strings.Contains(text, norm.NFKC.String(u)) {
			found = append(found, u)
		}
	}
	if len(found) != 1 {
		return "", fmt.Errorf("%q matches %v of %v: %w", strings.TrimSpace(s), found, units, ErrUnit)
	}
	return found[0], nil
}

type parser struct {
	debug bool
}

// valueText returns the text of the value cell next to the anchor for href.
func valueText(root markup.Node, href string) (string, bool) {
	anchor := markup.First(root.FindByAttr("href", href))
	if anchor == nil {
		return "", false
	}
	label := anchor.Parent()
	if label == nil {
		return "", false
	}
	cell := label.NextSibling("RowValues")
	if cell == nil {
		return "", false
	}
	return cell.FirstChildText(), true
}

// dosage reads every dosage level present in the chart. A cell whose unit
// cannot be read falls back to the last remembered upper bound and unit;
// without one the level is skipped.
func (p parser) dosage(root markup.Node) map[Level]Dose {
	levels := make(map[Level]Dose)

	var (
		highValue float64
		hasHigh   bool
		unit      string
		hasUnit   bool
	)

	for _, level := range Levels {
		text, ok := valueText(root, LevelHref(level))
		if !ok {
			continue
		}

		quantities := Numbers(text)
		if len(quantities) == 0 {
			continue
		}
		low := quantities[0]
		if len(quantities) >= 2 {
			highValue, hasHigh = quantities[1], true
		}

		if p.debug {
			log.Printf("\tText: %s\n\tPossible units: %v", text, DosageUnits)
		}
		parsed, err := Unit(text, DosageUnits)
		if err != nil {
			if !hasHigh || !hasUnit {
				continue
			}
			low = highValue
		} else {
			unit, hasUnit = parsed, true
		}

		levels[level] = Dose{Quantity: low, Unit: unit}
	}

	if len(levels) == 1 && hasHigh {
		var (
			only Level
			dose Dose
		)
		for level, d := range levels {
			only, dose = level, d
		}
		if next, ok := only.Next(); ok {
			levels[next] = Dose{Quantity: highValue, Unit: dose.Unit}
		}
	}

	if p.debug {
		log.Printf("\tDosage levels: %v", levels)
	}
	return levels
}

// duration reads every duration phase present in the chart. An
// unreadable unit is an error.
func (p parser) duration(root markup.Node) (map[Phase]Range, error) {
	phases := make(map[Phase]Range)

	for _, phase := range Phases {
		text, ok := valueText(root, PhaseHref(phase))
		if !ok {
			continue
		}

		quantities := Numbers(text)
		if len(quantities) == 0 {
			continue
		}
		low, high := quantities[0], quantities[0]
		if len(quantities) >= 2 {
			high = quantities[1]
		}

		if p.debug {
			log.Printf("\tText: %s\n\tPossible units: %v", text, DurationUnits)
		}
		unit, err := Unit(text, DurationUnits)
		if err != nil {
			return nil, fmt.Errorf("duration %s: %w", phase, err)
		}
		phases[phase] = Range{Low: low, High: high, Unit: unit}
	}

	if p.debug {
		log.Printf("\tDurations: %v", phases)
	}
	return phases, nil
}

// chart extracts every route whose dosage and duration are both non-empty.
func (p parser) chart(doc markup.Node) (Chart, error) {
	chart := make(Chart)
	for _, block := range doc.FindByClass("dosechart") {
		roa, ok := block.Attr("data-roa")
		if !ok {
			return nil, fmt.Errorf("dosechart without data-roa: %w", markup.ErrNotFound)
		}
		root := block.Parent()
		if root == nil {
			root = block
		}

		dosage := p.dosage(root)
		duration, err := p.duration(root)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", roa, err)
		}
		if len(dosage) != 0 && len(duration) != 0 {
			chart[strings.ToLower(roa)] = Record{Dosage: dosage, Duration: duration}
		}
	}
	return chart, nil
}

// FromDocument extracts the dose chart of one substance page.
func FromDocument(doc markup.Node) (Chart, error) {
	return parser{}.chart(doc)
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
