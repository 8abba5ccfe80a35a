// Package langfilter drops trip reports that are not written in the target
// language.
package langfilter

import (
	"log"

	"github.com/abadojack/whatlanggo"

	"github.com/TobiSchelling/tripcorpus/internal/dataset"
)

// Detector returns the ISO 639-1 code of the language text is written in.
type Detector interface {
	Detect(text string) string
}

// Whatlang detects languages with trigram profiles.
type Whatlang struct{}

// Detect implements Detector.
func (Whatlang) Detect(text string) string {
	return whatlanggo.Detect(text).Lang.Iso6391()
}

// Filter keeps reports written in one target language.
type Filter struct {
	detector Detector
	target   string
}

// New creates a filter for the given ISO 639-1 code. A nil detector uses
// Whatlang.
func New(detector Detector, target string) *Filter {
	if detector == nil {
		detector = Whatlang{}
	}
	if target == "" {
		target = "en"
	}
	return &Filter{detector: detector, target: target}
}

// Apply returns a copy of batch with foreign-language reports removed and
// the number of reports dropped. Substance order and report order are kept.
func (f *Filter) Apply(batch dataset.Batch) (dataset.Batch, int) {
	out := make(dataset.Batch, 0, len(batch))
	removed := 0
	for _, sr := range batch {
		kept := make([]string, 0, len(sr.Reports))
		for _, report := range sr.Reports {
			lang := f.detector.Detect(report)
			if lang != f.target {
				log.Printf("Detected language: %s", lang)
				removed++
				continue
			}
			kept = append(kept, report)
		}
		out = append(out, dataset.SubstanceReports{Substance: sr.Substance, Reports: kept})
	}
	log.Printf("Removed %d trip reports not written in %s", removed, f.target)
	return out, removed
}
