package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Header is the header row of every trip-report table.
var Header = []string{"drug", "trip_report"}

// ErrHeader is returned when a trip-report table does not start with Header.
var ErrHeader = errors.New("unexpected trip report header")

// File names under the data directory.
const (
	PhaseOneFile  = "trip_reports_phase_1.csv"
	PhaseTwoFile  = "trip_reports_phase_2.csv"
	ReportsFile   = "trip_reports.csv"
	DosechartFile = "drug_to_dosechart_info_dict.gob"
	EffectsFile   = "drug_to_effects_dict.gob"
	StopWordsFile = "custom_stop_words.txt"
	DatabaseFile  = "tripcorpus.db"
	SummaryMD     = "summary.md"
	SummaryHTML   = "summary.html"
	MetricsFile   = "tripcorpus.prom"
)

// Layout resolves output file paths under one data directory.
type Layout struct {
	Dir string
}

func (l Layout) path(name string) string { return filepath.Join(l.Dir, name) }

// Batch returns the batch file of a phase.
func (l Layout) Batch(phase int) string {
	if phase == 2 {
		return l.path(PhaseTwoFile)
	}
	return l.path(PhaseOneFile)
}

func (l Layout) Reports() string     { return l.path(ReportsFile) }
func (l Layout) Dosecharts() string  { return l.path(DosechartFile) }
func (l Layout) Effects() string     { return l.path(EffectsFile) }
func (l Layout) StopWords() string   { return l.path(StopWordsFile) }
func (l Layout) Database() string    { return l.path(DatabaseFile) }
func (l Layout) SummaryMD() string   { return l.path(SummaryMD) }
func (l Layout) SummaryHTML() string { return l.path(SummaryHTML) }
func (l Layout) Metrics() string     { return l.path(MetricsFile) }

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return os.Create(path)
}

// SaveBlob writes v to path as a gob stream.
func SaveBlob(path string, v any) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// LoadBlob decodes a gob stream written by SaveBlob into v.
func LoadBlob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteStopWords writes one word per line, sorted.
func WriteStopWords(path string, words []string) error {
	sorted := append([]string(nil), words...)
	sort.Strings(sorted)

	f, err := create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, word := range sorted {
		w.WriteString(word)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadStopWords reads a list written by WriteStopWords, skipping blank lines.
func ReadStopWords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			words = append(words, line)
		}
	}
	return words, nil
}

// WriteRows writes a trip-report table to w.
func WriteRows(w io.Writer, rows []Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Substance, r.Text}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRows reads a trip-report table from r.
func ReadRows(r io.Reader) ([]Report, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0][0] != Header[0] || records[0][1] != Header[1] {
		return nil, ErrHeader
	}
	rows := make([]Report, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, Report{Substance: rec[0], Text: rec[1]})
	}
	return rows, nil
}

// WriteBatch persists a batch as a trip-report table.
func WriteBatch(path string, b Batch) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	if err := WriteRows(f, b.Rows()); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// ReadTable reads every row of a trip-report table file.
func ReadTable(path string) ([]Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// ReadBatch reads a batch written by WriteBatch.
func ReadBatch(path string) (Batch, error) {
	rows, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	return GroupRows(rows), nil
}

// Merge concatenates the rows of every input table, in argument order, into
// one table at out with a single header row. It returns the number of rows
// written.
func Merge(out string, inputs ...string) (int, error) {
	var rows []Report
	for _, in := range inputs {
		r, err := ReadTable(in)
		if err != nil {
			return 0, err
		}
		rows = append(rows, r...)
	}

	f, err := create(out)
	if err != nil {
		return 0, err
	}
	if err := WriteRows(f, rows); err != nil {
		f.Close()
		return 0, fmt.Errorf("writing %s: %w", filepath.Base(out), err)
	}
	return len(rows), f.Close()
}
