// Package evaluate scores text classifiers on the trip-report corpus with
// k-fold cross validation.
//
// The classifiers here exist only so CrossValidate has something to score.
// They are fitted on the training folds of one evaluation and thrown away
// afterwards: nothing is saved, served or reused.
package evaluate

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrFolds is returned when the fold count does not fit the sample count.
var ErrFolds = errors.New("invalid fold count")

// Classifier predicts substance labels for report bodies.
type Classifier interface {
	Fit(docs, labels []string) error
	// Classes returns the labels seen by Fit, in the column order of
	// PredictProba.
	Classes() []string
	// PredictProba returns one row per document and one column per class.
	PredictProba(docs []string) (*mat.Dense, error)
}

// KFold splits the indices 0..n-1 into k shuffled test folds whose sizes
// differ by at most one. The same seed always yields the same folds.
func KFold(n, k int, seed int64) ([][]int, error) {
	if k < 2 || k > n {
		return nil, fmt.Errorf("%w: %d folds for %d samples", ErrFolds, k, n)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	for i, idx := range perm {
		folds[i%k] = append(folds[i%k], idx)
	}
	for _, f := range folds {
		sort.Ints(f)
	}
	return folds, nil
}

func pick(values []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func complement(n int, idx []int) []int {
	skip := make(map[int]bool, len(idx))
	for _, i := range idx {
		skip[i] = true
	}
	out := make([]int, 0, n-len(idx))
	for i := 0; i < n; i++ {
		if !skip[i] {
			out = append(out, i)
		}
	}
	return out
}

func sortedClasses(labels []string) []string {
	seen := make(map[string]bool)
	var classes []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	return classes
}

// CrossValidate trains a fresh classifier per fold and scores the
// out-of-fold predictions of every document.
func CrossValidate(newClassifier func() Classifier, docs, labels []string, k, topN int, seed int64) (*Report, error) {
	if len(docs) != len(labels) {
		return nil, fmt.Errorf("%d documents but %d labels", len(docs), len(labels))
	}
	folds, err := KFold(len(docs), k, seed)
	if err != nil {
		return nil, err
	}

	classes := sortedClasses(labels)
	column := make(map[string]int, len(classes))
	for i, c := range classes {
		column[c] = i
	}

	proba := mat.NewDense(len(docs), len(classes), nil)
	for _, test := range folds {
		train := complement(len(docs), test)
		clf := newClassifier()
		if err := clf.Fit(pick(docs, train), pick(labels, train)); err != nil {
			return nil, fmt.Errorf("fitting fold: %w", err)
		}
		p, err := clf.PredictProba(pick(docs, test))
		if err != nil {
			return nil, fmt.Errorf("predicting fold: %w", err)
		}
		for j, class := range clf.Classes() {
			col := column[class]
			for i, doc := range test {
				proba.Set(doc, col, p.At(i, j))
			}
		}
	}
	return Score(classes, labels, proba, topN)
}

// Averages holds averaged precision, recall and F-score.
type Averages struct {
	Precision float64
	Recall    float64
	F1        float64
}

// Report holds per-class and aggregate scores.
type Report struct {
	Classes   []string
	Precision []float64
	Recall    []float64
	F1        []float64
	Support   []int

	Macro    Averages
	Weighted Averages
	Accuracy float64

	TopN         int
	TopNAccuracy float64

	// Confusion has true classes as rows and predicted classes as columns,
	// each row normalised to sum to one.
	Confusion *mat.Dense
}

// Score builds a report from class probabilities. Columns of proba follow
// classes.
func Score(classes, truth []string, proba *mat.Dense, topN int) (*Report, error) {
	rows, cols := proba.Dims()
	if rows != len(truth) || cols != len(classes) {
		return nil, fmt.Errorf("probabilities are %dx%d for %d documents and %d classes", rows, cols, len(truth), len(classes))
	}
	if cols == 0 {
		return nil, errors.New("no classes to score")
	}
	if topN < 1 {
		topN = 1
	}
	if topN > cols {
		topN = cols
	}

	index := make(map[string]int, cols)
	for i, c := range classes {
		index[c] = i
	}

	counts := mat.NewDense(cols, cols, nil)
	correct, topHits := 0, 0
	row := make([]float64, cols)
	order := make([]int, cols)
	for i, label := range truth {
		t, ok := index[label]
		if !ok {
			return nil, fmt.Errorf("label %q is not a known class", label)
		}
		mat.Row(row, i, proba)
		pred := floats.MaxIdx(row)
		counts.Set(t, pred, counts.At(t, pred)+1)
		if pred == t {
			correct++
		}

		floats.Argsort(row, order)
		for _, c := range order[cols-topN:] {
			if c == t {
				topHits++
				break
			}
		}
	}

	r := &Report{
		Classes:   classes,
		Precision: make([]float64, cols),
		Recall:    make([]float64, cols),
		F1:        make([]float64, cols),
		Support:   make([]int, cols),
		TopN:      topN,
		Confusion: mat.NewDense(cols, cols, nil),
	}
	if n := len(truth); n > 0 {
		r.Accuracy = float64(correct) / float64(n)
		r.TopNAccuracy = float64(topHits) / float64(n)
	}

	colSums := make([]float64, cols)
	for j := 0; j < cols; j++ {
		colSums[j] = floats.Sum(mat.Col(nil, j, counts))
	}
	total := 0.0
	for c := 0; c < cols; c++ {
		rowCounts := mat.Row(nil, c, counts)
		support := floats.Sum(rowCounts)
		hits := counts.At(c, c)
		r.Support[c] = int(support)
		total += support
		if colSums[c] > 0 {
			r.Precision[c] = hits / colSums[c]
		}
		if support > 0 {
			r.Recall[c] = hits / support
			floats.Scale(1/support, rowCounts)
			r.Confusion.SetRow(c, rowCounts)
		}
		if p, rc := r.Precision[c], r.Recall[c]; p+rc > 0 {
			r.F1[c] = 2 * p * rc / (p + rc)
		}
	}

	n := float64(cols)
	r.Macro = Averages{
		Precision: floats.Sum(r.Precision) / n,
		Recall:    floats.Sum(r.Recall) / n,
		F1:        floats.Sum(r.F1) / n,
	}
	if total > 0 {
		weights := make([]float64, cols)
		for c, s := range r.Support {
			weights[c] = float64(s) / total
		}
		r.Weighted = Averages{
			Precision: floats.Dot(weights, r.Precision),
			Recall:    floats.Dot(weights, r.Recall),
			F1:        floats.Dot(weights, r.F1),
		}
	}
	return r, nil
}

// String renders the report as aligned text.
func (r *Report) String() string {
	width := len("weighted avg")
	for _, c := range r.Classes {
		if len(c) > width {
			width = len(c)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	total := 0
	for i, c := range r.Classes {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, c, r.Precision[i], r.Recall[i], r.F1[i], r.Support[i])
		total += r.Support[i]
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, total)
	fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, "macro avg", r.Macro.Precision, r.Macro.Recall, r.Macro.F1, total)
	fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, "weighted avg", r.Weighted.Precision, r.Weighted.Recall, r.Weighted.F1, total)
	fmt.Fprintf(&b, "\nTop-%d accuracy: %.2f\n", r.TopN, r.TopNAccuracy)

	b.WriteString("\nNormalised confusion matrix (rows: true, columns: predicted)\n")
	fmt.Fprintf(&b, "%v\n", mat.Formatted(r.Confusion, mat.FormatMATLAB()))
	return b.String()
}
