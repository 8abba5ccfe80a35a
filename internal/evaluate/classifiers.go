package evaluate

import (
	"errors"
	"math"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNotFitted is returned by PredictProba before Fit.
var ErrNotFitted = errors.New("classifier is not fitted")

// PriorBaseline predicts the training class frequencies for every document.
type PriorBaseline struct {
	classes []string
	prior   []float64
}

func (p *PriorBaseline) Fit(docs, labels []string) error {
	if len(labels) == 0 {
		return errors.New("no training labels")
	}
	p.classes = sortedClasses(labels)
	index := make(map[string]int, len(p.classes))
	for i, c := range p.classes {
		index[c] = i
	}
	p.prior = make([]float64, len(p.classes))
	for _, l := range labels {
		p.prior[index[l]]++
	}
	floats.Scale(1/float64(len(labels)), p.prior)
	return nil
}

func (p *PriorBaseline) Classes() []string { return p.classes }

func (p *PriorBaseline) PredictProba(docs []string) (*mat.Dense, error) {
	if p.prior == nil {
		return nil, ErrNotFitted
	}
	out := mat.NewDense(len(docs), len(p.classes), nil)
	for i := range docs {
		out.SetRow(i, p.prior)
	}
	return out, nil
}

// Tokenize lower-cases text and splits it into words, keeping hyphens
// inside words and dropping stop words.
func Tokenize(text string, stop map[string]bool) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "-")
		if w == "" || stop[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// NaiveBayes is a multinomial naive Bayes classifier over word counts with
// Laplace smoothing. It is the reference model of CrossValidate and is
// only ever fitted per fold.
type NaiveBayes struct {
	stop    map[string]bool
	classes []string
	vocab   map[string]int
	logPri  []float64
	// logLik holds log P(word | class) with classes as rows.
	logLik *mat.Dense
}

// NewNaiveBayes creates a classifier that ignores the given stop words.
func NewNaiveBayes(stopWords []string) *NaiveBayes {
	stop := make(map[string]bool, len(stopWords))
	for _, w := range stopWords {
		stop[strings.ToLower(w)] = true
	}
	return &NaiveBayes{stop: stop}
}

func (nb *NaiveBayes) Fit(docs, labels []string) error {
	if len(docs) == 0 || len(docs) != len(labels) {
		return errors.New("need one label per training document")
	}
	nb.classes = sortedClasses(labels)
	index := make(map[string]int, len(nb.classes))
	for i, c := range nb.classes {
		index[c] = i
	}

	tokens := make([][]string, len(docs))
	nb.vocab = make(map[string]int)
	for i, d := range docs {
		tokens[i] = Tokenize(d, nb.stop)
		for _, w := range tokens[i] {
			if _, ok := nb.vocab[w]; !ok {
				nb.vocab[w] = len(nb.vocab)
			}
		}
	}

	k, v := len(nb.classes), len(nb.vocab)
	counts := mat.NewDense(k, v+1, nil)
	nb.logPri = make([]float64, k)
	for i, words := range tokens {
		c := index[labels[i]]
		nb.logPri[c]++
		for _, w := range words {
			j := nb.vocab[w]
			counts.Set(c, j, counts.At(c, j)+1)
		}
	}
	for c := range nb.logPri {
		nb.logPri[c] = math.Log(nb.logPri[c] / float64(len(docs)))
	}

	// The extra column holds unseen words.
	nb.logLik = mat.NewDense(k, v+1, nil)
	row := make([]float64, v+1)
	for c := 0; c < k; c++ {
		mat.Row(row, c, counts)
		floats.AddConst(1, row)
		total := floats.Sum(row)
		for j := range row {
			row[j] = math.Log(row[j] / total)
		}
		nb.logLik.SetRow(c, row)
	}
	return nil
}

func (nb *NaiveBayes) Classes() []string { return nb.classes }

func (nb *NaiveBayes) PredictProba(docs []string) (*mat.Dense, error) {
	if nb.logLik == nil {
		return nil, ErrNotFitted
	}
	k := len(nb.classes)
	unseen := len(nb.vocab)
	out := mat.NewDense(len(docs), k, nil)
	scores := make([]float64, k)
	for i, d := range docs {
		copy(scores, nb.logPri)
		for _, w := range Tokenize(d, nb.stop) {
			j, ok := nb.vocab[w]
			if !ok {
				j = unseen
			}
			for c := 0; c < k; c++ {
				scores[c] += nb.logLik.At(c, j)
			}
		}
		norm := floats.LogSumExp(scores)
		for c := range scores {
			out.Set(i, c, math.Exp(scores[c]-norm))
		}
	}
	return out, nil
}
