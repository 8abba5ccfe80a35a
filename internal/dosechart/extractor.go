package dosechart

import (
	"context"
	"fmt"
	"log"

	"github.com/TobiSchelling/tripcorpus/internal/fetch"
	"github.com/TobiSchelling/tripcorpus/internal/markup"
)

// LSA's wiki chart doses seeds rather than the pure compound, so its
// dosage is derived from LSD's sublingual chart.
const (
	LSA            = "LSA"
	LSARoute       = "oral"
	LSAReference   = "LSD"
	LSARefRoute    = "sublingual"
	LSAScaleFactor = 15.0
)

// Extractor scrapes dose charts from the wiki.
type Extractor struct {
	fetcher fetch.Fetcher
	urls    fetch.URLs
	parser  parser
}

// NewExtractor creates a new dose chart extractor.
func NewExtractor(fetcher fetch.Fetcher, urls fetch.URLs, debug bool) *Extractor {
	return &Extractor{fetcher: fetcher, urls: urls, parser: parser{debug: debug}}
}

func (e *Extractor) page(ctx context.Context, wikiID string) (markup.Node, error) {
	page, err := e.fetcher.Get(ctx, e.urls.WikiGeneral(wikiID))
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("%s: %w", wikiID, fetch.ErrNoPage)
	}
	return page.Doc, nil
}

// Substance extracts the dose chart of one substance.
func (e *Extractor) Substance(ctx context.Context, wikiID string) (Chart, error) {
	doc, err := e.page(ctx, wikiID)
	if err != nil {
		return nil, err
	}
	chart, err := e.parser.chart(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", wikiID, err)
	}
	return chart, nil
}

// All extracts the dose chart of every substance, then derives LSA's.
func (e *Extractor) All(ctx context.Context, wikiIDs []string) (map[string]Chart, error) {
	log.Println("Getting drug dosechart info from Psychonaut Wiki...")
	charts := make(map[string]Chart, len(wikiIDs)+1)
	for _, id := range wikiIDs {
		log.Printf("\tDrug: %s", id)
		chart, err := e.Substance(ctx, id)
		if err != nil {
			return nil, err
		}
		charts[id] = chart
	}

	if _, ok := charts[LSAReference]; !ok {
		log.Printf("%s not in catalog, skipping derived %s dosage", LSAReference, LSA)
		return charts, nil
	}
	lsa, err := e.LSA(ctx, charts[LSAReference])
	if err != nil {
		return nil, err
	}
	charts[LSA] = lsa
	return charts, nil
}

// LSA builds LSA's chart: durations from its own page and dosage from the
// reference chart scaled by LSAScaleFactor.
func (e *Extractor) LSA(ctx context.Context, reference Chart) (Chart, error) {
	ref, ok := reference[LSARefRoute]
	if !ok {
		return nil, fmt.Errorf("%s has no %s route to derive %s from: %w", LSAReference, LSARefRoute, LSA, markup.ErrNotFound)
	}

	doc, err := e.page(ctx, LSA)
	if err != nil {
		return nil, err
	}
	block, err := markup.One(doc.FindByClass("dosechart"), LSA+" dosechart")
	if err != nil {
		return nil, err
	}
	root := block.Parent()
	if root == nil {
		root = block
	}
	duration, err := e.parser.duration(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", LSA, err)
	}

	return Chart{
		LSARoute: Record{
			Dosage:   ScaleDosage(ref.Dosage, LSAScaleFactor),
			Duration: duration,
		},
	}, nil
}
