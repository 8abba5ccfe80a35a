package effects

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/TobiSchelling/tripcorpus/internal/fetch"
	"github.com/TobiSchelling/tripcorpus/internal/markup"
)

const wikiPrefix = "/wiki/"

// Taxonomy groups effect link targets (e.g. "/wiki/Euphoria") by category
// anchor id (e.g. "Physical_effects").
type Taxonomy struct {
	Categories []string
	ByCategory map[string][]string
	CategoryOf map[string]string
	Known      map[string]bool
}

// BuildTaxonomy reads the global effects listing page. Every panel header
// names a category; the featured list items under it name its effects.
func BuildTaxonomy(doc markup.Node) (*Taxonomy, error) {
	tax := &Taxonomy{
		ByCategory: make(map[string][]string),
		CategoryOf: make(map[string]string),
		Known:      make(map[string]bool),
	}

	for _, header := range doc.FindByClass("panel-header") {
		headline := markup.First(header.FindByClass("mw-headline"))
		if headline == nil {
			return nil, fmt.Errorf("category headline: %w", markup.ErrNotFound)
		}
		category, ok := headline.Attr("id")
		if !ok {
			return nil, fmt.Errorf("category headline without id: %w", markup.ErrNotFound)
		}
		tax.Categories = append(tax.Categories, category)

		section := header.Parent()
		if section == nil {
			continue
		}
		seen := make(map[string]bool)
		refs := []string{}
		for _, item := range section.FindByClass("featured", "list-item") {
			for _, a := range item.Find("a") {
				href, ok := a.Attr("href")
				if !ok || seen[href] {
					continue
				}
				seen[href] = true
				refs = append(refs, href)
			}
		}

		tax.ByCategory[category] = refs
		for _, ref := range refs {
			tax.CategoryOf[ref] = category
			tax.Known[ref] = true
		}
	}
	return tax, nil
}

// Normalize turns a link target into an effect id: "/wiki/Euphoria" -> "euphoria".
func Normalize(ref string) string {
	return strings.ToLower(strings.Replace(ref, wikiPrefix, "", 1))
}

// SubstanceEffects collects the known effects linked from each category
// block of a substance's summary page. Effects are de-duplicated within a
// category but not across categories; first-seen order is kept.
func SubstanceEffects(doc markup.Node, tax *Taxonomy) ([]string, error) {
	effects := []string{}
	for _, category := range tax.Categories {
		anchors := doc.FindByID(category)
		if len(anchors) == 0 {
			continue
		}
		anchor, err := markup.One(anchors, "category anchor "+category)
		if err != nil {
			return nil, err
		}

		block := anchor.Parent()
		if block != nil && block.Parent() != nil {
			block = block.Parent()
		}
		if block == nil {
			continue
		}

		seen := make(map[string]bool)
		for _, a := range block.Find("a") {
			href, ok := a.Attr("href")
			if !ok || !tax.Known[href] || seen[href] {
				continue
			}
			seen[href] = true
			effects = append(effects, Normalize(href))
		}
	}
	return effects, nil
}

// Extractor scrapes effect lists from the wiki.
type Extractor struct {
	fetcher fetch.Fetcher
	urls    fetch.URLs
}

// NewExtractor creates a new effects extractor.
func NewExtractor(fetcher fetch.Fetcher, urls fetch.URLs) *Extractor {
	return &Extractor{fetcher: fetcher, urls: urls}
}

func (e *Extractor) get(ctx context.Context, rawURL string) (markup.Node, error) {
	page, err := e.fetcher.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("%s: %w", rawURL, fetch.ErrNoPage)
	}
	return page.Doc, nil
}

// Taxonomy fetches and parses the global effects listing.
func (e *Extractor) Taxonomy(ctx context.Context) (*Taxonomy, error) {
	log.Println("Getting drug effect types from Psychonaut Wiki...")
	doc, err := e.get(ctx, e.urls.EffectsList())
	if err != nil {
		return nil, err
	}
	return BuildTaxonomy(doc)
}

// All returns the effect ids of every substance.
func (e *Extractor) All(ctx context.Context, wikiIDs []string) (map[string][]string, error) {
	tax, err := e.Taxonomy(ctx)
	if err != nil {
		return nil, err
	}

	log.Println("Getting drug effects from Psychonaut Wiki...")
	result := make(map[string][]string, len(wikiIDs))
	for _, id := range wikiIDs {
		log.Printf("\tDrug: %s", id)
		doc, err := e.get(ctx, e.urls.WikiSummary(id))
		if err != nil {
			return nil, err
		}
		effects, err := SubstanceEffects(doc, tax)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		result[id] = effects
	}
	return result, nil
}
