package stopwords

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/TobiSchelling/tripcorpus/internal/catalog"
	"github.com/TobiSchelling/tripcorpus/internal/fetch"
	"github.com/TobiSchelling/tripcorpus/internal/markup"
)

var (
	parenthesized = regexp.MustCompile(`\(.*?\)`)
	bracketed     = regexp.MustCompile(`\[.*?\]`)
	quotes        = strings.NewReplacer(`'`, " ", `"`, " ")
)

// NomenclatureText returns the free-text list of alternate names from a
// substance page's nomenclature table.
func NomenclatureText(doc markup.Node) (string, error) {
	header, err := markup.One(doc.Find("th#Nomenclature"), "nomenclature header")
	if err != nil {
		return "", err
	}
	row := header.Parent()
	if row == nil {
		return "", fmt.Errorf("nomenclature row: %w", markup.ErrNotFound)
	}
	next := row.NextSibling("")
	if next == nil {
		return "", fmt.Errorf("nomenclature values row: %w", markup.ErrNotFound)
	}
	cell := markup.First(next.Find("td.RowValues"))
	if cell == nil {
		return "", fmt.Errorf("nomenclature values: %w", markup.ErrNotFound)
	}
	return cell.Text(), nil
}

// NamesFromNomenclature returns the cleaned alternate names listed on a
// substance page.
func NamesFromNomenclature(doc markup.Node) ([]string, error) {
	text, err := NomenclatureText(doc)
	if err != nil {
		return nil, err
	}
	return Names(text), nil
}

// Names splits an alternate-names text into lower-cased names, dropping
// quotes, parenthesized and bracketed asides, and NameExceptions. A dash-free
// variant follows the names for every name.
func Names(text string) []string {
	text = quotes.Replace(text)
	text = parenthesized.ReplaceAllString(text, " ")
	text = bracketed.ReplaceAllString(text, " ")

	exceptions := make(map[string]bool, len(NameExceptions))
	for _, e := range NameExceptions {
		exceptions[e] = true
	}

	var names []string
	for _, part := range strings.Split(text, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || exceptions[name] {
			continue
		}
		names = append(names, name)
	}

	n := len(names)
	for _, name := range names[:n] {
		names = append(names, strings.ReplaceAll(name, "-", ""))
	}
	return names
}

// IdentifierWords turns catalog identifiers into words: "Psilocybin_mushrooms" -> "psilocybin mushrooms".
func IdentifierWords(ids []string) []string {
	words := make([]string, len(ids))
	for i, id := range ids {
		words[i] = strings.ToLower(strings.ReplaceAll(id, "_", " "))
	}
	return words
}

// Expand adds every prefixed and suffixed form of words, then a naive
// plural of every word, and returns the de-duplicated result.
func Expand(words []string) []string {
	all := append([]string(nil), words...)
	for _, p := range prefixes {
		for _, w := range words {
			all = append(all, p+w)
		}
	}
	for _, s := range suffixes {
		for _, w := range words {
			all = append(all, w+s)
		}
	}

	n := len(all)
	for _, w := range all[:n] {
		all = append(all, w+"s")
	}
	return unique(all)
}

func unique(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// Builder collects stop words from the wiki's nomenclature tables.
type Builder struct {
	fetcher fetch.Fetcher
	urls    fetch.URLs
}

// NewBuilder creates a new stop word builder.
func NewBuilder(fetcher fetch.Fetcher, urls fetch.URLs) *Builder {
	return &Builder{fetcher: fetcher, urls: urls}
}

// Build returns the full stop word set for the catalog.
func (b *Builder) Build(ctx context.Context, cat *catalog.Catalog) ([]string, error) {
	log.Println("Building custom stop words from Psychonaut Wiki...")
	var words []string
	for _, id := range cat.WikiIDs() {
		page, err := b.fetcher.Get(ctx, b.urls.WikiGeneral(id))
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, fmt.Errorf("%s: %w", id, fetch.ErrNoPage)
		}
		names, err := NamesFromNomenclature(page.Doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		words = append(words, names...)
	}

	words = append(words, IdentifierWords(cat.WikiIDs())...)
	words = append(words, IdentifierWords(cat.ArchiveIDs())...)
	words = append(words, Jargon...)

	expanded := Expand(words)
	log.Printf("Built %d custom stop words", len(expanded))
	return expanded, nil
}
