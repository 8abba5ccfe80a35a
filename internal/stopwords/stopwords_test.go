package stopwords

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/TobiSchelling/tripcorpus/internal/catalog"
	"github.com/TobiSchelling/tripcorpus/internal/fetch"
	"github.com/TobiSchelling/tripcorpus/internal/fetch/fetchtest"
	"github.com/TobiSchelling/tripcorpus/internal/markup"
)

func nomenclaturePage(names string) string {
	return `<html><body><table>
<tr><th id="Nomenclature" colspan="2">Nomenclature</th></tr>
<tr><td class="RowTitle">Common names</td><td class="RowValues">` + names + `</td></tr>
<tr><td class="RowTitle">Substitutive name</td><td class="RowValues">ignored</td></tr>
</table></body></html>`
}

func set(words []string) map[string]bool {
	s := make(map[string]bool, len(words))
	for _, w := range words {
		s[w] = true
	}
	return s
}

func TestNames(t *testing.T) {
	got := Names(`Acid, "Lucy", Aurora, L (street name), Blotter [citation needed], 25-Eh, Rosy`)
	want := []string{"acid", "lucy", "l", "blotter", "25-eh", "acid", "lucy", "l", "blotter", "25eh"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNamesDropsExceptions(t *testing.T) {
	got := set(Names("The Light, aurora, ROSY, Beautiful, Colour, Eternity, Sunshine"))
	for _, e := range NameExceptions {
		if got[e] {
			t.Errorf("expected exception %q to be dropped", e)
		}
	}
	if !got["sunshine"] {
		t.Error("expected sunshine to be kept")
	}
}

func TestNamesNonGreedyAsides(t *testing.T) {
	got := Names("Foo (a), Bar, Baz (b)")
	want := []string{"foo", "bar", "baz", "foo", "bar", "baz"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestExpandIsClosed(t *testing.T) {
	base := []string{"acid", "mdma", "come-up"}
	got := set(Expand(base))

	for _, w := range base {
		for _, form := range []string{w, "pre-" + w, "mid-" + w, "post-" + w, w + "-like", w + "-type", w + "-esque", w + "s", "pre-" + w + "s", w + "-likes"} {
			if !got[form] {
				t.Errorf("expected %q in expanded set", form)
			}
		}
	}
	if len(got) != 3*14 {
		t.Errorf("expected %d words, got %d", 3*14, len(got))
	}
}

func TestExpandDeduplicates(t *testing.T) {
	got := Expand([]string{"acid", "acid"})
	if len(got) != len(set(got)) {
		t.Error("expected no duplicates")
	}
}

func TestIdentifierWords(t *testing.T) {
	got := IdentifierWords([]string{"Psilocybin_mushrooms", "5MeO_DMT"})
	if !reflect.DeepEqual(got, []string{"psilocybin mushrooms", "5meo dmt"}) {
		t.Errorf("unexpected %v", got)
	}
}

func TestNomenclatureText(t *testing.T) {
	doc, _ := markup.ParseString(nomenclaturePage("Acid, Lucy"))
	text, err := NomenclatureText(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Acid, Lucy" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestNomenclatureMissing(t *testing.T) {
	doc, _ := markup.ParseString("<html><body></body></html>")
	if _, err := NomenclatureText(doc); err == nil {
		t.Error("expected error for missing nomenclature table")
	}
}

func TestBuild(t *testing.T) {
	cat, err := catalog.Parse(strings.NewReader("name,psychonaut_wiki_id,erowid_id\nLSD,LSD,LSD\nMushrooms,Psilocybin_mushrooms,Mushrooms\n"))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	urls := fetch.URLs{WikiBase: "https://wiki.test"}
	static := &fetchtest.Static{Pages: map[string]string{
		urls.WikiGeneral("LSD"):                  nomenclaturePage("Acid, Lucy, Aurora"),
		urls.WikiGeneral("Psilocybin_mushrooms"): nomenclaturePage("Magic mushrooms, Liberty caps (UK)"),
	}}

	words, err := NewBuilder(static, urls).Build(context.Background(), cat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := set(words)

	for _, w := range []string{"acid", "lucy", "magic mushrooms", "liberty caps", "psilocybin mushrooms", "mushrooms", "lsd", "pre-lsd", "acid-like", "acids", "bongs", "post-bongs"} {
		if !got[w] {
			t.Errorf("expected %q in stop words", w)
		}
	}
	if got["aurora"] {
		t.Error("expected aurora to be excluded")
	}
	if len(words) != len(got) {
		t.Error("expected stop words to be unique")
	}
}
