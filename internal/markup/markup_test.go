package markup

import (
	"errors"
	"testing"
)

const page = `<html><body>
<table class="dosechart" data-roa="Oral">
  <tr><td><a href="/wiki/Dosage_classification#Threshold">Threshold</a></td><td class="RowValues">20 µg<span>note</span></td></tr>
</table>
<div id="a" class="featured list-item"><a href="/wiki/Euphoria">Euphoria</a></div>
<div id="b" class="featured"><a href="/wiki/Sedation">Sedation</a></div>
</body></html>`

func parse(t *testing.T) Node {
	t.Helper()
	doc, err := ParseString(page)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestFindByClassRequiresAllClasses(t *testing.T) {
	doc := parse(t)
	if n := len(doc.FindByClass("featured")); n != 2 {
		t.Errorf("expected 2 featured, got %d", n)
	}
	if n := len(doc.FindByClass("featured", "list-item")); n != 1 {
		t.Errorf("expected 1 featured list-item, got %d", n)
	}
}

func TestFindByAttrAndNavigation(t *testing.T) {
	doc := parse(t)
	anchor := First(doc.FindByAttr("href", "/wiki/Dosage_classification#Threshold"))
	if anchor == nil {
		t.Fatal("expected anchor")
	}
	cell := anchor.Parent().NextSibling("RowValues")
	if cell == nil {
		t.Fatal("expected RowValues sibling")
	}
	if got := cell.FirstChildText(); got != "20 µg" {
		t.Errorf("expected first child text '20 µg', got %q", got)
	}
	if got := cell.Text(); got != "20 µgnote" {
		t.Errorf("expected full text '20 µgnote', got %q", got)
	}
	if cell.NextSibling("RowValues") != nil {
		t.Error("expected no further sibling")
	}
}

func TestAttr(t *testing.T) {
	doc := parse(t)
	chart := First(doc.FindByClass("dosechart"))
	roa, ok := chart.Attr("data-roa")
	if !ok || roa != "Oral" {
		t.Errorf("expected data-roa 'Oral', got %q (%v)", roa, ok)
	}
	if _, ok := chart.Attr("missing"); ok {
		t.Error("expected missing attribute to report false")
	}
}

func TestOne(t *testing.T) {
	doc := parse(t)

	if _, err := One(doc.FindByID("a"), "div#a"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := One(doc.FindByID("zzz"), "div#zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := One(doc.FindByClass("featured"), ".featured"); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("expected ErrAmbiguous, got %v", err)
	}
}
