package services

import (
	"reflect"
	"strings"
	"testing"
)

const insightHTML = `
<h2>Opportunities</h2>
<ul>
  <li>Partner with the food bank</li>
  <li>Host ESL classes</li>
</ul>
<h3>Notes</h3>
<ul>
  <li>Needs volunteer coordinator</li>
</ul>
<h2>Challenges</h2>
<ul>
  <li>Aging building</li>
</ul>`

func TestSectionExtractor_Markdown(t *testing.T) {
	e := NewSectionExtractor()

	markdown, err := e.Markdown(`<h1>Summary</h1><p>Austin is <strong>growing</strong>.</p>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(markdown, "# Summary") {
		t.Errorf("heading lost: %q", markdown)
	}
	if !strings.Contains(markdown, "**growing**") {
		t.Errorf("emphasis lost: %q", markdown)
	}
	if strings.Contains(markdown, "<p>") {
		t.Errorf("tags leaked into markdown: %q", markdown)
	}
}

func TestSectionExtractor_Normalize(t *testing.T) {
	e := NewSectionExtractor()

	// Plain text passes through byte for byte.
	plain := "Austin's population is rising.\n\nGrowth is fastest downtown."
	if got := e.Normalize(plain); got != plain {
		t.Errorf("plain text changed: %q", got)
	}

	// Markup is converted to markdown.
	got := e.Normalize("<h2>Opportunities</h2><p>Partner with the <strong>food bank</strong>.</p>")
	if !strings.Contains(got, "## Opportunities") || !strings.Contains(got, "**food bank**") {
		t.Errorf("markup not converted: %q", got)
	}
	if strings.Contains(got, "<") {
		t.Errorf("tags leaked: %q", got)
	}
}

func TestSectionExtractor_ListItems(t *testing.T) {
	e := NewSectionExtractor()

	items := e.ListItems(insightHTML)
	want := []string{
		"Partner with the food bank",
		"Host ESL classes",
		"Needs volunteer coordinator",
		"Aging building",
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("got %v, want %v", items, want)
	}
}

func TestSectionExtractor_SectionItems(t *testing.T) {
	e := NewSectionExtractor()

	// The section spans from the matching heading to the next heading
	// of the same or higher level, so the nested h3 block is included.
	items := e.SectionItems(insightHTML, "Opportunities")
	want := []string{
		"Partner with the food bank",
		"Host ESL classes",
		"Needs volunteer coordinator",
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("got %v, want %v", items, want)
	}

	// Label match is case-insensitive.
	if got := e.SectionItems(insightHTML, "challenges"); !reflect.DeepEqual(got, []string{"Aging building"}) {
		t.Errorf("case-insensitive match failed: %v", got)
	}

	// A missing heading yields nothing.
	if got := e.SectionItems(insightHTML, "Budget"); got != nil {
		t.Errorf("expected nil for missing section, got %v", got)
	}
}

func TestSectionExtractor_MalformedInputFailsSoft(t *testing.T) {
	e := NewSectionExtractor()

	// html.Parse is lenient, so even mangled input must not panic and
	// should still surface whatever list items it can see.
	items := e.ListItems(`<ul><li>only item`)
	if !reflect.DeepEqual(items, []string{"only item"}) {
		t.Errorf("got %v", items)
	}
}
