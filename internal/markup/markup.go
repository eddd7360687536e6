// Package markup wraps goquery with the selector helpers the extractors use.
// Scripts in parsed documents are treated as text and never run.
package markup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

type Document struct {
	doc *goquery.Document
}

func Parse(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Root exposes the underlying selection for one-off queries.
func (d *Document) Root() *goquery.Selection {
	return d.doc.Selection
}

// Cascade returns the matches of the first selector that matches anything.
// Selectors that fail to compile are skipped.
func (d *Document) Cascade(selectors []string) *goquery.Selection {
	return CascadeWithin(d.doc.Selection, selectors)
}

// Union returns every node matched by any of the selectors, in document
// order and without duplicates.
func (d *Document) Union(selectors []string) *goquery.Selection {
	valid := ValidSelectors(selectors)
	if len(valid) == 0 {
		return d.doc.Selection.Find(":not(*)")
	}
	return d.doc.Find(strings.Join(valid, ", "))
}

// FirstText returns the first non-empty collapsed text across the cascade.
func (d *Document) FirstText(selectors []string) string {
	for _, selector := range ValidSelectors(selectors) {
		text := ""
		d.doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text = CleanText(sel.Text())
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

// ScriptBodies returns the text of every inline script element.
func (d *Document) ScriptBodies() []string {
	bodies := make([]string, 0)
	d.doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if _, hasSrc := sel.Attr("src"); hasSrc {
			return
		}
		if body := sel.Text(); strings.TrimSpace(body) != "" {
			bodies = append(bodies, body)
		}
	})
	return bodies
}

func CascadeWithin(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, selector := range ValidSelectors(selectors) {
		found := root.Find(selector)
		if found.Length() > 0 {
			return found
		}
	}
	return root.Find(":not(*)")
}

// ValidSelectors drops blank entries and selectors cascadia cannot compile.
func ValidSelectors(selectors []string) []string {
	valid := make([]string, 0, len(selectors))
	for _, selector := range selectors {
		trimmed := strings.TrimSpace(selector)
		if trimmed == "" {
			continue
		}
		if _, err := cascadia.ParseGroup(trimmed); err != nil {
			continue
		}
		valid = append(valid, trimmed)
	}
	return valid
}

// AttrFirst returns the first non-blank attribute value among attrs.
func AttrFirst(sel *goquery.Selection, attrs ...string) string {
	for _, attr := range attrs {
		if value, ok := sel.Attr(attr); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func CleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
