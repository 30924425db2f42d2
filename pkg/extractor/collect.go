package extractor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Evaluator runs a JavaScript function in a page and decodes its JSON
// result into out.
type Evaluator interface {
	Evaluate(ctx context.Context, script string, out interface{}) error
}

// collectScript gathers every raw source in a single evaluation
const collectScript = `() => {
	const sources = [];
	document.querySelectorAll('img, video, source').forEach((el) => {
		const src = el.src || el.getAttribute('src');
		if (src) sources.push({ kind: 'attribute', value: src });
		const srcset = el.getAttribute('srcset');
		if (srcset) sources.push({ kind: 'srcset', value: srcset });
	});
	document.querySelectorAll('*').forEach((el) => {
		const bg = window.getComputedStyle(el).backgroundImage;
		if (bg && bg !== 'none') sources.push({ kind: 'background', value: bg });
	});
	return { base: document.baseURI, sources: sources };
}`

// ScriptCollector collects sources from a live page
type ScriptCollector struct {
	Page Evaluator
}

// Collect implements Collector
func (c *ScriptCollector) Collect(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if err := c.Page.Evaluate(ctx, collectScript, &snap); err != nil {
		return nil, fmt.Errorf("failed to evaluate collect script: %w", err)
	}
	return &snap, nil
}

// DocumentCollector collects sources from static HTML. Computed styles are
// not available there, so only inline style attributes are inspected.
type DocumentCollector struct {
	doc     *goquery.Document
	baseURL string
}

// NewDocumentCollector parses r as HTML fetched from baseURL
func NewDocumentCollector(r io.Reader, baseURL string) (*DocumentCollector, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &DocumentCollector{doc: doc, baseURL: baseURL}, nil
}

// Collect implements Collector
func (c *DocumentCollector) Collect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{BaseURL: c.baseURL}
	if href, ok := c.doc.Find("base[href]").First().Attr("href"); ok {
		snap.BaseURL = resolve(parseBase(c.baseURL), href)
	}

	c.doc.Find("img, video, source").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			snap.Sources = append(snap.Sources, Source{Kind: Attribute, Value: src})
		}
		if srcset, ok := s.Attr("srcset"); ok && srcset != "" {
			snap.Sources = append(snap.Sources, Source{Kind: SourceSet, Value: srcset})
		}
	})

	c.doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style := s.AttrOr("style", "")
		if strings.Contains(style, "background") {
			snap.Sources = append(snap.Sources, Source{Kind: BackgroundStyle, Value: style})
		}
	})

	return snap, ctx.Err()
}
