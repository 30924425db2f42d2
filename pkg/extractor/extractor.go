// Package extractor collects candidate media URLs from a rendered page.
//
// Raw values are gathered in one pass (inside the browser, or from static
// HTML) as tagged Sources, normalized into plain URLs, resolved against the
// page URL and deduplicated in discovery order.
package extractor

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Kind tags where a raw source value came from
type Kind string

const (
	// Attribute is the src of an img, video or source element
	Attribute Kind = "attribute"
	// SourceSet is a responsive srcset list
	SourceSet Kind = "srcset"
	// BackgroundStyle is a background-image style value
	BackgroundStyle Kind = "background"
)

// Source is a raw value awaiting normalization
type Source struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// Snapshot is everything a Collector gathered from one page
type Snapshot struct {
	BaseURL string   `json:"base"`
	Sources []Source `json:"sources"`
}

// Collector gathers raw sources from a page
type Collector interface {
	Collect(ctx context.Context) (*Snapshot, error)
}

var backgroundURL = regexp.MustCompile(`url\(\s*["']?([^"')]+?)["']?\s*\)`)

// Normalize turns one raw source into zero or more URL strings
func Normalize(src Source) []string {
	value := strings.TrimSpace(src.Value)
	if value == "" {
		return nil
	}

	switch src.Kind {
	case Attribute:
		return []string{value}
	case SourceSet:
		return parseSrcset(value)
	case BackgroundStyle:
		if m := backgroundURL.FindStringSubmatch(value); m != nil {
			return []string{strings.TrimSpace(m[1])}
		}
		return nil
	default:
		return nil
	}
}

// parseSrcset keeps the URL token of each comma separated candidate and
// drops the width or density descriptor.
func parseSrcset(srcset string) []string {
	var urls []string
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		urls = append(urls, fields[0])
	}
	return urls
}

// Extract collects, normalizes, resolves and deduplicates candidate URLs.
// The result keeps first-discovery order.
func Extract(ctx context.Context, collector Collector) ([]string, error) {
	snap, err := collector.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect media sources: %w", err)
	}

	base := parseBase(snap.BaseURL)
	seen := make(map[string]struct{})
	var urls []string
	for _, src := range snap.Sources {
		for _, raw := range Normalize(src) {
			u := resolve(base, raw)
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}

	return urls, nil
}

func parseBase(raw string) *url.URL {
	if raw == "" {
		return nil
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return base
}

// resolve makes raw absolute against base. Absolute URLs are returned
// unchanged so deduplication keys on the string as found on the page.
func resolve(base *url.URL, raw string) string {
	if base == nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() {
		return raw
	}
	return base.ResolveReference(ref).String()
}
