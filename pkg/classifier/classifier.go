// Package classifier decides whether a media URL points at a high-resolution
// asset. It is a heuristic: a URL is rejected when any low-resolution marker
// pattern matches it, and accepted otherwise.
package classifier

import (
	"fmt"
	"regexp"
)

// DefaultLowResPatterns are the built-in low-resolution markers, in match order.
var DefaultLowResPatterns = []string{
	`p\d+x\d+`, // e.g. p240x240
	`thumb`,
	`small`,
	`lowres`,
	`thumbnail`,
	`s\d+x\d+`, // e.g. s150x150
	`[a-z]\d+x\d+`,
}

// Classifier holds an ordered list of compiled low-resolution patterns
type Classifier struct {
	patterns []*regexp.Regexp
}

// New compiles the given patterns case-insensitively.
// A nil or empty list falls back to DefaultLowResPatterns.
func New(patterns []string) (*Classifier, error) {
	if len(patterns) == 0 {
		patterns = DefaultLowResPatterns
	}

	c := &Classifier{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid low-res pattern %q: %w", p, err)
		}
		c.patterns = append(c.patterns, re)
	}
	return c, nil
}

// Default returns a classifier with the built-in patterns
func Default() *Classifier {
	c, err := New(DefaultLowResPatterns)
	if err != nil {
		panic(err)
	}
	return c
}

// IsHighRes reports whether no low-resolution pattern matches url
func (c *Classifier) IsHighRes(url string) bool {
	for _, re := range c.patterns {
		if re.MatchString(url) {
			return false
		}
	}
	return true
}

// Filter returns the high-resolution URLs, preserving order
func (c *Classifier) Filter(urls []string) []string {
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if c.IsHighRes(u) {
			kept = append(kept, u)
		}
	}
	return kept
}

// Patterns returns the source expressions in match order
func (c *Classifier) Patterns() []string {
	out := make([]string, len(c.patterns))
	for i, re := range c.patterns {
		out[i] = re.String()
	}
	return out
}

var defaultClassifier = Default()

// IsHighRes classifies url with the built-in patterns
func IsHighRes(url string) bool {
	return defaultClassifier.IsHighRes(url)
}
