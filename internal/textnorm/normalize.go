// Package textnorm loads input text and rewrites typographic punctuation into
// the ASCII forms the Kokoro lexicons are keyed on.
package textnorm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type rule struct {
	from string
	to   string
}

// Applied in order. Every entry maps one non-ASCII code point to one ASCII
// code point, so normalization never changes the code point count.
var rules = mustRules(
	rule{from: "’", to: "'"},  // U+2019
	rule{from: "‘", to: "'"},  // U+2018
	rule{from: "“", to: "\""}, // U+201C
	rule{from: "”", to: "\""}, // U+201D
	rule{from: "—", to: "-"},  // U+2014
	rule{from: "…", to: "."},  // U+2026
	rule{from: "❓", to: "?"},  // U+2753
	rule{from: "？", to: "?"},  // U+FF1F
	rule{from: "！", to: "!"},  // U+FF01
)

func (r rule) validate() error {
	if utf8.RuneCountInString(r.from) != 1 || r.from[0] < utf8.RuneSelf {
		return fmt.Errorf("source %q must be a single non-ASCII code point", r.from)
	}
	if len(r.to) != 1 || r.to[0] >= utf8.RuneSelf {
		return fmt.Errorf("replacement %q for %q must be a single ASCII code point", r.to, r.from)
	}
	return nil
}

func mustRules(rs ...rule) []rule {
	seen := make(map[string]bool, len(rs))
	for _, r := range rs {
		if err := r.validate(); err != nil {
			panic("textnorm: " + err.Error())
		}
		if seen[r.from] {
			panic(fmt.Sprintf("textnorm: duplicate source %q", r.from))
		}
		seen[r.from] = true
	}
	for _, r := range rs {
		for _, other := range rs {
			if strings.Contains(r.to, other.from) {
				panic(fmt.Sprintf("textnorm: replacement %q reintroduces %q", r.to, other.from))
			}
		}
	}
	return rs
}

// Normalize returns s with every mapped punctuation sequence replaced.
func Normalize(s string) string {
	for _, r := range rules {
		s = replaceAll(s, r.from, r.to)
	}
	return s
}

// replaceAll keeps scanning until from no longer occurs.
func replaceAll(s, from, to string) string {
	for strings.Contains(s, from) {
		s = strings.ReplaceAll(s, from, to)
	}
	return s
}

// Mapped reports whether s still contains any mapped source sequence.
func Mapped(s string) bool {
	for _, r := range rules {
		if strings.Contains(s, r.from) {
			return true
		}
	}
	return false
}
