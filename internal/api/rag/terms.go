package rag

import (
	"strings"
	"unicode"
)

// ExtractTerms turns free text, a raw location string and a resolved address
// into an ordered, deduplicated list of search terms. Terms are lower-cased
// and trimmed; a term's weight is implicit in its word count, so two-word
// phrases outrank the single words they contain.
//
// Order: location/address-derived term first, then capitalized two-word
// phrases from the text, then capitalized single words. Terms of length <= 1
// are dropped. Pure function: never fails, empty inputs yield an empty slice.
func ExtractTerms(text, location, address string) []string {
	var terms []string

	// The first comma segment of a location or address is usually the place
	// name itself ("National Gallery, 1 St Andrew's Rd, ..." -> the gallery).
	for _, src := range []string{location, address} {
		if src == "" {
			continue
		}
		if i := strings.IndexByte(src, ','); i >= 0 {
			terms = append(terms, src[:i])
		} else {
			terms = append(terms, src)
		}
	}

	if text != "" {
		words := strings.Fields(text)
		var phrases, singles []string
		for i, w := range words {
			if !startsUpper(w) {
				continue
			}
			if i+1 < len(words) {
				phrases = append(phrases, w+" "+words[i+1])
			}
			singles = append(singles, w)
		}
		terms = append(terms, phrases...)
		terms = append(terms, singles...)
	}

	return dedupeTerms(terms)
}

func startsUpper(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}

// dedupeTerms normalizes, drops short terms and removes duplicates while
// preserving first-seen order.
func dedupeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if len(t) <= 1 {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// TermWeight is the implicit weight of a term: its word count.
func TermWeight(term string) int {
	return len(strings.Fields(term))
}
