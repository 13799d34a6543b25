package rag

import "strings"

// Section labels produced by the offline Wikipedia ingester. Documents built
// from scraped attraction pages are unlabeled and pass through trimmed.
var sectionLabels = []string{"Summary:", "History:", "Description:"}

// FormatDocument reduces a labeled document to the concatenation of its
// labeled sections' bodies, in the order the labels appear. A document with
// text "Summary: X\n\nHistory: Y" formats to "X Y". Unlabeled documents are
// returned trimmed as-is.
func FormatDocument(text string) string {
	if !hasSectionLabels(text) {
		return strings.TrimSpace(text)
	}

	var bodies []string
	for _, section := range strings.Split(text, "\n\n") {
		if !startsWithLabel(section) {
			continue
		}
		if i := strings.IndexByte(section, ':'); i >= 0 {
			section = section[i+1:]
		}
		if body := strings.TrimSpace(section); body != "" {
			bodies = append(bodies, body)
		}
	}
	if len(bodies) == 0 {
		return strings.TrimSpace(text)
	}
	return strings.Join(bodies, " ")
}

func hasSectionLabels(text string) bool {
	if strings.HasPrefix(text, "Summary:") {
		return true
	}
	return strings.Contains(text, "History:") || strings.Contains(text, "Description:")
}

func startsWithLabel(section string) bool {
	for _, label := range sectionLabels {
		if strings.HasPrefix(section, label) {
			return true
		}
	}
	return false
}
