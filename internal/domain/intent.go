package domain

import (
	"regexp"
	"strings"
)

// listMarker matches a leading bullet ("-", "*") or an enumerator ("3.", "2)")
// followed by whitespace.
var listMarker = regexp.MustCompile(`^(?:[-*]+\s*|\d+[.)]\s+)`)

// Intent is the classifier verdict for a user message: a KnownIntent drawn
// from the configured taxonomy or an UnknownIntent carrying the raw output.
type Intent interface {
	Label() string
	isIntent()
}

// KnownIntent is a label present in the taxonomy.
type KnownIntent struct {
	label string
}

// UnknownIntent is classifier output that matched no taxonomy label.
type UnknownIntent struct {
	Raw string
}

func (k KnownIntent) Label() string   { return k.label }
func (u UnknownIntent) Label() string { return u.Raw }
func (KnownIntent) isIntent()         {}
func (UnknownIntent) isIntent()       {}

// Taxonomy is the externally configured set of intent labels.
type Taxonomy struct {
	labels []string
	index  map[string]string
}

// NewTaxonomy builds a taxonomy from labels; blanks and duplicates are dropped.
func NewTaxonomy(labels ...string) Taxonomy {
	t := Taxonomy{index: make(map[string]string, len(labels))}
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		key := normalizeLabel(l)
		if _, dup := t.index[key]; dup {
			continue
		}
		t.index[key] = l
		t.labels = append(t.labels, l)
	}
	return t
}

// ParseTaxonomy extracts labels from an intent list. Each non-empty line
// contributes one label: list markers are stripped and anything after the
// first ':' is treated as the label's description.
func ParseTaxonomy(text string) Taxonomy {
	var labels []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = listMarker.ReplaceAllString(line, "")
		if i := strings.Index(line, ":"); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			labels = append(labels, line)
		}
	}
	return NewTaxonomy(labels...)
}

// Labels returns the labels in declaration order.
func (t Taxonomy) Labels() []string {
	return append([]string(nil), t.labels...)
}

// Contains reports whether label belongs to the taxonomy.
func (t Taxonomy) Contains(label string) bool {
	_, ok := t.index[normalizeLabel(label)]
	return ok
}

// Classify wraps raw classifier output. Matching ignores case, surrounding
// whitespace, quotes and trailing punctuation.
func (t Taxonomy) Classify(raw string) Intent {
	if label, ok := t.index[normalizeLabel(raw)]; ok {
		return KnownIntent{label: label}
	}
	return UnknownIntent{Raw: raw}
}

// IsIntent reports whether in is the known intent with the given label.
func IsIntent(in Intent, label string) bool {
	k, ok := in.(KnownIntent)
	return ok && normalizeLabel(k.label) == normalizeLabel(label)
}

func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`.!")
	return strings.ToLower(strings.TrimSpace(s))
}
