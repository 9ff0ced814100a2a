package kws

import (
	"fmt"
	"slices"
)

// Default reserved labels of speech-commands style models. Detections of
// these categories are dropped unless the filter says otherwise.
const (
	LabelSilence = "silence"
	LabelUnknown = "unknown"
)

// Filter maps category indices to labels and decides which detections
// are worth reporting.
type Filter struct {
	labels []string
	ignore map[string]bool
}

// NewFilter builds a Filter. Labels missing for an index render as
// "category_<i>". Ignore entries may be labels or decimal indices.
func NewFilter(labels, ignore []string) *Filter {
	f := &Filter{
		labels: slices.Clone(labels),
		ignore: make(map[string]bool, len(ignore)),
	}
	for _, l := range ignore {
		f.ignore[l] = true
	}
	return f
}

// DefaultIgnore returns the reserved labels present in labels.
func DefaultIgnore(labels []string) []string {
	var out []string
	for _, l := range labels {
		switch l {
		case LabelSilence, LabelUnknown, "_silence_", "_unknown_":
			out = append(out, l)
		}
	}
	return out
}

// Label returns the name of category i.
func (f *Filter) Label(i int) string {
	if i >= 0 && i < len(f.labels) && f.labels[i] != "" {
		return f.labels[i]
	}
	return fmt.Sprintf("category_%d", i)
}

// Labels returns a copy of the configured labels.
func (f *Filter) Labels() []string {
	return slices.Clone(f.labels)
}

// Ignored reports whether detections of category i are dropped.
func (f *Filter) Ignored(i int) bool {
	if len(f.ignore) == 0 {
		return false
	}
	return f.ignore[f.Label(i)] || f.ignore[fmt.Sprint(i)]
}
