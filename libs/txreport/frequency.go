package txreport

import "sort"

// NotApplicable is reported for a frequency field when there is nothing to count.
const NotApplicable = "N/A"

// LabelCount is one entry of a Tally.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Tally counts label occurrences while remembering the order in which each
// label was first seen.
type Tally struct {
	counts map[string]int
	order  []string
}

// NewTally counts labels, one entry per occurrence.
func NewTally(labels []string) *Tally {
	t := &Tally{counts: make(map[string]int)}
	for _, label := range labels {
		t.Add(label)
	}
	return t
}

// Add records one occurrence of label.
func (t *Tally) Add(label string) {
	if t.counts == nil {
		t.counts = make(map[string]int)
	}
	if _, seen := t.counts[label]; !seen {
		t.order = append(t.order, label)
	}
	t.counts[label]++
}

// Len returns the number of distinct labels.
func (t *Tally) Len() int { return len(t.order) }

// Count returns the occurrences of label.
func (t *Tally) Count(label string) int { return t.counts[label] }

// MostFrequent returns the label with the highest count. On a tie the label
// seen first wins. An empty tally yields NotApplicable.
func (t *Tally) MostFrequent() string {
	best := NotApplicable
	bestCount := 0
	for _, label := range t.order {
		if count := t.counts[label]; count > bestCount {
			best = label
			bestCount = count
		}
	}
	return best
}

// Ranked returns all labels ordered by count, descending, keeping
// first-seen order between equal counts.
func (t *Tally) Ranked() []LabelCount {
	ranked := make([]LabelCount, 0, len(t.order))
	for _, label := range t.order {
		ranked = append(ranked, LabelCount{Label: label, Count: t.counts[label]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}

// MostFrequent is the shared frequency primitive used for every derived
// summary field.
func MostFrequent(labels []string) string {
	return NewTally(labels).MostFrequent()
}
