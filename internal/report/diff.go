package report

// Diff compares the issues of a run with those of the previous run.
type Diff struct {
	PreviousRunID string  `json:"previous_run_id"`
	New           []Issue `json:"new"`
	Resolved      []Issue `json:"resolved"`
	Unchanged     int     `json:"unchanged"`
}

// CompareRuns computes the issue diff between previous and current issue sets.
// Issues are matched by Key; multiplicity is respected.
func CompareRuns(previousRunID string, previous, current []Issue) *Diff {
	d := &Diff{PreviousRunID: previousRunID, New: []Issue{}, Resolved: []Issue{}}

	remaining := make(map[string]int, len(previous))
	for _, is := range previous {
		remaining[is.Key()]++
	}
	for _, is := range current {
		k := is.Key()
		if remaining[k] > 0 {
			remaining[k]--
			d.Unchanged++
			continue
		}
		d.New = append(d.New, is)
	}

	seen := make(map[string]int, len(current))
	for _, is := range current {
		seen[is.Key()]++
	}
	for _, is := range previous {
		k := is.Key()
		if seen[k] > 0 {
			seen[k]--
			continue
		}
		d.Resolved = append(d.Resolved, is)
	}

	Sort(d.New)
	Sort(d.Resolved)
	return d
}

// Empty reports whether nothing changed between the runs.
func (d *Diff) Empty() bool {
	return d == nil || (len(d.New) == 0 && len(d.Resolved) == 0)
}
