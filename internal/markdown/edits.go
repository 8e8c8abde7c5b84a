package markdown

import (
	"errors"
	"fmt"
	"sort"
)

// Edit replaces source[Start:End] with Replacement.
type Edit struct {
	Start       int
	End         int
	Replacement []byte
}

var ErrOverlappingEdits = errors.New("overlapping edits")

// ApplyEdits applies non-overlapping byte-range edits, all expressed against
// the original source, and returns a new slice. source is not modified.
func ApplyEdits(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return append([]byte(nil), source...), nil
	}

	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := make([]byte, 0, len(source))
	cursor := 0
	for _, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(source) {
			return nil, fmt.Errorf("edit [%d,%d) out of bounds for %d bytes", e.Start, e.End, len(source))
		}
		if e.Start < cursor {
			return nil, fmt.Errorf("%w at offset %d", ErrOverlappingEdits, e.Start)
		}
		out = append(out, source[cursor:e.Start]...)
		out = append(out, e.Replacement...)
		cursor = e.End
	}
	out = append(out, source[cursor:]...)
	return out, nil
}
