package differ

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Span is a piece of a refined line with its own change marker.
type Span struct {
	Text    string
	Changed bool
}

// Refiner computes word-level change spans inside a removed/added line
// pair, so a presentation can highlight what moved within a line instead
// of flagging the whole line.
type Refiner struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewRefiner creates a new Refiner
func NewRefiner() *Refiner {
	return &Refiner{dmp: diffmatchpatch.New()}
}

// RefinePair diffs an old line against its replacement and returns the
// spans of the old line (deletions marked) and of the new line
// (insertions marked).
func (r *Refiner) RefinePair(oldLine, newLine string) (oldSpans, newSpans []Span) {
	diffs := r.dmp.DiffMain(oldLine, newLine, false)
	diffs = r.dmp.DiffCleanupSemantic(diffs)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldSpans = append(oldSpans, Span{Text: d.Text})
			newSpans = append(newSpans, Span{Text: d.Text})
		case diffmatchpatch.DiffDelete:
			oldSpans = append(oldSpans, Span{Text: d.Text, Changed: true})
		case diffmatchpatch.DiffInsert:
			newSpans = append(newSpans, Span{Text: d.Text, Changed: true})
		}
	}
	return oldSpans, newSpans
}
