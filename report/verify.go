package report

import (
	"errors"
	"slices"

	"github.com/weiihann/sortbench/harness"
)

// ErrNoResults is returned when there is nothing to verify or report.
var ErrNoResults = errors.New("no results to report")

// Outcome is the result of comparing every target against the reference.
type Outcome struct {
	AllMatch      bool   `json:"all_match"`
	Reference     string `json:"reference"`
	FirstMismatch string `json:"first_mismatch,omitempty"`
}

// Verify compares each result's sequence with the first inserted one and
// stops at the first divergence. It detects disagreement between
// implementations only; a wrong reference goes unnoticed.
func Verify(set *harness.ResultSet) (Outcome, error) {
	refLabel, ref, ok := set.Reference()
	if !ok {
		return Outcome{}, ErrNoResults
	}

	for label, r := range set.All() {
		if label == refLabel {
			continue
		}

		if !slices.Equal(r.Sequence, ref.Sequence) {
			return Outcome{Reference: refLabel, FirstMismatch: label}, nil
		}
	}

	return Outcome{AllMatch: true, Reference: refLabel}, nil
}
