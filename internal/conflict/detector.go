// Package conflict decides whether concurrently produced edits to the same
// file can be combined automatically.
package conflict

import "github.com/dusk-indust/reconcile/internal/semantic"

// Verdict is the outcome of comparing two tasks' edits to one file.
type Verdict string

const (
	// VerdictNone means the edits cannot interfere: at least one side
	// recorded no changes.
	VerdictNone Verdict = "no_conflict"

	// VerdictAutoMergeable means both sides are purely additive and touch
	// disjoint structural scopes; their union composes safely.
	VerdictAutoMergeable Verdict = "auto_mergeable"

	// VerdictRequiresResolution means the edits overlap, so combining them
	// needs an external resolver.
	VerdictRequiresResolution Verdict = "requires_resolution"
)

// severity orders verdicts for pairwise reduction.
var severity = map[Verdict]int{
	VerdictNone:               0,
	VerdictAutoMergeable:      1,
	VerdictRequiresResolution: 2,
}

// Worst returns the more severe of two verdicts.
func Worst(a, b Verdict) Verdict {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// Detector applies the semantic-change overlap rule. It is stateless and
// safe for concurrent use.
type Detector struct{}

// NewDetector creates a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Decide compares two change lists for the same file.
//
// Additive-and-disjoint edits compose safely by union, so they are
// auto-mergeable. Any overlap involving a non-additive change requires
// resolution. Overlapping edits that are both additive also require
// resolution: two additions at the same structural location cannot be
// ordered automatically, even when they look textually appendable.
func (d *Detector) Decide(a, b []semantic.Change) Verdict {
	if len(a) == 0 || len(b) == 0 {
		return VerdictNone
	}

	additiveOnly := allAdditive(a) && allAdditive(b)

	locations := make(map[string]bool, len(a))
	for _, c := range a {
		locations[c.Location] = true
	}
	overlap := false
	for _, c := range b {
		if locations[c.Location] {
			overlap = true
			break
		}
	}

	if overlap {
		return VerdictRequiresResolution
	}
	if additiveOnly {
		return VerdictAutoMergeable
	}
	// Disjoint but with modifications or removals on at least one side:
	// rewriting an existing unit can interact with anything around it, so
	// escalate rather than guess.
	return VerdictRequiresResolution
}

func allAdditive(changes []semantic.Change) bool {
	for _, c := range changes {
		if !c.Additive() {
			return false
		}
	}
	return true
}
