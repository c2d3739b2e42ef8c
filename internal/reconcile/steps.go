// Package reconcile contains the pure merge logic of the onboarding core:
// template-swap step reconciliation and the local/remote list merge with its
// recency guard.
package reconcile

import (
	"github.com/sgupta906/oboarding-sub000/internal/model"
)

// Steps merges an instance's current checklist against the step list of a
// newly selected template. The returned list follows the template's order;
// a template step whose title matches a current step keeps that step's
// status, every other field comes from the template, and ids are reassigned
// 1..n for the new template. Current steps absent from the template are
// dropped. Neither input is mutated.
//
// Matching is case-sensitive exact title match. When a title appears more
// than once, the first occurrence wins; the intended semantics of duplicate
// titles are an open question, so this is deliberately not hardened further.
//
// The second return value is the recomputed progress for the merged list.
func Steps(current, tmpl []model.Step) ([]model.Step, int) {
	byTitle := make(map[string]model.Step, len(current))
	for i := len(current) - 1; i >= 0; i-- {
		byTitle[current[i].Title] = current[i]
	}

	merged := make([]model.Step, 0, len(tmpl))
	for i, ts := range tmpl {
		s := ts
		s.ID = i + 1
		s.Status = model.StepPending
		if prev, ok := byTitle[ts.Title]; ok && prev.Status.Valid() {
			s.Status = prev.Status
		}
		merged = append(merged, s)
	}

	return merged, model.Progress(merged)
}
