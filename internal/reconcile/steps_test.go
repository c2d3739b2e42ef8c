package reconcile

import (
	"reflect"
	"testing"

	"github.com/sgupta906/oboarding-sub000/internal/model"
)

func TestSteps_PreservesCompletionByTitle(t *testing.T) {
	current := []model.Step{
		{ID: 1, Title: "A", Status: model.StepCompleted},
		{ID: 2, Title: "B", Status: model.StepPending},
	}
	tmpl := []model.Step{
		{ID: 10, Title: "A", Owner: "IT"},
		{ID: 11, Title: "C", Owner: "HR"},
	}

	merged, progress := Steps(current, tmpl)

	if len(merged) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(merged))
	}
	if merged[0].Title != "A" || merged[0].Status != model.StepCompleted {
		t.Errorf("step A should keep completed status, got %+v", merged[0])
	}
	if merged[1].Title != "C" || merged[1].Status != model.StepPending {
		t.Errorf("step C should be pending, got %+v", merged[1])
	}
	for _, s := range merged {
		if s.Title == "B" {
			t.Error("step B should have been dropped")
		}
	}
	if progress != 50 {
		t.Errorf("expected progress 50, got %d", progress)
	}
}

func TestSteps_AdoptsTemplateShape(t *testing.T) {
	current := []model.Step{
		{ID: 7, Title: "Badge", Status: model.StepStuck, Owner: "old owner", Link: "old"},
	}
	tmpl := []model.Step{
		{ID: 99, Title: "Badge", Owner: "Security", Expert: "Sam", Description: "Get a badge", Link: "https://go/badge", Role: "ops"},
	}

	merged, _ := Steps(current, tmpl)

	got := merged[0]
	if got.Status != model.StepStuck {
		t.Errorf("status should carry over, got %q", got.Status)
	}
	if got.ID != 1 {
		t.Errorf("id should be reassigned for the new template, got %d", got.ID)
	}
	if got.Owner != "Security" || got.Expert != "Sam" || got.Link != "https://go/badge" || got.Role != "ops" {
		t.Errorf("non-status fields should come from the template, got %+v", got)
	}
}

func TestSteps_EmptyTemplate(t *testing.T) {
	current := []model.Step{{ID: 1, Title: "A", Status: model.StepCompleted}}

	merged, progress := Steps(current, nil)

	if len(merged) != 0 {
		t.Errorf("expected empty step list, got %d steps", len(merged))
	}
	if progress != 0 {
		t.Errorf("expected progress 0 for empty list, got %d", progress)
	}
}

func TestSteps_TemplateSwapEndToEnd(t *testing.T) {
	// Instance created from T1 with one step already completed.
	t1 := []model.Step{
		{ID: 1, Title: "Laptop", Status: model.StepCompleted},
		{ID: 2, Title: "Accounts", Status: model.StepPending},
		{ID: 3, Title: "Team intro", Status: model.StepPending},
		{ID: 4, Title: "First ticket", Status: model.StepPending},
	}
	// T2 shares two titles with T1.
	t2 := []model.Step{
		{ID: 1, Title: "Laptop"},
		{ID: 2, Title: "Accounts"},
		{ID: 3, Title: "Security training"},
		{ID: 4, Title: "Shadow a teammate"},
	}

	merged, progress := Steps(t1, t2)

	if len(merged) != len(t2) {
		t.Fatalf("expected %d steps, got %d", len(t2), len(merged))
	}
	if merged[0].Status != model.StepCompleted {
		t.Errorf("Laptop should stay completed, got %q", merged[0].Status)
	}
	if merged[1].Status != model.StepPending {
		t.Errorf("Accounts should stay pending, got %q", merged[1].Status)
	}
	if merged[2].Status != model.StepPending || merged[3].Status != model.StepPending {
		t.Error("new titles should start pending")
	}
	if progress != 25 {
		t.Errorf("expected progress 25 (1 of 4), got %d", progress)
	}
}

func TestSteps_DoesNotMutateInputs(t *testing.T) {
	current := []model.Step{{ID: 1, Title: "A", Status: model.StepCompleted}}
	tmpl := []model.Step{{ID: 5, Title: "A", Owner: "IT"}}

	currentCopy := append([]model.Step(nil), current...)
	tmplCopy := append([]model.Step(nil), tmpl...)

	Steps(current, tmpl)

	if !reflect.DeepEqual(current, currentCopy) {
		t.Error("current steps were mutated")
	}
	if !reflect.DeepEqual(tmpl, tmplCopy) {
		t.Error("template steps were mutated")
	}
}

func TestSteps_DuplicateTitleMatchesFirst(t *testing.T) {
	current := []model.Step{
		{ID: 1, Title: "A", Status: model.StepCompleted},
		{ID: 2, Title: "A", Status: model.StepStuck},
	}
	tmpl := []model.Step{{ID: 1, Title: "A"}}

	merged, _ := Steps(current, tmpl)

	if merged[0].Status != model.StepCompleted {
		t.Errorf("duplicate titles should match the first occurrence, got %q", merged[0].Status)
	}
}

func TestSteps_MatchIsCaseSensitive(t *testing.T) {
	current := []model.Step{{ID: 1, Title: "laptop", Status: model.StepCompleted}}
	tmpl := []model.Step{{ID: 1, Title: "Laptop"}}

	merged, _ := Steps(current, tmpl)

	if merged[0].Status != model.StepPending {
		t.Errorf("title match must be case-sensitive, got %q", merged[0].Status)
	}
}
