package model

import (
	"testing"
	"time"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		want  int
	}{
		{"empty list", nil, 0},
		{"none completed", []Step{{Status: StepPending}, {Status: StepStuck}}, 0},
		{"half completed", []Step{{Status: StepCompleted}, {Status: StepPending}}, 50},
		{"all completed", []Step{{Status: StepCompleted}, {Status: StepCompleted}}, 100},
		{"one of three rounds", []Step{{Status: StepCompleted}, {Status: StepPending}, {Status: StepPending}}, 33},
		{"two of three rounds", []Step{{Status: StepCompleted}, {Status: StepCompleted}, {Status: StepPending}}, 67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(tt.steps); got != tt.want {
				t.Errorf("Progress() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	if Complete(nil) {
		t.Error("empty step list should not be complete")
	}
	if Complete([]Step{{Status: StepCompleted}, {Status: StepPending}}) {
		t.Error("list with pending steps should not be complete")
	}
	if !Complete([]Step{{Status: StepCompleted}, {Status: StepCompleted}}) {
		t.Error("fully completed list should be complete")
	}
}

func TestStatusValidity(t *testing.T) {
	for _, s := range []InstanceStatus{InstanceActive, InstanceCompleted, InstanceOnHold} {
		if !s.Valid() {
			t.Errorf("instance status %q should be valid", s)
		}
	}
	if InstanceStatus("archived").Valid() {
		t.Error("unknown instance status should be invalid")
	}

	for _, s := range []StepStatus{StepPending, StepCompleted, StepStuck} {
		if !s.Valid() {
			t.Errorf("step status %q should be valid", s)
		}
	}
	if StepStatus("done").Valid() {
		t.Error("unknown step status should be invalid")
	}

	for _, s := range []SuggestionStatus{SuggestionPending, SuggestionReviewed, SuggestionImplemented} {
		if !s.Valid() {
			t.Errorf("suggestion status %q should be valid", s)
		}
	}
	if SuggestionStatus("rejected").Valid() {
		t.Error("unknown suggestion status should be invalid")
	}
}

func TestActivityKindLabels(t *testing.T) {
	kinds := []ActivityKind{
		ActivityInstanceCreated, ActivityInstanceRemoved, ActivityInstanceStatusSet,
		ActivityStepStatusSet, ActivityTemplateSwapped, ActivityTemplateSynced,
		ActivitySuggestionCreated, ActivitySuggestionReviewed, ActivitySuggestionRejected,
		ActivityUserCreated, ActivityUserRemoved, ActivityUserRoleSet,
		ActivityRoleCreated, ActivityRoleRemoved,
	}
	for _, k := range kinds {
		if !k.Valid() {
			t.Errorf("activity kind %q should be valid", k)
		}
		if k.Label() == "unknown" {
			t.Errorf("activity kind %q has no label", k)
		}
	}
	if ActivityKind("logged_in").Valid() {
		t.Error("unknown activity kind should be invalid")
	}
}

func TestInstanceValidate(t *testing.T) {
	inst := Instance{
		ID:        "inst-1",
		Employee:  "Dana",
		Status:    InstanceActive,
		Steps:     []Step{{ID: 1, Title: "Laptop", Status: StepPending}},
		CreatedAt: time.Now(),
	}
	if err := inst.Validate(); err != nil {
		t.Errorf("valid instance rejected: %v", err)
	}

	missing := inst
	missing.Employee = ""
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing employee")
	}

	badStatus := inst
	badStatus.Status = "paused"
	if err := badStatus.Validate(); err == nil {
		t.Error("expected error for invalid status")
	}

	badStep := inst.Clone()
	badStep.Steps[0].Title = ""
	if err := badStep.Validate(); err == nil {
		t.Error("expected error for step without title")
	}
}

func TestCloneIsDeep(t *testing.T) {
	inst := Instance{
		ID:    "inst-1",
		Steps: []Step{{ID: 1, Title: "Laptop", Status: StepPending}},
	}

	clone := inst.Clone()
	clone.Steps[0].Status = StepCompleted

	if inst.Steps[0].Status != StepPending {
		t.Error("mutating a clone's steps changed the original")
	}

	role := Role{ID: "r-1", Name: "Manager", Permissions: []string{"edit"}}
	roleClone := role.Clone()
	roleClone.Permissions[0] = "admin"

	if role.Permissions[0] != "edit" {
		t.Error("mutating a clone's permissions changed the original")
	}
}
