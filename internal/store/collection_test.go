package store

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sgupta906/oboarding-sub000/internal/model"
)

func sug(id string, status model.SuggestionStatus) model.Suggestion {
	return model.Suggestion{ID: id, Text: "text for " + id, Status: status}
}

func TestCollectionStartsLoading(t *testing.T) {
	col := NewCollection[model.Suggestion]()

	state := col.State()
	if !state.IsLoading {
		t.Error("new collection should be loading")
	}
	if state.Err != nil {
		t.Errorf("new collection should have no error, got %v", state.Err)
	}
	if len(state.Data) != 0 {
		t.Errorf("new collection should be empty, got %d records", len(state.Data))
	}
}

func TestReplaceClearsLoadingAndError(t *testing.T) {
	col := NewCollection[model.Suggestion]()
	col.SetError(errors.New("feed down"))

	col.Replace([]model.Suggestion{sug("s-1", model.SuggestionPending)})

	state := col.State()
	if state.IsLoading {
		t.Error("loading should clear after Replace")
	}
	if state.Err != nil {
		t.Errorf("error should clear after Replace, got %v", state.Err)
	}
	if len(state.Data) != 1 {
		t.Fatalf("expected 1 record, got %d", len(state.Data))
	}
}

func TestSetErrorKeepsData(t *testing.T) {
	col := NewCollection[model.Suggestion]()
	col.Replace([]model.Suggestion{sug("s-1", model.SuggestionPending)})

	col.SetError(errors.New("feed down"))

	state := col.State()
	if state.Err == nil {
		t.Error("error should be set")
	}
	if state.IsLoading {
		t.Error("loading should clear on error")
	}
	if len(state.Data) != 1 {
		t.Error("already-merged data should survive a feed error")
	}
}

func TestApplyReturnsPriorSnapshot(t *testing.T) {
	col := NewCollection[model.Suggestion]()
	col.Replace([]model.Suggestion{sug("s-1", model.SuggestionPending)})

	snap := col.Apply(func(list []model.Suggestion) []model.Suggestion {
		list[0].Status = model.SuggestionReviewed
		return list
	})

	// Optimistic change is visible immediately.
	got, _ := col.Get("s-1")
	if got.Status != model.SuggestionReviewed {
		t.Errorf("optimistic change not applied, got %q", got.Status)
	}

	// Snapshot holds the pre-mutation value.
	col.Rollback(snap)
	got, _ = col.Get("s-1")
	if got.Status != model.SuggestionPending {
		t.Errorf("rollback did not restore prior status, got %q", got.Status)
	}
}

func TestRollbackExactness(t *testing.T) {
	col := NewCollection[model.Suggestion]()
	initial := []model.Suggestion{
		sug("s-1", model.SuggestionPending),
		sug("s-2", model.SuggestionPending),
	}
	col.Replace(initial)

	before := col.State().Data

	snap := col.Apply(func(list []model.Suggestion) []model.Suggestion {
		list[0].Status = model.SuggestionReviewed
		return list
	})

	// Unrelated records change after the snapshot was captured.
	col.Apply(func(list []model.Suggestion) []model.Suggestion {
		list[1].Status = model.SuggestionImplemented
		return append(list, sug("s-3", model.SuggestionPending))
	})

	col.Rollback(snap)

	after := col.State().Data
	if !reflect.DeepEqual(before, after) {
		t.Errorf("rollback must restore the exact pre-mutation list\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestRollbackIdempotent(t *testing.T) {
	col := NewCollection[model.Suggestion]()
	col.Replace([]model.Suggestion{sug("s-1", model.SuggestionPending)})

	snap := col.Apply(func(list []model.Suggestion) []model.Suggestion {
		return nil
	})

	col.Rollback(snap)
	first := col.State().Data
	col.Rollback(snap)
	second := col.State().Data

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated rollback with the same snapshot changed state")
	}
}

func TestStateIsIsolated(t *testing.T) {
	col := NewCollection[model.Instance]()
	col.Replace([]model.Instance{{
		ID:    "i-1",
		Steps: []model.Step{{ID: 1, Title: "Laptop", Status: model.StepPending}},
	}})

	state := col.State()
	state.Data[0].Steps[0].Status = model.StepCompleted

	fresh, _ := col.Get("i-1")
	if fresh.Steps[0].Status != model.StepPending {
		t.Error("mutating a returned state leaked into canonical data")
	}
}

func TestSubscribeNotifies(t *testing.T) {
	col := NewCollection[model.Suggestion]()

	var emissions int
	unsub := col.Subscribe(func(State[model.Suggestion]) {
		emissions++
	})

	if emissions != 1 {
		t.Fatalf("expected immediate emission on subscribe, got %d", emissions)
	}

	col.Replace([]model.Suggestion{sug("s-1", model.SuggestionPending)})
	if emissions != 2 {
		t.Errorf("expected emission on Replace, got %d", emissions)
	}

	unsub()
	unsub() // extra calls are harmless

	col.Replace(nil)
	if emissions != 2 {
		t.Errorf("unsubscribed consumer still notified, emissions=%d", emissions)
	}
}

func TestStoreReset(t *testing.T) {
	s := New()
	s.Suggestions.Replace([]model.Suggestion{sug("s-1", model.SuggestionPending)})
	s.Instances.Replace([]model.Instance{{ID: "i-1", Employee: "Dana", Status: model.InstanceActive}})

	s.Reset()

	if s.Suggestions.Len() != 0 || s.Instances.Len() != 0 {
		t.Error("reset should drop all data")
	}
	if !s.Suggestions.State().IsLoading {
		t.Error("reset should return collections to the loading state")
	}
}

func TestDefaultStoreLifecycle(t *testing.T) {
	s := Init()
	if s == nil {
		t.Fatal("Init returned nil")
	}
	if Default() != s {
		t.Error("Default should return the same store as Init")
	}

	s.Users.Replace([]model.User{{ID: "u-1", Name: "Dana", Email: "dana@example.com"}})
	Reset()

	if s.Users.Len() != 0 {
		t.Error("package-level Reset should reset the default store")
	}
}
