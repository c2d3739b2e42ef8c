package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sgupta906/oboarding-sub000/internal/cache"
	"github.com/sgupta906/oboarding-sub000/internal/model"
	"github.com/sgupta906/oboarding-sub000/internal/reconcile"
	"github.com/sgupta906/oboarding-sub000/internal/store"
)

// The mutation surface follows one contract throughout: the change lands in
// the canonical list and the local cache synchronously, then the remote
// write confirms it. On rejection the optimistic change is undone exactly
// (store rollback plus cache revert) and the collection carries the error.

// applyCreate runs the optimistic create path for one collection.
func applyCreate[T model.Record[T]](ctx context.Context, e *Engine, b *binding[T], rec T) error {
	id := rec.RecordID()

	// Insert a clone so the caller-retained record never aliases canonical
	// state.
	snap := b.col.Apply(func(list []T) []T { return append(list, rec.Clone()) })
	b.guard.NoteWrite(id)
	if err := cache.Upsert(b.cache, b.key, rec); err != nil {
		b.logger.Printf("Warning: cache write failed for %s: %v", b.key, err)
	}

	if err := e.backend.Create(ctx, b.key, rec); err != nil {
		b.guard.NoteDelete(id)
		if cerr := cache.Delete[T](b.cache, b.key, id); cerr != nil {
			b.logger.Printf("Warning: cache revert failed for %s: %v", b.key, cerr)
		}
		b.col.Rollback(snap)
		wrapped := fmt.Errorf("failed to create %s record: %w", b.key, err)
		b.col.SetError(wrapped)
		return wrapped
	}
	return nil
}

// applyUpdate runs the optimistic update path: rec replaces the record with
// the same id.
func applyUpdate[T model.Record[T]](ctx context.Context, e *Engine, b *binding[T], rec T) error {
	id := rec.RecordID()
	prior, hadPrior := b.col.Get(id)

	snap := b.col.Apply(func(list []T) []T {
		for i, cur := range list {
			if cur.RecordID() == id {
				list[i] = rec.Clone()
				break
			}
		}
		return list
	})
	b.guard.NoteWrite(id)
	if err := cache.Upsert(b.cache, b.key, rec); err != nil {
		b.logger.Printf("Warning: cache write failed for %s: %v", b.key, err)
	}

	if err := e.backend.Update(ctx, b.key, id, rec); err != nil {
		b.guard.NoteWrite(id)
		if hadPrior {
			if cerr := cache.Upsert(b.cache, b.key, prior); cerr != nil {
				b.logger.Printf("Warning: cache revert failed for %s: %v", b.key, cerr)
			}
		} else {
			if cerr := cache.Delete[T](b.cache, b.key, id); cerr != nil {
				b.logger.Printf("Warning: cache revert failed for %s: %v", b.key, cerr)
			}
		}
		b.col.Rollback(snap)
		wrapped := fmt.Errorf("failed to update %s record: %w", b.key, err)
		b.col.SetError(wrapped)
		return wrapped
	}
	return nil
}

// applyRemove runs the optimistic delete path.
func applyRemove[T model.Record[T]](ctx context.Context, e *Engine, b *binding[T], id string) error {
	prior, hadPrior := b.col.Get(id)

	snap := b.col.Apply(func(list []T) []T {
		out := list[:0]
		for _, cur := range list {
			if cur.RecordID() != id {
				out = append(out, cur)
			}
		}
		return out
	})
	b.guard.NoteDelete(id)
	if err := cache.Delete[T](b.cache, b.key, id); err != nil {
		b.logger.Printf("Warning: cache delete failed for %s: %v", b.key, err)
	}

	if err := e.backend.Delete(ctx, b.key, id); err != nil {
		if hadPrior {
			b.guard.NoteWrite(id)
			if cerr := cache.Upsert(b.cache, b.key, prior); cerr != nil {
				b.logger.Printf("Warning: cache revert failed for %s: %v", b.key, cerr)
			}
		}
		b.col.Rollback(snap)
		wrapped := fmt.Errorf("failed to delete %s record: %w", b.key, err)
		b.col.SetError(wrapped)
		return wrapped
	}
	return nil
}

// CreateInstance builds a new onboarding instance from a template and
// applies it optimistically. The template's steps are copied; a step with no
// status starts pending.
func (e *Engine) CreateInstance(ctx context.Context, employee, role, templateID string) (model.Instance, error) {
	var zero model.Instance

	var steps []model.Step
	if templateID != "" {
		tmpl, ok := e.store.Templates.Get(templateID)
		if !ok {
			return zero, fmt.Errorf("template %q not found", templateID)
		}
		steps = make([]model.Step, len(tmpl.Steps))
		for i, s := range tmpl.Steps {
			if !s.Status.Valid() {
				s.Status = model.StepPending
			}
			s.ID = i + 1
			steps[i] = s
		}
	}

	inst := model.Instance{
		ID:         uuid.NewString(),
		Employee:   employee,
		Role:       role,
		TemplateID: templateID,
		Status:     model.InstanceActive,
		Steps:      steps,
		Progress:   model.Progress(steps),
		CreatedAt:  e.now(),
		CreatedBy:  e.ident.Current().UserID,
	}
	if err := inst.Validate(); err != nil {
		return zero, fmt.Errorf("invalid instance: %w", err)
	}

	if err := applyCreate(ctx, e, e.instances, inst); err != nil {
		return zero, err
	}

	e.recordActivity(ctx, model.ActivityInstanceCreated, inst.ID, employee)
	return inst, nil
}

// SetInstanceStatus updates an instance's lifecycle status.
func (e *Engine) SetInstanceStatus(ctx context.Context, id string, status model.InstanceStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid instance status %q", status)
	}

	inst, ok := e.store.Instances.Get(id)
	if !ok {
		return fmt.Errorf("instance %q not found", id)
	}

	updated := inst.Clone()
	updated.Status = status

	if err := applyUpdate(ctx, e, e.instances, updated); err != nil {
		return err
	}

	e.recordActivity(ctx, model.ActivityInstanceStatusSet, id, string(status))
	return nil
}

// SetStepStatus updates one step of an instance and recomputes its progress.
func (e *Engine) SetStepStatus(ctx context.Context, instanceID string, stepID int, status model.StepStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid step status %q", status)
	}

	inst, ok := e.store.Instances.Get(instanceID)
	if !ok {
		return fmt.Errorf("instance %q not found", instanceID)
	}

	updated := inst.Clone()
	found := false
	for i := range updated.Steps {
		if updated.Steps[i].ID == stepID {
			updated.Steps[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("step %d not found in instance %q", stepID, instanceID)
	}
	updated.Progress = model.Progress(updated.Steps)

	if err := applyUpdate(ctx, e, e.instances, updated); err != nil {
		return err
	}

	e.recordActivity(ctx, model.ActivityStepStatusSet, instanceID, fmt.Sprintf("step %d -> %s", stepID, status))
	return nil
}

// SwapTemplate replaces an instance's checklist with a newly chosen
// template's step list, preserving completion state by step title.
func (e *Engine) SwapTemplate(ctx context.Context, instanceID, templateID string) (model.Instance, error) {
	var zero model.Instance

	inst, ok := e.store.Instances.Get(instanceID)
	if !ok {
		return zero, fmt.Errorf("instance %q not found", instanceID)
	}
	tmpl, ok := e.store.Templates.Get(templateID)
	if !ok {
		return zero, fmt.Errorf("template %q not found", templateID)
	}

	steps, progress := reconcile.Steps(inst.Steps, tmpl.Steps)

	updated := inst.Clone()
	updated.TemplateID = templateID
	updated.Steps = steps
	updated.Progress = progress

	if err := applyUpdate(ctx, e, e.instances, updated); err != nil {
		return zero, err
	}

	e.recordActivity(ctx, model.ActivityTemplateSwapped, instanceID, tmpl.Name)
	return updated, nil
}

// RemoveInstance deletes an onboarding instance.
func (e *Engine) RemoveInstance(ctx context.Context, id string) error {
	if err := applyRemove(ctx, e, e.instances, id); err != nil {
		return err
	}
	e.recordActivity(ctx, model.ActivityInstanceRemoved, id, "")
	return nil
}

// CreateSuggestion records a proposed improvement to a step.
func (e *Engine) CreateSuggestion(ctx context.Context, stepID int, instanceID, text string) (model.Suggestion, error) {
	var zero model.Suggestion

	sug := model.Suggestion{
		ID:         uuid.NewString(),
		StepID:     stepID,
		InstanceID: instanceID,
		Text:       text,
		Status:     model.SuggestionPending,
		CreatedAt:  e.now(),
		CreatedBy:  e.ident.Current().UserID,
	}
	if err := sug.Validate(); err != nil {
		return zero, fmt.Errorf("invalid suggestion: %w", err)
	}

	if err := applyCreate(ctx, e, e.suggestions, sug); err != nil {
		return zero, err
	}

	e.recordActivity(ctx, model.ActivitySuggestionCreated, sug.ID, text)
	return sug, nil
}

// SetSuggestionStatus moves a suggestion through its review states.
func (e *Engine) SetSuggestionStatus(ctx context.Context, id string, status model.SuggestionStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid suggestion status %q", status)
	}

	sug, ok := e.store.Suggestions.Get(id)
	if !ok {
		return fmt.Errorf("suggestion %q not found", id)
	}

	updated := sug.Clone()
	updated.Status = status

	if err := applyUpdate(ctx, e, e.suggestions, updated); err != nil {
		return err
	}

	e.recordActivity(ctx, model.ActivitySuggestionReviewed, id, string(status))
	return nil
}

// RemoveSuggestion rejects a suggestion: it is deleted, not archived.
func (e *Engine) RemoveSuggestion(ctx context.Context, id string) error {
	if err := applyRemove(ctx, e, e.suggestions, id); err != nil {
		return err
	}
	e.recordActivity(ctx, model.ActivitySuggestionRejected, id, "")
	return nil
}

// OptimisticSuggestionStatus flips a suggestion's status in the canonical
// list only and returns the prior-list snapshot. Callers that manage their
// own backing-store write pair it with RollbackSuggestions on failure.
func (e *Engine) OptimisticSuggestionStatus(id string, status model.SuggestionStatus) (store.Snapshot[model.Suggestion], error) {
	if !status.Valid() {
		return store.Snapshot[model.Suggestion]{}, fmt.Errorf("invalid suggestion status %q", status)
	}

	snap := e.store.Suggestions.Apply(func(list []model.Suggestion) []model.Suggestion {
		for i := range list {
			if list[i].ID == id {
				list[i].Status = status
				break
			}
		}
		return list
	})
	e.suggestions.guard.NoteWrite(id)
	return snap, nil
}

// OptimisticSuggestionRemove drops a suggestion from the canonical list only
// and returns the prior-list snapshot.
func (e *Engine) OptimisticSuggestionRemove(id string) store.Snapshot[model.Suggestion] {
	snap := e.store.Suggestions.Apply(func(list []model.Suggestion) []model.Suggestion {
		out := list[:0]
		for _, cur := range list {
			if cur.ID != id {
				out = append(out, cur)
			}
		}
		return out
	})
	e.suggestions.guard.NoteDelete(id)
	return snap
}

// RollbackSuggestions restores the suggestions list to a snapshot captured
// by one of the optimistic calls. Idempotent.
func (e *Engine) RollbackSuggestions(snap store.Snapshot[model.Suggestion]) {
	e.store.Suggestions.Rollback(snap)
}

// CreateUser adds a portal account. A duplicate email is a validation error
// detected before any optimistic change.
func (e *Engine) CreateUser(ctx context.Context, name, email, role string) (model.User, error) {
	var zero model.User

	for _, existing := range e.store.Users.State().Data {
		if strings.EqualFold(existing.Email, email) {
			return zero, fmt.Errorf("email %q is already in use", email)
		}
	}

	user := model.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: e.now(),
	}
	if err := user.Validate(); err != nil {
		return zero, fmt.Errorf("invalid user: %w", err)
	}

	if err := applyCreate(ctx, e, e.users, user); err != nil {
		return zero, err
	}

	e.recordActivity(ctx, model.ActivityUserCreated, user.ID, name)
	return user, nil
}

// SetUserRole changes a user's role.
func (e *Engine) SetUserRole(ctx context.Context, id, role string) error {
	user, ok := e.store.Users.Get(id)
	if !ok {
		return fmt.Errorf("user %q not found", id)
	}

	updated := user.Clone()
	updated.Role = role

	if err := applyUpdate(ctx, e, e.users, updated); err != nil {
		return err
	}

	e.recordActivity(ctx, model.ActivityUserRoleSet, id, role)
	return nil
}

// RemoveUser deletes a portal account.
func (e *Engine) RemoveUser(ctx context.Context, id string) error {
	if err := applyRemove(ctx, e, e.users, id); err != nil {
		return err
	}
	e.recordActivity(ctx, model.ActivityUserRemoved, id, "")
	return nil
}

// CreateRole adds a role. A duplicate name is a validation error detected
// before any optimistic change.
func (e *Engine) CreateRole(ctx context.Context, name string, permissions []string) (model.Role, error) {
	var zero model.Role

	for _, existing := range e.store.Roles.State().Data {
		if strings.EqualFold(existing.Name, name) {
			return zero, fmt.Errorf("role %q already exists", name)
		}
	}

	role := model.Role{
		ID:          uuid.NewString(),
		Name:        name,
		Permissions: append([]string(nil), permissions...),
		CreatedAt:   e.now(),
	}
	if err := role.Validate(); err != nil {
		return zero, fmt.Errorf("invalid role: %w", err)
	}

	if err := applyCreate(ctx, e, e.roles, role); err != nil {
		return zero, err
	}

	e.recordActivity(ctx, model.ActivityRoleCreated, role.ID, name)
	return role, nil
}

// RemoveRole deletes a role.
func (e *Engine) RemoveRole(ctx context.Context, id string) error {
	if err := applyRemove(ctx, e, e.roles, id); err != nil {
		return err
	}
	e.recordActivity(ctx, model.ActivityRoleRemoved, id, "")
	return nil
}

// UpsertTemplate inserts or replaces a template definition.
func (e *Engine) UpsertTemplate(ctx context.Context, tmpl model.Template) error {
	if err := tmpl.Validate(); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	var err error
	if _, exists := e.store.Templates.Get(tmpl.ID); exists {
		err = applyUpdate(ctx, e, e.templates, tmpl)
	} else {
		err = applyCreate(ctx, e, e.templates, tmpl)
	}
	if err != nil {
		return err
	}

	e.recordActivity(ctx, model.ActivityTemplateSynced, tmpl.ID, tmpl.Name)
	return nil
}

// RemoveTemplate deletes a template definition.
func (e *Engine) RemoveTemplate(ctx context.Context, id string) error {
	return applyRemove(ctx, e, e.templates, id)
}

// recordActivity appends an audit entry. The trail is advisory: failures
// are logged, never propagated, and never roll back the primary mutation.
func (e *Engine) recordActivity(ctx context.Context, kind model.ActivityKind, subject, detail string) {
	act := model.Activity{
		ID:        uuid.NewString(),
		Kind:      kind,
		Actor:     e.ident.Current().UserID,
		Subject:   subject,
		Detail:    detail,
		CreatedAt: e.now(),
	}

	e.activities.col.Apply(func(list []model.Activity) []model.Activity {
		return append(list, act)
	})
	e.activities.guard.NoteWrite(act.ID)
	if err := cache.Upsert(e.cache, model.KeyActivities, act); err != nil {
		e.config.Logger.Printf("Warning: failed to cache activity: %v", err)
	}
	if err := e.backend.Create(ctx, model.KeyActivities, act); err != nil {
		e.config.Logger.Printf("Warning: failed to record activity: %v", err)
	}
}
