// Package model defines the entity records tracked by the onboarding core.
//
// Every collection (instances, suggestions, users, roles, templates,
// activities) is a flat list of records with stable identifiers. Records are
// value types with explicit deep Clone methods so the store can hand out
// snapshots that mutation and rollback cannot corrupt.
package model

import (
	"fmt"
	"math"
	"time"
)

// Key identifies one entity collection.
type Key string

const (
	KeyInstances   Key = "instances"
	KeySuggestions Key = "suggestions"
	KeyUsers       Key = "users"
	KeyRoles       Key = "roles"
	KeyTemplates   Key = "templates"
	KeyActivities  Key = "activities"
)

// Keys returns every collection key in a fixed order.
func Keys() []Key {
	return []Key{
		KeyInstances,
		KeySuggestions,
		KeyUsers,
		KeyRoles,
		KeyTemplates,
		KeyActivities,
	}
}

// Valid reports whether k names a known collection.
func (k Key) Valid() bool {
	switch k {
	case KeyInstances, KeySuggestions, KeyUsers, KeyRoles, KeyTemplates, KeyActivities:
		return true
	default:
		return false
	}
}

// Record is the constraint shared by every collection element. RecordID is
// the identity used for merge deduplication; Clone must return a deep copy.
type Record[T any] interface {
	RecordID() string
	Clone() T
}

// Step is one checklist entry owned by an onboarding instance. Step ids are
// template-local and are reassigned whenever the owning instance swaps
// templates; the title is the only continuity key across swaps.
type Step struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Role        string     `json:"role,omitempty"`
	Owner       string     `json:"owner,omitempty"`
	Expert      string     `json:"expert,omitempty"`
	Status      StepStatus `json:"status"`
	Link        string     `json:"link,omitempty"`
}

// Instance is an employee's onboarding checklist.
type Instance struct {
	ID         string         `json:"id"`
	Employee   string         `json:"employee"`
	Role       string         `json:"role,omitempty"`
	TemplateID string         `json:"template_id,omitempty"`
	Status     InstanceStatus `json:"status"`
	Steps      []Step         `json:"steps"`
	Progress   int            `json:"progress"`
	CreatedAt  time.Time      `json:"created_at"`
	CreatedBy  string         `json:"created_by,omitempty"`
}

// RecordID implements Record.
func (i Instance) RecordID() string { return i.ID }

// Clone returns a deep copy, including the step list.
func (i Instance) Clone() Instance {
	c := i
	c.Steps = append([]Step(nil), i.Steps...)
	return c
}

// Validate checks required fields before any mutation is attempted.
func (i *Instance) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("id is required")
	}
	if i.Employee == "" {
		return fmt.Errorf("employee is required")
	}
	if !i.Status.Valid() {
		return fmt.Errorf("invalid instance status %q", i.Status)
	}
	for _, s := range i.Steps {
		if s.Title == "" {
			return fmt.Errorf("step %d: title is required", s.ID)
		}
		if !s.Status.Valid() {
			return fmt.Errorf("step %d: invalid status %q", s.ID, s.Status)
		}
	}
	return nil
}

// Template is a reusable step list that new instances are created from.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	Steps     []Step    `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}

// RecordID implements Record.
func (t Template) RecordID() string { return t.ID }

// Clone returns a deep copy, including the step list.
func (t Template) Clone() Template {
	c := t
	c.Steps = append([]Step(nil), t.Steps...)
	return c
}

// Validate checks required fields.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	for _, s := range t.Steps {
		if s.Title == "" {
			return fmt.Errorf("step %d: title is required", s.ID)
		}
	}
	return nil
}

// Suggestion is a proposed improvement to one step. Rejected suggestions are
// deleted outright, not archived.
type Suggestion struct {
	ID         string           `json:"id"`
	StepID     int              `json:"step_id"`
	InstanceID string           `json:"instance_id,omitempty"`
	Text       string           `json:"text"`
	Status     SuggestionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	CreatedBy  string           `json:"created_by,omitempty"`
}

// RecordID implements Record.
func (s Suggestion) RecordID() string { return s.ID }

// Clone implements Record.
func (s Suggestion) Clone() Suggestion { return s }

// Validate checks required fields.
func (s *Suggestion) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.Text == "" {
		return fmt.Errorf("text is required")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("invalid suggestion status %q", s.Status)
	}
	return nil
}

// User is a portal account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordID implements Record.
func (u User) RecordID() string { return u.ID }

// Clone implements Record.
func (u User) Clone() User { return u }

// Validate checks required fields.
func (u *User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("id is required")
	}
	if u.Name == "" {
		return fmt.Errorf("name is required")
	}
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	return nil
}

// Role names a set of permissions assignable to users and steps.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecordID implements Record.
func (r Role) RecordID() string { return r.ID }

// Clone returns a deep copy, including the permission list.
func (r Role) Clone() Role {
	c := r
	c.Permissions = append([]string(nil), r.Permissions...)
	return c
}

// Validate checks required fields.
func (r *Role) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// Activity is an audit trail entry produced at write time. The kind is a
// closed variant so consumers never infer event semantics from free text.
type Activity struct {
	ID        string       `json:"id"`
	Kind      ActivityKind `json:"kind"`
	Actor     string       `json:"actor,omitempty"`
	Subject   string       `json:"subject,omitempty"`
	Detail    string       `json:"detail,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// RecordID implements Record.
func (a Activity) RecordID() string { return a.ID }

// Clone implements Record.
func (a Activity) Clone() Activity { return a }

// Progress returns the percentage of completed steps, rounded to the nearest
// integer. An empty step list reports zero.
func Progress(steps []Step) int {
	if len(steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range steps {
		if s.Status == StepCompleted {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(steps)) * 100))
}

// Complete reports whether every step is completed. An empty list is never
// complete.
func Complete(steps []Step) bool {
	if len(steps) == 0 {
		return false
	}
	for _, s := range steps {
		if s.Status != StepCompleted {
			return false
		}
	}
	return true
}
