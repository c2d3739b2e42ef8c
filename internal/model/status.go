package model

// InstanceStatus is the lifecycle state of an onboarding instance.
type InstanceStatus string

const (
	InstanceActive    InstanceStatus = "active"
	InstanceCompleted InstanceStatus = "completed"
	InstanceOnHold    InstanceStatus = "on_hold"
)

// Valid reports whether s is a known instance status.
func (s InstanceStatus) Valid() bool {
	switch s {
	case InstanceActive, InstanceCompleted, InstanceOnHold:
		return true
	default:
		return false
	}
}

// Label returns the human-readable form of the status.
func (s InstanceStatus) Label() string {
	switch s {
	case InstanceActive:
		return "Active"
	case InstanceCompleted:
		return "Completed"
	case InstanceOnHold:
		return "On Hold"
	default:
		return "Unknown"
	}
}

// StepStatus is the completion state of a single checklist step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepStuck     StepStatus = "stuck"
)

// Valid reports whether s is a known step status.
func (s StepStatus) Valid() bool {
	switch s {
	case StepPending, StepCompleted, StepStuck:
		return true
	default:
		return false
	}
}

// SuggestionStatus is the review state of a step suggestion.
type SuggestionStatus string

const (
	SuggestionPending     SuggestionStatus = "pending"
	SuggestionReviewed    SuggestionStatus = "reviewed"
	SuggestionImplemented SuggestionStatus = "implemented"
)

// Valid reports whether s is a known suggestion status.
func (s SuggestionStatus) Valid() bool {
	switch s {
	case SuggestionPending, SuggestionReviewed, SuggestionImplemented:
		return true
	default:
		return false
	}
}

// ActivityKind is the closed set of audit events the mutators produce.
type ActivityKind string

const (
	ActivityInstanceCreated    ActivityKind = "instance_created"
	ActivityInstanceRemoved    ActivityKind = "instance_removed"
	ActivityInstanceStatusSet  ActivityKind = "instance_status_set"
	ActivityStepStatusSet      ActivityKind = "step_status_set"
	ActivityTemplateSwapped    ActivityKind = "template_swapped"
	ActivityTemplateSynced     ActivityKind = "template_synced"
	ActivitySuggestionCreated  ActivityKind = "suggestion_created"
	ActivitySuggestionReviewed ActivityKind = "suggestion_reviewed"
	ActivitySuggestionRejected ActivityKind = "suggestion_rejected"
	ActivityUserCreated        ActivityKind = "user_created"
	ActivityUserRemoved        ActivityKind = "user_removed"
	ActivityUserRoleSet        ActivityKind = "user_role_set"
	ActivityRoleCreated        ActivityKind = "role_created"
	ActivityRoleRemoved        ActivityKind = "role_removed"
)

// Valid reports whether k is a known activity kind.
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityInstanceCreated, ActivityInstanceRemoved, ActivityInstanceStatusSet,
		ActivityStepStatusSet, ActivityTemplateSwapped, ActivityTemplateSynced,
		ActivitySuggestionCreated, ActivitySuggestionReviewed, ActivitySuggestionRejected,
		ActivityUserCreated, ActivityUserRemoved, ActivityUserRoleSet,
		ActivityRoleCreated, ActivityRoleRemoved:
		return true
	default:
		return false
	}
}

// Label returns the human-readable form of the activity kind.
func (k ActivityKind) Label() string {
	switch k {
	case ActivityInstanceCreated:
		return "created onboarding"
	case ActivityInstanceRemoved:
		return "removed onboarding"
	case ActivityInstanceStatusSet:
		return "changed onboarding status"
	case ActivityStepStatusSet:
		return "updated a step"
	case ActivityTemplateSwapped:
		return "switched template"
	case ActivityTemplateSynced:
		return "synced template"
	case ActivitySuggestionCreated:
		return "suggested an improvement"
	case ActivitySuggestionReviewed:
		return "reviewed a suggestion"
	case ActivitySuggestionRejected:
		return "rejected a suggestion"
	case ActivityUserCreated:
		return "added a user"
	case ActivityUserRemoved:
		return "removed a user"
	case ActivityUserRoleSet:
		return "changed a user role"
	case ActivityRoleCreated:
		return "added a role"
	case ActivityRoleRemoved:
		return "removed a role"
	default:
		return "unknown"
	}
}
