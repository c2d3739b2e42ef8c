// Package identity supplies the authenticated user stamped onto mutations.
// The core does not implement authentication; it only consumes an identity.
package identity

// Identity is the current user as seen by the mutation layer.
type Identity struct {
	UserID string
	Role   string
}

// Provider yields the identity to stamp actor fields with.
type Provider interface {
	Current() Identity
}

// Static is a fixed-identity provider, sufficient for the daemon and tests.
type Static struct {
	identity Identity
}

// NewStatic creates a provider that always reports the given user.
func NewStatic(userID, role string) *Static {
	return &Static{identity: Identity{UserID: userID, Role: role}}
}

// Current implements Provider.
func (s *Static) Current() Identity {
	return s.identity
}
