package auth

import (
	"movido/internal/identity"
	"movido/internal/profile"
)

// State is the reconciler's view of who is signed in. It is owned exclusively
// by the reconciler and mutated only through its serialized transition queue;
// callers receive copies.
//
// Invariant: IsAuthenticated == (Identity != nil) in every published state,
// and Profile is nil whenever Identity is nil.
type State struct {
	Identity        *identity.User
	Profile         *profile.Profile
	Session         *identity.Session
	IsLoading       bool
	IsAuthenticated bool
}

// normalize derives the dependent fields after a transition so no transition
// can publish a state that violates the invariants.
func (s *State) normalize() {
	if s.Identity == nil {
		s.Profile = nil
	}
	s.IsAuthenticated = s.Identity != nil
}

// clone returns a deep enough copy that callers cannot alias reconciler-owned
// records.
func (s State) clone() State {
	cp := s
	if s.Identity != nil {
		u := *s.Identity
		cp.Identity = &u
	}
	if s.Profile != nil {
		p := *s.Profile
		cp.Profile = &p
	}
	if s.Session != nil {
		sess := *s.Session
		if s.Session.User != nil {
			u := *s.Session.User
			sess.User = &u
		}
		cp.Session = &sess
	}
	return cp
}
