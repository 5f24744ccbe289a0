// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package view

// Kind is the kind of a view State.
type Kind int

const (
	KindLoading Kind = iota
	KindError
	KindLoggedOut
	KindLoggedIn
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindError:
		return "error"
	case KindLoggedOut:
		return "logged-out"
	case KindLoggedIn:
		return "logged-in"
	default:
		return "unknown"
	}
}

// State is what the page currently displays.  Only an error State carries a
// message.
type State struct {
	kind    Kind
	message string
}

// Loading is the initial state, until the user's authentication status is
// known.
func Loading() State { return State{kind: KindLoading} }

// Failed is the error state with a message for the user.
func Failed(msg string) State { return State{kind: KindError, message: msg} }

// LoggedOut is the state of a page for an anonymous user.
func LoggedOut() State { return State{kind: KindLoggedOut} }

// LoggedIn is the state of a page for an authenticated user.
func LoggedIn() State { return State{kind: KindLoggedIn} }

func (s State) Kind() Kind      { return s.kind }
func (s State) Message() string { return s.message }

// String returns the kind, with the message of an error state.
func (s State) String() string {
	if s.kind == KindError {
		return s.kind.String() + ": " + s.message
	}
	return s.kind.String()
}

// canTransition reports whether the page may go from one state to another.
// Nothing leads back to Loading and Error is terminal.
func canTransition(from, to State) bool {
	switch {
	case to.kind == KindLoading:
		return false
	case from.kind == KindError:
		return false
	default:
		return true
	}
}
