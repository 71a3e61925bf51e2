// README: Session lifecycle states and errors.
package session

import "errors"

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "unknown"
}

// Ready reports whether access decisions may be made in this state.
func (s State) Ready() bool {
	return s == StateAuthenticated || s == StateAnonymous
}

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 3 characters")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNoSession          = errors.New("no active session")
	ErrNotReady           = errors.New("session is still loading")
	ErrClosed             = errors.New("session closed")
)

// MinPasswordLength is the mock credential check; real verification is not performed.
const MinPasswordLength = 3

// Patch carries the mutable identity fields; nil means unchanged.
type Patch struct {
	Name   *string
	Phone  *string
	Avatar *string
}
