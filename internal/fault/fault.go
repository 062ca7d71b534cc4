// Package fault is the structured error shared by the digest and derive
// packages. Each package declares its own Kind type and aliases Error over
// it, so callers keep writing errors.As(err, &derive.Error{}) style code.
package fault

import "errors"

// Error carries a stable Kind and RuleID (e.g. KF-INPUT-001) next to a
// human Message. Do not match on Message.
type Error[K ~string] struct {
	Kind    K
	RuleID  string
	Message string
	Cause   error
}

func (e *Error[K]) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error[K]) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *Error[K]) rule() string { return e.RuleID }

// New returns an *Error without a cause.
func New[K ~string](kind K, ruleID, msg string) error {
	return &Error[K]{Kind: kind, RuleID: ruleID, Message: msg}
}

// Wrap returns an *Error around cause; a nil cause is New.
func Wrap[K ~string](kind K, ruleID, msg string, cause error) error {
	if cause == nil {
		return New(kind, ruleID, msg)
	}
	return &Error[K]{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether the first *Error[K] in err's chain has kind.
func IsKind[K ~string](err error, kind K) bool {
	var e *Error[K]
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of the first *Error[K] in err's chain, or "".
func KindOf[K ~string](err error) K {
	var e *Error[K]
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// RuleID returns the RuleID of the first structured error in err's chain,
// whatever its Kind type, or "".
func RuleID(err error) string {
	var r interface{ rule() string }
	if !errors.As(err, &r) {
		return ""
	}
	return r.rule()
}
