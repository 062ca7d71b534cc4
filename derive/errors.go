package derive

import "xdao.co/keyforge/internal/fault"

// Kind is the caller-visible failure reason. The string values are part of
// the RPC contract.
type Kind string

const (
	KindEmptyInput     Kind = "EmptyInput"
	KindNoUsableInput  Kind = "NoUsableInputAfterAugmentation"
	KindDigestFailure  Kind = "DigestFailure"
	KindInvalidRequest Kind = "InvalidRequest"
)

// Kinds lists every Kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindEmptyInput, KindNoUsableInput, KindDigestFailure, KindInvalidRequest}
}

// ParseKind maps a reason string back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Error is the structured error returned by Derive. A digest failure
// keeps the underlying *digest.Error as its Cause.
type Error = fault.Error[Kind]

func newError(kind Kind, ruleID, msg string) error { return fault.New(kind, ruleID, msg) }

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	return fault.Wrap(kind, ruleID, msg, cause)
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool { return fault.IsKind(err, kind) }

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind { return fault.KindOf[Kind](err) }

// RuleID returns the RuleID of the outermost structured error in err,
// including a bare *digest.Error, or "" if there is none.
func RuleID(err error) string { return fault.RuleID(err) }
