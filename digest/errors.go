package digest

import "xdao.co/keyforge/internal/fault"

// Kind is a stable category for programmatic error handling.
// Callers should branch on Kind/RuleID rather than matching error strings.
type Kind string

const (
	KindUnsupported Kind = "Unsupported"
	KindInvalidSpec Kind = "InvalidSpec"
	KindCatalog     Kind = "Catalog"
	KindDigest      Kind = "Digest"
)

// Error is the package's structured error type. RuleIDs are KF-DIGEST-0xx
// and KF-CATALOG-0xx.
type Error = fault.Error[Kind]

func newError(kind Kind, ruleID, msg string) error { return fault.New(kind, ruleID, msg) }

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	return fault.Wrap(kind, ruleID, msg, cause)
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool { return fault.IsKind(err, kind) }

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string { return fault.RuleID(err) }
