package augment

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Step ids in display order.
const (
	Trim         = "trim"
	Lower        = "lower"
	Upper        = "upper"
	Swap         = "swap"
	Reverse      = "reverse"
	ReverseLower = "reverse-lower"
	ReverseUpper = "reverse-upper"
	NoSpace      = "nospace"
	Kebab        = "kebab"
	Snake        = "snake"
	Alnum        = "alnum"
	None         = "none"
)

// isSpace matches the whitespace class used by trim and the run-collapsing
// transforms: Unicode White_Space plus the byte order mark, less NEL (U+0085),
// which browsers do not strip.
func isSpace(r rune) bool {
	if r == '\u0085' {
		return false
	}
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// collapse replaces every maximal run of runes matching in with repl.
func collapse(s string, in func(rune) bool, repl string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inRun := false
	for _, r := range s {
		if in(r) {
			if !inRun {
				sb.WriteString(repl)
				inRun = true
			}
			continue
		}
		inRun = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !isSpace(r) }) < 0
}

func trim(s string) string {
	return strings.TrimFunc(s, isSpace)
}

// Casers carry state, so each call builds its own.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

func upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

func swap(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsUpper(r):
			return unicode.ToLower(r)
		case unicode.IsLower(r):
			return unicode.ToUpper(r)
		default:
			return r
		}
	}, s)
}

func reverse(s string) string {
	rs := []rune(s)
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return string(rs)
}

func noSpace(s string) string {
	return collapse(s, isSpace, "")
}

func kebab(s string) string {
	return lower(collapse(trim(s), func(r rune) bool { return isSpace(r) || r == '_' }, "-"))
}

func snake(s string) string {
	return lower(collapse(trim(s), func(r rune) bool { return isSpace(r) || r == '-' }, "_"))
}

func alnum(s string) string {
	return collapse(s, func(r rune) bool { return !isASCIIAlnum(r) }, "")
}

func identity(s string) string { return s }

var defaultCatalog = mustCatalog(
	Step{ID: Trim, Label: "Trim whitespace", Transform: trim},
	Step{ID: Lower, Label: "Lowercase", Transform: lower},
	Step{ID: Upper, Label: "Uppercase", Transform: upper},
	Step{ID: Swap, Label: "Swap case", Transform: swap},
	Step{ID: Reverse, Label: "Reverse", Transform: reverse},
	Step{ID: ReverseLower, Label: "Reverse + lowercase", Transform: func(s string) string { return lower(reverse(s)) }},
	Step{ID: ReverseUpper, Label: "Reverse + uppercase", Transform: func(s string) string { return upper(reverse(s)) }},
	Step{ID: NoSpace, Label: "Remove spaces", Transform: noSpace},
	Step{ID: Kebab, Label: "kebab-case", Transform: kebab},
	Step{ID: Snake, Label: "snake_case", Transform: snake},
	Step{ID: Alnum, Label: "Letters and digits only", Transform: alnum},
	Step{ID: None, Label: "No augmentation", Transform: identity},
)

// Default returns the built-in catalog of twelve transforms.
func Default() Catalog { return defaultCatalog }
