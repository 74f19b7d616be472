package registry

import (
	"strings"
	"unicode"
)

// Organizational-unit suffixes in lookup-priority order. Longer suffixes
// first so "학과" is stripped before "과".
var unitSuffixes = []string{"학과", "학부", "전공", "과", "부"}

// Normalize lowercases and strips whitespace and punctuation so that
// "컴퓨터 공학과", "컴퓨터공학과" and "컴퓨터공학과." compare equal.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// StripUnitSuffix removes one trailing organizational-unit suffix from an
// already-normalized name. Returns the input unchanged when no suffix
// matches or stripping would leave fewer than two runes.
func StripUnitSuffix(s string) string {
	// Engineering names split as 공학+과, not 공+학과: the 공학 stem
	// stays part of the base.
	for _, suffix := range []string{"공학과", "공학부"} {
		if strings.HasSuffix(s, suffix) {
			return strings.TrimSuffix(s, suffix) + "공학"
		}
	}
	for _, suffix := range unitSuffixes {
		if !strings.HasSuffix(s, suffix) {
			continue
		}
		base := strings.TrimSuffix(s, suffix)
		if len([]rune(base)) >= 2 {
			return base
		}
	}
	return s
}
