package usecase

import (
	"strings"
	"unicode"
)

// lexicalSimilarity is a normalized [0,1] string similarity combining
// character-bigram overlap with an edit-distance ratio. Bigrams carry
// most of the signal for Hangul compound names; the edit ratio keeps
// near-identical spellings ahead of loose token overlaps.
func lexicalSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	overlap := diceCoefficient(runeBigrams(a), runeBigrams(b))
	edit := editRatio(a, b)
	if overlap > edit {
		return overlap
	}
	return edit
}

func runeBigrams(s string) map[string]int {
	runes := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		runes = append(runes, unicode.ToLower(r))
	}
	out := make(map[string]int, len(runes))
	if len(runes) == 1 {
		out[string(runes)] = 1
		return out
	}
	for i := 0; i+1 < len(runes); i++ {
		out[string(runes[i:i+2])]++
	}
	return out
}

func diceCoefficient(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	totalA, totalB, shared := 0, 0, 0
	for bigram, count := range a {
		totalA += count
		if other, ok := b[bigram]; ok {
			shared += min(count, other)
		}
	}
	for _, count := range b {
		totalB += count
	}
	return 2 * float64(shared) / float64(totalA+totalB)
}

func editRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(editDistance(ra, rb))/float64(longest)
}

// editDistance is plain Levenshtein over runes with a rolling row.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// splitQueryTokens breaks a free-form query on the delimiters users put
// between theme keywords ("컴퓨터 / 소프트웨어, AI").
func splitQueryTokens(query string) []string {
	parts := strings.FieldsFunc(query, func(r rune) bool {
		return r == '/' || r == ',' || r == '(' || r == ')'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
