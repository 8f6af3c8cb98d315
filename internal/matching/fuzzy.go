package matching

import (
	"strings"
	"unicode"
)

// PartialRatio scores how well the needle matches anywhere inside the
// haystack, 0 to 100. Single-word needles are compared against each word of
// the haystack with a Levenshtein ratio, which tolerates typos like an
// inserted letter. Multi-word needles fall back to a sliding window of the
// needle's length over the haystack.
func PartialRatio(needle, haystack string) int {
	if needle == "" || haystack == "" {
		return 0
	}

	if strings.Contains(haystack, needle) {
		return 100
	}

	if strings.ContainsRune(needle, ' ') {
		return windowRatio([]rune(needle), []rune(haystack))
	}

	nr := []rune(needle)
	best := 0
	for _, token := range tokenize(haystack) {
		if score := simpleRatio(nr, []rune(token)); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// windowRatio compares the needle against every window of its own length in
// the haystack and keeps the best score.
func windowRatio(needle, haystack []rune) int {
	if len(needle) > len(haystack) {
		return simpleRatio(needle, haystack)
	}

	best := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		score := simpleRatio(needle, haystack[i:i+len(needle)])
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// simpleRatio converts edit distance into a 0..100 similarity.
func simpleRatio(a, b []rune) int {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 100
	}

	d := levenshtein(a, b)
	return int(float64(longest-d) / float64(longest) * 100)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
