// internal/qso/match.go
package qso

import "strings"

// Result is the outcome of checking a user transmission against a step.
type Result struct {
	Correct bool
	// Expected is the full script line for the step.
	Expected string
	// Actual is the normalized user input.
	Actual string
	// Missing lists required tokens not found in order.
	Missing []string
	// Hint is a short correction shown to the user on a miss.
	Hint string
}

// Match checks actual against the required tokens of a step. Tokens must
// appear whole and in order; anything between them is ignored. An empty
// required list means every token of expected is required.
func Match(expected string, required []string, actual string) Result {
	res := Result{
		Expected: normalizeText(expected),
		Actual:   normalizeText(actual),
	}
	if len(required) == 0 {
		required = tokens(expected)
	}

	got := tokens(actual)
	pos := 0
	for _, req := range required {
		req = strings.ToUpper(req)
		found := -1
		for i := pos; i < len(got); i++ {
			if tokenMatches(req, got[i]) {
				found = i
				break
			}
		}
		if found < 0 {
			res.Missing = append(res.Missing, req)
			continue
		}
		pos = found + 1
	}

	res.Correct = len(res.Missing) == 0
	if !res.Correct {
		res.Hint = "missing " + strings.Join(res.Missing, " ") + "; expected: " + res.Expected
	}
	return res
}

func tokenMatches(want, got string) bool {
	if want == got {
		return true
	}
	if !isDigits(want) || len(want) != len(got) {
		return false
	}
	return expandCutNumbers(got) == want
}

// cutNumbers maps the abbreviated digits used in reports and serials.
var cutNumbers = map[rune]rune{
	'T': '0',
	'O': '0',
	'A': '1',
	'E': '5',
	'N': '9',
}

func expandCutNumbers(s string) string {
	var b strings.Builder
	for _, r := range s {
		if d, ok := cutNumbers[r]; ok {
			b.WriteRune(d)
			continue
		}
		if r < '0' || r > '9' {
			return ""
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func tokens(s string) []string {
	return strings.Fields(strings.ToUpper(s))
}

func normalizeText(s string) string {
	return strings.Join(tokens(s), " ")
}
