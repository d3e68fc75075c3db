// internal/cw/element.go
// Package cw implements Morse code keying, timing and the code table.
package cw

import (
	"errors"
	"fmt"
	"strings"
)

// Element is a single Morse signalling unit.
type Element int

const (
	// Dot is the short element (one unit)
	Dot Element = iota
	// Dash is the long element (DahDitRatio units)
	Dash
)

// ErrInvalidPattern indicates a pattern string contains something other than '.' and '-'
var ErrInvalidPattern = errors.New("pattern may only contain '.' and '-'")

// String renders the element as '.' or '-'.
func (e Element) String() string {
	if e == Dash {
		return "-"
	}
	return "."
}

// Pattern is an ordered sequence of elements forming one symbol.
type Pattern []Element

// String renders the pattern in dot/dash notation, e.g. ".-" for A.
func (p Pattern) String() string {
	var b strings.Builder
	b.Grow(len(p))
	for _, e := range p {
		b.WriteString(e.String())
	}
	return b.String()
}

// Equal reports whether two patterns contain the same elements.
func (p Pattern) Equal(other Pattern) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the pattern.
func (p Pattern) Clone() Pattern {
	if p == nil {
		return nil
	}
	out := make(Pattern, len(p))
	copy(out, p)
	return out
}

// Duration returns the number of units the pattern occupies when sent,
// including the intra-element gaps but not the trailing character gap.
func (p Pattern) Duration() int {
	if len(p) == 0 {
		return 0
	}
	units := 0
	for _, e := range p {
		if e == Dash {
			units += int(DahDitRatio)
		} else {
			units++
		}
	}
	return units + (len(p)-1)*int(IntraCharSpaceRatio)
}

// ParsePattern converts dot/dash notation into a Pattern.
func ParsePattern(s string) (Pattern, error) {
	p := make(Pattern, 0, len(s))
	for _, r := range s {
		switch r {
		case '.':
			p = append(p, Dot)
		case '-':
			p = append(p, Dash)
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, s)
		}
	}
	return p, nil
}
