// internal/cw/table.go
package cw

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// ErrUnknownSymbol indicates a character has no Morse representation
var ErrUnknownSymbol = errors.New("symbol has no morse pattern")

// maxPatternLength bounds the depth of the lookup tree.
const maxPatternLength = 6

// symbolCodes is the ITU code table.
var symbolCodes = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".",
	'F': "..-.", 'G': "--.", 'H': "....", 'I': "..", 'J': ".---",
	'K': "-.-", 'L': ".-..", 'M': "--", 'N': "-.", 'O': "---",
	'P': ".--.", 'Q': "--.-", 'R': ".-.", 'S': "...", 'T': "-",
	'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-", 'Y': "-.--",
	'Z': "--..",

	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",

	// Punctuation and prosigns used on the air
	'/': "-..-.",  // portable / stroke
	'=': "-...-",  // BT, section break
	'+': ".-.-.",  // AR, end of message
	'?': "..--..", // repeat / query
	'.': ".-.-.-",
	',': "--..--",
}

// MorseTree is the binary tree for Morse code lookup.
// Left branch = dot, Right branch = dash.
// Index 1 is the root, parent at i has children at 2i (dot) and 2i+1 (dash).
var MorseTree [1 << (maxPatternLength + 1)]rune

// patterns caches the parsed form of every symbol.
var patterns = make(map[rune]Pattern, len(symbolCodes))

func init() {
	for sym, code := range symbolCodes {
		p, err := ParsePattern(code)
		if err != nil {
			panic(fmt.Sprintf("cw: bad table entry %q: %v", sym, err))
		}
		idx := treeIndex(p)
		if idx <= 0 || MorseTree[idx] != 0 {
			panic(fmt.Sprintf("cw: table entry %q collides or overflows", sym))
		}
		MorseTree[idx] = sym
		patterns[sym] = p
	}
}

// treeIndex walks the tree for p. Returns -1 if the pattern is too long.
func treeIndex(p Pattern) int {
	if len(p) == 0 || len(p) > maxPatternLength {
		return -1
	}
	idx := 1
	for _, e := range p {
		idx *= 2
		if e == Dash {
			idx++
		}
	}
	return idx
}

// Lookup resolves a pattern to its symbol. Unknown patterns are a normal
// outcome and report false rather than an error.
func Lookup(p Pattern) (rune, bool) {
	idx := treeIndex(p)
	if idx < 0 {
		return 0, false
	}
	sym := MorseTree[idx]
	return sym, sym != 0
}

// Decode resolves an accumulated keyer pattern to a symbol.
func Decode(p Pattern) (rune, bool) {
	return Lookup(p)
}

// PatternFor returns the pattern for a symbol. Letters are matched
// case-insensitively. The returned pattern is a copy.
func PatternFor(sym rune) (Pattern, bool) {
	p, ok := patterns[unicode.ToUpper(sym)]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Symbols returns every symbol in the table in a stable order:
// letters, then digits, then punctuation.
func Symbols() []rune {
	out := make([]rune, 0, len(symbolCodes))
	for sym := range symbolCodes {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := symbolRank(out[i]), symbolRank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

func symbolRank(r rune) int {
	switch {
	case unicode.IsLetter(r):
		return 0
	case unicode.IsDigit(r):
		return 1
	default:
		return 2
	}
}

// EncodeWord renders a single word (no spaces) into per-symbol patterns.
func EncodeWord(word string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(word))
	for _, r := range word {
		p, ok := PatternFor(r)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, r)
		}
		out = append(out, p)
	}
	return out, nil
}

// EncodeText renders text into words of per-symbol patterns.
// Runs of whitespace separate words.
func EncodeText(text string) ([][]Pattern, error) {
	fields := strings.Fields(text)
	out := make([][]Pattern, 0, len(fields))
	for _, word := range fields {
		w, err := EncodeWord(word)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
