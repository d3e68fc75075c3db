package qso

import (
	"strings"
	"testing"
)

func TestMatch_Tokens(t *testing.T) {
	const expected = "G4XYZ DE K1ABC TNX 73 SK"
	required := []string{"G4XYZ", "DE", "K1ABC"}

	tests := []struct {
		name    string
		actual  string
		correct bool
		missing string
	}{
		{"exact", "G4XYZ DE K1ABC TNX 73 SK", true, ""},
		{"optional filler dropped", "G4XYZ DE K1ABC", true, ""},
		{"lower case and spacing", "  g4xyz   de k1abc sk ", true, ""},
		{"extra filler", "R R G4XYZ DE K1ABC GL ES 73", true, ""},
		{"missing own call", "G4XYZ DE SK", false, "K1ABC"},
		{"out of order", "K1ABC DE G4XYZ", false, "DE K1ABC"},
		{"partial token", "G4XY DE K1ABC", false, "G4XYZ"},
		{"empty", "", false, "G4XYZ DE K1ABC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Match(expected, required, tt.actual)
			if res.Correct != tt.correct {
				t.Errorf("Correct = %v, want %v (missing %v)", res.Correct, tt.correct, res.Missing)
			}
			if got := strings.Join(res.Missing, " "); got != tt.missing {
				t.Errorf("Missing = %q, want %q", got, tt.missing)
			}
			if res.Expected != expected {
				t.Errorf("Expected = %q", res.Expected)
			}
			if !tt.correct && !strings.Contains(res.Hint, expected) {
				t.Errorf("Hint = %q, want it to contain the expected line", res.Hint)
			}
		})
	}
}

func TestMatch_CutNumbers(t *testing.T) {
	tests := []struct {
		actual  string
		correct bool
	}{
		{"UR 599", true},
		{"UR 5NN", true},
		{"UR ENN", true},
		{"UR 59N", true},
		{"UR 579", false},
		{"UR 5N", false},
		{"UR 5XN", false},
	}

	for _, tt := range tests {
		t.Run(tt.actual, func(t *testing.T) {
			res := Match("UR 599", []string{"UR", "599"}, tt.actual)
			if res.Correct != tt.correct {
				t.Errorf("Match(%q).Correct = %v, want %v", tt.actual, res.Correct, tt.correct)
			}
		})
	}
}

func TestMatch_CutNumbersOnlyForDigits(t *testing.T) {
	// Letters in a required callsign are never reinterpreted.
	if res := Match("N1T", []string{"N1T"}, "910"); res.Correct {
		t.Error("cut numbers applied to a non-numeric token")
	}
}

func TestMatch_AllTokensWhenNoRequired(t *testing.T) {
	if res := Match("TU 599 OHIO", nil, "TU 599 OHIO"); !res.Correct {
		t.Errorf("full line rejected: %+v", res)
	}
	res := Match("TU 599 OHIO", nil, "599 OHIO")
	if res.Correct {
		t.Error("missing token accepted")
	}
	if strings.Join(res.Missing, " ") != "TU" {
		t.Errorf("Missing = %v, want [TU]", res.Missing)
	}
}
