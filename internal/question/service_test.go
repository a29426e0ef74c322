package question

import (
	"errors"
	"testing"
)

func TestNormalizeChoices(t *testing.T) {
	tests := []struct {
		name    string
		choices []string
		wantErr error
	}{
		{name: "exactly four", choices: []string{"a", "b", "c", "d"}},
		{name: "trims whitespace", choices: []string{" a ", "b", "c", "d"}},
		{name: "too few", choices: []string{"a", "b", "c"}, wantErr: ErrChoiceCount},
		{name: "too many", choices: []string{"a", "b", "c", "d", "e"}, wantErr: ErrChoiceCount},
		{name: "nil", choices: nil, wantErr: ErrChoiceCount},
		{name: "blank choice", choices: []string{"a", "  ", "c", "d"}, wantErr: ErrChoiceCount},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizeChoices(tc.choices)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr == nil && len(got) != 4 {
				t.Fatalf("expected 4 choices, got %d", len(got))
			}
		})
	}

	got, err := normalizeChoices([]string{" x ", "y", "z", "w"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != "x" {
		t.Fatalf("expected trimmed choice, got %q", got[0])
	}
}

func TestNormalizeCorrectChoice(t *testing.T) {
	for _, symbol := range []string{"A", "B", "C", "D", " C "} {
		got, err := normalizeCorrectChoice(symbol)
		if err != nil {
			t.Fatalf("symbol %q: unexpected error %v", symbol, err)
		}
		if len(got) != 1 {
			t.Fatalf("symbol %q: unexpected result %q", symbol, got)
		}
	}

	for _, symbol := range []string{"", "E", "a", "AB", "1"} {
		if _, err := normalizeCorrectChoice(symbol); !errors.Is(err, ErrUnknownSymbol) {
			t.Fatalf("symbol %q: expected ErrUnknownSymbol, got %v", symbol, err)
		}
	}
}
