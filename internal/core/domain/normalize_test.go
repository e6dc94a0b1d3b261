package domain

import (
	"strings"
	"testing"
)

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"trims edges", "  hello world  ", "hello world"},
		{"collapses runs", "hello \t\n  world", "hello world"},
		{"preserves case and punctuation", "  Fed Raises Rates, Again!  ", "Fed Raises Rates, Again!"},
		{"single word", "headline", "headline"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in, 512)
			if err != nil {
				t.Fatalf("Normalize(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{"  a  b ", "Scientists discover water on Mars", "x\t\ty\nz"}
	for _, in := range inputs {
		once, err := Normalize(in, 512)
		if err != nil {
			t.Fatalf("Normalize(%q) error = %v", in, err)
		}
		twice, err := Normalize(once, 512)
		if err != nil {
			t.Fatalf("Normalize(Normalize(%q)) error = %v", in, err)
		}
		if once != twice {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeRejectsEmptyAndOversized(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		if _, err := Normalize(in, 512); !IsKind(err, ErrInvalidInput) {
			t.Fatalf("Normalize(%q): expected ErrInvalidInput, got %v", in, err)
		}
	}
	if _, err := Normalize(strings.Repeat("a", 513), 512); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for oversized text, got %v", err)
	}
	if _, err := Normalize(strings.Repeat("a", 512), 512); err != nil {
		t.Fatalf("text at the limit must pass, got %v", err)
	}
}

func TestFingerprintStableAndDistinct(t *testing.T) {
	a1 := Fingerprint("hello world")
	a2 := Fingerprint("hello world")
	b := Fingerprint("hello worlds")

	if a1 != a2 {
		t.Fatalf("equal inputs must produce equal fingerprints")
	}
	if a1 == b {
		t.Fatalf("distinct inputs must produce distinct fingerprints")
	}
	if len(a1) != 16 {
		t.Fatalf("fingerprint length = %d, want 16", len(a1))
	}
}

func TestFingerprintMatchesNormalizedEquivalence(t *testing.T) {
	n1, _ := Normalize("  breaking   news ", 512)
	n2, _ := Normalize("breaking news", 512)
	if Fingerprint(n1) != Fingerprint(n2) {
		t.Fatalf("texts with equal normalized form must share a fingerprint")
	}
}
