package player

import (
	"testing"
	"time"
)

func TestClassifyPosition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want PositionClass
	}{
		{raw: "G", want: ClassGoalie},
		{raw: "g", want: ClassGoalie},
		{raw: "D", want: ClassDefense},
		{raw: "LD", want: ClassDefense},
		{raw: "RD", want: ClassDefense},
		{raw: "C", want: ClassForward},
		{raw: "LW", want: ClassForward},
		{raw: "RW", want: ClassForward},
		{raw: "F", want: ClassForward},
		{raw: "", want: ClassForward},
	}

	for _, tc := range cases {
		if got := ClassifyPosition(tc.raw); got != tc.want {
			t.Fatalf("unexpected class for %q: got=%q want=%q", tc.raw, got, tc.want)
		}
	}
}

func TestNaturalKey(t *testing.T) {
	t.Parallel()

	birth := time.Date(1991, 7, 12, 0, 0, 0, 0, time.UTC)

	got := NaturalKey("  Hilary ", "Knight ", &birth)
	want := "hilary knight|1991-07-12"
	if got != want {
		t.Fatalf("unexpected natural key: got=%q want=%q", got, want)
	}

	// Without a birth date the key is name-only; callers flag it low
	// confidence.
	if got := NaturalKey("Hilary", "Knight", nil); got != "hilary knight" {
		t.Fatalf("unexpected name-only key: got=%q", got)
	}

	a := NaturalKey("HILARY", "KNIGHT", &birth)
	b := NaturalKey("hilary", "knight", &birth)
	if a != b {
		t.Fatalf("natural key must be case-insensitive: %q vs %q", a, b)
	}
}
