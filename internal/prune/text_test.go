package prune

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFitKeepsShortText(t *testing.T) {
	t.Parallel()

	s := "line one\nline two"
	if got := Fit(s, Budget{MaxBytes: 100, MaxLines: 10}); got != s {
		t.Fatalf("Fit changed short text: %q", got)
	}
}

func TestFitKeepsHeadAndTail(t *testing.T) {
	t.Parallel()

	s := "START " + strings.Repeat("中间内容", 500) + " END"
	got := Fit(s, Budget{MaxBytes: 400, MaxLines: 50})
	if len(got) > 400 {
		t.Fatalf("len = %d, want <= 400", len(got))
	}
	if !strings.HasPrefix(got, "START ") || !strings.HasSuffix(got, " END") {
		t.Fatalf("head or tail lost: %q", got)
	}
	if !strings.Contains(got, DefaultMarker) {
		t.Fatalf("marker missing: %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatal("result is not valid UTF-8")
	}
}

func TestFitLineBudget(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("row\n")
	}
	b.WriteString("last")
	got := Fit(b.String(), Budget{MaxBytes: 1 << 20, MaxLines: 20})
	if n := CountLines(got); n > 20 {
		t.Fatalf("lines = %d, want <= 20", n)
	}
	if !strings.HasSuffix(got, "last") {
		t.Fatalf("tail lost: %q", got)
	}
}

func TestFitTinyBudget(t *testing.T) {
	t.Parallel()

	got := Fit(strings.Repeat("x", 100), Budget{MaxBytes: 10, MaxLines: 2})
	if got != strings.Repeat("x", 10) {
		t.Fatalf("Fit = %q", got)
	}
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	cases := map[string]int{"": 0, "a": 1, "a\nb": 2, "a\n": 2}
	for in, want := range cases {
		if got := CountLines(in); got != want {
			t.Fatalf("CountLines(%q) = %d, want %d", in, got, want)
		}
	}
}
