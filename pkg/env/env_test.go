package env

import "testing"

func TestGetFallsBack(t *testing.T) {
	t.Setenv("PORT", "")
	if got := Get("PORT", "8080"); got != "8080" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("PORT", "5000")
	if got := Get("PORT", "8080"); got != "5000" {
		t.Fatalf("expected platform port, got %q", got)
	}
}

func TestFirstOfOrder(t *testing.T) {
	t.Setenv("A_FIRST", "  ")
	t.Setenv("A_SECOND", "two")
	t.Setenv("A_THIRD", "three")
	if got := FirstOf("none", "A_FIRST", "A_SECOND", "A_THIRD"); got != "two" {
		t.Fatalf("expected first non-blank value, got %q", got)
	}
	if got := FirstOf("none"); got != "none" {
		t.Fatalf("expected fallback with no keys, got %q", got)
	}
}
