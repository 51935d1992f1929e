package env

import "testing"

func TestGetFallsBack(t *testing.T) {
	t.Setenv("GYMDESK_TEST_EMPTY", "  ")
	if got := Get("GYMDESK_TEST_EMPTY", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("GYMDESK_TEST_SET", "value")
	if got := Get("GYMDESK_TEST_SET", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	t.Setenv("GYMDESK_TEST_A", "")
	t.Setenv("GYMDESK_TEST_B", "8080")
	if got := FirstNonEmpty("3000", "GYMDESK_TEST_A", "GYMDESK_TEST_B"); got != "8080" {
		t.Fatalf("expected 8080, got %q", got)
	}
	if got := FirstNonEmpty("3000", "GYMDESK_TEST_A"); got != "3000" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
