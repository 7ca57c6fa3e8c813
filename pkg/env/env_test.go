package env

import "testing"

func TestGetPrefersPrefixedKey(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("ANGELS_LOG_FORMAT", "json")
	if got := Get("LOG_FORMAT", "text"); got != "json" {
		t.Fatalf("expected prefixed value, got %q", got)
	}
}

func TestGetFallsBack(t *testing.T) {
	t.Setenv("ANGELS_MISSING_KEY", "")
	t.Setenv("MISSING_KEY", "")
	if got := Get("MISSING_KEY", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestInstanceIDOrder(t *testing.T) {
	t.Setenv("WORKER_ID", "")
	t.Setenv("K_REVISION", "api-00042")
	t.Setenv("DYNO", "web.1")
	if got := InstanceID(); got != "api-00042" {
		t.Fatalf("expected cloud run revision, got %q", got)
	}
}
