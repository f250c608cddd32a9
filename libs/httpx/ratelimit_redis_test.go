package httpx

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCallerKey(t *testing.T) {
	anon := httptest.NewRequest("GET", "/api/v1/slots", nil)
	anon.RemoteAddr = "203.0.113.7:51423"
	if got := callerKey(anon); got != "ip:203.0.113.7" {
		t.Fatalf("anonymous caller keyed as %q", got)
	}

	a := httptest.NewRequest("GET", "/api/v1/slots", nil)
	a.RemoteAddr = "203.0.113.7:51423"
	a.Header.Set("Authorization", "Bearer token-a")
	b := httptest.NewRequest("GET", "/api/v1/slots", nil)
	b.RemoteAddr = "203.0.113.7:51424"
	b.Header.Set("Authorization", "Bearer token-b")

	keyA, keyB := callerKey(a), callerKey(b)
	if !strings.HasPrefix(keyA, "tok:") || !strings.HasPrefix(keyB, "tok:") {
		t.Fatalf("authenticated callers not token-keyed: %q %q", keyA, keyB)
	}
	// Two clients behind the same address get independent windows.
	if keyA == keyB {
		t.Fatalf("distinct tokens share key %q", keyA)
	}
	if keyA != callerKey(a) {
		t.Fatal("caller key not stable for the same token")
	}
	// The raw token never appears in the key.
	if strings.Contains(keyA, "token-a") {
		t.Fatalf("token leaked into key %q", keyA)
	}
}
