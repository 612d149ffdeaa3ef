package token

import "testing"

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("eyJhbGciOiJIUzI1NiJ9.e30.sig")
	if len(fp) != FingerprintLength {
		t.Errorf("Fingerprint() length = %d, want %d", len(fp), FingerprintLength)
	}
	if fp != Fingerprint("eyJhbGciOiJIUzI1NiJ9.e30.sig") {
		t.Error("Fingerprint() should be deterministic")
	}
	if fp == Fingerprint("other") {
		t.Error("different tokens should have different fingerprints")
	}
	if Fingerprint("") != "" {
		t.Error("empty token should have empty fingerprint")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"abc", "abc", true},
		{"abc", "abd", false},
		{"abc", "", false},
		{"", "", true},
	}
	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
