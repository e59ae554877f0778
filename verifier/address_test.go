package verifier

import (
	"strings"
	"testing"
)

func TestIsValidFormat(t *testing.T) {
	testCases := []struct {
		raw  string
		want bool
	}{
		{"user@domain.com", true},
		{"  User.Name@Example.COM ", true},
		{"first.last+tag@sub.example.co.uk", true},
		{"a_b-c&d*e@example.io", true},
		{"", false},
		{"   ", false},
		{"not-an-email", false},
		{"user@@double.com", false},
		{"a@b", false},
		{"user@domain.c", false},
		{"user@domain.c0m", false},
		{".user@domain.com", false},
		{"user.@domain.com", false},
		{"us..er@domain.com", false},
		{"user@-domain.com", false},
		{"user@domain-.com", false},
		{"user@mail.-sub.com", false},
		{"user@a-b.example.com", true},
		{"user@" + strings.Repeat("a", 63) + ".com", true},
		{"user@" + strings.Repeat("a", 64) + ".com", false},
		{"user name@domain.com", false},
		{"user@domain..com", false},
		{"@domain.com", false},
		{"user@", false},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			if got := IsValidFormat(tc.raw); got != tc.want {
				t.Errorf("IsValidFormat(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseAddress(t *testing.T) {
	addr, ok := ParseAddress("  John.Doe@Example.ORG")
	if !ok {
		t.Fatal("expected address to parse")
	}
	if addr.Email != "john.doe@example.org" {
		t.Errorf("Email = %q", addr.Email)
	}
	if addr.LocalPart != "john.doe" {
		t.Errorf("LocalPart = %q", addr.LocalPart)
	}
	if addr.Domain != "example.org" {
		t.Errorf("Domain = %q", addr.Domain)
	}

	long := make([]byte, 250)
	for i := range long {
		long[i] = 'a'
	}
	if _, ok := ParseAddress(string(long) + "@example.com"); ok {
		t.Error("expected over-long address to be rejected")
	}
}
