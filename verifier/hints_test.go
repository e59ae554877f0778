package verifier

import "testing"

func TestSuggestAddress(t *testing.T) {
	testCases := []struct {
		raw  string
		want string
	}{
		{"jane@gmai.com", "jane@gmail.com"},
		{"Jane@Hotmai.com", "jane@hotmail.com"},
		{"jane@gmail.com", ""},
		{"jane@example.org", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			addr, ok := ParseAddress(tc.raw)
			if !ok {
				t.Fatalf("ParseAddress(%q) failed", tc.raw)
			}
			if got := SuggestAddress(addr); got != tc.want {
				t.Errorf("SuggestAddress(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestHintsDoNotChangeVerdict(t *testing.T) {
	v := newTestVerifier(t, &staticResolver{}, closedPort(t))

	res := v.QuickCheck("jane@gmai.com")
	if !res.IsValid {
		t.Fatalf("a typo hint must not reject the address: %+v", res)
	}
	if res.Diagnostics.Suggestion != "jane@gmail.com" {
		t.Errorf("Suggestion = %q", res.Diagnostics.Suggestion)
	}

	if res := v.QuickCheck("jane@GMAIL.com"); !res.Diagnostics.FreeProvider {
		t.Error("expected gmail.com to be flagged as a free provider")
	}
}
