package verifier

import (
	"regexp"
	"strings"
)

// maxAddressLength is the RFC 5321 path limit minus the angle brackets.
const maxAddressLength = 254

// emailRegex is matched against the trimmed, lower-cased address. The local
// part is one or more dot separated runs of letters, digits and _+&*-. The
// domain is one or more labels of at most 63 octets that neither start nor
// end with a hyphen, followed by an alphabetic suffix of at least two letters.
var emailRegex = regexp.MustCompile(`^[a-z0-9_+&*-]+(?:\.[a-z0-9_+&*-]+)*@(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

// Address is an email address split into its parts.
type Address struct {
	Email     string `json:"email"`
	LocalPart string `json:"local_part"`
	Domain    string `json:"domain"`
}

// Normalize trims and lower-cases raw.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsValidFormat reports whether raw is a syntactically acceptable address.
// It never panics and performs no I/O.
func IsValidFormat(raw string) bool {
	_, ok := ParseAddress(raw)
	return ok
}

// ParseAddress normalises raw and splits it when it passes the grammar.
func ParseAddress(raw string) (Address, bool) {
	email := Normalize(raw)
	if email == "" || len(email) > maxAddressLength {
		return Address{}, false
	}
	if !emailRegex.MatchString(email) {
		return Address{}, false
	}

	at := strings.LastIndex(email, "@")
	return Address{
		Email:     email,
		LocalPart: email[:at],
		Domain:    email[at+1:],
	}, true
}

// domainOf returns the lower-cased text after the last "@", or "" when raw
// has no "@".
func domainOf(raw string) string {
	email := Normalize(raw)
	at := strings.LastIndex(email, "@")
	if at == -1 {
		return ""
	}
	return email[at+1:]
}
