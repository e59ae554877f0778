package verifier

var freeProviders = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"yahoo.com":      {},
	"outlook.com":    {},
	"hotmail.com":    {},
	"live.com":       {},
	"aol.com":        {},
	"protonmail.com": {},
	"proton.me":      {},
	"icloud.com":     {},
	"mail.com":       {},
	"yandex.com":     {},
	"zoho.com":       {},
	"gmx.com":        {},
}

// typoDomains maps frequent misspellings to the provider meant.
var typoDomains = map[string]string{
	"gmai.com":      "gmail.com",
	"gmal.com":      "gmail.com",
	"gmail.co":      "gmail.com",
	"gmial.com":     "gmail.com",
	"gnail.com":     "gmail.com",
	"yaho.com":      "yahoo.com",
	"yahooo.com":    "yahoo.com",
	"hotmai.com":    "hotmail.com",
	"hotmal.com":    "hotmail.com",
	"outlok.com":    "outlook.com",
	"outloo.com":    "outlook.com",
	"iclod.com":     "icloud.com",
	"protonmal.com": "protonmail.com",
}

// IsFreeProvider reports whether domain belongs to a consumer mailbox
// provider.
func IsFreeProvider(domain string) bool {
	_, ok := freeProviders[Normalize(domain)]
	return ok
}

// SuggestAddress returns the address with a corrected domain when the domain
// is a known misspelling, or "".
func SuggestAddress(addr Address) string {
	fixed, ok := typoDomains[addr.Domain]
	if !ok {
		return ""
	}
	return addr.LocalPart + "@" + fixed
}
