package verifier

import (
	"bufio"
	"io"
	"strings"
)

// DisposableFilter flags addresses whose domain is on a block-list of
// throwaway mail providers. Matching is exact: mail.tempmail.com does not
// match tempmail.com. The set is frozen at construction and safe for
// concurrent readers.
type DisposableFilter struct {
	domains map[string]struct{}
}

// NewDisposableFilter builds a filter from domains, lower-casing and trimming
// each entry. Blank entries and lines starting with '#' are ignored.
func NewDisposableFilter(domains ...[]string) *DisposableFilter {
	f := &DisposableFilter{domains: make(map[string]struct{})}
	for _, list := range domains {
		for _, d := range list {
			d = strings.ToLower(strings.TrimSpace(d))
			if d == "" || strings.HasPrefix(d, "#") {
				continue
			}
			f.domains[d] = struct{}{}
		}
	}
	return f
}

// DefaultDisposableDomains returns the built-in block-list.
func DefaultDisposableDomains() []string {
	return strings.Fields(defaultDisposableDomains)
}

// ReadDomainList reads one domain per line from r.
func ReadDomainList(r io.Reader) ([]string, error) {
	var domains []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains = append(domains, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return domains, nil
}

// IsDisposable reports whether the domain of raw is on the block-list. An
// input without "@" is not flagged.
func (f *DisposableFilter) IsDisposable(raw string) bool {
	domain := domainOf(raw)
	if domain == "" {
		return false
	}
	return f.IsDisposableDomain(domain)
}

// IsDisposableDomain is IsDisposable for a bare domain.
func (f *DisposableFilter) IsDisposableDomain(domain string) bool {
	_, ok := f.domains[strings.ToLower(strings.TrimSpace(domain))]
	return ok
}

// Len returns the number of blocked domains.
func (f *DisposableFilter) Len() int {
	return len(f.domains)
}
