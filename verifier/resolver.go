package verifier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/idna"
)

const (
	resolvConfPath     = "/etc/resolv.conf"
	fallbackNameserver = "8.8.8.8:53"
	defaultDNSTimeout  = 3 * time.Second
)

// MXRecord is one mail exchanger. Lower Priority is preferred.
type MXRecord struct {
	Priority uint16 `json:"priority"`
	Host     string `json:"host"`
}

// MXResolver looks up the mail exchangers of a domain. Lookup returns a
// non-nil error whenever it returns no records.
type MXResolver interface {
	Lookup(ctx context.Context, domain string) ([]MXRecord, error)
}

// DomainResolver sends a single MX query per lookup to one nameserver, bounded
// by an explicit timeout.
type DomainResolver struct {
	server  string
	timeout time.Duration
	udp     *dns.Client
	tcp     *dns.Client
	log     logrus.FieldLogger
}

// NewDomainResolver queries server (host:port). An empty server means the
// first nameserver of /etc/resolv.conf.
func NewDomainResolver(server string, timeout time.Duration, log logrus.FieldLogger) *DomainResolver {
	if server == "" {
		server = DefaultNameserver()
	}
	if timeout <= 0 {
		timeout = defaultDNSTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DomainResolver{
		server:  server,
		timeout: timeout,
		udp:     &dns.Client{Net: "udp", Timeout: timeout},
		tcp:     &dns.Client{Net: "tcp", Timeout: timeout},
		log:     log,
	}
}

// DefaultNameserver returns the first nameserver of the system resolver
// configuration, or a public fallback.
func DefaultNameserver() string {
	conf, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil || len(conf.Servers) == 0 {
		return fallbackNameserver
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port)
}

// Lookup queries the MX records of domain. Records keep the order of the
// answer section, with the trailing root dot stripped from each host. A null
// MX ("0 .") is not a usable exchanger and is dropped.
func (r *DomainResolver) Lookup(ctx context.Context, domain string) ([]MXRecord, error) {
	name, err := toASCII(domain)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeMX)

	in, _, err := r.udp.ExchangeContext(ctx, msg, r.server)
	if err == nil && in.Truncated {
		in, _, err = r.tcp.ExchangeContext(ctx, msg, r.server)
	}
	if err != nil {
		return nil, fmt.Errorf("mx query %s via %s: %w", name, r.server, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, fmt.Errorf("mx query %s: %w", name, ErrNXDomain)
	default:
		return nil, fmt.Errorf("mx query %s: server answered %s", name, dns.RcodeToString[in.Rcode])
	}

	records := make([]MXRecord, 0, len(in.Answer))
	for _, rr := range in.Answer {
		mx, ok := rr.(*dns.MX)
		if !ok {
			continue
		}
		host := strings.TrimSuffix(mx.Mx, ".")
		if host == "" {
			continue
		}
		records = append(records, MXRecord{Priority: mx.Preference, Host: host})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("mx query %s: %w", name, ErrNoUsableExchanger)
	}
	return records, nil
}

// ResolveMX is Lookup with every failure collapsed to an empty list. The
// failure reason is logged.
func (r *DomainResolver) ResolveMX(ctx context.Context, domain string) []MXRecord {
	records, err := r.Lookup(ctx, domain)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"domain": domain,
			"server": r.server,
		}).WithError(err).Info("mx resolution failed")
		return nil
	}
	return records
}

// HasMXRecord reports whether domain has at least one usable exchanger.
func (r *DomainResolver) HasMXRecord(ctx context.Context, domain string) bool {
	return len(r.ResolveMX(ctx, domain)) > 0
}

// PreferredMX returns the record with the lowest priority number. Ties keep
// the earlier record.
func PreferredMX(records []MXRecord) (MXRecord, bool) {
	if len(records) == 0 {
		return MXRecord{}, false
	}
	best := records[0]
	for _, rec := range records[1:] {
		if rec.Priority < best.Priority {
			best = rec
		}
	}
	return best, true
}

func toASCII(domain string) (string, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if name == "" {
		return "", errors.New("empty domain")
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("invalid domain %q: %w", domain, err)
	}
	return ascii, nil
}
