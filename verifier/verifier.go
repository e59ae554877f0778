// Package verifier decides whether an email address is worth accepting by
// running increasingly expensive checks: syntax, disposable domain, DNS MX
// and an optional SMTP mailbox probe. Every expected failure is reported as a
// negative Result, never as an error.
package verifier

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Config is read once at construction. The Verifier keeps no mutable state,
// so one instance may serve any number of concurrent calls.
type Config struct {
	// DisposableDomains are blocked in addition to the built-in list.
	DisposableDomains []string
	// SkipDefaultDisposable drops the built-in list.
	SkipDefaultDisposable bool

	// DNSServer is host:port; empty means the system resolver's first server.
	DNSServer  string
	DNSTimeout time.Duration

	SMTP ProbeConfig

	Logger logrus.FieldLogger
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		DNSTimeout: defaultDNSTimeout,
		SMTP: ProbeConfig{
			Port:           defaultSMTPPort,
			HeloName:       defaultHeloName,
			MailFrom:       defaultMailFrom,
			ConnectTimeout: defaultConnectTimeout,
			ReadTimeout:    defaultReadTimeout,
			TotalTimeout:   defaultTotalTimeout,
		},
	}
}

// Option customises a Verifier beyond Config.
type Option func(*Verifier)

// WithResolver replaces the DNS resolver used by the MX and SMTP stages.
func WithResolver(r MXResolver) Option {
	return func(v *Verifier) {
		v.resolver = r
	}
}

// Verifier runs the verification pipeline.
type Verifier struct {
	disposable *DisposableFilter
	resolver   MXResolver
	probe      *MailboxProbe
	log        logrus.FieldLogger
}

// New builds a Verifier from cfg.
func New(cfg Config, opts ...Option) (*Verifier, error) {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	lists := [][]string{cfg.DisposableDomains}
	if !cfg.SkipDefaultDisposable {
		lists = append(lists, DefaultDisposableDomains())
	}

	v := &Verifier{
		disposable: NewDisposableFilter(lists...),
		log:        log,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.resolver == nil {
		v.resolver = NewDomainResolver(cfg.DNSServer, cfg.DNSTimeout, log)
	}

	probe, err := NewMailboxProbe(v.resolver, cfg.SMTP, log)
	if err != nil {
		return nil, err
	}
	v.probe = probe
	return v, nil
}

// Disposable exposes the block-list filter.
func (v *Verifier) Disposable() *DisposableFilter { return v.disposable }

// QuickCheck runs the format and disposable-domain stages. It does no I/O.
func (v *Verifier) QuickCheck(email string) *Result {
	return v.Verify(context.Background(), email, DepthQuick)
}

// FullVerify adds the MX stage to QuickCheck.
func (v *Verifier) FullVerify(ctx context.Context, email string) *Result {
	return v.Verify(ctx, email, DepthFull)
}

// DeepVerify adds the SMTP mailbox probe to FullVerify. It can take several
// seconds and its verdict is heuristic; reserve it for operator-triggered
// checks rather than bulk flows.
func (v *Verifier) DeepVerify(ctx context.Context, email string) *Result {
	return v.Verify(ctx, email, DepthDeep)
}

// Verify runs stages in order up to depth and stops at the first failure.
// Stages that did not run stay FlagUnknown.
func (v *Verifier) Verify(ctx context.Context, email string, depth Depth) *Result {
	start := time.Now()
	p := &pipeline{
		v:   v,
		ctx: ctx,
		res: &Result{
			Email:     Normalize(email),
			Depth:     depth,
			MXRecords: []MXRecord{},
		},
	}
	if depth == DepthDeep {
		p.res.Caveat = HeuristicCaveat
	}

	last := depth.lastStage()
	for stage := StageFormat; ; stage++ {
		p.res.ReachedStage = stage
		if err := p.step(stage); err != nil {
			p.fail(stage, err)
			break
		}
		if stage == last {
			p.res.IsValid = true
			p.res.Reason = successReason(depth)
			break
		}
	}

	p.res.Diagnostics.DurationMS = time.Since(start).Milliseconds()
	return p.res
}

func successReason(depth Depth) string {
	switch depth {
	case DepthQuick:
		return "email format valid and domain not disposable"
	case DepthFull:
		return "email domain can receive mail"
	default:
		return "mailbox accepted by mail server"
	}
}

// pipeline carries the state of one Verify call.
type pipeline struct {
	v    *Verifier
	ctx  context.Context
	res  *Result
	addr Address
}

func (p *pipeline) step(stage Stage) error {
	switch stage {
	case StageFormat:
		addr, ok := ParseAddress(p.res.Email)
		p.res.ValidFormat = ok
		if !ok {
			return &stageError{err: ErrFormat}
		}
		p.addr = addr
		p.res.Diagnostics.FreeProvider = IsFreeProvider(addr.Domain)
		p.res.Diagnostics.Suggestion = SuggestAddress(addr)

	case StageDisposable:
		disposable := p.v.disposable.IsDisposable(p.addr.Email)
		p.res.IsDisposable = flagOf(disposable)
		if disposable {
			return &stageError{err: ErrDisposableDomain, detail: p.addr.Domain}
		}

	case StageMX:
		records, err := p.v.resolver.Lookup(p.ctx, p.addr.Domain)
		if err != nil {
			p.res.Diagnostics.MXError = err.Error()
			records = nil
		}
		if len(records) > 0 {
			p.res.MXRecords = records
		}
		p.res.HasMX = flagOf(len(records) > 0)
		if len(records) == 0 {
			if err == nil {
				err = ErrNoUsableExchanger
			}
			return &stageError{err: ErrNoMXRecord, detail: err.Error()}
		}

	case StageSMTP:
		probe := p.v.probe.ProbeHost(p.ctx, p.res.MXRecords[0].Host, p.addr.Email)
		d := &p.res.Diagnostics
		d.SMTPHost = probe.Host
		d.SMTPState = probe.State
		d.SMTPCode = probe.Code
		d.SMTPReply = probe.Reply
		if probe.Err != nil {
			d.SMTPError = probe.Err.Error()
		}
		p.res.SMTPVerified = flagOf(probe.Verified)
		if !probe.Verified {
			detail := d.SMTPError
			if detail == "" {
				detail = probe.Reply
			}
			return &stageError{err: ErrSMTPVerification, detail: detail}
		}

	default:
		return errors.New("verifier: stage out of range")
	}
	return nil
}

func (p *pipeline) fail(stage Stage, err error) {
	p.res.IsValid = false
	p.res.err = err
	var se *stageError
	if errors.As(err, &se) {
		p.res.Reason = se.err.Error()
	} else {
		p.res.Reason = err.Error()
	}
	p.v.log.WithFields(logrus.Fields{
		"email": p.res.Email,
		"stage": stage.String(),
		"depth": p.res.Depth.String(),
	}).WithError(err).Info("email verification failed")
}
