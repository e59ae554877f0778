package verifier

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// startDNS serves zone (fqdn -> MX RR strings) on a loopback UDP port. Names
// listed in nxdomain answer NXDOMAIN, names in silent get no reply at all.
func startDNS(t *testing.T, zone map[string][]string, nxdomain, silent []string) string {
	t.Helper()

	isIn := func(list []string, name string) bool {
		for _, n := range list {
			if dns.Fqdn(n) == name {
				return true
			}
		}
		return false
	}

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		q := req.Question[0]
		if isIn(silent, q.Name) {
			return
		}
		m := new(dns.Msg)
		m.SetReply(req)
		if isIn(nxdomain, q.Name) {
			m.SetRcode(req, dns.RcodeNameError)
			_ = w.WriteMsg(m)
			return
		}
		for _, s := range zone[q.Name] {
			rr, err := dns.NewRR(s)
			if err != nil {
				t.Errorf("bad test RR %q: %v", s, err)
				continue
			}
			m.Answer = append(m.Answer, rr)
		}
		_ = w.WriteMsg(m)
	})

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

// fakeMX is an SMTP backend that accepts only the listed recipients.
type fakeMX struct {
	mu         sync.Mutex
	mailboxes  map[string]bool
	rejectFrom bool
	rcpts      []string
}

func (b *fakeMX) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &fakeSession{b: b}, nil
}

type fakeSession struct {
	b *fakeMX
}

func (s *fakeSession) Mail(from string, _ *smtp.MailOptions) error {
	if s.b.rejectFrom {
		return &smtp.SMTPError{Code: 550, EnhancedCode: smtp.EnhancedCode{5, 7, 1}, Message: "sender rejected"}
	}
	return nil
}

func (s *fakeSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.b.mu.Lock()
	s.b.rcpts = append(s.b.rcpts, to)
	s.b.mu.Unlock()
	if s.b.mailboxes[strings.ToLower(to)] {
		return nil
	}
	return &smtp.SMTPError{Code: 550, EnhancedCode: smtp.EnhancedCode{5, 1, 1}, Message: "no such user"}
}

func (s *fakeSession) Data(r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func (s *fakeSession) Reset() {}

func (s *fakeSession) Logout() error { return nil }

func (b *fakeMX) recipients() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.rcpts...)
}

// startSMTP runs backend on a loopback port and returns the port.
func startSMTP(t *testing.T, backend *fakeMX) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen tcp: %v", err)
	}
	srv := smtp.NewServer(backend)
	srv.Domain = "mx.example.test"
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })
	return ln.Addr().(*net.TCPAddr).Port
}

// startSilent accepts connections and never writes a byte.
func startSilent(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen tcp: %v", err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().(*net.TCPAddr).Port
}

// scriptedMX serves a single connection. It sends greeting, answers each
// command line with the next reply and stays silent once replies run out.
// Every line read is recorded, and the transcript ends with "EOF" when the
// client hangs up.
type scriptedMX struct {
	mu    sync.Mutex
	lines []string
	done  chan struct{}
}

func startScripted(t *testing.T, greeting string, replies ...string) (int, *scriptedMX) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen tcp: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	mx := &scriptedMX{done: make(chan struct{})}
	go func() {
		defer close(mx.done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

		if greeting != "" {
			fmt.Fprintf(conn, "%s\r\n", greeting)
		}
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				if errors.Is(err, io.EOF) {
					mx.record("EOF")
				} else {
					mx.record("ERR:" + err.Error())
				}
				return
			}
			mx.record(strings.TrimRight(line, "\r\n"))
			if len(replies) > 0 {
				fmt.Fprintf(conn, "%s\r\n", replies[0])
				replies = replies[1:]
			}
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port, mx
}

func (m *scriptedMX) record(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, line)
}

// transcript waits for the client to hang up and returns what it sent.
func (m *scriptedMX) transcript(t *testing.T) []string {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(3 * time.Second):
		t.Fatal("connection was not released")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

// closedPort returns a loopback port with nothing listening.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen tcp: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

// staticResolver answers every lookup from a map, counting calls.
type staticResolver struct {
	mu      sync.Mutex
	records map[string][]MXRecord
	calls   int
}

func (r *staticResolver) Lookup(_ context.Context, domain string) ([]MXRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	recs, ok := r.records[domain]
	if !ok || len(recs) == 0 {
		return nil, ErrNXDomain
	}
	return recs, nil
}

func (r *staticResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
