// internal/probe/probe.go
//
// Read-only DNS/HTTP/TLS health probe.
//
// Context
// -------
// The probe answers one question: does this tenant's provisioning *look*
// complete from the outside?  Its booleans are consumed by the status
// endpoint to decide whether a retry should be offered; nothing here
// mutates anything, and a probe failure is a finding, not an error.
//
// Each sub-check is independent: a domain can resolve but serve no HTTP,
// or serve HTTP with a broken certificate.
package probe

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// Report is the probe's output contract.
type Report struct {
	Domain        string    `json:"domain"`
	DNSResolves   bool      `json:"dns_resolves"`
	ResolvedAddrs []string  `json:"resolved_addrs,omitempty"`
	HTTPReachable bool      `json:"http_reachable"`
	HTTPStatus    int       `json:"http_status,omitempty"`
	TLSValid      bool      `json:"tls_valid"`
	TLSExpiry     time.Time `json:"tls_expiry,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// Healthy is the summary verdict the status endpoint keys off.
func (r Report) Healthy() bool {
	return r.DNSResolves && r.HTTPReachable && r.TLSValid
}

// Prober runs the checks with bounded timeouts.  Zero value is unusable;
// construct with New.
type Prober struct {
	resolver *net.Resolver
	client   *http.Client
	timeout  time.Duration
}

// New returns a Prober with a per-check timeout.
func New(timeout time.Duration) *Prober {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Prober{
		resolver: net.DefaultResolver,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse // a redirect is still "reachable"
			},
		},
		timeout: timeout,
	}
}

// Check runs all three probes against a domain.
func (p *Prober) Check(ctx context.Context, domain string) Report {
	rep := Report{Domain: domain, CheckedAt: time.Now().UTC()}

	dnsCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if addrs, err := p.resolver.LookupHost(dnsCtx, domain); err == nil && len(addrs) > 0 {
		rep.DNSResolves = true
		rep.ResolvedAddrs = addrs
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+domain+"/", nil)
	if err == nil {
		if resp, err := p.client.Do(req); err == nil {
			resp.Body.Close()
			rep.HTTPReachable = true
			rep.HTTPStatus = resp.StatusCode
		}
	}

	p.checkTLS(ctx, domain, &rep)
	return rep
}

// checkTLS performs a handshake and records certificate validity.
func (p *Prober) checkTLS(ctx context.Context, domain string, rep *Report) {
	dialer := &net.Dialer{Timeout: p.timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", domain+":443", &tls.Config{
		ServerName: domain,
	})
	if err != nil {
		return
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return
	}
	leaf := certs[0]
	now := time.Now()
	if now.After(leaf.NotBefore) && now.Before(leaf.NotAfter) {
		rep.TLSValid = true
		rep.TLSExpiry = leaf.NotAfter
	}
	_ = ctx // handshake timeout is carried by the dialer
}
