// internal/registrar/client.go
//
// Registrar API client: auth, transport, and call plumbing.
//
// Context
// -------
// Authentication exchanges reseller credentials for a bearer token via
// POST /auth/login.  The token is cached through the injected TokenCache
// until its TTL lapses.  When a call comes back with HTTP 401 or the
// registrar's own "auth expired" code, the cached token is invalidated,
// one fresh login is performed, and the original call is retried exactly
// once.  Never more: an auth loop against a registrar is a good way to
// get the reseller account rate-limited.
//
// Concurrent calls that all miss the cache are collapsed into a single
// login through singleflight.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package registrar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/musedock/provisioner/internal/metrics"
	"github.com/musedock/provisioner/internal/remote"
)

const provider = "registrar"

// LookupIPFunc resolves a hostname to one IPv4/IPv6 address.  Injected so
// glue-record tests run without real DNS.
type LookupIPFunc func(ctx context.Context, host string) (string, error)

// defaultLookupIP resolves via the system resolver and returns the first
// address.
func defaultLookupIP(ctx context.Context, host string) (string, error) {
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses for %s", host)
	}
	return addrs[0], nil
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	Mode     string // "sandbox" or "live", part of the token cache key
	Username string
	Password string
	TokenTTL time.Duration
	Timeout  time.Duration

	Cache    TokenCache   // required
	LookupIP LookupIPFunc // nil → system resolver
}

// Client talks to the registrar.  Safe for concurrent use.
type Client struct {
	c        *resty.Client
	opts     Options
	cacheKey string
	lookupIP LookupIPFunc
	sfg      singleflight.Group
	log      *zap.SugaredLogger
}

// New builds a Client.  The resty client carries the long registrar
// timeout; registry round-trips routinely take tens of seconds.
func New(opts Options, log *zap.SugaredLogger) *Client {
	if opts.LookupIP == nil {
		opts.LookupIP = defaultLookupIP
	}
	c := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{
		c:        c,
		opts:     opts,
		cacheKey: CacheKey(opts.Mode, opts.Username),
		lookupIP: opts.LookupIP,
		log:      log,
	}
}

//
// Auth
//

// token returns a cached bearer token or logs in for a fresh one.
func (cl *Client) token(ctx context.Context) (string, error) {
	if tok, ok := cl.opts.Cache.Get(ctx, cl.cacheKey); ok {
		return tok, nil
	}
	return cl.login(ctx)
}

// login performs POST /auth/login and caches the result.  Concurrent
// callers share one flight.
func (cl *Client) login(ctx context.Context) (string, error) {
	v, err, _ := cl.sfg.Do(cl.cacheKey, func() (any, error) {
		// Double-check after the singleflight barrier.
		if tok, ok := cl.opts.Cache.Get(ctx, cl.cacheKey); ok {
			return tok, nil
		}

		resp, err := cl.c.R().SetContext(ctx).
			SetBody(loginRequest{Username: cl.opts.Username, Password: cl.opts.Password}).
			Post("/auth/login")
		if err != nil {
			return "", remote.ConnErr(provider, "auth.login", err)
		}

		var env envelope
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return "", remote.AppErr(provider, "auth.login",
				fmt.Sprintf("malformed login response (HTTP %d)", resp.StatusCode()))
		}
		if env.Code != 0 {
			return "", remote.AppErr(provider, "auth.login", env.Message)
		}

		var lr loginResponse
		if err := json.Unmarshal(env.Data, &lr); err != nil || lr.Token == "" {
			return "", remote.AppErr(provider, "auth.login", "login response carried no token")
		}

		ttl := cl.opts.TokenTTL
		if lr.ExpiresIn > 0 {
			// Trust the registrar's horizon when it is shorter than ours.
			if reported := time.Duration(lr.ExpiresIn) * time.Second; reported < ttl {
				ttl = reported
			}
		}
		cl.opts.Cache.Set(ctx, cl.cacheKey, lr.Token, ttl)
		metrics.RegistrarAuthTotal.Inc()
		cl.log.Infow("registrar login", "mode", cl.opts.Mode, "ttl", ttl)
		return lr.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

//
// Call plumbing
//

// call performs one authenticated round trip, decoding the envelope into
// out (which may be nil).  On 401 or the registrar's auth-expired code it
// invalidates the token and retries the original call exactly once.
func (cl *Client) call(ctx context.Context, op, method, path string, body, out any) error {
	err := cl.doOnce(ctx, op, method, path, body, out)
	if err == nil || !isAuthExpired(err) {
		return err
	}

	cl.opts.Cache.Invalidate(ctx, cl.cacheKey)
	metrics.RegistrarAuthRetriesTotal.Inc()
	cl.log.Infow("registrar token expired, re-authenticating", "op", op)
	return cl.doOnce(ctx, op, method, path, body, out)
}

// errAuthExpired tags the one error class that triggers the single retry.
type authExpiredError struct{ cause error }

func (e *authExpiredError) Error() string { return e.cause.Error() }
func (e *authExpiredError) Unwrap() error { return e.cause }

func isAuthExpired(err error) bool {
	var ae *authExpiredError
	return errors.As(err, &ae)
}

func (cl *Client) doOnce(ctx context.Context, op, method, path string, body, out any) error {
	tok, err := cl.token(ctx)
	if err != nil {
		return err
	}

	req := cl.c.R().SetContext(ctx).SetAuthToken(tok)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return remote.ConnErr(provider, op, err)
	}

	if resp.StatusCode() == 401 {
		return &authExpiredError{cause: remote.AppErr(provider, op, "HTTP 401")}
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return remote.AppErr(provider, op,
			fmt.Sprintf("malformed response (HTTP %d): %v", resp.StatusCode(), err))
	}
	if env.Code == codeAuthExpired {
		return &authExpiredError{cause: remote.AppErr(provider, op, env.Message)}
	}
	if env.Code != 0 {
		return remote.AppErr(provider, op,
			fmt.Sprintf("%s (code %d)", env.Message, env.Code))
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return remote.AppErr(provider, op, fmt.Sprintf("malformed result: %v", err))
		}
	}
	return nil
}
