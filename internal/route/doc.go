// internal/route/doc.go
//
// Per-domain reverse-proxy route document.
//
// Context
// -------
// The proxy control plane (a Caddy-style admin API) evaluates routes in
// array order, so the document generated here is deliberately fixed in
// shape and ordering: security headers first, static-file dispatch before
// PHP dispatch, deny-lists before both, file server last.  A separate
// error-branch document routes every upstream failure back through the
// entry script so tenants get their own error pages.
//
// The document is transient: it is recomputed from the tenant row on every
// upsert and never persisted locally.  The only stable coordinate is the
// `@id`, derived deterministically from the domain, which is what makes
// upserts idempotent.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package route

import "strings"

//
// Wire types (Caddy JSON config, typed)
//

// Document is one entry in the server's routes array.
type Document struct {
	ID       string    `json:"@id"`
	Match    []Match   `json:"match,omitempty"`
	Handle   []Handler `json:"handle"`
	Terminal bool      `json:"terminal,omitempty"`
}

// subRoute is one inner route of the top-level subroute handler.
type subRoute struct {
	Match    []Match   `json:"match,omitempty"`
	Handle   []Handler `json:"handle"`
	Terminal bool      `json:"terminal,omitempty"`
}

// Match is a request matcher set.  Fields are AND-ed; entries in a slice
// are OR-ed, per the proxy's semantics.
type Match struct {
	Host []string     `json:"host,omitempty"`
	Path []string     `json:"path,omitempty"`
	File *FileMatcher `json:"file,omitempty"`
	Not  []Match      `json:"not,omitempty"`
}

// FileMatcher probes the filesystem below the route's root.
type FileMatcher struct {
	TryFiles  []string `json:"try_files,omitempty"`
	SplitPath []string `json:"split_path,omitempty"`
}

// Handler is one element of a handler chain.  The proxy dispatches on the
// `handler` discriminator; the remaining fields are per-type and omitted
// when empty, so one struct covers every handler we emit.
type Handler struct {
	Handler string `json:"handler"`

	// subroute
	Routes []subRoute `json:"routes,omitempty"`

	// headers
	Response *HeaderOps `json:"response,omitempty"`

	// vars
	Root string `json:"root,omitempty"`

	// rewrite
	URI string `json:"uri,omitempty"`

	// static_response
	StatusCode int                 `json:"status_code,omitempty"`
	Headers    map[string][]string `json:"headers,omitempty"`
	Close      bool                `json:"close,omitempty"`

	// encode
	Encodings map[string]struct{} `json:"encodings,omitempty"`
	Prefer    []string            `json:"prefer,omitempty"`

	// reverse_proxy
	Upstreams []Upstream `json:"upstreams,omitempty"`
	Transport *Transport `json:"transport,omitempty"`

	// file_server
	Hide []string `json:"hide,omitempty"`
}

// HeaderOps sets response headers.
type HeaderOps struct {
	Set map[string][]string `json:"set,omitempty"`
}

// Upstream is one reverse-proxy backend.
type Upstream struct {
	Dial string `json:"dial"`
}

// Transport selects how the proxy talks to the upstream.
type Transport struct {
	Protocol  string   `json:"protocol"`
	Root      string   `json:"root,omitempty"`
	SplitPath []string `json:"split_path,omitempty"`
}

//
// @id derivation
//

// RouteID derives the deterministic route identifier for a domain:
// lowercase, every non-alphanumeric byte becomes "_", prefixed "route_".
// The mapping is lossy but safe: two domains that collide here would
// differ only in punctuation, which DNS forbids anyway.
func RouteID(domain string) string {
	var b strings.Builder
	b.Grow(len(domain) + 6)
	b.WriteString("route_")
	for _, r := range strings.ToLower(domain) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// errorRouteID names the companion error-branch document.
func errorRouteID(domain string) string { return RouteID(domain) + "_err" }

//
// Document builder
//

// Spec carries everything the builder needs from config and tenant state.
type Spec struct {
	Domain      string
	IncludeWww  bool
	DocRoot     string // absolute directory containing EntryScript
	EntryScript string // e.g. "index.php"
	PHPUpstream string // dial address of the PHP tier
}

// securityHeaders is the fixed header set stamped on every tenant
// response.  Kept conservative; tenants may override per-response.
var securityHeaders = map[string][]string{
	"Strict-Transport-Security": {"max-age=63072000; includeSubDomains; preload"},
	"X-Frame-Options":           {"SAMEORIGIN"},
	"X-Content-Type-Options":    {"nosniff"},
	"Referrer-Policy":           {"strict-origin-when-cross-origin"},
	"Permissions-Policy":        {"geolocation=(), microphone=(), camera=()"},
}

// sensitivePatterns are path globs that must never be served, whatever the
// tenant uploads.
var sensitivePatterns = []string{
	"*.sql", "*.env", "*.ini", "*.log", "*.sh",
	"/config/*", "/storage/*", "/vendor/composer/*",
}

// dotfilePatterns deny dotfiles at any depth.
var dotfilePatterns = []string{"/.*", "/*/.*", "/*/*/.*"}

// hiddenFromListing is hidden from the final file server as well, so a
// directory listing can never leak them.
var hiddenFromListing = []string{".git", ".env", "composer.json", "composer.lock"}

// hosts returns the match-set hostnames, optionally with the www alias.
func (s Spec) hosts() []string {
	h := []string{s.Domain}
	if s.IncludeWww {
		h = append(h, "www."+s.Domain)
	}
	return h
}

// entryPath is the absolute request path of the entry script.
func (s Spec) entryPath() string { return "/" + s.EntryScript }

// Build assembles the full route document for a tenant domain.  The inner
// handler order is load-bearing; see the package comment.
func Build(s Spec) Document {
	entry := s.entryPath()

	inner := []subRoute{
		// 1. Security headers and the document root var.
		{
			Handle: []Handler{
				{Handler: "headers", Response: &HeaderOps{Set: securityHeaders}},
				{Handler: "vars", Root: s.DocRoot},
			},
		},
		// 2. Rewrite to an existing static file.
		{
			Match: []Match{{
				File: &FileMatcher{TryFiles: []string{"{http.request.uri.path}"}},
				Not:  []Match{{Path: []string{"*.php"}}},
			}},
			Handle: []Handler{{Handler: "rewrite", URI: "{http.matchers.file.relative}"}},
		},
		// 3. Fallback: anything that is not a file goes to the entry script.
		{
			Match: []Match{{
				Not: []Match{{File: &FileMatcher{TryFiles: []string{
					"{http.request.uri.path}",
					"{http.request.uri.path}/",
				}}}},
			}},
			Handle: []Handler{{Handler: "rewrite", URI: entry + "{http.request.uri.query_string}"}},
		},
		// 4. Response compression.
		{
			Handle: []Handler{{
				Handler:   "encode",
				Encodings: map[string]struct{}{"gzip": {}, "zstd": {}},
				Prefer:    []string{"zstd", "gzip"},
			}},
		},
		// 5. Sensitive file patterns → 403.
		{
			Match:  []Match{{Path: sensitivePatterns}},
			Handle: []Handler{{Handler: "static_response", StatusCode: 403, Close: true}},
		},
		// 6. Dotfiles → 403.
		{
			Match:  []Match{{Path: dotfilePatterns}},
			Handle: []Handler{{Handler: "static_response", StatusCode: 403, Close: true}},
		},
		// 7. Directory-like path without trailing slash → permanent redirect.
		{
			Match: []Match{{
				File: &FileMatcher{TryFiles: []string{"{http.request.uri.path}/" + s.EntryScript}},
				Not:  []Match{{Path: []string{"*/"}}},
			}},
			Handle: []Handler{{
				Handler:    "static_response",
				StatusCode: 308,
				Headers:    map[string][]string{"Location": {"{http.request.orig_uri.path}/"}},
			}},
		},
		// 8. PHP path resolution with try-files fallback.
		{
			Match: []Match{{File: &FileMatcher{
				TryFiles: []string{
					"{http.request.uri.path}",
					"{http.request.uri.path}/" + s.EntryScript,
					entry,
				},
				SplitPath: []string{".php"},
			}}},
			Handle: []Handler{{Handler: "rewrite", URI: "{http.matchers.file.relative}"}},
		},
		// 9. Dispatch *.php to the PHP upstream over FastCGI.
		{
			Match: []Match{{Path: []string{"*.php"}}},
			Handle: []Handler{{
				Handler:   "reverse_proxy",
				Upstreams: []Upstream{{Dial: s.PHPUpstream}},
				Transport: &Transport{
					Protocol:  "fastcgi",
					Root:      s.DocRoot,
					SplitPath: []string{".php"},
				},
			}},
		},
		// 10. Everything else is a static file.
		{
			Handle: []Handler{{Handler: "file_server", Hide: hiddenFromListing}},
		},
	}

	return Document{
		ID:       RouteID(s.Domain),
		Match:    []Match{{Host: s.hosts()}},
		Handle:   []Handler{{Handler: "subroute", Routes: inner}},
		Terminal: true,
	}
}

// BuildErrorBranch assembles the companion document installed in the
// server's error routes.  It forces every upstream failure back through
// the entry script so the tenant's own error pages render even when the
// primary chain blew up.
func BuildErrorBranch(s Spec) Document {
	return Document{
		ID:    errorRouteID(s.Domain),
		Match: []Match{{Host: s.hosts()}},
		Handle: []Handler{{
			Handler: "subroute",
			Routes: []subRoute{
				{
					Handle: []Handler{
						{Handler: "vars", Root: s.DocRoot},
						{Handler: "rewrite", URI: s.entryPath()},
						{
							Handler:   "reverse_proxy",
							Upstreams: []Upstream{{Dial: s.PHPUpstream}},
							Transport: &Transport{
								Protocol:  "fastcgi",
								Root:      s.DocRoot,
								SplitPath: []string{".php"},
							},
						},
					},
				},
			},
		}},
		Terminal: true,
	}
}
