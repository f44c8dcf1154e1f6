// internal/config/model.go
//
// Typed configuration model for the Musedock provisioner.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                          – dotenv values,
//   • `conf/global.yaml`                       – primary static file,
//   • `MUSEDOCK_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *after* unmarshalling (see ResolveSecrets in
// loader.go), so operators can keep registrar and provider credentials
// out of flat files and git history.
//
// Validation happens immediately after unmarshal; the daemon fails fast
// if required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables for the provisioning API itself.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
}

//
// Database section
//

// Database holds the control-plane DSN.  The password portion may be a
// `vault:` reference.
type Database struct {
	DSN string `koanf:"dsn" validate:"required"`
}

//
// Provisioning section
//

// Provision carries the knobs that shape a new tenant: the shared parent
// domain for free subdomains, the default CDN-proxy flag for their CNAME
// records, and the filesystem/upstream layout the generated proxy route
// points at.
type Provision struct {
	BaseDomain     string `koanf:"base_domain" validate:"required,fqdn"`
	ProxiedDefault bool   `koanf:"proxied_default"`

	// DocRootPattern must contain exactly one %s verb, replaced with the
	// tenant slug.  The resulting directory must contain EntryScript.
	DocRootPattern string `koanf:"doc_root_pattern" validate:"required,contains=%s"`
	EntryScript    string `koanf:"entry_script" validate:"required"`

	// PHPUpstream is the dial address of the PHP/app tier, e.g.
	// "unix//run/php/php8.3-fpm.sock" or "localhost:9000".
	PHPUpstream string `koanf:"php_upstream" validate:"required"`
}

//
// DNS/CDN provider section
//

// Zone configures the Cloudflare-style DNS/CDN API: the API endpoint and
// token, the pre-existing zone that hosts free subdomains, and the host
// that subdomain CNAMEs point at.
type Zone struct {
	APIBase    string `koanf:"api_base" validate:"required,url"`
	APIToken   string `koanf:"api_token" validate:"required"`
	AccountID  string `koanf:"account_id" validate:"required"`
	BaseZoneID string `koanf:"base_zone_id" validate:"required"`
	TargetHost string `koanf:"target_host" validate:"required,fqdn"`
	TLSMode    string `koanf:"tls_mode" validate:"required,oneof=off flexible full strict"`

	Timeout time.Duration `koanf:"timeout"`
}

//
// Reverse-proxy section
//

// Route configures the reverse-proxy control plane (Caddy admin API).
type Route struct {
	AdminAddr  string `koanf:"admin_addr" validate:"required,url"`
	ServerName string `koanf:"server_name" validate:"required"`

	Timeout time.Duration `koanf:"timeout"`
}

//
// Registrar section
//

// Registrar configures the domain registrar client.  Sandbox and live
// endpoints are both listed; Mode picks which one is used so a single
// config file can serve staging and production.
type Registrar struct {
	Mode        string `koanf:"mode" validate:"required,oneof=sandbox live"`
	LiveBase    string `koanf:"live_base" validate:"required,url"`
	SandboxBase string `koanf:"sandbox_base" validate:"required,url"`
	Username    string `koanf:"username" validate:"required"`
	Password    string `koanf:"password" validate:"required"`

	// TokenTTL bounds how long a cached bearer token is reused before a
	// fresh login.  Registry round-trips are slow, hence the long Timeout.
	TokenTTL time.Duration `koanf:"token_ttl"`
	Timeout  time.Duration `koanf:"timeout"`
}

//
// Notification section
//

// SMTP holds outbound-mail settings for the welcome message.  Disabled
// when Host is empty; provisioning never depends on it.
type SMTP struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	From     string `koanf:"from" validate:"omitempty,email"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

//
// Redis section (optional)
//

// Redis backs the registrar token cache when Addr is set; otherwise an
// in-memory cache is used.  Useful when several provisioner processes
// share one registrar account.
type Redis struct {
	Addr string `koanf:"addr"`
	DB   int    `koanf:"db"`
}

//
// Geo section (optional)
//

// Geo points at a MaxMind GeoLite2-City database used to annotate signup
// requests.  Lookups are skipped when the path is empty.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or MUSEDOCK_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // MUSEDOCK_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Provision Provision `koanf:"provision"`
	Zone      Zone      `koanf:"zone"`
	Route     Route     `koanf:"route"`
	Registrar Registrar `koanf:"registrar"`
	SMTP      SMTP      `koanf:"smtp"`
	Redis     Redis     `koanf:"redis"`
	Geo       Geo       `koanf:"geo"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}

// RegistrarBase returns the registrar endpoint selected by Mode.
func (c *Config) RegistrarBase() string {
	if c.Registrar.Mode == "live" {
		return c.Registrar.LiveBase
	}
	return c.Registrar.SandboxBase
}
