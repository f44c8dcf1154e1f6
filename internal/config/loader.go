// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file — first `<root>/conf/.env`, then jail-wide fallback.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `MUSEDOCK_`, where `__` maps to “.”
     (e.g., `MUSEDOCK_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled into strongly-typed structs,
validated, enriched with the runtime root path and duration defaults, and
cached in an `atomic.Pointer` for lock-free reads.  `Reload()` simply calls
`Load()` again and swaps the pointer.

Secret references (`vault:<path>#<key>`) stay opaque through Load(); call
`ResolveSecrets` with a Vault client before handing Config to the clients.

Instrumentation
---------------
  • DEBUG spans — root discovery, YAML read, env overlay.
  • ERROR spans — YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  — final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed (bootstrap console).

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/provisiond` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/musedock/provisioner/internal/vault"
)

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves MUSEDOCK_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("MUSEDOCK_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, validates, and caches Config.
func Load() (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: MUSEDOCK_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider("MUSEDOCK_", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	applyDefaults(&cfg)
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"base_domain", cfg.Provision.BaseDomain,
		"registrar_mode", cfg.Registrar.Mode,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// applyDefaults fills duration knobs that YAML may omit.  Registrar calls
// ride registry round-trips, so their ceiling is much higher than the
// zone/proxy control-plane calls.
func applyDefaults(c *Config) {
	if c.Zone.Timeout == 0 {
		c.Zone.Timeout = 10 * time.Second
	}
	if c.Route.Timeout == 0 {
		c.Route.Timeout = 10 * time.Second
	}
	if c.Registrar.Timeout == 0 {
		c.Registrar.Timeout = 45 * time.Second
	}
	if c.Registrar.TokenTTL == 0 {
		c.Registrar.TokenTTL = 40 * time.Minute
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
}

/*──────────────────────────── secret resolution ───────────────────────────*/

const vaultPrefix = "vault:"

// ResolveSecrets replaces every `vault:<path>#<key>` reference in the
// credential fields with the value read from Vault.  Plain values pass
// through untouched, so dev setups work without a Vault server.
func ResolveSecrets(ctx context.Context, c *Config, cli *vault.Client) error {
	fields := []*string{
		&c.Database.DSN,
		&c.Zone.APIToken,
		&c.Registrar.Password,
		&c.SMTP.Password,
	}
	for _, f := range fields {
		if !strings.HasPrefix(*f, vaultPrefix) {
			continue
		}
		ref := strings.TrimPrefix(*f, vaultPrefix)
		path, key, ok := strings.Cut(ref, "#")
		if !ok {
			key = "value"
			path = ref
		}
		val, err := cli.GetKV(ctx, path, key, 0)
		if err != nil {
			return err
		}
		*f = val
	}
	return nil
}

// HasVaultRefs reports whether any credential field needs Vault at all, so
// the daemon can skip the Vault client entirely on plain-value setups.
func HasVaultRefs(c *Config) bool {
	for _, f := range []string{c.Database.DSN, c.Zone.APIToken, c.Registrar.Password, c.SMTP.Password} {
		if strings.HasPrefix(f, vaultPrefix) {
			return true
		}
	}
	return false
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
