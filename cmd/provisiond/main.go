// cmd/provisiond/main.go
//
// Musedock provisioner – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (host-wide file → .env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Load and validate config; resolve `vault:` credential references
//     when any are present.
//
//  4. Open the control-plane DB and log the active-tenant count.
//
//  5. Build the provider clients: DNS/CDN zone manager, reverse-proxy
//     route manager, and registrar (token cache in Redis when configured,
//     in-memory otherwise).
//
//  6. Wire the orchestrator, domain orders, and the chi API router with
//     /healthz and Prometheus /metrics, then serve until SIGINT/SIGTERM.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/musedock/provisioner/internal/api"
	"github.com/musedock/provisioner/internal/config"
	"github.com/musedock/provisioner/internal/database"
	"github.com/musedock/provisioner/internal/logger"
	"github.com/musedock/provisioner/internal/notify"
	"github.com/musedock/provisioner/internal/probe"
	"github.com/musedock/provisioner/internal/provision"
	"github.com/musedock/provisioner/internal/registrar"
	"github.com/musedock/provisioner/internal/requestinfo"
	"github.com/musedock/provisioner/internal/route"
	"github.com/musedock/provisioner/internal/server"
	"github.com/musedock/provisioner/internal/vault"
	"github.com/musedock/provisioner/internal/zone"
)

const serverEnvPath = "/usr/local/etc/musedock/provisioner.env"

// loadEnv prefers the host-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	rootDir, _ := os.Getwd()
	logOut, err := logger.New(rootDir, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Config + secrets ────────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		logOut.Fatalf("load config: %v", err)
	}
	if config.HasVaultRefs(cfg) {
		vc, err := vault.New(ctx)
		if err != nil {
			logOut.Fatalf("vault client: %v", err)
		}
		if err := config.ResolveSecrets(ctx, cfg, vc); err != nil {
			logOut.Fatalf("resolve secrets: %v", err)
		}
	}

	//
	// ── 2.  Control-plane DB ────────────────────────────────────────────
	//
	logOut.Info("connecting to control-plane DB …")
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		logOut.Fatalf("connect DB: %v", err)
	}
	defer db.Close()
	logOut.Info("control-plane DB online")

	// Log active-tenant count as an early sanity check.
	var active int
	_ = db.Get(&active, `
	    SELECT COUNT(*) FROM tenant
	    WHERE suspended_at IS NULL AND deleted_at IS NULL`)
	logOut.Infof("%d active tenant(s) found", active)

	//
	// ── 3.  Geo enrichment (optional) ───────────────────────────────────
	//
	if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
		logOut.Warnw("geo lookups disabled", "err", err)
	}

	//
	// ── 4.  Provider clients ────────────────────────────────────────────
	//
	zoneClient := zone.NewClient(cfg.Zone.APIBase, cfg.Zone.APIToken, cfg.Zone.AccountID, cfg.Zone.Timeout)
	zones := zone.NewManager(zoneClient, db,
		cfg.Zone.BaseZoneID, cfg.Provision.BaseDomain, cfg.Zone.TargetHost, cfg.Zone.TLSMode, logOut)

	routes := route.NewManager(cfg.Route.AdminAddr, cfg.Route.ServerName, cfg.Route.Timeout, logOut)

	var tokenCache registrar.TokenCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		tokenCache = registrar.NewRedisTokenCache(rdb)
		logOut.Infow("registrar token cache in redis", "addr", cfg.Redis.Addr)
	} else {
		tokenCache = registrar.NewMemoryTokenCache()
	}
	reg := registrar.New(registrar.Options{
		BaseURL:  cfg.RegistrarBase(),
		Mode:     cfg.Registrar.Mode,
		Username: cfg.Registrar.Username,
		Password: cfg.Registrar.Password,
		TokenTTL: cfg.Registrar.TokenTTL,
		Timeout:  cfg.Registrar.Timeout,
		Cache:    tokenCache,
	}, logOut)

	var mailer notify.Notifier
	if cfg.SMTP.Host != "" {
		mailer = &notify.SMTPNotifier{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			From:     cfg.SMTP.From,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
		}
	} else {
		mailer = &notify.LogNotifier{Log: logOut}
	}

	//
	// ── 5.  Services + router ───────────────────────────────────────────
	//
	orch := provision.New(db, zones, routes, mailer, cfg.Provision, logOut)
	orders := provision.NewDomainOrders(db, reg, zones, logOut)
	forwarding := provision.NewMailForwarding(db, zones, logOut)
	prober := probe.New(10 * time.Second)

	handler := api.New(db, orch, orders, forwarding, prober, logOut).Router()

	//
	// ── 6.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, handler)
	go func() {
		logOut.Infow("provisioner listening", "addr", cfg.HTTP.ListenAddr, "registrar_mode", cfg.Registrar.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logOut.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	logOut.Info("shutting down …")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logOut.Errorw("shutdown", "err", err)
	}
}
