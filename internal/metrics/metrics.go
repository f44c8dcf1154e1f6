// Package metrics holds Prometheus instruments that are used across the
// provisioner.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ProvisionAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provision_attempts_total",
			Help: "Cumulative number of tenant provisioning attempts.",
		})

	ProvisionResumesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provision_resumes_total",
			Help: "Provisioning attempts that resumed an existing tenant.",
		})

	ZoneStepFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provision_zone_failures_total",
			Help: "DNS zone configuration steps that failed.",
		})

	RouteStepFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provision_route_failures_total",
			Help: "Reverse-proxy route configuration steps that failed.",
		})

	RouteDuplicatesPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "route_duplicates_pruned_total",
			Help: "Stale duplicate proxy routes deleted during upsert.",
		})

	RegistrarAuthTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registrar_auth_total",
			Help: "Logins performed against the registrar API.",
		})

	RegistrarAuthRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registrar_auth_retries_total",
			Help: "Calls retried once after a 401/auth-expired response.",
		})

	NotifyFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_failures_total",
			Help: "Welcome notifications that could not be sent.",
		})
)

func init() {
	prometheus.MustRegister(
		ProvisionAttemptsTotal,
		ProvisionResumesTotal,
		ZoneStepFailuresTotal,
		RouteStepFailuresTotal,
		RouteDuplicatesPruned,
		RegistrarAuthTotal,
		RegistrarAuthRetriesTotal,
		NotifyFailuresTotal,
	)
}
