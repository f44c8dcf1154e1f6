// internal/provision/result.go
//
// Step pipeline result types.
//
// Context
// -------
// Every provisioning attempt produces a Result even on failure: the core
// record of what ran, what was skipped, and what broke.  Callers and the
// HTTP layer serialize it verbatim, so field names are wire names.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package provision

// Step outcome values.
const (
	StepOK      = "ok"
	StepFailed  = "failed"
	StepSkipped = "skipped"
)

// Step names, in pipeline order.
const (
	StepValidate = "validate"
	StepLocal    = "local"
	StepZone     = "zone"
	StepRoute    = "route"
	StepNotify   = "notify"
)

// StepResult records one pipeline step.
type StepResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Result is the full outcome of one provisioning or verification
// attempt.  Success means the local state exists; zone and route flags
// report the best-effort provider steps independently.
type Result struct {
	AttemptID string `json:"attempt_id"`
	Success   bool   `json:"success"`
	Resumed   bool   `json:"resumed,omitempty"`

	TenantID uint64 `json:"tenant_id,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Slug     string `json:"slug,omitempty"`
	AdminURL string `json:"admin_url,omitempty"`

	ZoneConfigured  bool `json:"zone_configured"`
	RouteConfigured bool `json:"route_configured"`

	// Nameservers is set on the custom-domain flow: the NS the caller
	// must configure at their registrar before the site activates.
	Nameservers []string `json:"nameservers,omitempty"`

	Error string       `json:"error,omitempty"`
	Steps []StepResult `json:"steps"`
}

func (r *Result) step(name, status, errMsg string) {
	r.Steps = append(r.Steps, StepResult{Name: name, Status: status, Error: errMsg})
}

func (r *Result) stepOK(name string)           { r.step(name, StepOK, "") }
func (r *Result) stepSkip(name string)         { r.step(name, StepSkipped, "") }
func (r *Result) stepFail(name string, err error) {
	r.step(name, StepFailed, err.Error())
}
