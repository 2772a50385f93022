package anomaly

import (
	"fmt"

	"logforge/core"
)

// Per-source archetype catalogs. Levels weight by repetition; mutations keep
// the record internally consistent with its new story.
var catalogs = map[core.SourceType][]archetype{
	core.SourceSIEM: {
		{
			kind:   core.AnomalySecurityViolation,
			levels: []core.Level{core.LevelError, core.LevelFatal},
			messages: []string{
				"Unauthorized access attempt to restricted resource",
				"Privilege escalation detected for service account",
				"Repeated authentication failures followed by success",
				"Security breach: credential reuse from unknown host",
			},
			mutate: func(inj *Injector, rec *core.LogRecord) {
				rec.SIEM.Outcome = "failure"
				rec.SIEM.Category = "privilege"
				// Violations come from outside the estate.
				rec.IPAddress = inj.externalIP()
			},
		},
		{
			kind:   core.AnomalySystemFailure,
			levels: []core.Level{core.LevelFatal, core.LevelFatal, core.LevelError},
			messages: []string{
				"Multiple services unreachable from monitoring host",
				"Host offline: heartbeat lost",
				"Cluster quorum lost, failover did not complete",
			},
			mutate: func(inj *Injector, rec *core.LogRecord) {
				rec.SIEM.Outcome = "failure"
				rec.SIEM.AffectedServices = inj.affectedServices()
			},
		},
		{
			kind:   core.AnomalyDataIntegrityError,
			levels: []core.Level{core.LevelError, core.LevelError, core.LevelFatal},
			messages: []string{
				"Audit trail gap detected",
				"Log checksum mismatch on forwarded events",
				"Event sequence number regression detected",
			},
			mutate: func(inj *Injector, rec *core.LogRecord) {
				rec.SIEM.Outcome = "failure"
				rec.SIEM.Category = "audit"
			},
		},
	},
	core.SourceERP: {
		{
			kind:   core.AnomalyDataIntegrityError,
			levels: []core.Level{core.LevelError, core.LevelError, core.LevelFatal},
			messages: []string{
				"Document balance mismatch detected",
				"Duplicate document number rejected by integrity check",
				"Posting aborted: ledger corruption suspected",
			},
			mutate: func(inj *Injector, rec *core.LogRecord) {
				// A negative amount is the integrity violation itself.
				rec.ERP.Amount = -rec.ERP.Amount
			},
		},
		{
			kind:   core.AnomalySystemFailure,
			levels: []core.Level{core.LevelFatal, core.LevelFatal, core.LevelError},
			messages: []string{
				"Database lock escalation, posting aborted",
				"ERP core service unavailable",
				"Update task terminated unexpectedly",
			},
			mutate: func(inj *Injector, rec *core.LogRecord) {
				rec.ERP.Module = "BASIS"
			},
		},
		{
			kind:   core.AnomalyPerformanceDegradation,
			levels: []core.Level{core.LevelWarn, core.LevelError, core.LevelError},
			messages: []string{
				"Transaction response time exceeded threshold",
				"Batch job running beyond its window",
				"Dialog work processes exhausted",
			},
			mutate: func(inj *Injector, rec *core.LogRecord) {
				rec.ERP.Username = "BATCHRUN"
			},
		},
	},
	core.SourceApp: {
		{
			kind:   core.AnomalyPerformanceDegradation,
			levels: []core.Level{core.LevelWarn, core.LevelError, core.LevelError},
			messages: []string{
				"Response time degraded beyond SLA",
				"Upstream latency spike detected",
				"Request queue saturated, high latency",
			},
			mutate: func(inj *Injector, rec *core.LogRecord) {
				rec.App.ResponseTimeMS = 1500 + rec.App.ResponseTimeMS*float64(8+inj.rand.Intn(8))
				rec.App.HTTPStatus = []int{503, 504}[inj.rand.Intn(2)]
			},
		},
		{
			kind:   core.AnomalySystemFailure,
			levels: []core.Level{core.LevelFatal, core.LevelFatal, core.LevelError},
			messages: []string{
				"Service crashed with unhandled exception",
				"Out of memory: container killed",
				"Pod restart loop detected",
			},
			mutate: func(inj *Injector, rec *core.LogRecord) {
				rec.App.HTTPStatus = []int{500, 502, 503}[inj.rand.Intn(3)]
				rec.App.ResponseTimeMS += 1000 + inj.rand.Float64()*4000
			},
		},
		{
			kind:   core.AnomalySecurityViolation,
			levels: []core.Level{core.LevelError, core.LevelError, core.LevelFatal},
			messages: []string{
				"Unauthorized access attempt blocked",
				"Invalid token signature on privileged endpoint",
				"Repeated authorization failures from single client",
			},
			mutate: func(inj *Injector, rec *core.LogRecord) {
				rec.App.HTTPStatus = []int{401, 403}[inj.rand.Intn(2)]
				rec.IPAddress = inj.externalIP()
			},
		},
	},
}

// externalIP draws from the TEST-NET ranges.
func (inj *Injector) externalIP() string {
	ranges := []string{"192.0.2.%d", "198.51.100.%d", "203.0.113.%d"}
	return fmt.Sprintf(ranges[inj.rand.Intn(len(ranges))], inj.rand.Intn(255))
}

// affectedServices picks 2-4 distinct application services.
func (inj *Injector) affectedServices() []string {
	services := inj.lib.App.Services
	n := 2 + inj.rand.Intn(3)
	if n > len(services) {
		n = len(services)
	}
	perm := inj.rand.Perm(len(services))
	picked := make([]string, 0, n)
	for _, idx := range perm[:n] {
		picked = append(picked, services[idx])
	}
	return picked
}
