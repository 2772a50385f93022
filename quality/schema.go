package quality

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"logforge/core"
)

// recordSchema is the wire contract for a serialized record. The schema
// validates shape and enums; cross-field rules live in LogRecord.Validate.
const recordSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["id", "timestamp", "level", "source_type", "message", "raw_text", "is_anomaly"],
	"properties": {
		"id": {"type": "string", "minLength": 36, "maxLength": 36},
		"timestamp": {"type": "string", "format": "date-time"},
		"level": {"enum": ["DEBUG", "INFO", "WARN", "ERROR", "FATAL"]},
		"source_type": {"enum": ["siem", "erp", "application"]},
		"message": {"type": "string", "minLength": 1},
		"raw_text": {"type": "string", "minLength": 1},
		"correlation_id": {"type": "string", "minLength": 1},
		"request_id": {"type": "string", "minLength": 1},
		"session_id": {"type": "string", "minLength": 1},
		"ip_address": {"type": "string", "minLength": 7},
		"is_anomaly": {"type": "boolean"},
		"anomaly_type": {"enum": ["system-failure", "security-violation", "performance-degradation", "data-integrity-error"]},
		"severity": {"enum": ["low", "medium", "high", "critical"]},
		"siem": {
			"type": "object",
			"required": ["host", "event_id", "category", "outcome", "process_name", "username"],
			"properties": {
				"host": {"type": "string", "minLength": 1},
				"event_id": {"type": "integer", "minimum": 0},
				"category": {"type": "string", "minLength": 1},
				"outcome": {"enum": ["success", "failure"]},
				"process_name": {"type": "string", "minLength": 1},
				"username": {"type": "string", "minLength": 1},
				"affected_services": {"type": "array", "items": {"type": "string"}, "minItems": 1}
			}
		},
		"erp": {
			"type": "object",
			"required": ["transaction_code", "department", "module", "amount", "currency", "document_id", "username"],
			"properties": {
				"transaction_code": {"type": "string", "minLength": 1},
				"department": {"type": "string", "minLength": 1},
				"module": {"type": "string", "minLength": 1},
				"amount": {"type": "number"},
				"currency": {"type": "string", "minLength": 3},
				"document_id": {"type": "string", "minLength": 1},
				"username": {"type": "string", "minLength": 1}
			}
		},
		"app": {
			"type": "object",
			"required": ["service", "http_method", "endpoint", "http_status", "response_time_ms", "pod_name"],
			"properties": {
				"service": {"type": "string", "minLength": 1},
				"http_method": {"type": "string", "minLength": 3},
				"endpoint": {"type": "string", "minLength": 1},
				"http_status": {"type": "integer", "minimum": 100, "maximum": 599},
				"response_time_ms": {"type": "number", "minimum": 0},
				"pod_name": {"type": "string", "minLength": 1}
			}
		}
	}
}`

// rawPatterns describe the grammar of each source's raw line, not its
// vocabulary, so custom field libraries still pass.
var rawPatterns = map[core.SourceType]string{
	core.SourceSIEM: `^<\d{1,3}>[A-Z][a-z]{2} [ \d]\d \d{2}:\d{2}:\d{2} \S+ \S+\[\d+\]: .+ user=\S+ outcome=(success|failure) src=\d{1,3}(\.\d{1,3}){3}$`,
	core.SourceERP:  `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} \S+ \S+/\S+ user=\S+ doc=\S+-\d{6} amount=-?\d+\.\d{2} \S+: .+$`,
	core.SourceApp:  `^\d{1,3}(\.\d{1,3}){3} - - \[\d{2}/[A-Z][a-z]{2}/\d{4}:\d{2}:\d{2}:\d{2} [+-]\d{4}\] "[A-Z]+ \S+ HTTP/1\.1" \d{3} \d+ "-" ".+" \d+ms$`,
}

// checkSchema validates a sample of each batch against the wire schema.
func (c *Checker) checkSchema(report *Report, batches map[core.SourceType][]*core.LogRecord) {
	for _, src := range core.AllSourceTypes() {
		batch := batches[src]
		sample := len(batch)
		if sample > c.cfg.SchemaSample {
			sample = c.cfg.SchemaSample
		}

		failed := 0
		first := ""
		for _, rec := range batch[:sample] {
			data, err := json.Marshal(rec)
			if err != nil {
				failed++
				if first == "" {
					first = err.Error()
				}
				continue
			}
			result, err := c.schema.Validate(gojsonschema.NewBytesLoader(data))
			if err != nil {
				failed++
				if first == "" {
					first = err.Error()
				}
				continue
			}
			if !result.Valid() {
				failed++
				if first == "" {
					first = fmt.Sprintf("record %s: %v", rec.ID, result.Errors()[0])
				}
			}
		}

		res := CheckResult{Name: "schema", Source: src, Passed: failed == 0}
		if failed > 0 {
			res.Detail = fmt.Sprintf("%d of %d sampled records failed schema; first: %s", failed, sample, first)
		}
		report.add(res)
	}
}

// checkRawFormat matches every raw line against its source grammar.
func (c *Checker) checkRawFormat(report *Report, batches map[core.SourceType][]*core.LogRecord) {
	for _, src := range core.AllSourceTypes() {
		re := c.rawExpr[src]
		malformed := 0
		first := ""
		for _, rec := range batches[src] {
			ok, err := re.MatchString(rec.RawText)
			if err != nil {
				malformed++
				if first == "" {
					first = fmt.Sprintf("match error on record %s: %v", rec.ID, err)
				}
				continue
			}
			if !ok {
				malformed++
				if first == "" {
					first = fmt.Sprintf("%.120q", rec.RawText)
				}
			}
		}

		res := CheckResult{Name: "raw_format", Source: src, Passed: malformed == 0}
		if malformed > 0 {
			res.Detail = fmt.Sprintf("%d raw lines malformed; first: %s", malformed, first)
		}
		report.add(res)
	}
}
