package gen

import (
	"fmt"

	"logforge/core"
)

// Raw-line renderers. Pure functions over the record plus whatever random
// bits the line needs, so the anomaly injector can re-render a line after
// mutating the record.

// RenderSyslog renders the RFC3164 line for a SIEM record:
// <pri>timestamp host tag[pid]: message.
func RenderSyslog(rec *core.LogRecord, pid int) string {
	pri := syslogFacility(rec.SIEM.Category)*8 + syslogSeverity(rec.Level)
	return fmt.Sprintf("<%d>%s %s %s[%d]: %s user=%s outcome=%s src=%s",
		pri,
		rec.Timestamp.Format("Jan _2 15:04:05"),
		rec.SIEM.Host,
		rec.SIEM.ProcessName,
		pid,
		rec.Message,
		rec.SIEM.Username,
		rec.SIEM.Outcome,
		rec.IPAddress,
	)
}

// RenderERPLine renders the transaction-code-bearing line for an ERP record.
func RenderERPLine(rec *core.LogRecord) string {
	return fmt.Sprintf("%s %s %s/%s user=%s doc=%s amount=%.2f %s: %s",
		rec.Timestamp.Format("2006-01-02 15:04:05"),
		rec.ERP.TransactionCode,
		rec.ERP.Module,
		rec.ERP.Department,
		rec.ERP.Username,
		rec.ERP.DocumentID,
		rec.ERP.Amount,
		rec.ERP.Currency,
		rec.Message,
	)
}

// RenderAccessLog renders the combined-log-format line for an application
// record.
func RenderAccessLog(rec *core.LogRecord, respBytes int, userAgent string) string {
	return fmt.Sprintf(`%s - - [%s] "%s %s HTTP/1.1" %d %d "-" "%s" %dms`,
		rec.IPAddress,
		rec.Timestamp.Format("02/Jan/2006:15:04:05 -0700"),
		rec.App.HTTPMethod,
		rec.App.Endpoint,
		rec.App.HTTPStatus,
		respBytes,
		userAgent,
		int(rec.App.ResponseTimeMS),
	)
}

func syslogFacility(category string) int {
	switch category {
	case "authentication", "privilege":
		return 10 // authpriv
	default:
		return 3 // daemon
	}
}

func syslogSeverity(level core.Level) int {
	switch level {
	case core.LevelFatal:
		return 2 // crit
	case core.LevelError:
		return 3
	case core.LevelWarn:
		return 4
	case core.LevelInfo:
		return 6
	default:
		return 7 // debug
	}
}
