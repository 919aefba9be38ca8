// Package syslogrecord defines the structured representation of a parsed
// syslog message shared by the parser, deduplicator, and writer.
package syslogrecord

// Record is a sparse mapping from field name to value. Unknown or unset
// fields are omitted entirely rather than present with a zero value, so
// that a serialised Record only ever contains the fields the parser (or
// the pipeline) actually populated.
type Record map[string]any

// Well-known field names. Consumers should prefer these constants over
// string literals so renames are caught at compile time.
const (
	FieldPriority       = "priority"
	FieldFacility       = "facility"
	FieldSeverity       = "severity"
	FieldTimestamp      = "timestamp"
	FieldHostname       = "hostname"
	FieldAppName        = "app_name"
	FieldProcID         = "proc_id"
	FieldMsgID          = "msg_id"
	FieldStructuredData = "structured_data"
	FieldVersion        = "version"
	FieldFormat         = "format"
	FieldMessage        = "message"
	FieldRaw            = "raw"
	FieldSourceIP       = "source_ip"
	FieldReceivedAt     = "received_at"
	FieldParseError     = "parse_error"
)

// FormatRFC5424 and FormatRFC3164 are the only two values FieldFormat
// takes; absence of the field means neither grammar matched.
const (
	FormatRFC5424 = "RFC5424"
	FormatRFC3164 = "RFC3164"
)

// Severity is the fixed name for each of the eight syslog severity levels,
// indexed by the PRI value's lower three bits.
var Severity = [8]string{
	0: "emergency",
	1: "alert",
	2: "critical",
	3: "error",
	4: "warning",
	5: "notice",
	6: "info",
	7: "debug",
}

// KnownSeverities lists every bucket the writer opens a dedicated file
// for, in severity order. "unknown" is not in this set: it is the catch-all
// bucket for anything that does not match one of these names.
var KnownSeverities = [8]string{
	"emergency", "alert", "critical", "error", "warning", "notice", "info", "debug",
}

// Facility is the fixed name for each of the 24 standardised facility
// codes, indexed by the PRI value's upper five bits.
var Facility = [24]string{
	0:  "kern",
	1:  "user",
	2:  "mail",
	3:  "daemon",
	4:  "auth",
	5:  "syslog",
	6:  "lpr",
	7:  "news",
	8:  "uucp",
	9:  "cron",
	10: "authpriv",
	11: "ftp",
	12: "ntp",
	13: "security",
	14: "console",
	15: "solaris-cron",
	16: "local0",
	17: "local1",
	18: "local2",
	19: "local3",
	20: "local4",
	21: "local5",
	22: "local6",
	23: "local7",
}

const unknown = "unknown"

// SeverityName returns the name for a PRI's severity bits, or "unknown"
// if out of range.
func SeverityName(sev int) string {
	if sev < 0 || sev >= len(Severity) {
		return unknown
	}
	return Severity[sev]
}

// FacilityName returns the name for a PRI's facility bits, or "unknown"
// if out of range.
func FacilityName(fac int) string {
	if fac < 0 || fac >= len(Facility) {
		return unknown
	}
	return Facility[fac]
}

// IsKnownSeverity reports whether name is one of the eight severity
// buckets the writer maintains a dedicated file for.
func IsKnownSeverity(name string) bool {
	for _, s := range KnownSeverities {
		if s == name {
			return true
		}
	}
	return false
}
