// Package parser recognises RFC 5424 and RFC 3164 syslog headers (plus a
// priority-only and a plain fallback) and extracts them into a
// syslogrecord.Record. Headers are tried in order of specificity; a line
// matching none of them still yields a record via the plain fallback.
package parser

import (
	"regexp"
	"strconv"
	"time"

	"syslogcollector/internal/syslogrecord"
)

// defaultPriority is used when no "<PRI>" prefix is present at all
// (RFC 3164 without priority, or a bare message): user.notice.
const defaultPriority = 13

var (
	rfc5424Pattern = regexp.MustCompile(
		`^<(?P<pri>\d+)>(?P<ver>\d+)\s+` +
			`(?P<timestamp>\S+)\s+(?P<hostname>\S+)\s+(?P<app>\S+)\s+` +
			`(?P<procid>\S+)\s+(?P<msgid>\S+)\s+(?P<sd>\S+)\s*(?P<msg>.*)$`)

	rfc3164Pattern = regexp.MustCompile(
		`^<(?P<pri>\d+)>(?P<timestamp>\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+` +
			`(?P<hostname>\S+)\s+(?P<msg>.*)$`)

	priOnlyPattern = regexp.MustCompile(`^<(\d+)>(.*)$`)
)

// Parse recognises the message's header grammar and returns a populated
// Record. It never panics and never returns an error: any internal
// failure is converted into a demoted record with severity "error" and a
// parse_error field, per the package's error-handling contract.
func Parse(text string) (rec syslogrecord.Record) {
	defer func() {
		if r := recover(); r != nil {
			rec = demote(text, r)
		}
	}()

	if m := matchNamed(rfc5424Pattern, text); m != nil {
		return parseRFC5424(text, m)
	}
	if m := matchNamed(rfc3164Pattern, text); m != nil {
		return parseRFC3164(text, m)
	}
	if sub := priOnlyPattern.FindStringSubmatch(text); sub != nil {
		return parsePriOnly(text, sub)
	}
	return parsePlain(text)
}

// matchNamed runs re against text and returns the named capture groups,
// or nil if re does not match.
func matchNamed(re *regexp.Regexp, text string) map[string]string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	names := re.SubexpNames()
	out := make(map[string]string, len(names))
	for i, name := range names {
		if name == "" {
			continue
		}
		out[name] = m[i]
	}
	return out
}

func priorityParts(pri int) (facility, severity string) {
	return syslogrecord.FacilityName(pri >> 3), syslogrecord.SeverityName(pri & 7)
}

func parseRFC5424(text string, m map[string]string) syslogrecord.Record {
	pri, err := strconv.Atoi(m["pri"])
	if err != nil {
		return demote(text, err)
	}
	facility, severity := priorityParts(pri)

	rec := syslogrecord.Record{
		syslogrecord.FieldPriority: pri,
		syslogrecord.FieldFacility: facility,
		syslogrecord.FieldSeverity: severity,
		syslogrecord.FieldFormat:   syslogrecord.FormatRFC5424,
		syslogrecord.FieldVersion:  m["ver"],
		syslogrecord.FieldTimestamp: m["timestamp"],
		syslogrecord.FieldMessage:  m["msg"],
		syslogrecord.FieldRaw:      text,
	}
	setIfNotNil(rec, syslogrecord.FieldHostname, m["hostname"])
	setIfNotNil(rec, syslogrecord.FieldAppName, m["app"])
	setIfNotNil(rec, syslogrecord.FieldProcID, m["procid"])
	setIfNotNil(rec, syslogrecord.FieldMsgID, m["msgid"])
	setIfNotNil(rec, syslogrecord.FieldStructuredData, m["sd"])
	return rec
}

func parseRFC3164(text string, m map[string]string) syslogrecord.Record {
	pri, err := strconv.Atoi(m["pri"])
	if err != nil {
		return demote(text, err)
	}
	facility, severity := priorityParts(pri)

	rec := syslogrecord.Record{
		syslogrecord.FieldPriority:  pri,
		syslogrecord.FieldFacility:  facility,
		syslogrecord.FieldSeverity:  severity,
		syslogrecord.FieldFormat:    syslogrecord.FormatRFC3164,
		syslogrecord.FieldTimestamp: m["timestamp"],
		syslogrecord.FieldHostname:  m["hostname"],
		syslogrecord.FieldMessage:   m["msg"],
		syslogrecord.FieldRaw:       text,
	}
	return rec
}

func parsePriOnly(text string, sub []string) syslogrecord.Record {
	pri, err := strconv.Atoi(sub[1])
	if err != nil {
		return demote(text, err)
	}
	facility, severity := priorityParts(pri)
	return syslogrecord.Record{
		syslogrecord.FieldPriority:  pri,
		syslogrecord.FieldFacility:  facility,
		syslogrecord.FieldSeverity:  severity,
		syslogrecord.FieldMessage:   sub[2],
		syslogrecord.FieldRaw:       text,
		syslogrecord.FieldTimestamp: nowISO(),
	}
}

func parsePlain(text string) syslogrecord.Record {
	facility, severity := priorityParts(defaultPriority)
	return syslogrecord.Record{
		syslogrecord.FieldPriority:  defaultPriority,
		syslogrecord.FieldFacility:  facility,
		syslogrecord.FieldSeverity:  severity,
		syslogrecord.FieldMessage:   text,
		syslogrecord.FieldRaw:       text,
		syslogrecord.FieldTimestamp: nowISO(),
	}
}

// demote builds the record returned when the parser itself fails:
// severity "error", the original text as message, and a parse_error
// field describing what went wrong. It never itself returns an error.
func demote(text string, cause any) syslogrecord.Record {
	return syslogrecord.Record{
		syslogrecord.FieldPriority:   defaultPriority,
		syslogrecord.FieldFacility:   "user",
		syslogrecord.FieldSeverity:   "error",
		syslogrecord.FieldMessage:    text,
		syslogrecord.FieldRaw:        text,
		syslogrecord.FieldTimestamp:  nowISO(),
		syslogrecord.FieldParseError: toErrString(cause),
	}
}

func toErrString(cause any) string {
	if err, ok := cause.(error); ok {
		return err.Error()
	}
	return "parse failure"
}

func setIfNotNil(rec syslogrecord.Record, field, value string) {
	if value == "" {
		return
	}
	rec[field] = value
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
