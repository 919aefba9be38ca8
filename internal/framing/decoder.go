// Package framing reconstructs discrete syslog records from an in-order
// byte stream using octet-count framing: "<ASCII decimal length> <SP>
// <length bytes of payload>".
//
// A Decoder is private to one stream session; it is not safe for
// concurrent use from multiple goroutines.
package framing

import (
	"bytes"
	"log/slog"
	"strings"
	"unicode/utf8"

	"syslogcollector/internal/logging"
)

// Defaults for the two length ceilings, used when a Config leaves a field
// at its zero value.
const (
	DefaultMaxMsgLen     = 65535
	DefaultMaxBufferSize = 10 * 1024 * 1024
)

// Config configures a Decoder's length limits.
type Config struct {
	// MaxMsgLen bounds the declared length of any single record. Declaring
	// a longer record triggers frame-skip recovery. Zero means
	// DefaultMaxMsgLen.
	MaxMsgLen int

	// MaxBufferSize bounds the internal buffer. Exceeding it resets the
	// buffer to empty and reports an overflow. Zero means
	// DefaultMaxBufferSize.
	MaxBufferSize int

	// Logger receives Debug/Warn events for recovery and overflow. Optional.
	Logger *slog.Logger
}

// Decoder reconstructs records from a byte stream fed incrementally via
// Feed. It never returns an error: malformed input is handled internally
// by resync or by discarding the buffer, both observable through the
// logger; buffer overflows are also counted by Overflows.
type Decoder struct {
	buf           []byte
	maxMsgLen     int
	maxBufferSize int
	logger        *slog.Logger

	// overflows counts how many times the buffer ceiling was hit. Exposed
	// for tests and metrics; not required by callers.
	overflows int
}

// New creates a Decoder with the given configuration.
func New(cfg Config) *Decoder {
	maxMsgLen := cfg.MaxMsgLen
	if maxMsgLen <= 0 {
		maxMsgLen = DefaultMaxMsgLen
	}
	maxBufferSize := cfg.MaxBufferSize
	if maxBufferSize <= 0 {
		maxBufferSize = DefaultMaxBufferSize
	}
	return &Decoder{
		maxMsgLen:     maxMsgLen,
		maxBufferSize: maxBufferSize,
		logger:        logging.Default(cfg.Logger).With("component", "framing"),
	}
}

// Overflows returns the number of times Feed has discarded the entire
// buffer for exceeding MaxBufferSize.
func (d *Decoder) Overflows() int {
	return d.overflows
}

// Feed appends data to the internal buffer and returns every complete
// record now extractable, in wire order. It never returns an error.
func (d *Decoder) Feed(data []byte) []string {
	d.buf = append(d.buf, data...)

	if len(d.buf) > d.maxBufferSize {
		d.overflows++
		d.logger.Warn("framing buffer overflow, discarding", "size", len(d.buf), "max", d.maxBufferSize)
		d.buf = d.buf[:0]
		return nil
	}

	var out []string
	for {
		rec, ok := d.extractOne()
		if !ok {
			break
		}
		out = append(out, rec)
	}
	return out
}

// extractOne attempts to pull a single complete record from the head of
// the buffer, performing recovery or frame-skip as needed. It returns
// ok=false when the buffer holds no complete record and no further
// progress can be made without more data.
func (d *Decoder) extractOne() (string, bool) {
	for {
		if len(d.buf) == 0 {
			return "", false
		}

		spaceIdx := bytes.IndexByte(d.buf, ' ')
		if spaceIdx == -1 {
			return "", false
		}

		length, ok := parseDecimal(d.buf[:spaceIdx], d.maxMsgLen)
		if !ok {
			// Malformed length prefix: drop one byte and retry (single-byte resync).
			d.logger.Debug("malformed length prefix, resyncing", "prefix", string(d.buf[:min(spaceIdx+1, 32)]))
			d.buf = d.buf[1:]
			continue
		}

		if length > d.maxMsgLen {
			d.logger.Warn("declared length exceeds max_msg_len, skipping frame", "length", length, "max", d.maxMsgLen)
			d.skipFrame(spaceIdx)
			continue
		}

		frameLen := spaceIdx + 1 + length
		if len(d.buf) < frameLen {
			return "", false
		}

		payload := d.buf[spaceIdx+1 : frameLen]
		d.buf = d.buf[frameLen:]
		return toValidUTF8(payload), true
	}
}

// skipFrame discards the buffer through the next newline after spaceIdx,
// inclusive, or the entire buffer if no newline is found.
func (d *Decoder) skipFrame(spaceIdx int) {
	rest := d.buf[spaceIdx:]
	if nl := bytes.IndexByte(rest, '\n'); nl != -1 {
		d.buf = rest[nl+1:]
		return
	}
	d.buf = d.buf[:0]
}

// parseDecimal parses b as a non-negative ASCII decimal integer. An empty
// slice or any non-digit byte is rejected. Accumulation stops the moment
// the running value exceeds limit, so a pathologically long digit run
// (length prefixes sent in bad faith, or by a buggy sender) cannot
// overflow int; the returned value is then just some value greater than
// limit, only ever used by the caller's "too large" comparison.
func parseDecimal(b []byte, limit int) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		if n <= limit {
			n = n*10 + int(c-'0')
		}
	}
	return n, true
}

// toValidUTF8 decodes payload as UTF-8, replacing invalid byte sequences
// with the Unicode replacement character rather than failing.
func toValidUTF8(payload []byte) string {
	if utf8.Valid(payload) {
		return string(payload)
	}
	return strings.ToValidUTF8(string(payload), string(utf8.RuneError))
}
