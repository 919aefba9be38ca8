// Package pipeline wires the parser, deduplicator, and writer together
// into the per-message sequence both receivers call: parse, dedup,
// enrich, write. Writer and Deduplicator are narrow capability
// interfaces rather than concrete types, so either collaborator can be
// swapped independently in tests or future transports.
package pipeline

import (
	"time"

	"syslogcollector/internal/parser"
	"syslogcollector/internal/syslogrecord"
)

// Writer is the capability the pipeline needs from the writer component:
// persist a record. Satisfied by *writer.Writer.
type Writer interface {
	Write(rec syslogrecord.Record)
}

// Deduplicator is the capability the pipeline needs from the
// deduplicator component. Satisfied by *dedup.Deduplicator.
type Deduplicator interface {
	ShouldWrite(source string, priority int, message string) bool
}

// Pipeline holds no state of its own beyond its two collaborators; it is
// reentrant and safe for concurrent use by any number of receivers.
type Pipeline struct {
	dedup  Deduplicator
	writer Writer
	now    func() time.Time
}

// New creates a Pipeline over the given collaborators.
func New(dedup Deduplicator, writer Writer) *Pipeline {
	return &Pipeline{dedup: dedup, writer: writer, now: time.Now}
}

// Process parses raw text received from sourceIP, drops it if the
// deduplicator has seen an identical (source, priority, message) tuple
// within its window, and otherwise enriches and persists it.
func (p *Pipeline) Process(sourceIP, raw string) {
	rec := parser.Parse(raw)

	priority, _ := rec[syslogrecord.FieldPriority].(int)
	message, _ := rec[syslogrecord.FieldMessage].(string)

	if p.dedup != nil && !p.dedup.ShouldWrite(sourceIP, priority, message) {
		return
	}

	rec[syslogrecord.FieldSourceIP] = sourceIP
	rec[syslogrecord.FieldReceivedAt] = p.now().UTC().Format(time.RFC3339Nano)

	p.writer.Write(rec)
}
