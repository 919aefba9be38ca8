package pipeline

import (
	"sync"
	"testing"
	"time"

	"syslogcollector/internal/syslogrecord"
)

type fakeWriter struct {
	mu      sync.Mutex
	records []syslogrecord.Record
}

func (w *fakeWriter) Write(rec syslogrecord.Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, rec)
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.records)
}

type allowAllDedup struct{}

func (allowAllDedup) ShouldWrite(string, int, string) bool { return true }

type denyAllDedup struct{}

func (denyAllDedup) ShouldWrite(string, int, string) bool { return false }

func TestProcessEnrichesAndWrites(t *testing.T) {
	w := &fakeWriter{}
	p := New(allowAllDedup{}, w)

	p.Process("10.0.0.5", "<11>Jan 15 10:30:48 server1 app: Failed")

	if w.count() != 1 {
		t.Fatalf("expected 1 record written, got %d", w.count())
	}
	rec := w.records[0]
	if rec[syslogrecord.FieldSourceIP] != "10.0.0.5" {
		t.Errorf("source_ip = %v, want 10.0.0.5", rec[syslogrecord.FieldSourceIP])
	}
	receivedAt, _ := rec[syslogrecord.FieldReceivedAt].(string)
	if receivedAt == "" {
		t.Error("expected received_at to be set")
	}
	if _, err := time.Parse(time.RFC3339Nano, receivedAt); err != nil {
		t.Errorf("received_at not RFC3339Nano: %v", err)
	}
}

func TestProcessDropsDuplicates(t *testing.T) {
	w := &fakeWriter{}
	p := New(denyAllDedup{}, w)

	p.Process("10.0.0.5", "<11>Jan 15 10:30:48 server1 app: Failed")

	if w.count() != 0 {
		t.Fatalf("expected 0 records written, got %d", w.count())
	}
}

func TestProcessWithNilDeduplicatorAlwaysWrites(t *testing.T) {
	w := &fakeWriter{}
	p := New(nil, w)

	p.Process("10.0.0.5", "plain message with no header")

	if w.count() != 1 {
		t.Fatalf("expected 1 record written, got %d", w.count())
	}
}
