package framing

import (
	"reflect"
	"strings"
	"testing"
)

func feedAll(d *Decoder, chunks ...string) []string {
	var out []string
	for _, c := range chunks {
		out = append(out, d.Feed([]byte(c))...)
	}
	return out
}

func TestConsecutiveFramesNoSeparator(t *testing.T) {
	d := New(Config{})
	got := feedAll(d, "5 HELLO5 WORLD")
	want := []string{"HELLO", "WORLD"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSingleByteResync(t *testing.T) {
	d := New(Config{})
	got := feedAll(d, "X 5 HELLO")
	want := []string{"HELLO"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSplitReads(t *testing.T) {
	d := New(Config{})
	if got := d.Feed([]byte("11 hel")); len(got) != 0 {
		t.Fatalf("expected no records yet, got %v", got)
	}
	got := d.Feed([]byte("lo world"))
	want := []string{"hello world"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestChunkInvariance(t *testing.T) {
	input := "5 hello6 world!13 final message"

	whole := New(Config{})
	wholeOut := feedAll(whole, input)

	var chunked []string
	byOne := New(Config{})
	for i := 0; i < len(input); i++ {
		chunked = append(chunked, byOne.Feed([]byte{input[i]})...)
	}

	if !reflect.DeepEqual(wholeOut, chunked) {
		t.Fatalf("chunk-variance: whole=%v chunked=%v", wholeOut, chunked)
	}
}

func TestOversizeDeclaredLengthSkipsThroughNewline(t *testing.T) {
	d := New(Config{MaxMsgLen: 100})
	input := "999999 short\n5 hello"
	got := feedAll(d, input)
	want := []string{"hello"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestOversizeDeclaredLengthNoNewlineDiscardsAll(t *testing.T) {
	d := New(Config{MaxMsgLen: 100})
	got := feedAll(d, "999999 no newline here")
	if len(got) != 0 {
		t.Fatalf("expected no records, got %v", got)
	}
	if len(d.buf) != 0 {
		t.Fatalf("expected buffer drained, got %d bytes", len(d.buf))
	}
}

func TestBufferOverflowResetsAndReportsNoRecords(t *testing.T) {
	d := New(Config{MaxBufferSize: 16})
	got := d.Feed([]byte(strings.Repeat("a", 32)))
	if len(got) != 0 {
		t.Fatalf("expected no records on overflow, got %v", got)
	}
	if d.Overflows() != 1 {
		t.Fatalf("expected 1 overflow, got %d", d.Overflows())
	}
	if len(d.buf) != 0 {
		t.Fatalf("expected buffer reset, got %d bytes", len(d.buf))
	}
}

func TestInvalidUTF8Replaced(t *testing.T) {
	d := New(Config{})
	payload := []byte{0xff, 0xfe, 'h', 'i'}
	data := append([]byte("4 "), payload...)
	got := d.Feed(data)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %v", got)
	}
	if !strings.Contains(got[0], "hi") {
		t.Fatalf("expected payload to retain valid bytes, got %q", got[0])
	}
	if !strings.ContainsRune(got[0], '�') {
		t.Fatalf("expected replacement character, got %q", got[0])
	}
}

func TestPartialFrameNeedsMoreData(t *testing.T) {
	d := New(Config{})
	got := d.Feed([]byte("12 partial"))
	if len(got) != 0 {
		t.Fatalf("expected no records for partial frame, got %v", got)
	}
}

func TestHugeLengthPrefixDoesNotOverflow(t *testing.T) {
	d := New(Config{MaxMsgLen: 100})
	input := "99999999999999999999 short\n5 hello"
	got := feedAll(d, input)
	want := []string{"hello"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
