package dedup

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newForTest(t *testing.T, window time.Duration) *Deduplicator {
	t.Helper()
	d, err := New(Config{Window: window})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = d.Close(ctx)
	})
	return d
}

func TestShouldWriteWindow(t *testing.T) {
	d := newForTest(t, 100*time.Millisecond)

	if !d.ShouldWrite("1.1.1.1", 14, "m") {
		t.Fatal("first sighting should return true")
	}
	if d.ShouldWrite("1.1.1.1", 14, "m") {
		t.Fatal("immediate repeat should return false")
	}

	time.Sleep(150 * time.Millisecond)

	if !d.ShouldWrite("1.1.1.1", 14, "m") {
		t.Fatal("sighting after window elapsed should return true")
	}
}

func TestShouldWriteExactlyOneFirstSighting(t *testing.T) {
	d := newForTest(t, time.Minute)

	const n = 50
	results := make(chan bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- d.ShouldWrite("host", 5, "same message")
		}()
	}
	wg.Wait()
	close(results)

	trueCount := 0
	for i := 0; i < n; i++ {
		if <-results {
			trueCount++
		}
	}
	if trueCount != 1 {
		t.Fatalf("expected exactly 1 true, got %d", trueCount)
	}
}

func TestCompositeKeyIsExactMatch(t *testing.T) {
	d := newForTest(t, time.Minute)

	if !d.ShouldWrite("host", 1, "message") {
		t.Fatal("first sighting should be true")
	}
	if !d.ShouldWrite("host", 1, "message ") {
		t.Fatal("trailing-space variant is a distinct key, should be true")
	}
	if !d.ShouldWrite("host", 2, "message") {
		t.Fatal("different priority is a distinct key, should be true")
	}
	if !d.ShouldWrite("host2", 1, "message") {
		t.Fatal("different source is a distinct key, should be true")
	}
}

func TestCleanupRemovesStaleEntries(t *testing.T) {
	d := newForTest(t, 10*time.Millisecond)

	d.ShouldWrite("a", 1, "m")
	time.Sleep(20 * time.Millisecond)
	d.Cleanup()

	d.mu.Lock()
	n := len(d.seen)
	d.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected map empty after cleanup, got %d entries", n)
	}
}
