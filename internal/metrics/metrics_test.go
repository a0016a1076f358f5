package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

// fakeBackend is an in-memory Backend for tests.
type fakeBackend struct {
	mu         sync.Mutex
	counters   []counterCall
	histograms []counterCall
	flushes    int
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, counterCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

func install(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	prev := SetBackend(fb)
	t.Cleanup(func() { SetBackend(prev) })
	return fb
}

func TestRecordStep(t *testing.T) {
	fb := install(t)

	RecordStep("load", nil, 2*time.Second)
	RecordStep("clean", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.histograms) != 2 {
		t.Fatalf("got %d counter and %d histogram calls, want 2 and 2", len(fb.counters), len(fb.histograms))
	}

	c0 := fb.counters[0]
	if c0.name != StepTotal || c0.delta != 1 || c0.labels["step"] != "load" || c0.labels["status"] != "success" {
		t.Errorf("counter[0] = %#v", c0)
	}
	if c1 := fb.counters[1]; c1.labels["status"] != "failure" {
		t.Errorf("counter[1].labels[status] = %q, want failure", c1.labels["status"])
	}
	if h := fb.histograms[1]; h.name != StepDurationSeconds || h.delta < 1.499 || h.delta > 1.501 {
		t.Errorf("histogram[1] = %#v, want ~1.5s", h)
	}
}

func TestRecordRows(t *testing.T) {
	fb := install(t)

	RecordRows("duplicates", 10)
	RecordRows("duplicates", 0)
	RecordRows("outliers", -1)
	RecordRows("imputed", 5)

	if len(fb.counters) != 2 {
		t.Fatalf("got %d counter calls, want 2", len(fb.counters))
	}
	if c := fb.counters[0]; c.name != RowsTotal || c.delta != 10 || c.labels["kind"] != "duplicates" {
		t.Errorf("counter[0] = %#v", c)
	}
	if c := fb.counters[1]; c.delta != 5 || c.labels["kind"] != "imputed" {
		t.Errorf("counter[1] = %#v", c)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	fb := install(t)

	if err := Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if fb.flushes != 1 {
		t.Errorf("flushes = %d, want 1", fb.flushes)
	}

	if prev := SetBackend(nil); prev != fb {
		t.Errorf("SetBackend() returned %v, want the fake backend", prev)
	}
	if _, ok := current().(nopBackend); !ok {
		t.Errorf("SetBackend(nil) should install the no-op backend")
	}
	RecordRows("loaded", 3)
	if len(fb.counters) != 0 {
		t.Errorf("detached backend still received %d calls", len(fb.counters))
	}
}
