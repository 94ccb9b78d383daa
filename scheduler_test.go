package treasury

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingAnnouncer struct {
	calls atomic.Int32
	err   error
}

func (a *countingAnnouncer) Announce(context.Context) error {
	a.calls.Add(1)
	return a.err
}

// slowReader reports the peak number of concurrent queries.
type slowReader struct {
	delay   time.Duration
	mu      sync.Mutex
	running int
	peak    int
	total   int
}

func (r *slowReader) Query(ctx context.Context, _ Account) (Quantity, error) {
	r.mu.Lock()
	r.running++
	r.total++
	r.peak = max(r.peak, r.running)
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running--
		r.mu.Unlock()
	}()
	select {
	case <-time.After(r.delay):
		return Q(1), nil
	case <-ctx.Done():
		return Quantity{}, ctx.Err()
	}
}

func (r *slowReader) stats() (peak, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak, r.total
}

const oneAccount = `{"accounts": [{"address": "Sol11111", "type": "SOL", "symbol": "SOL", "name": "Hot wallet"}]}`

func TestScheduler_NoOverlap(t *testing.T) {
	store := writeState(t, oneAccount)
	reader := &slowReader{delay: 30 * time.Millisecond}
	w, err := NewWatcher(Config{Store: store, Reader: reader, Oracle: fixedPrice(1)})
	if err != nil {
		t.Fatal(err)
	}
	announcer := &countingAnnouncer{}
	s, err := NewScheduler(w, announcer, 5*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// manual cycles compete with the scheduled ones
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			_, _ = w.Cycle(ctx)
		}
	}()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	wg.Wait()

	peak, total := reader.stats()
	if peak != 1 {
		t.Errorf("peak concurrent queries = %d, want 1", peak)
	}
	if total < 2 {
		t.Errorf("queries = %d, want at least 2", total)
	}
	if s.Cycles() < 1 {
		t.Errorf("Cycles() = %d, want at least 1", s.Cycles())
	}
	if got := announcer.calls.Load(); got != 1 {
		t.Errorf("announcer called %d times, want 1", got)
	}
	if s.State() != Idle {
		t.Errorf("State() = %v, want idle", s.State())
	}
}

func TestScheduler_FirstCycleIsImmediate(t *testing.T) {
	store := writeState(t, oneAccount)
	w, err := NewWatcher(Config{Store: store, Reader: balances(map[string]float64{"Sol11111": 4}), Oracle: fixedPrice(1)})
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewScheduler(w, nil, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for w.Last() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if w.Last() == nil {
		t.Fatal("no cycle ran before the first interval")
	}
	if got := w.Last().Summary.TotalNative; !got.Equal(Q(4)) {
		t.Errorf("TotalNative = %v, want 4", got)
	}
}

func TestScheduler_FailuresDoNotStop(t *testing.T) {
	store := writeState(t, oneAccount)
	var calls atomic.Int32
	failing := BalanceReaderFunc(func(context.Context, Account) (Quantity, error) {
		calls.Add(1)
		return Quantity{}, errors.New("rpc down")
	})
	w, err := NewWatcher(Config{Store: store, Reader: failing, Oracle: fixedPrice(1)})
	if err != nil {
		t.Fatal(err)
	}
	announcer := &countingAnnouncer{err: errors.New("gateway closed")}
	s, err := NewScheduler(w, announcer, 5*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := calls.Load(); got < 2 {
		t.Errorf("reader called %d times, want the schedule to go on after failures", got)
	}
}

func TestNewScheduler_Invalid(t *testing.T) {
	w, err := NewWatcher(Config{Store: NewFileStore("unused.json"), Reader: balances(nil), Oracle: fixedPrice(1)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewScheduler(nil, nil, time.Minute, nil); err == nil {
		t.Error("NewScheduler(nil watcher) error = nil, want an error")
	}
	if _, err := NewScheduler(w, nil, 0, nil); err == nil {
		t.Error("NewScheduler(0 interval) error = nil, want an error")
	}
}
