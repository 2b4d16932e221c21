package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(threshold int, reset time.Duration) (*CircuitBreaker, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: threshold, ResetTimeout: reset})
	cb.nowFunc = clk.Now
	return cb, clk
}

func fail(_ context.Context) error { return errors.New("fail") }
func ok(_ context.Context) error   { return nil }

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	if cb.cfg.FailureThreshold != 3 || cb.cfg.ResetTimeout != 60*time.Second || cb.cfg.HalfOpenMaxProbes != 1 {
		t.Errorf("unexpected defaults: %+v", cb.cfg)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("should not be called when open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), ok)
	if cb.Failures() != 0 {
		t.Errorf("expected failures reset, got %d", cb.Failures())
	}
	_ = cb.Execute(context.Background(), fail)
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clk := newTestBreaker(1, time.Minute)

	_ = cb.Execute(context.Background(), fail)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	clk.Advance(time.Minute)
	if cb.State() != CircuitHalfOpen {
		t.Errorf("expected half-open after reset timeout, got %s", cb.State())
	}

	if err := cb.Execute(context.Background(), ok); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clk := newTestBreaker(1, time.Minute)

	_ = cb.Execute(context.Background(), fail)
	clk.Advance(2 * time.Minute)
	_ = cb.Execute(context.Background(), fail)

	if cb.State() != CircuitOpen {
		t.Errorf("expected reopened, got %s", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_CancellationDoesNotTrip(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)

	_ = cb.Execute(context.Background(), func(_ context.Context) error { return context.Canceled })
	if cb.State() != CircuitClosed {
		t.Errorf("caller cancellation should not open the circuit, got %s", cb.State())
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = cb.Execute(context.Background(), fail)
	cb.Reset()

	want := []string{"closed->open", "open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestExecuteVal(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)

	v, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Fatalf("got %d, %v", v, err)
	}

	_, _ = ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return 0, errors.New("x") })
	v, err = ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return 7, nil })
	if !errors.Is(err, ErrCircuitOpen) || v != 0 {
		t.Errorf("expected zero value and ErrCircuitOpen, got %d, %v", v, err)
	}
}

func TestBreakerConfigFrom(t *testing.T) {
	cfg := BreakerConfigFrom(5, 10)
	if cfg.FailureThreshold != 5 || cfg.ResetTimeout != 10*time.Second {
		t.Errorf("unexpected config: %+v", cfg)
	}
	cfg = BreakerConfigFrom(0, -1)
	if cfg.FailureThreshold != 3 || cfg.ResetTimeout != 60*time.Second {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestEndpointBreakers(t *testing.T) {
	eb := NewEndpointBreakers(CircuitBreakerConfig{FailureThreshold: 1})

	a := eb.For("https://a.example")
	if eb.For("https://a.example") != a {
		t.Error("expected same breaker for same endpoint")
	}
	b := eb.For("https://b.example")
	_ = b.Execute(context.Background(), fail)

	snap := eb.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}
	if snap[0].Endpoint != "https://a.example" || snap[0].State != "closed" {
		t.Errorf("unexpected first entry %+v", snap[0])
	}
	if snap[1].State != "open" || snap[1].Failures != 1 {
		t.Errorf("unexpected second entry %+v", snap[1])
	}
}

func TestEndpointBreakers_Concurrent(t *testing.T) {
	eb := NewEndpointBreakers(DefaultCircuitBreakerConfig())

	var wg sync.WaitGroup
	got := make([]*CircuitBreaker, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = eb.For("https://same.example")
		}(i)
	}
	wg.Wait()

	for i := range got {
		if got[i] != got[0] {
			t.Fatal("expected a single breaker per endpoint")
		}
	}
}
