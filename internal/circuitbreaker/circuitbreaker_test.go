package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

// TestOpensAfterFailureThreshold verifies consecutive failures open the
// circuit and further calls fail fast with ErrOpen.
func TestOpensAfterFailureThreshold(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, Timeout: time.Hour})

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return errUpstream }); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d error = %v, want upstream error", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want open", cb.State())
	}

	called := false
	err := cb.Call(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Call() error = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn was invoked while circuit open")
	}
}

// TestHalfOpenProbeClosesCircuit verifies the open→half-open→closed path
// after the timeout elapses and probes succeed.
func TestHalfOpenProbeClosesCircuit(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Millisecond})

	if err := cb.Call(func() error { return errUpstream }); err == nil {
		t.Fatal("expected failure")
	}
	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want open", cb.State())
	}

	time.Sleep(2 * time.Millisecond)

	for i := 0; i < 2; i++ {
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("probe %d error = %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want closed after successful probes", cb.State())
	}
}

// TestHalfOpenFailureReopens verifies a failed probe reopens immediately.
func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, Timeout: time.Millisecond})

	_ = cb.Call(func() error { return errUpstream })
	time.Sleep(2 * time.Millisecond)

	if err := cb.Call(func() error { return errUpstream }); !errors.Is(err, errUpstream) {
		t.Fatalf("probe error = %v", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("State() = %v, want open after failed probe", cb.State())
	}
}

// TestStateChangeHook verifies the transition hook fires with the edges.
func TestStateChangeHook(t *testing.T) {
	var edges []string
	cb := New(Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Millisecond,
		OnStateChange: func(from, to State) {
			edges = append(edges, from.String()+"->"+to.String())
		},
	})

	_ = cb.Call(func() error { return errUpstream })
	time.Sleep(2 * time.Millisecond)
	_ = cb.Call(func() error { return nil })

	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(edges) != len(want) {
		t.Fatalf("edges = %v, want %v", edges, want)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d = %s, want %s", i, edges[i], want[i])
		}
	}
}
