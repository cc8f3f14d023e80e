package core

import (
	"testing"
	"time"
)

func TestLifecycleStepAppliesDueEvent(t *testing.T) {
	l, start := newTestLedger(t)
	registerUSD(t, l)
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}
	seed, _ := NewMove(mustCanonical("100"), "USD", SystemWallet, "alice", "")
	pt, _ := NewPendingTransaction([]Move{seed}, nil, nil, Origin{Source: "seed"}, start, 128)
	if r := l.Execute(pt); r.Kind != ResultApplied {
		t.Fatalf("seed failed: %+v", r)
	}
	if err := l.RegisterWallet("bob"); err != nil {
		t.Fatal(err)
	}

	scheduler := NewScheduler()
	dueAt := NewLogicalTime(start.UTC().Add(time.Hour))
	scheduler.Schedule(NewEvent(dueAt, 0, "USD", "payout", nil, 0))

	handlers := NewHandlerRegistry()
	handlers.Register("payout", EventHandlerFunc(func(event Event, view LedgerView, prices PriceTable) (*PendingTransaction, error) {
		mv, err := NewMove(mustCanonical("15"), "USD", "alice", "bob", "")
		if err != nil {
			return nil, err
		}
		pt, err := NewPendingTransaction([]Move{mv}, nil, nil, Origin{Source: "payout"}, event.TriggerTime, 128)
		if err != nil {
			return nil, err
		}
		return &pt, nil
	}))

	lc := NewLifecycle(l, scheduler, handlers, 10)
	executed, err := lc.Step(dueAt, PriceTable{})
	if err != nil {
		t.Fatalf("Step returned error: %v", err)
	}
	if len(executed) != 1 {
		t.Fatalf("expected 1 executed transaction, got %d", len(executed))
	}

	if got := l.GetBalance("bob", "USD"); got.ToCanonicalString() != "15" {
		t.Fatalf("bob balance after step = %s, want 15", got.ToCanonicalString())
	}
	if scheduler.Len() != 0 {
		t.Fatalf("due event should have been consumed, queue len=%d", scheduler.Len())
	}
}

// everGrowingCounterContract always proposes a state change that bumps a
// counter embedded in the unit's own state, so every pass's
// PendingTransaction is genuinely distinct (and therefore always
// Applied, never AlreadyApplied) — used to exercise the cascade bound.
type everGrowingCounterContract struct{}

func (c *everGrowingCounterContract) CheckLifecycle(view LedgerView, symbol string, timestamp LogicalTime, prices PriceTable) (*PendingTransaction, error) {
	state, _ := view.GetUnitState(symbol)
	var count int64
	if v, ok := state.Get("counter"); ok {
		count = int64(v.(Int))
	}
	newState := state.Clone().Set("counter", Int(count+1))
	sc, err := NewUnitStateChange(symbol, state, newState)
	if err != nil {
		return nil, err
	}
	pt, err := NewPendingTransaction(nil, []UnitStateChange{sc}, nil, Origin{Source: "cascade"}, timestamp, 128)
	if err != nil {
		return nil, err
	}
	return &pt, nil
}

func TestLifecycleStepReturnsErrUnboundedCascade(t *testing.T) {
	l, start := newTestLedger(t)
	registerUSD(t, l)
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}
	if err := l.RegisterWallet("bob"); err != nil {
		t.Fatal(err)
	}

	scheduler := NewScheduler()
	handlers := NewHandlerRegistry()
	lc := NewLifecycle(l, scheduler, handlers, 3)
	lc.RegisterContract("currency", &everGrowingCounterContract{})

	_, err := lc.Step(start, PriceTable{})
	if err == nil {
		t.Fatal("expected ErrUnboundedCascade")
	}
	if _, ok := err.(*ErrUnboundedCascade); !ok {
		t.Fatalf("expected *ErrUnboundedCascade, got %T: %v", err, err)
	}
}
