package core

import (
	"testing"
	"time"
)

func TestCloneAtReconstructsEarlierBalances(t *testing.T) {
	l, start := newTestLedger(t)
	registerUSD(t, l)
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}
	if err := l.RegisterWallet("bob"); err != nil {
		t.Fatal(err)
	}

	t1 := start
	seed, _ := NewMove(mustCanonical("100"), "USD", SystemWallet, "alice", "")
	pt1, _ := NewPendingTransaction([]Move{seed}, nil, nil, Origin{Source: "seed"}, t1, 128)
	if r := l.Execute(pt1); r.Kind != ResultApplied {
		t.Fatalf("seed failed: %+v", r)
	}

	t2 := NewLogicalTime(start.UTC().Add(time.Hour))
	mv, _ := NewMove(mustCanonical("40"), "USD", "alice", "bob", "")
	pt2, _ := NewPendingTransaction([]Move{mv}, nil, nil, Origin{Source: "test"}, t2, 128)
	if r := l.Execute(pt2); r.Kind != ResultApplied {
		t.Fatalf("transfer failed: %+v", r)
	}

	t3 := NewLogicalTime(start.UTC().Add(2 * time.Hour))
	mv2, _ := NewMove(mustCanonical("10"), "USD", "bob", "alice", "")
	pt3, _ := NewPendingTransaction([]Move{mv2}, nil, nil, Origin{Source: "test"}, t3, 128)
	if r := l.Execute(pt3); r.Kind != ResultApplied {
		t.Fatalf("transfer 2 failed: %+v", r)
	}

	asOfT2 := l.CloneAt(t2)
	if got := asOfT2.GetBalance("alice", "USD"); got.ToCanonicalString() != "60" {
		t.Fatalf("clone_at(t2) alice balance = %s, want 60", got.ToCanonicalString())
	}
	if got := asOfT2.GetBalance("bob", "USD"); got.ToCanonicalString() != "40" {
		t.Fatalf("clone_at(t2) bob balance = %s, want 40", got.ToCanonicalString())
	}
	// USD registration, seed, and the t2 transfer.
	if len(asOfT2.LogIter()) != 3 {
		t.Fatalf("clone_at(t2) log length = %d, want 3", len(asOfT2.LogIter()))
	}

	asOfT1 := l.CloneAt(t1)
	if got := asOfT1.GetBalance("alice", "USD"); got.ToCanonicalString() != "100" {
		t.Fatalf("clone_at(t1) alice balance = %s, want 100", got.ToCanonicalString())
	}
	if got := asOfT1.GetBalance("bob", "USD"); !got.IsZero() {
		t.Fatalf("clone_at(t1) bob balance = %s, want 0", got.ToCanonicalString())
	}

	if got := l.GetBalance("alice", "USD"); got.ToCanonicalString() != "70" {
		t.Fatalf("clone_at must not mutate the original ledger, alice = %s", got.ToCanonicalString())
	}
}

func TestCloneAtRemovesUnitsRegisteredAfterTarget(t *testing.T) {
	l, start := newTestLedger(t)
	registerUSD(t, l)

	later := NewLogicalTime(start.UTC().Add(time.Hour))
	places := int32(0)
	eur, err := NewUnit("EUR", "Euro", "currency", DecimalZero(), mustCanonical("1000"), &places, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	pt, err := NewPendingTransaction(nil, nil, []Unit{eur}, Origin{Source: "test"}, later, 128)
	if err != nil {
		t.Fatal(err)
	}
	if r := l.Execute(pt); r.Kind != ResultApplied {
		t.Fatalf("register EUR failed: %+v", r)
	}

	snapshot := l.CloneAt(start)
	if _, ok := snapshot.GetUnitState("EUR"); ok {
		t.Fatal("EUR should not exist in a snapshot taken before it was registered")
	}
	if _, ok := snapshot.GetUnitState("USD"); !ok {
		t.Fatal("USD should still exist in the snapshot")
	}
}

func TestCloneAtIsIdempotentAtCurrentTime(t *testing.T) {
	l, start := newTestLedger(t)
	registerUSD(t, l)
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}
	seed, _ := NewMove(mustCanonical("25"), "USD", SystemWallet, "alice", "")
	pt, _ := NewPendingTransaction([]Move{seed}, nil, nil, Origin{Source: "seed"}, start, 128)
	if r := l.Execute(pt); r.Kind != ResultApplied {
		t.Fatalf("seed failed: %+v", r)
	}

	snapshot := l.CloneAt(start)
	if got := snapshot.GetBalance("alice", "USD"); got.ToCanonicalString() != "25" {
		t.Fatalf("clone_at(current_time) alice balance = %s, want 25", got.ToCanonicalString())
	}
	// The full log is the USD registration plus the seed.
	if len(snapshot.LogIter()) != 2 {
		t.Fatalf("clone_at(current_time) should retain the full log of 2 entries, got %d", len(snapshot.LogIter()))
	}
}
