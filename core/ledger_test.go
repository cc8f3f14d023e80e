package core

import (
	"testing"
	"time"
)

func newTestLedger(t *testing.T) (*Ledger, LogicalTime) {
	t.Helper()
	start := NewLogicalTime(mustParseRFC3339(t, "2026-01-01T00:00:00Z"))
	cfg := DefaultLedgerConfig("test", start)
	cfg.TestMode = true
	return NewLedger(cfg), start
}

func registerUSD(t *testing.T, l *Ledger) Unit {
	t.Helper()
	places := int32(2)
	u, err := NewUnit("USD", "US Dollar", "currency", mustCanonical("0"), mustCanonical("10000"), &places, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result, err := l.RegisterUnit(u); err != nil || result.Kind != ResultApplied {
		t.Fatalf("register unit: result=%+v err=%v", result, err)
	}
	return u
}

func TestRegisterWalletIsIdempotent(t *testing.T) {
	l, _ := newTestLedger(t)
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}
	wallets := l.ListWallets()
	if len(wallets) != 1 {
		t.Fatalf("expected 1 wallet, got %d", len(wallets))
	}
}

func TestExecuteSimpleTransferApplies(t *testing.T) {
	l, start := newTestLedger(t)
	registerUSD(t, l)
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}
	if err := l.RegisterWallet("bob"); err != nil {
		t.Fatal(err)
	}

	seed, _ := NewMove(mustCanonical("100"), "USD", SystemWallet, "alice", "")
	pt, err := NewPendingTransaction([]Move{seed}, nil, nil, Origin{Source: "seed"}, start, 128)
	if err != nil {
		t.Fatal(err)
	}
	if result := l.Execute(pt); result.Kind != ResultApplied {
		t.Fatalf("seed move rejected: %+v", result.Reason)
	}

	transferTime := NewLogicalTime(start.UTC().Add(time.Hour))
	mv, _ := NewMove(mustCanonical("30"), "USD", "alice", "bob", "")
	pt2, err := NewPendingTransaction([]Move{mv}, nil, nil, Origin{Source: "test"}, transferTime, 128)
	if err != nil {
		t.Fatal(err)
	}
	result := l.Execute(pt2)
	if result.Kind != ResultApplied {
		t.Fatalf("transfer rejected: %+v", result.Reason)
	}

	if got := l.GetBalance("alice", "USD"); got.ToCanonicalString() != "70" {
		t.Fatalf("alice balance = %s, want 70", got.ToCanonicalString())
	}
	if got := l.GetBalance("bob", "USD"); got.ToCanonicalString() != "30" {
		t.Fatalf("bob balance = %s, want 30", got.ToCanonicalString())
	}
	if !l.TotalSupply("USD").IsZero() {
		t.Fatalf("total supply should net to zero, got %s", l.TotalSupply("USD").ToCanonicalString())
	}
}

func TestExecuteDuplicateIntentIsAlreadyApplied(t *testing.T) {
	l, start := newTestLedger(t)
	registerUSD(t, l)
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}

	mv, _ := NewMove(mustCanonical("10"), "USD", SystemWallet, "alice", "")
	pt, err := NewPendingTransaction([]Move{mv}, nil, nil, Origin{Source: "test"}, start, 128)
	if err != nil {
		t.Fatal(err)
	}

	first := l.Execute(pt)
	if first.Kind != ResultApplied {
		t.Fatalf("first execute should apply: %+v", first.Reason)
	}
	second := l.Execute(pt)
	if second.Kind != ResultAlreadyApplied {
		t.Fatalf("resubmitting the same intent should be AlreadyApplied, got %s", second.Kind)
	}
	if second.ExecID != first.Transaction.ExecID {
		t.Fatalf("AlreadyApplied exec_id mismatch: %s vs %s", second.ExecID, first.Transaction.ExecID)
	}
}

func TestExecuteRejectsUnknownWallet(t *testing.T) {
	l, start := newTestLedger(t)
	registerUSD(t, l)
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}

	mv, _ := NewMove(mustCanonical("10"), "USD", SystemWallet, "ghost", "")
	pt, err := NewPendingTransaction([]Move{mv}, nil, nil, Origin{Source: "test"}, start, 128)
	if err != nil {
		t.Fatal(err)
	}
	result := l.Execute(pt)
	if result.Kind != ResultRejected || result.Reason.Kind() != "UnknownWallet" {
		t.Fatalf("expected UnknownWallet rejection, got %+v", result)
	}
}

func TestExecuteRejectsUnknownUnit(t *testing.T) {
	l, start := newTestLedger(t)
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}

	mv, _ := NewMove(mustCanonical("10"), "USD", SystemWallet, "alice", "")
	pt, err := NewPendingTransaction([]Move{mv}, nil, nil, Origin{Source: "test"}, start, 128)
	if err != nil {
		t.Fatal(err)
	}
	result := l.Execute(pt)
	if result.Kind != ResultRejected || result.Reason.Kind() != "UnknownUnit" {
		t.Fatalf("expected UnknownUnit rejection, got %+v", result)
	}
}

func TestExecuteRejectsUnitConflict(t *testing.T) {
	l, _ := newTestLedger(t)
	u := registerUSD(t, l)

	conflicting, err := NewUnit("USD", "Different Name", "currency", u.MinBalance, u.MaxBalance, u.DecimalPlaces, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := l.RegisterUnit(conflicting)
	if err != nil {
		t.Fatal(err)
	}
	if result.Kind != ResultRejected || result.Reason.Kind() != "UnknownUnit" {
		t.Fatalf("expected UnitConflict rejection, got %+v", result)
	}
}

func TestExecuteRejectsBalanceOutOfRange(t *testing.T) {
	l, start := newTestLedger(t)
	registerUSD(t, l)
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}

	mv, _ := NewMove(mustCanonical("20000"), "USD", SystemWallet, "alice", "")
	pt, err := NewPendingTransaction([]Move{mv}, nil, nil, Origin{Source: "test"}, start, 128)
	if err != nil {
		t.Fatal(err)
	}
	result := l.Execute(pt)
	if result.Kind != ResultRejected || result.Reason.Kind() != "BalanceOutOfRange" {
		t.Fatalf("expected BalanceOutOfRange rejection, got %+v", result)
	}
	if got := l.GetBalance("alice", "USD"); !got.IsZero() {
		t.Fatalf("rejected transaction must not mutate balances, got %s", got.ToCanonicalString())
	}
}

func TestExecuteRejectsStaleTimestamp(t *testing.T) {
	l, start := newTestLedger(t)
	registerUSD(t, l)
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}
	if err := l.AdvanceTime(NewLogicalTime(start.UTC().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	mv, _ := NewMove(mustCanonical("10"), "USD", SystemWallet, "alice", "")
	pt, err := NewPendingTransaction([]Move{mv}, nil, nil, Origin{Source: "test"}, start, 128)
	if err != nil {
		t.Fatal(err)
	}
	result := l.Execute(pt)
	if result.Kind != ResultRejected || result.Reason.Kind() != "InvalidTimestamp" {
		t.Fatalf("expected InvalidTimestamp rejection, got %+v", result)
	}
}

func TestExecuteTransferRuleViolationRollsBack(t *testing.T) {
	l, start := newTestLedger(t)
	places := int32(2)
	rule := NewRoleGatedTransferRule("USD", []WalletID{"alice"})
	u, err := NewUnit("USD", "US Dollar", "currency", mustCanonical("0"), mustCanonical("10000"), &places, rule, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result, err := l.RegisterUnit(u); err != nil || result.Kind != ResultApplied {
		t.Fatalf("register unit: %+v %v", result, err)
	}
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}
	if err := l.RegisterWallet("bob"); err != nil {
		t.Fatal(err)
	}

	// bob is funded too, so the bob -> alice move passes the balance range
	// check and only the transfer rule can reject it.
	seed, _ := NewMove(mustCanonical("100"), "USD", SystemWallet, "alice", "")
	seedBob, _ := NewMove(mustCanonical("100"), "USD", SystemWallet, "bob", "")
	seedPT, _ := NewPendingTransaction([]Move{seed, seedBob}, nil, nil, Origin{Source: "seed"}, start, 128)
	if r := l.Execute(seedPT); r.Kind != ResultApplied {
		t.Fatalf("seed failed: %+v", r)
	}

	mv, _ := NewMove(mustCanonical("10"), "USD", "bob", "alice", "")
	later := NewLogicalTime(start.UTC().Add(time.Hour))
	pt, _ := NewPendingTransaction([]Move{mv}, nil, nil, Origin{Source: "test"}, later, 128)
	result := l.Execute(pt)
	if result.Kind != ResultRejected || result.Reason.Kind() != "TransferRuleViolation" {
		t.Fatalf("expected TransferRuleViolation, got %+v", result)
	}
	if got := l.GetBalance("bob", "USD"); got.ToCanonicalString() != "100" {
		t.Fatalf("rejected transfer must not change bob's balance, got %s", got.ToCanonicalString())
	}
	if got := l.GetBalance("alice", "USD"); got.ToCanonicalString() != "100" {
		t.Fatalf("rejected transfer must not change alice's balance, got %s", got.ToCanonicalString())
	}
}

func TestSetBalanceRequiresTestMode(t *testing.T) {
	start := NewLogicalTime(time.Now())
	cfg := DefaultLedgerConfig("prod", start)
	l := NewLedger(cfg)
	if err := l.SetBalance("alice", "USD", mustCanonical("5")); err == nil {
		t.Fatal("expected error when test_mode is disabled")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	l, _ := newTestLedger(t)
	registerUSD(t, l)
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}
	if err := l.SetBalance("alice", "USD", mustCanonical("50")); err != nil {
		t.Fatal(err)
	}

	clone := l.Clone()
	if err := clone.SetBalance("alice", "USD", mustCanonical("999")); err != nil {
		t.Fatal(err)
	}

	if got := l.GetBalance("alice", "USD"); got.ToCanonicalString() != "50" {
		t.Fatalf("mutating a clone affected the original: %s", got.ToCanonicalString())
	}
}

func TestAdvanceTimeRejectsBackwardMove(t *testing.T) {
	l, start := newTestLedger(t)
	if err := l.AdvanceTime(NewLogicalTime(start.UTC().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	err := l.AdvanceTime(start)
	if err == nil {
		t.Fatal("expected AdvanceTime to reject a target before current_time")
	}
	reason, ok := err.(*InvalidTimestampReason)
	if !ok {
		t.Fatalf("expected *InvalidTimestampReason, got %T: %v", err, err)
	}
	if !reason.Current.Equal(NewLogicalTime(start.UTC().Add(time.Hour))) {
		t.Fatalf("unexpected current_time in rejection: %v", reason.Current)
	}
}

// viewProbingTransferRule exercises a TransferRule that reads ledger
// state through the view it's given, the path the built-in rules never
// touch. Running it during Execute (which holds l.mu) must not panic.
type viewProbingTransferRule struct{}

func (viewProbingTransferRule) CheckTransfer(view LedgerView, move Move) *TransferRuleViolationReason {
	bal := view.GetBalance(move.Source, move.UnitSymbol)
	if _, ok := view.GetUnitState(move.UnitSymbol); !ok {
		return &TransferRuleViolationReason{Unit: move.UnitSymbol, Message: "unit state unavailable"}
	}
	_ = view.GetPositions(move.UnitSymbol)
	_ = view.ListWallets()
	_ = view.CurrentTime()
	if bal.Sign() < 0 {
		return &TransferRuleViolationReason{Unit: move.UnitSymbol, Message: "negative balance"}
	}
	return nil
}

func TestExecuteTransferRuleCanReadViewWithoutDeadlock(t *testing.T) {
	l, start := newTestLedger(t)
	places := int32(2)
	u, err := NewUnit("USD", "US Dollar", "currency", mustCanonical("0"), mustCanonical("10000"), &places, viewProbingTransferRule{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result, err := l.RegisterUnit(u); err != nil || result.Kind != ResultApplied {
		t.Fatalf("register unit: result=%+v err=%v", result, err)
	}
	if err := l.RegisterWallet("alice"); err != nil {
		t.Fatal(err)
	}

	mv, _ := NewMove(mustCanonical("10"), "USD", SystemWallet, "alice", "")
	pt, err := NewPendingTransaction([]Move{mv}, nil, nil, Origin{Source: "test"}, start, 128)
	if err != nil {
		t.Fatal(err)
	}
	if result := l.Execute(pt); result.Kind != ResultApplied {
		t.Fatalf("expected a view-reading TransferRule to run without panicking, got %+v", result)
	}
}
