package core

import "fmt"

// RejectReason is the stable, programmatic reason a PendingTransaction was
// rejected. Every variant carries enough context (symbols,
// wallets, values) to diagnose without additional logs, and Kind() is
// stable across versions so tests and callers may assert on it.
type RejectReason interface {
	error
	Kind() string
}

// UnknownUnitReason covers both an outright-unregistered unit and a
// units_to_create conflict (same symbol, different declared content),
// distinguished by Variant.
type UnknownUnitReason struct {
	Symbol  string
	Variant string // "NotRegistered" or "UnitConflict"
}

func (r *UnknownUnitReason) Kind() string { return "UnknownUnit" }
func (r *UnknownUnitReason) Error() string {
	return fmt.Sprintf("unknown unit %q (%s)", r.Symbol, r.Variant)
}

// UnknownWalletReason is returned when a move references a wallet that has
// never been registered. SYSTEM_WALLET is always known.
type UnknownWalletReason struct {
	Name WalletID
}

func (r *UnknownWalletReason) Kind() string  { return "UnknownWallet" }
func (r *UnknownWalletReason) Error() string { return fmt.Sprintf("unknown wallet %q", r.Name) }

// BalanceOutOfRangeReason is returned when a non-system wallet's proposed
// balance for a unit would fall outside [min_balance, max_balance].
type BalanceOutOfRangeReason struct {
	Wallet           WalletID
	Unit             string
	Proposed, Min, Max Decimal
}

func (r *BalanceOutOfRangeReason) Kind() string { return "BalanceOutOfRange" }
func (r *BalanceOutOfRangeReason) Error() string {
	return fmt.Sprintf("wallet %q unit %q proposed balance %s outside [%s, %s]",
		r.Wallet, r.Unit, r.Proposed.ToCanonicalString(), r.Min.ToCanonicalString(), r.Max.ToCanonicalString())
}

// TransferRuleViolationReason is returned when a unit's TransferRule
// rejects one of the transaction's moves.
type TransferRuleViolationReason struct {
	Unit    string
	Message string
}

func (r *TransferRuleViolationReason) Kind() string  { return "TransferRuleViolation" }
func (r *TransferRuleViolationReason) Error() string { return fmt.Sprintf("unit %q: %s", r.Unit, r.Message) }

// StaleStateReason is an advisory record describing a mismatch between a
// UnitStateChange's old_state belief and the unit's actual current state.
// It is only ever a RejectReason in strict mode; in the
// default warn mode it is delivered through the StaleStateObserver channel
// instead and execution proceeds.
type StaleStateReason struct {
	Unit           string
	Key            string
	Expected, Actual string
}

func (r *StaleStateReason) Kind() string { return "StaleState" }
func (r *StaleStateReason) Error() string {
	return fmt.Sprintf("unit %q key %q stale: expected %s, actual %s", r.Unit, r.Key, r.Expected, r.Actual)
}

// InvalidTimestampReason is returned when a proposed timestamp precedes
// the ledger's current_time.
type InvalidTimestampReason struct {
	Proposed, Current LogicalTime
}

func (r *InvalidTimestampReason) Kind() string { return "InvalidTimestamp" }
func (r *InvalidTimestampReason) Error() string {
	return fmt.Sprintf("proposed timestamp %s precedes current_time %s", r.Proposed, r.Current)
}

// DegenerateMoveReason is defensive: it should be unreachable if Move
// construction invariants are enforced, but execute checks anyway rather
// than trusting the caller blindly.
type DegenerateMoveReason struct {
	Reason string
}

func (r *DegenerateMoveReason) Kind() string  { return "DegenerateMove" }
func (r *DegenerateMoveReason) Error() string { return "degenerate move: " + r.Reason }

// ErrUnboundedCascade is a fatal configuration error: the lifecycle engine
// exceeded max_cascade_passes within a single step. It is a Go
// error, not an ExecuteResult, because it is not a property of any one
// transaction.
type ErrUnboundedCascade struct {
	MaxPasses int
}

func (e *ErrUnboundedCascade) Error() string {
	return fmt.Sprintf("lifecycle: unbounded cascade, exceeded max_cascade_passes=%d", e.MaxPasses)
}

// ExecuteResultKind discriminates the three possible outcomes of execute.
type ExecuteResultKind int

const (
	ResultApplied ExecuteResultKind = iota
	ResultAlreadyApplied
	ResultRejected
)

func (k ExecuteResultKind) String() string {
	switch k {
	case ResultApplied:
		return "Applied"
	case ResultAlreadyApplied:
		return "AlreadyApplied"
	case ResultRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// ExecuteResult is the tagged-union result of execute. Exactly one of
// Transaction, ExecID, Reason is populated, matching Kind.
type ExecuteResult struct {
	Kind        ExecuteResultKind
	Transaction *Transaction
	ExecID      string
	Reason      RejectReason
}

func appliedResult(tx *Transaction) ExecuteResult {
	return ExecuteResult{Kind: ResultApplied, Transaction: tx}
}

func alreadyAppliedResult(execID string) ExecuteResult {
	return ExecuteResult{Kind: ResultAlreadyApplied, ExecID: execID}
}

func rejectedResult(reason RejectReason) ExecuteResult {
	return ExecuteResult{Kind: ResultRejected, Reason: reason}
}
