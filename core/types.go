package core

import (
	"fmt"
	"sort"
	"time"
)

// SystemWallet is the one reserved wallet identifier exempt from balance
// range validation. It represents issuance/redemption endpoints
// and is always considered registered.
const SystemWallet WalletID = "SYSTEM_WALLET"

// WalletID is an opaque wallet identifier. The core attaches no structure
// to it beyond equality and non-emptiness.
type WalletID string

// LogicalTime is an explicit timestamp value passed into every operation
// that needs one. It carries no behavior tied to the wall clock; the core
// never constructs one from time.Now(). Callers (tests, simulation
// drivers, CLI) are the only source of LogicalTime values.
type LogicalTime struct {
	t time.Time
}

// NewLogicalTime wraps a caller-supplied instant.
func NewLogicalTime(t time.Time) LogicalTime { return LogicalTime{t: t.UTC()} }

// UTC returns the underlying instant, always normalized to UTC.
func (lt LogicalTime) UTC() time.Time { return lt.t }

// Before reports whether lt is strictly earlier than other.
func (lt LogicalTime) Before(other LogicalTime) bool { return lt.t.Before(other.t) }

// After reports whether lt is strictly later than other.
func (lt LogicalTime) After(other LogicalTime) bool { return lt.t.After(other.t) }

// Equal reports whether lt and other denote the same instant.
func (lt LogicalTime) Equal(other LogicalTime) bool { return lt.t.Equal(other.t) }

// Max returns whichever of lt, other is later.
func (lt LogicalTime) Max(other LogicalTime) LogicalTime {
	if other.After(lt) {
		return other
	}
	return lt
}

func (lt LogicalTime) String() string { return canonicalTimestamp(lt) }

// Move is an atomic, signed transfer of a single unit between two distinct
// wallets. All Move values are constructed through NewMove, which enforces
// the construction-time invariants: quantity != 0 and
// finite, source != dest, both wallet ids non-empty.
type Move struct {
	Quantity   Decimal
	UnitSymbol string
	Source     WalletID
	Dest       WalletID
	ContractID string
}

// NewMove validates and constructs a Move.
func NewMove(quantity Decimal, unitSymbol string, source, dest WalletID, contractID string) (Move, error) {
	if quantity.IsZero() {
		return Move{}, &ErrInvalidQuantity{Input: "0"}
	}
	if !quantity.IsFinite() {
		return Move{}, &ErrInvalidQuantity{Input: quantity.ToCanonicalString()}
	}
	if unitSymbol == "" {
		return Move{}, fmt.Errorf("core: move unit symbol must not be empty")
	}
	if source == "" || dest == "" {
		return Move{}, fmt.Errorf("core: move source/dest must not be empty")
	}
	if source == dest {
		return Move{}, fmt.Errorf("core: move source and dest must differ (got %q)", source)
	}
	return Move{Quantity: quantity, UnitSymbol: unitSymbol, Source: source, Dest: dest, ContractID: contractID}, nil
}

// UnitStateChange is a declarative replacement of a unit's entire state
// mapping. old_state is the caller's belief at proposal time; new_state is
// the full replacement.
type UnitStateChange struct {
	UnitSymbol string
	OldState   *OrderedMap
	NewState   *OrderedMap
}

// NewUnitStateChange constructs a UnitStateChange, defensively cloning both
// state snapshots so later mutation of caller-held OrderedMaps cannot
// retroactively change a transaction already handed to execute.
func NewUnitStateChange(unitSymbol string, oldState, newState *OrderedMap) (UnitStateChange, error) {
	if unitSymbol == "" {
		return UnitStateChange{}, fmt.Errorf("core: state change unit symbol must not be empty")
	}
	return UnitStateChange{UnitSymbol: unitSymbol, OldState: oldState.Clone(), NewState: newState.Clone()}, nil
}

// Unit is the immutable definition of an asset type. Updates to
// State produce a new Unit value via WithState; identity fields
// (Symbol/Name/UnitType/bounds/DecimalPlaces/TransferRule) are preserved.
type Unit struct {
	Symbol        string
	Name          string
	UnitType      string
	MinBalance    Decimal
	MaxBalance    Decimal
	DecimalPlaces *int32
	TransferRule  TransferRule
	State         *OrderedMap
}

// NewUnit validates and constructs a Unit. State may be nil, meaning empty.
func NewUnit(symbol, name, unitType string, minBalance, maxBalance Decimal, decimalPlaces *int32, rule TransferRule, state *OrderedMap) (Unit, error) {
	if symbol == "" {
		return Unit{}, fmt.Errorf("core: unit symbol must not be empty")
	}
	if minBalance.Cmp(maxBalance) > 0 {
		return Unit{}, fmt.Errorf("core: unit %s min_balance > max_balance", symbol)
	}
	if state == nil {
		state = NewOrderedMap()
	}
	return Unit{
		Symbol: symbol, Name: name, UnitType: unitType,
		MinBalance: minBalance, MaxBalance: maxBalance,
		DecimalPlaces: decimalPlaces, TransferRule: rule,
		State: state.Clone(),
	}, nil
}

// WithState returns a copy of u with State replaced by newState, preserving
// every identity field. newState is defensively cloned.
func (u Unit) WithState(newState *OrderedMap) Unit {
	u.State = newState.Clone()
	return u
}

// roundBalance rounds v to the unit's DecimalPlaces if one is configured,
// otherwise returns v unchanged.
func (u Unit) roundBalance(v Decimal) Decimal {
	if u.DecimalPlaces == nil {
		return v
	}
	return v.Round(*u.DecimalPlaces)
}

// Origin is an opaque provenance record attached to every PendingTransaction.
type Origin struct {
	Source     string
	RandomSeed *string
	CalcInputs *OrderedMap
}

// PendingTransaction is the immutable, content-addressed description of a
// proposed atomic ledger mutation. Construct with
// NewPendingTransaction, never by literal, so intent_id is always
// consistent with the other fields.
type PendingTransaction struct {
	Moves             []Move
	StateChanges      []UnitStateChange
	UnitsToCreate     []Unit
	Origin            Origin
	ProposedTimestamp LogicalTime
	IntentID          string
}

// NewPendingTransaction validates, sorts state_changes and units_to_create
// into their canonical order, and computes intent_id. hashBits selects how
// much of the SHA-256 digest backs intent_id; pass 0 to use the
// 128-bit default.
func NewPendingTransaction(moves []Move, stateChanges []UnitStateChange, unitsToCreate []Unit, origin Origin, proposedTimestamp LogicalTime, hashBits int) (PendingTransaction, error) {
	seenUnits := make(map[string]bool, len(unitsToCreate))
	for _, u := range unitsToCreate {
		if seenUnits[u.Symbol] {
			return PendingTransaction{}, fmt.Errorf("core: units_to_create contains duplicate symbol %q", u.Symbol)
		}
		seenUnits[u.Symbol] = true
	}

	sortedSC := append([]UnitStateChange(nil), stateChanges...)
	sort.SliceStable(sortedSC, func(i, j int) bool { return sortedSC[i].UnitSymbol < sortedSC[j].UnitSymbol })

	sortedUnits := append([]Unit(nil), unitsToCreate...)
	sort.SliceStable(sortedUnits, func(i, j int) bool { return sortedUnits[i].Symbol < sortedUnits[j].Symbol })

	movesCopy := append([]Move(nil), moves...)

	id := computeIntentID(movesCopy, sortedSC, sortedUnits, origin, proposedTimestamp, hashBits)

	return PendingTransaction{
		Moves:             movesCopy,
		StateChanges:      sortedSC,
		UnitsToCreate:     sortedUnits,
		Origin:            origin,
		ProposedTimestamp: proposedTimestamp,
		IntentID:          id,
	}, nil
}

// Transaction is a PendingTransaction plus the ledger-assigned fields
// recorded at execution time.
type Transaction struct {
	PendingTransaction
	ExecID         string
	LedgerName     string
	ExecutionTime  LogicalTime
	SequenceNumber uint64
}
