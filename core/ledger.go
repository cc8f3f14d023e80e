package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// balanceKey is the composite key for the balance table.
type balanceKey struct {
	wallet WalletID
	unit   string
}

// Ledger is the execution core and the single owner of all
// mutable ledger state. It is not safe for concurrent use from multiple
// goroutines by design: callers must serialize access to a
// single owning goroutine. mu is not a scheduling primitive, it is a
// misuse detector — TryLock never blocks, so a correctly single-threaded
// caller never contends on it; a concurrent caller panics immediately
// instead of corrupting state silently.
type Ledger struct {
	mu sync.Mutex

	cfg LedgerConfig
	log *logrus.Logger

	wallets  map[WalletID]struct{}
	units    map[string]Unit
	balances map[balanceKey]Decimal

	// positions indexes non-zero holders per unit, so GetPositions and
	// TotalSupply never scan the full balance table.
	positions map[string]map[WalletID]Decimal

	seenIntentIDs map[string]string // intent_id -> exec_id

	transactions []Transaction

	currentTime  LogicalTime
	nextSequence uint64
}

// NewLedger constructs an empty ledger from cfg, applying documented
// defaults to any zero-valued optional field.
func NewLedger(cfg LedgerConfig) *Ledger {
	cfg = cfg.normalize()
	InitDecimalContext(cfg.DecimalPrecision)
	return &Ledger{
		cfg:           cfg,
		log:           cfg.Logger,
		wallets:       make(map[WalletID]struct{}),
		units:         make(map[string]Unit),
		balances:      make(map[balanceKey]Decimal),
		positions:     make(map[string]map[WalletID]Decimal),
		seenIntentIDs: make(map[string]string),
		currentTime:   cfg.InitialTime,
	}
}

func (l *Ledger) lockExclusive() func() {
	if !l.mu.TryLock() {
		panic("core: concurrent Ledger access detected; a Ledger must be driven by a single owning goroutine")
	}
	return l.mu.Unlock
}

// Name returns the ledger's configured name.
func (l *Ledger) Name() string { return l.cfg.Name }

// CurrentTime returns the ledger's logical clock.
func (l *Ledger) CurrentTime() LogicalTime {
	defer l.lockExclusive()()
	return l.currentTime
}

// AdvanceTime moves current_time forward to target, rejecting any target
// that precedes current_time rather than silently clamping it.
func (l *Ledger) AdvanceTime(target LogicalTime) error {
	defer l.lockExclusive()()
	if target.Before(l.currentTime) {
		return &InvalidTimestampReason{Proposed: target, Current: l.currentTime}
	}
	l.currentTime = target
	return nil
}

// RegisterWallet adds name to the set of known wallets. It is idempotent:
// registering an already-known wallet is a no-op. Wallet registration is
// not content-addressed and produces no Transaction log entry — only
// units and moves flow through execute.
func (l *Ledger) RegisterWallet(name WalletID) error {
	defer l.lockExclusive()()
	if name == "" {
		return fmt.Errorf("core: wallet name must not be empty")
	}
	if name == SystemWallet {
		return nil
	}
	l.wallets[name] = struct{}{}
	return nil
}

// walletKnown reports whether name is SYSTEM_WALLET or a registered
// wallet. Callers must hold l.mu.
func (l *Ledger) walletKnown(name WalletID) bool {
	if name == SystemWallet {
		return true
	}
	_, ok := l.wallets[name]
	return ok
}

// ListWallets returns every registered non-system wallet, sorted so
// iteration order never depends on registration order.
func (l *Ledger) ListWallets() []WalletID {
	defer l.lockExclusive()()
	out := make([]WalletID, 0, len(l.wallets))
	for w := range l.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ListUnits returns every registered unit symbol, sorted ascending.
func (l *Ledger) ListUnits() []string {
	defer l.lockExclusive()()
	out := make([]string, 0, len(l.units))
	for s := range l.units {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// UnitTypes returns every distinct unit_type with at least one registered
// unit, sorted ascending.
func (l *Ledger) UnitTypes() []string {
	defer l.lockExclusive()()
	seen := make(map[string]bool)
	for _, u := range l.units {
		seen[u.UnitType] = true
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// SymbolsOfType returns every registered unit symbol whose unit_type is
// unitType, sorted ascending.
func (l *Ledger) SymbolsOfType(unitType string) []string {
	defer l.lockExclusive()()
	out := make([]string, 0)
	for sym, u := range l.units {
		if u.UnitType == unitType {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// RegisterUnit is the convenience form of a units-only PendingTransaction:
// it builds one internally, using the ledger's own current
// time as the proposed timestamp, and runs it through Execute.
func (l *Ledger) RegisterUnit(u Unit) (ExecuteResult, error) {
	now := l.CurrentTime()
	pt, err := NewPendingTransaction(nil, nil, []Unit{u}, Origin{Source: "register_unit"}, now, l.cfg.HashBits)
	if err != nil {
		return ExecuteResult{}, err
	}
	return l.Execute(pt), nil
}

// GetBalance returns wallet's balance in unitSymbol, or DecimalZero if
// either is unknown or the balance has never moved off zero.
func (l *Ledger) GetBalance(wallet WalletID, unitSymbol string) Decimal {
	defer l.lockExclusive()()
	return l.balances[balanceKey{wallet: wallet, unit: unitSymbol}]
}

// GetUnitState returns a defensive copy of unitSymbol's current state.
func (l *Ledger) GetUnitState(unitSymbol string) (*OrderedMap, bool) {
	defer l.lockExclusive()()
	u, ok := l.units[unitSymbol]
	if !ok {
		return nil, false
	}
	return u.State.Clone(), true
}

// GetPositions returns a fresh copy of the non-zero holder map for
// unitSymbol.
func (l *Ledger) GetPositions(unitSymbol string) map[WalletID]Decimal {
	defer l.lockExclusive()()
	src := l.positions[unitSymbol]
	out := make(map[WalletID]Decimal, len(src))
	for w, d := range src {
		out[w] = d
	}
	return out
}

// TotalSupply sums every wallet's balance (including SYSTEM_WALLET) for
// unitSymbol. Invariant I2 guarantees this is always zero.
func (l *Ledger) TotalSupply(unitSymbol string) Decimal {
	defer l.lockExclusive()()
	total := DecimalZero()
	for w, d := range l.positions[unitSymbol] {
		_ = w
		total = total.Add(d)
	}
	return total
}

// LogIter returns the full transaction log in execution order. The
// returned slice is a copy; mutating it does not affect the ledger.
func (l *Ledger) LogIter() []Transaction {
	defer l.lockExclusive()()
	out := make([]Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// SetBalance is a test_mode-only synthetic override: it sets wallet's
// balance for unitSymbol directly, bypassing validation, logging, and
// intent_id bookkeeping entirely. It exists to seed fixtures cheaply, not
// to model any real transfer.
func (l *Ledger) SetBalance(wallet WalletID, unitSymbol string, amount Decimal) error {
	defer l.lockExclusive()()
	if !l.cfg.TestMode {
		return fmt.Errorf("core: SetBalance requires test_mode")
	}
	l.setBalanceLocked(wallet, unitSymbol, amount)
	return nil
}

func (l *Ledger) setBalanceLocked(wallet WalletID, unitSymbol string, amount Decimal) {
	key := balanceKey{wallet: wallet, unit: unitSymbol}
	l.balances[key] = amount
	bucket, ok := l.positions[unitSymbol]
	if !ok {
		bucket = make(map[WalletID]Decimal)
		l.positions[unitSymbol] = bucket
	}
	if amount.IsZero() {
		delete(bucket, wallet)
	} else {
		bucket[wallet] = amount
	}
}

// Clone returns a fully independent deep copy of the ledger: distinct
// underlying maps and slices, sharing no mutable state with the
// original. Used by the Monte Carlo driver to fan a single scenario out
// into many independent branches.
func (l *Ledger) Clone() *Ledger {
	defer l.lockExclusive()()
	out := &Ledger{
		cfg:           l.cfg,
		log:           l.log,
		wallets:       make(map[WalletID]struct{}, len(l.wallets)),
		units:         make(map[string]Unit, len(l.units)),
		balances:      make(map[balanceKey]Decimal, len(l.balances)),
		positions:     make(map[string]map[WalletID]Decimal, len(l.positions)),
		seenIntentIDs: make(map[string]string, len(l.seenIntentIDs)),
		transactions:  make([]Transaction, len(l.transactions)),
		currentTime:   l.currentTime,
		nextSequence:  l.nextSequence,
	}
	for w := range l.wallets {
		out.wallets[w] = struct{}{}
	}
	for s, u := range l.units {
		out.units[s] = u.WithState(u.State)
	}
	for k, v := range l.balances {
		out.balances[k] = v
	}
	for sym, bucket := range l.positions {
		nb := make(map[WalletID]Decimal, len(bucket))
		for w, v := range bucket {
			nb[w] = v
		}
		out.positions[sym] = nb
	}
	for k, v := range l.seenIntentIDs {
		out.seenIntentIDs[k] = v
	}
	copy(out.transactions, l.transactions)
	return out
}

// unitsDeclarativelyEqual compares the canonicalizable identity fields of
// two units: symbol, name, unit_type, bounds, decimal
// places. TransferRule and State are excluded, matching what intent_id
// itself covers for units_to_create.
func unitsDeclarativelyEqual(a, b Unit) bool {
	if a.Symbol != b.Symbol || a.Name != b.Name || a.UnitType != b.UnitType {
		return false
	}
	if !a.MinBalance.Equal(b.MinBalance) || !a.MaxBalance.Equal(b.MaxBalance) {
		return false
	}
	return decimalPlacesCanon(a.DecimalPlaces) == decimalPlacesCanon(b.DecimalPlaces)
}

// Execute validates then applies pending atomically: either every check
// passes and the mutation (balances, unit state, newly-registered units,
// log, clock) commits as one unit, or nothing changes and a Rejected
// result is returned. It is the only mutation entry point
// besides RegisterWallet/AdvanceTime/SetBalance.
func (l *Ledger) Execute(pending PendingTransaction) ExecuteResult {
	defer l.lockExclusive()()

	if execID, ok := l.seenIntentIDs[pending.IntentID]; ok {
		return alreadyAppliedResult(execID)
	}

	registeredNow := make([]string, 0, len(pending.UnitsToCreate))
	for _, u := range pending.UnitsToCreate {
		existing, ok := l.units[u.Symbol]
		if ok {
			if !unitsDeclarativelyEqual(existing, u) {
				l.rollbackTentative(registeredNow)
				return rejectedResult(&UnknownUnitReason{Symbol: u.Symbol, Variant: "UnitConflict"})
			}
			continue
		}
		l.units[u.Symbol] = u
		registeredNow = append(registeredNow, u.Symbol)
	}

	if reason := l.checkReferencesLocked(pending); reason != nil {
		l.rollbackTentative(registeredNow)
		return rejectedResult(reason)
	}

	for _, m := range pending.Moves {
		if m.Quantity.IsZero() || !m.Quantity.IsFinite() || m.Source == m.Dest {
			l.rollbackTentative(registeredNow)
			return rejectedResult(&DegenerateMoveReason{Reason: "zero/non-finite quantity or source==dest"})
		}
	}

	netDelta := make(map[balanceKey]Decimal)
	for _, m := range pending.Moves {
		netDelta[balanceKey{wallet: m.Source, unit: m.UnitSymbol}] = netDelta[balanceKey{wallet: m.Source, unit: m.UnitSymbol}].Sub(m.Quantity)
		netDelta[balanceKey{wallet: m.Dest, unit: m.UnitSymbol}] = netDelta[balanceKey{wallet: m.Dest, unit: m.UnitSymbol}].Add(m.Quantity)
	}

	proposed := make(map[balanceKey]Decimal, len(netDelta))
	for key, delta := range netDelta {
		unit := l.units[key.unit]
		rounded := unit.roundBalance(delta)
		proposed[key] = l.balances[key].Add(rounded)
	}

	for key, p := range proposed {
		if key.wallet == SystemWallet {
			continue
		}
		unit := l.units[key.unit]
		if p.Cmp(unit.MinBalance) < 0 || p.Cmp(unit.MaxBalance) > 0 {
			l.rollbackTentative(registeredNow)
			return rejectedResult(&BalanceOutOfRangeReason{
				Wallet: key.wallet, Unit: key.unit, Proposed: p, Min: unit.MinBalance, Max: unit.MaxBalance,
			})
		}
	}

	var view LedgerView
	for _, m := range pending.Moves {
		unit := l.units[m.UnitSymbol]
		if unit.TransferRule != nil {
			if view == nil {
				view = newLedgerSnapshotView(l)
			}
			if violation := unit.TransferRule.CheckTransfer(view, m); violation != nil {
				l.rollbackTentative(registeredNow)
				return rejectedResult(violation)
			}
		}
	}

	staleReasons := make([]*StaleStateReason, 0)
	for _, sc := range pending.StateChanges {
		unit, ok := l.units[sc.UnitSymbol]
		if !ok {
			continue
		}
		if !unit.State.Equal(sc.OldState) {
			reason := &StaleStateReason{
				Unit:     sc.UnitSymbol,
				Key:      "state",
				Expected: canonicalizeValue(wrapMap(sc.OldState)),
				Actual:   canonicalizeValue(wrapMap(unit.State)),
			}
			if l.cfg.StrictStaleState {
				l.rollbackTentative(registeredNow)
				return rejectedResult(reason)
			}
			staleReasons = append(staleReasons, reason)
		}
	}

	if pending.ProposedTimestamp.Before(l.currentTime) {
		l.rollbackTentative(registeredNow)
		return rejectedResult(&InvalidTimestampReason{Proposed: pending.ProposedTimestamp, Current: l.currentTime})
	}

	for key, p := range proposed {
		l.setBalanceLocked(key.wallet, key.unit, p)
	}
	for _, sc := range pending.StateChanges {
		if unit, ok := l.units[sc.UnitSymbol]; ok {
			l.units[sc.UnitSymbol] = unit.WithState(sc.NewState)
		}
	}

	execTime := l.currentTime.Max(pending.ProposedTimestamp)
	seq := l.nextSequence
	l.nextSequence++
	execID := computeExecID(l.cfg.Name, seq, pending.IntentID, l.cfg.HashBits)

	tx := Transaction{
		PendingTransaction: pending,
		ExecID:             execID,
		LedgerName:         l.cfg.Name,
		ExecutionTime:      execTime,
		SequenceNumber:     seq,
	}
	l.transactions = append(l.transactions, tx)
	l.seenIntentIDs[pending.IntentID] = execID
	l.currentTime = execTime

	for _, reason := range staleReasons {
		l.log.WithFields(logrus.Fields{"unit": reason.Unit, "expected": reason.Expected, "actual": reason.Actual}).
			Warn("core: stale unit state on apply")
		if l.cfg.StaleStateObserver != nil {
			l.cfg.StaleStateObserver(reason)
		}
	}

	return appliedResult(&tx)
}

// checkReferencesLocked verifies every unit and wallet referenced by
// pending is known (including units tentatively registered this call).
// Callers must hold l.mu.
func (l *Ledger) checkReferencesLocked(pending PendingTransaction) RejectReason {
	for _, m := range pending.Moves {
		if _, ok := l.units[m.UnitSymbol]; !ok {
			return &UnknownUnitReason{Symbol: m.UnitSymbol, Variant: "NotRegistered"}
		}
		if !l.walletKnown(m.Source) {
			return &UnknownWalletReason{Name: m.Source}
		}
		if !l.walletKnown(m.Dest) {
			return &UnknownWalletReason{Name: m.Dest}
		}
	}
	for _, sc := range pending.StateChanges {
		if _, ok := l.units[sc.UnitSymbol]; !ok {
			return &UnknownUnitReason{Symbol: sc.UnitSymbol, Variant: "NotRegistered"}
		}
	}
	return nil
}

// rollbackTentative removes units registered earlier in the current
// Execute call before returning a Rejected result. Callers must hold l.mu.
func (l *Ledger) rollbackTentative(symbols []string) {
	for _, s := range symbols {
		delete(l.units, s)
	}
}

// computeExecID derives a deterministic execution id from the ledger
// name, assigned sequence number, and the transaction's intent_id, so
// exec_id is reproducible given the same log prefix.
func computeExecID(ledgerName string, seq uint64, intentID string, hashBits int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", ledgerName, seq, intentID)))
	return hex.EncodeToString(sum[:])[:hashBitsToHexLen(hashBits)]
}
