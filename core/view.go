package core

import "sort"

// LedgerView is the read-only contract surfaced to pure code: transfer
// rules, smart contracts, and event handlers. Every method
// returns a snapshot — a fresh copy or an already-immutable value — so the
// result survives subsequent ledger mutation. No method here may mutate
// the ledger; *Ledger satisfies this interface directly since all of its
// read methods already return copies.
type LedgerView interface {
	GetBalance(wallet WalletID, unitSymbol string) Decimal
	GetUnitState(unitSymbol string) (*OrderedMap, bool)
	GetPositions(unitSymbol string) map[WalletID]Decimal
	ListWallets() []WalletID
	CurrentTime() LogicalTime
}

var _ LedgerView = (*Ledger)(nil)
var _ LedgerView = (*ledgerSnapshotView)(nil)

// ledgerSnapshotView is a LedgerView frozen off a Ledger's fields at one
// instant, with no locking of its own. Execute constructs one while
// already holding l.mu and hands it to TransferRule callbacks; those
// callbacks call view accessors that would otherwise re-enter l's own
// TryLock-based misuse detector and panic, since that lock is not
// reentrant. SmartContract and EventHandler callbacks run outside
// Execute and receive the *Ledger itself as their view.
type ledgerSnapshotView struct {
	wallets     []WalletID
	balances    map[balanceKey]Decimal
	unitStates  map[string]*OrderedMap
	positions   map[string]map[WalletID]Decimal
	currentTime LogicalTime
}

// newLedgerSnapshotView copies l's current state. Callers must already
// hold l.mu.
func newLedgerSnapshotView(l *Ledger) *ledgerSnapshotView {
	wallets := make([]WalletID, 0, len(l.wallets))
	for w := range l.wallets {
		wallets = append(wallets, w)
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i] < wallets[j] })

	balances := make(map[balanceKey]Decimal, len(l.balances))
	for k, v := range l.balances {
		balances[k] = v
	}

	unitStates := make(map[string]*OrderedMap, len(l.units))
	for sym, u := range l.units {
		unitStates[sym] = u.State.Clone()
	}

	positions := make(map[string]map[WalletID]Decimal, len(l.positions))
	for sym, bucket := range l.positions {
		nb := make(map[WalletID]Decimal, len(bucket))
		for w, v := range bucket {
			nb[w] = v
		}
		positions[sym] = nb
	}

	return &ledgerSnapshotView{
		wallets:     wallets,
		balances:    balances,
		unitStates:  unitStates,
		positions:   positions,
		currentTime: l.currentTime,
	}
}

func (v *ledgerSnapshotView) GetBalance(wallet WalletID, unitSymbol string) Decimal {
	return v.balances[balanceKey{wallet: wallet, unit: unitSymbol}]
}

func (v *ledgerSnapshotView) GetUnitState(unitSymbol string) (*OrderedMap, bool) {
	s, ok := v.unitStates[unitSymbol]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (v *ledgerSnapshotView) GetPositions(unitSymbol string) map[WalletID]Decimal {
	src := v.positions[unitSymbol]
	out := make(map[WalletID]Decimal, len(src))
	for w, d := range src {
		out[w] = d
	}
	return out
}

func (v *ledgerSnapshotView) ListWallets() []WalletID {
	out := make([]WalletID, len(v.wallets))
	copy(out, v.wallets)
	return out
}

func (v *ledgerSnapshotView) CurrentTime() LogicalTime { return v.currentTime }
