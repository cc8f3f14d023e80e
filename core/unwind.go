package core

// unwind.go implements clone_at: reconstructing ledger state
// as of an earlier target_time by reverse-traversing the transaction
// log. The forward algorithm (Execute) is the only source of truth for
// how a move or state change affects balances; undoTransaction always
// recomputes exactly what Execute would have computed, then applies it
// with the sign flipped.

// CloneAt reconstructs the ledger's state as it stood at target_time: a
// fresh, independent Ledger whose log is the prefix of l's log with
// execution_time <= target_time, and whose balances/unit states/registered
// units reflect only the effect of that prefix. l itself is
// untouched.
func (l *Ledger) CloneAt(target LogicalTime) *Ledger {
	base := l.Clone()

	cut := len(base.transactions)
	for i := len(base.transactions) - 1; i >= 0; i-- {
		tx := base.transactions[i]
		if !tx.ExecutionTime.After(target) {
			cut = i + 1
			break
		}
		undoTransaction(base, tx)
		cut = i
	}

	retained := append([]Transaction(nil), base.transactions[:cut]...)
	base.transactions = retained
	base.nextSequence = uint64(cut)
	base.currentTime = target

	base.seenIntentIDs = make(map[string]string, len(retained))
	for _, tx := range retained {
		base.seenIntentIDs[tx.IntentID] = tx.ExecID
	}

	retainedSymbols := make(map[string]bool)
	for _, tx := range retained {
		for _, u := range tx.UnitsToCreate {
			retainedSymbols[u.Symbol] = true
		}
	}
	for symbol := range base.units {
		if retainedSymbols[symbol] {
			continue
		}
		delete(base.units, symbol)
		delete(base.positions, symbol)
		for key := range base.balances {
			if key.unit == symbol {
				delete(base.balances, key)
			}
		}
	}

	return base
}

// undoTransaction reverses tx's effect on l in place: moves are
// recomputed into the same net-delta mapping Execute would have produced
// and subtracted instead of added; state changes are restored to
// old_state in the reverse of their applied order, so a unit touched
// twice in one transaction ends up at the first change's old_state.
// l.units is not pruned here — orphan removal happens once, after the
// whole reverse walk, in CloneAt.
func undoTransaction(l *Ledger, tx Transaction) {
	netDelta := make(map[balanceKey]Decimal)
	for _, m := range tx.Moves {
		netDelta[balanceKey{wallet: m.Source, unit: m.UnitSymbol}] = netDelta[balanceKey{wallet: m.Source, unit: m.UnitSymbol}].Sub(m.Quantity)
		netDelta[balanceKey{wallet: m.Dest, unit: m.UnitSymbol}] = netDelta[balanceKey{wallet: m.Dest, unit: m.UnitSymbol}].Add(m.Quantity)
	}
	for key, delta := range netDelta {
		unit, ok := l.units[key.unit]
		rounded := delta
		if ok {
			rounded = unit.roundBalance(delta)
		}
		l.setBalanceLocked(key.wallet, key.unit, l.balances[key].Sub(rounded))
	}

	for i := len(tx.StateChanges) - 1; i >= 0; i-- {
		sc := tx.StateChanges[i]
		if unit, ok := l.units[sc.UnitSymbol]; ok {
			l.units[sc.UnitSymbol] = unit.WithState(sc.OldState)
		}
	}
}
