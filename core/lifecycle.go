package core

// lifecycle.go implements step(), the bounded two-phase cascade that
// drives scheduled events and polled contracts forward one logical
// instant at a time. A cascade exists because applying one
// event's PendingTransaction can make another event or contract eligible
// within the very same step (e.g. an interest accrual unblocking a
// maturity payout); the loop re-polls everything until a full pass
// applies nothing, or gives up after MaxCascadePasses and reports
// ErrUnboundedCascade rather than looping forever.

import "github.com/sirupsen/logrus"

// Lifecycle orchestrates a Ledger, its Scheduler, and the pluggable
// contracts/handlers that turn due events and polled unit_types into
// PendingTransactions.
type Lifecycle struct {
	ledger    *Ledger
	scheduler *Scheduler
	handlers  *HandlerRegistry
	contracts map[string]SmartContract // keyed by unit_type
	maxPasses int
	log       *logrus.Logger
}

// NewLifecycle wires a Ledger to a Scheduler and HandlerRegistry.
// maxPasses <= 0 falls back to the ledger's configured
// MaxCascadePasses.
func NewLifecycle(ledger *Ledger, scheduler *Scheduler, handlers *HandlerRegistry, maxPasses int) *Lifecycle {
	if maxPasses <= 0 {
		maxPasses = ledger.cfg.MaxCascadePasses
	}
	return &Lifecycle{
		ledger:    ledger,
		scheduler: scheduler,
		handlers:  handlers,
		contracts: make(map[string]SmartContract),
		maxPasses: maxPasses,
		log:       ledger.log,
	}
}

// RegisterContract binds a SmartContract to every unit whose UnitType
// equals unitType; it is polled once per cascade pass for each such
// unit's symbol.
func (lc *Lifecycle) RegisterContract(unitType string, contract SmartContract) {
	lc.contracts[unitType] = contract
}

// Step advances the ledger to timestamp, running the cascade of
// scheduled-event and contract-poll passes until a pass applies nothing,
// then returns every Transaction applied during the step, in the order
// execute assigned them, matching spec.md's step() pseudocode which
// accumulates and returns `executed`. It returns ErrUnboundedCascade if
// MaxCascadePasses is exceeded without quiescing; executed still reflects
// whatever applied before the cascade was judged unbounded.
func (lc *Lifecycle) Step(timestamp LogicalTime, prices PriceTable) ([]Transaction, error) {
	if err := lc.ledger.AdvanceTime(timestamp); err != nil {
		return nil, err
	}

	var executed []Transaction

	for pass := 0; pass < lc.maxPasses; pass++ {
		applied := false

		for _, event := range lc.scheduler.DueBefore(timestamp) {
			handler := lc.handlers.Lookup(event.Action)
			pt, err := handler.Handle(event, lc.ledger, prices)
			if err != nil {
				return executed, err
			}
			if pt == nil {
				continue
			}
			if result := lc.ledger.Execute(*pt); result.Kind == ResultApplied {
				applied = true
				executed = append(executed, *result.Transaction)
			}
			lc.scheduler.MarkExecuted(event.EventID)
		}

		for _, unitType := range lc.ledger.UnitTypes() {
			contract, ok := lc.contracts[unitType]
			if !ok {
				continue
			}
			for _, symbol := range lc.ledger.SymbolsOfType(unitType) {
				pt, err := contract.CheckLifecycle(lc.ledger, symbol, timestamp, prices)
				if err != nil {
					return executed, err
				}
				if pt == nil {
					continue
				}
				if result := lc.ledger.Execute(*pt); result.Kind == ResultApplied {
					applied = true
					executed = append(executed, *result.Transaction)
				}
			}
		}

		if !applied {
			return executed, nil
		}
	}
	return executed, &ErrUnboundedCascade{MaxPasses: lc.maxPasses}
}
