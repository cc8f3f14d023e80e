package core

// rules.go declares the pluggable interfaces the core consumes but never
// implements itself: transfer rules, smart contracts, and
// scheduled-event handlers. All three are pure functions of their
// arguments; none may read wall-clock time, environment variables, or an
// unseeded RNG.

// PriceTable is the mapping from unit_symbol to Decimal price passed into
// every step() and every contract/handler call. The core never
// reads prices from any other source.
type PriceTable map[string]Decimal

// Price looks up a symbol's price, returning DecimalZero and false if the
// table has no entry.
func (p PriceTable) Price(symbol string) (Decimal, bool) {
	v, ok := p[symbol]
	return v, ok
}

// TransferRule validates a single move against a unit's business rules,
// given a read-only view of ledger state. Returning a non-nil
// *TransferRuleViolationReason aborts validation of the whole
// PendingTransaction; any other failure mode is not
// part of this interface; implementations that need to signal a
// programmer error should panic rather than return a violation for it,
// since the core catches only TransferRuleViolation.
type TransferRule interface {
	CheckTransfer(view LedgerView, move Move) *TransferRuleViolationReason
}

// TransferRuleFunc adapts a plain function to TransferRule.
type TransferRuleFunc func(view LedgerView, move Move) *TransferRuleViolationReason

// CheckTransfer implements TransferRule.
func (f TransferRuleFunc) CheckTransfer(view LedgerView, move Move) *TransferRuleViolationReason {
	return f(view, move)
}

// SmartContract is polled once per lifecycle step for every unit of its
// registered unit_type. It is pure, total, and
// deterministic: given the same view, symbol, timestamp and prices it must
// always propose the same PendingTransaction (or none). A nil return means
// "nothing to do this step".
type SmartContract interface {
	CheckLifecycle(view LedgerView, symbol string, timestamp LogicalTime, prices PriceTable) (*PendingTransaction, error)
}

// SmartContractFunc adapts a plain function to SmartContract.
type SmartContractFunc func(view LedgerView, symbol string, timestamp LogicalTime, prices PriceTable) (*PendingTransaction, error)

// CheckLifecycle implements SmartContract.
func (f SmartContractFunc) CheckLifecycle(view LedgerView, symbol string, timestamp LogicalTime, prices PriceTable) (*PendingTransaction, error) {
	return f(view, symbol, timestamp, prices)
}

// EventHandler turns a due scheduled Event into a PendingTransaction. Unknown actions are a programming error in the caller (the
// scheduler's HandlerRegistry) and must propagate rather than be
// swallowed; a handler itself never recovers its own panics.
type EventHandler interface {
	Handle(event Event, view LedgerView, prices PriceTable) (*PendingTransaction, error)
}

// EventHandlerFunc adapts a plain function to EventHandler.
type EventHandlerFunc func(event Event, view LedgerView, prices PriceTable) (*PendingTransaction, error)

// Handle implements EventHandler.
func (f EventHandlerFunc) Handle(event Event, view LedgerView, prices PriceTable) (*PendingTransaction, error) {
	return f(event, view, prices)
}
