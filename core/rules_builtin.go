package core

// rules_builtin.go provides example TransferRule implementations built on
// the core's own public interfaces, grounded on an AccessController
// pattern (role membership keyed by wallet) adapted to check per move
// instead of per storage key, since a TransferRule has no side-channel
// storage of its own and must stay a pure function of (view, move).

// RoleGatedTransferRule rejects any move whose source wallet is not a
// member of the configured role set. It is intended as a worked example
// of the TransferRule interface, not a general-purpose access
// control system: membership is fixed at construction time, matching the
// "pure function of its arguments" requirement placed on every
// TransferRule.
type RoleGatedTransferRule struct {
	unit    string
	members map[WalletID]bool
}

// NewRoleGatedTransferRule returns a rule for unit that only allows moves
// whose source wallet is in members. SYSTEM_WALLET is always allowed as a
// source, matching its exemption from balance range checks.
func NewRoleGatedTransferRule(unit string, members []WalletID) *RoleGatedTransferRule {
	set := make(map[WalletID]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	return &RoleGatedTransferRule{unit: unit, members: set}
}

// CheckTransfer implements TransferRule.
func (r *RoleGatedTransferRule) CheckTransfer(view LedgerView, move Move) *TransferRuleViolationReason {
	if move.Source == SystemWallet || r.members[move.Source] {
		return nil
	}
	return &TransferRuleViolationReason{
		Unit:    r.unit,
		Message: "source wallet " + string(move.Source) + " is not a member of the permitted role set",
	}
}

// CeilingTransferRule rejects any single move whose quantity exceeds a
// fixed per-move ceiling, independent of the unit's overall
// [min_balance, max_balance] bounds. Useful for modeling a per-transfer
// compliance limit layered on top of the ledger's own range check.
type CeilingTransferRule struct {
	unit    string
	ceiling Decimal
}

// NewCeilingTransferRule returns a rule rejecting moves on unit whose
// absolute quantity exceeds ceiling.
func NewCeilingTransferRule(unit string, ceiling Decimal) *CeilingTransferRule {
	return &CeilingTransferRule{unit: unit, ceiling: ceiling}
}

// CheckTransfer implements TransferRule.
func (r *CeilingTransferRule) CheckTransfer(view LedgerView, move Move) *TransferRuleViolationReason {
	abs := move.Quantity
	if abs.Sign() < 0 {
		abs = abs.Neg()
	}
	if abs.Cmp(r.ceiling) > 0 {
		return &TransferRuleViolationReason{
			Unit:    r.unit,
			Message: "move quantity " + move.Quantity.ToCanonicalString() + " exceeds per-move ceiling " + r.ceiling.ToCanonicalString(),
		}
	}
	return nil
}
