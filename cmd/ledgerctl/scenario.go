package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	core "ledgerkernel/core"
)

// scenarioFile is the shape ledgerctl run consumes, as either JSON or
// YAML (selected by file extension, following a devnet topology loader's
// pattern of reading its own config as YAML): enough of a ledger's
// construction-time config, wallet/unit registration, and a transaction
// list to drive a reproducible end-to-end scenario in one process
// invocation.
type scenarioFile struct {
	Name             string         `json:"name" yaml:"name"`
	InitialTime      time.Time      `json:"initial_time" yaml:"initial_time"`
	StrictStaleState bool           `json:"strict_stale_state" yaml:"strict_stale_state"`
	HashBits         int            `json:"hash_bits" yaml:"hash_bits"`
	Wallets          []string       `json:"wallets" yaml:"wallets"`
	Units            []scenarioUnit `json:"units" yaml:"units"`
	Transactions     []scenarioTx   `json:"transactions" yaml:"transactions"`
}

type scenarioUnit struct {
	Symbol        string `json:"symbol" yaml:"symbol"`
	Name          string `json:"name" yaml:"name"`
	UnitType      string `json:"unit_type" yaml:"unit_type"`
	MinBalance    string `json:"min_balance" yaml:"min_balance"`
	MaxBalance    string `json:"max_balance" yaml:"max_balance"`
	DecimalPlaces *int32 `json:"decimal_places" yaml:"decimal_places"`
}

type scenarioTx struct {
	Moves             []scenarioMove `json:"moves" yaml:"moves"`
	ProposedTimestamp time.Time      `json:"proposed_timestamp" yaml:"proposed_timestamp"`
	OriginSource      string         `json:"origin_source" yaml:"origin_source"`
}

type scenarioMove struct {
	Quantity   string `json:"quantity" yaml:"quantity"`
	UnitSymbol string `json:"unit_symbol" yaml:"unit_symbol"`
	Source     string `json:"source" yaml:"source"`
	Dest       string `json:"dest" yaml:"dest"`
	ContractID string `json:"contract_id" yaml:"contract_id"`
}

func loadScenario(path string) (*scenarioFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc scenarioFile
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(raw, &sc); err != nil {
			return nil, fmt.Errorf("parse scenario: %w", err)
		}
		return &sc, nil
	}
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &sc, nil
}

// buildUnit converts a scenarioUnit into a core.Unit, using
// core.NewDecimalFromString for its Decimal fields.
func buildUnit(su scenarioUnit) (core.Unit, error) {
	min, err := core.NewDecimalFromString(defaultZero(su.MinBalance))
	if err != nil {
		return core.Unit{}, fmt.Errorf("unit %s min_balance: %w", su.Symbol, err)
	}
	max, err := core.NewDecimalFromString(defaultZero(su.MaxBalance))
	if err != nil {
		return core.Unit{}, fmt.Errorf("unit %s max_balance: %w", su.Symbol, err)
	}
	return core.NewUnit(su.Symbol, su.Name, su.UnitType, min, max, su.DecimalPlaces, nil, nil)
}

func defaultZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// buildPendingTransaction converts a scenarioTx into a core.PendingTransaction.
func buildPendingTransaction(stx scenarioTx, hashBits int) (core.PendingTransaction, error) {
	moves := make([]core.Move, 0, len(stx.Moves))
	for _, sm := range stx.Moves {
		qty, err := core.NewDecimalFromString(sm.Quantity)
		if err != nil {
			return core.PendingTransaction{}, fmt.Errorf("move quantity: %w", err)
		}
		mv, err := core.NewMove(qty, sm.UnitSymbol, core.WalletID(sm.Source), core.WalletID(sm.Dest), sm.ContractID)
		if err != nil {
			return core.PendingTransaction{}, err
		}
		moves = append(moves, mv)
	}
	origin := core.Origin{Source: stx.OriginSource}
	ts := core.NewLogicalTime(stx.ProposedTimestamp)
	return core.NewPendingTransaction(moves, nil, nil, origin, ts, hashBits)
}
