package core

import "github.com/sirupsen/logrus"

// LedgerConfig is the construction-time configuration surface.
// Zero-value fields are replaced with documented defaults by NewLedger /
// DefaultLedgerConfig.
type LedgerConfig struct {
	// Name identifies the ledger instance; it is mixed into exec_id.
	Name string

	// InitialTime seeds current_time. Required: the core never reads the
	// wall clock to pick a starting point.
	InitialTime LogicalTime

	// StrictStaleState, when true, rejects a PendingTransaction whose
	// UnitStateChange.OldState no longer matches reality instead of the
	// default advisory warn.
	StrictStaleState bool

	// MaxCascadePasses bounds the lifecycle step's cascade loop.
	// Zero means the default of 10.
	MaxCascadePasses int

	// DecimalPrecision sets how many digits after the decimal point
	// Decimal.Div keeps; a quotient smaller than 1 therefore carries fewer
	// significant digits than this. Zero means DefaultDecimalPrecision.
	// The context is fixed once per process, so the value only takes
	// effect if no Decimal or Ledger has initialized it yet.
	DecimalPrecision int

	// HashBits selects intent_id/exec_id digest length: 128 (default) or
	// 256.
	HashBits int

	// TestMode unlocks SetBalance, a synthetic, non-content-addressed
	// balance override meant only for test fixtures.
	TestMode bool

	// Logger receives structured diagnostics (stale-state advisories).
	// A nil Logger gets logrus.StandardLogger().
	Logger *logrus.Logger

	// StaleStateObserver, if set, is called once per stale-state mismatch
	// detected in warn mode, in addition to the log line.
	StaleStateObserver func(*StaleStateReason)
}

// DefaultLedgerConfig returns a config with every optional field set to
// its documented default, given only the instance name and starting time.
func DefaultLedgerConfig(name string, initialTime LogicalTime) LedgerConfig {
	return LedgerConfig{
		Name:             name,
		InitialTime:      initialTime,
		StrictStaleState: false,
		MaxCascadePasses: defaultMaxCascadePasses,
		DecimalPrecision: DefaultDecimalPrecision,
		HashBits:         128,
	}
}

const defaultMaxCascadePasses = 10

func (c LedgerConfig) normalize() LedgerConfig {
	if c.Name == "" {
		c.Name = "ledger"
	}
	if c.MaxCascadePasses <= 0 {
		c.MaxCascadePasses = defaultMaxCascadePasses
	}
	if c.DecimalPrecision <= 0 {
		c.DecimalPrecision = DefaultDecimalPrecision
	}
	if c.HashBits != 256 {
		c.HashBits = 128
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}
