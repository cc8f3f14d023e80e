// Command montecarlo fans a single seeded ledger scenario out into many
// independent branches, each replaying a pseudo-random transaction
// sequence against its own core.Ledger.Clone(), and reports per-branch
// final balances. It exists to exercise
// Ledger.Clone beyond the single-history case every other driver
// needs, and to give benbjohnson/clock and google/uuid a home: the clock
// establishes the one wall-clock read in the whole program (at startup,
// outside core, to seed a LogicalTime sequence) and uuid labels each
// branch's run for later comparison.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	core "ledgerkernel/core"
)

func main() {
	branches := flag.Int("branches", 8, "number of independent branches to simulate")
	steps := flag.Int("steps", 20, "number of transfers per branch")
	seed := flag.Int64("seed", 1, "base PRNG seed; branch i uses seed+i")
	flag.Parse()

	clk := clock.New()
	startTime := core.NewLogicalTime(clk.Now())

	base := buildBaseLedger(startTime)

	results := make([]branchResult, *branches)
	for i := 0; i < *branches; i++ {
		results[i] = runBranch(base, startTime, *steps, *seed+int64(i))
	}

	for _, r := range results {
		fmt.Printf("run=%s applied=%d rejected=%d alice=%s bob=%s\n",
			r.runID, r.applied, r.rejected,
			r.finalAlice.ToCanonicalString(), r.finalBob.ToCanonicalString())
	}
}

const (
	walletAlice core.WalletID = "alice"
	walletBob   core.WalletID = "bob"
	unitUSD                   = "USD"
)

// buildBaseLedger constructs the shared starting point every branch
// clones from: two wallets and a USD unit seeded with 1000 at alice.
func buildBaseLedger(startTime core.LogicalTime) *core.Ledger {
	cfg := core.DefaultLedgerConfig("montecarlo-base", startTime)
	ledger := core.NewLedger(cfg)

	if err := ledger.RegisterWallet(walletAlice); err != nil {
		log.WithError(err).Fatal("montecarlo: register alice")
	}
	if err := ledger.RegisterWallet(walletBob); err != nil {
		log.WithError(err).Fatal("montecarlo: register bob")
	}

	places := int32(2)
	max, _ := core.NewDecimalFromString("1000000")
	min := core.DecimalZero()
	unit, err := core.NewUnit(unitUSD, "US Dollar", "currency", min, max, &places, nil, nil)
	if err != nil {
		log.WithError(err).Fatal("montecarlo: build unit")
	}
	if _, err := ledger.RegisterUnit(unit); err != nil {
		log.WithError(err).Fatal("montecarlo: register unit")
	}

	seed, _ := core.NewDecimalFromString("1000")
	mv, err := core.NewMove(seed, unitUSD, core.SystemWallet, walletAlice, "")
	if err != nil {
		log.WithError(err).Fatal("montecarlo: build seed move")
	}
	pt, err := core.NewPendingTransaction([]core.Move{mv}, nil, nil, core.Origin{Source: "seed"}, startTime, 128)
	if err != nil {
		log.WithError(err).Fatal("montecarlo: build seed transaction")
	}
	if result := ledger.Execute(pt); result.Kind != core.ResultApplied {
		log.Fatalf("montecarlo: seed transaction did not apply: %+v", result)
	}
	return ledger
}

type branchResult struct {
	runID      string
	applied    int
	rejected   int
	finalAlice core.Decimal
	finalBob   core.Decimal
}

// runBranch clones base, replays steps pseudo-random transfers between
// alice and bob (seeded by seed, so the branch is independently
// reproducible), and summarizes the outcome.
func runBranch(base *core.Ledger, startTime core.LogicalTime, steps int, seed int64) branchResult {
	ledger := base.Clone()
	rng := rand.New(rand.NewSource(seed))
	runID := uuid.New().String()

	applied, rejected := 0, 0
	t := startTime
	for i := 0; i < steps; i++ {
		t = core.NewLogicalTime(t.UTC().Add(time.Minute))

		source, dest := walletAlice, walletBob
		if rng.Intn(2) == 0 {
			source, dest = walletBob, walletAlice
		}
		qty, _ := core.NewDecimalFromString(fmt.Sprintf("%d.%02d", 1+rng.Intn(9), rng.Intn(100)))

		mv, err := core.NewMove(qty, unitUSD, source, dest, "")
		if err != nil {
			rejected++
			continue
		}
		pt, err := core.NewPendingTransaction([]core.Move{mv}, nil, nil,
			core.Origin{Source: "montecarlo", RandomSeed: seedLabel(seed, i)}, t, 128)
		if err != nil {
			rejected++
			continue
		}
		if ledger.Execute(pt).Kind == core.ResultApplied {
			applied++
		} else {
			rejected++
		}
	}

	return branchResult{
		runID:      runID,
		applied:    applied,
		rejected:   rejected,
		finalAlice: ledger.GetBalance(walletAlice, unitUSD),
		finalBob:   ledger.GetBalance(walletBob, unitUSD),
	}
}

func seedLabel(seed int64, step int) *string {
	s := fmt.Sprintf("%d:%d", seed, step)
	return &s
}
