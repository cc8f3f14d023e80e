package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	core "ledgerkernel/core"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Drive a ledgerkernel scenario from the command line",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newStepCmd())
	root.AddCommand(newUnwindCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ledgerctl version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "ledgerctl 0.1.0")
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [scenario.json]",
		Short: "Build a ledger from a scenario file, replay its transactions, and print final balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := buildAndReplay(cmd, args[0])
			if err != nil {
				return err
			}
			printBalances(cmd.OutOrStdout(), ledger)
			return nil
		},
	}
}

func newStepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step [scenario.json] [timestamp]",
		Short: "Replay a scenario, then drive the lifecycle engine's cascade forward to timestamp",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := buildAndReplay(cmd, args[0])
			if err != nil {
				return err
			}
			ts, err := time.Parse(time.RFC3339, args[1])
			if err != nil {
				return fmt.Errorf("parse timestamp: %w", err)
			}

			scheduler := core.NewScheduler()
			handlers := core.NewHandlerRegistry()
			lc := core.NewLifecycle(ledger, scheduler, handlers, 0)

			executed, err := lc.Step(core.NewLogicalTime(ts), core.PriceTable{})
			if err != nil {
				return fmt.Errorf("step: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "--- step applied %d transaction(s) ---\n", len(executed))
			for _, tx := range executed {
				fmt.Fprintf(out, "exec_id=%s seq=%d execution_time=%s\n", tx.ExecID, tx.SequenceNumber, tx.ExecutionTime)
			}
			printBalances(out, ledger)
			return nil
		},
	}
}

func newUnwindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unwind [scenario.json] [timestamp]",
		Short: "Replay a scenario, then reconstruct and print its state as of an earlier timestamp",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := buildAndReplay(cmd, args[0])
			if err != nil {
				return err
			}
			ts, err := time.Parse(time.RFC3339, args[1])
			if err != nil {
				return fmt.Errorf("parse timestamp: %w", err)
			}

			reconstructed := ledger.CloneAt(core.NewLogicalTime(ts))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "--- state as of %s ---\n", ts.UTC().Format(time.RFC3339))
			printBalances(out, reconstructed)
			return nil
		},
	}
}

// buildAndReplay loads a scenario file, constructs the ledger it describes
// (wallets, units), replays its transactions in order, and reports each
// transaction's outcome to cmd's output. It is the shared first step of
// every subcommand so run/step/unwind all start from the same
// reconstructed history.
func buildAndReplay(cmd *cobra.Command, path string) (*core.Ledger, error) {
	sc, err := loadScenario(path)
	if err != nil {
		return nil, err
	}

	cfg := core.DefaultLedgerConfig(sc.Name, core.NewLogicalTime(sc.InitialTime))
	cfg.StrictStaleState = sc.StrictStaleState
	if sc.HashBits != 0 {
		cfg.HashBits = sc.HashBits
	}
	ledger := core.NewLedger(cfg)

	for _, w := range sc.Wallets {
		if err := ledger.RegisterWallet(core.WalletID(w)); err != nil {
			return nil, fmt.Errorf("register wallet %s: %w", w, err)
		}
	}

	for _, su := range sc.Units {
		unit, err := buildUnit(su)
		if err != nil {
			return nil, err
		}
		result, err := ledger.RegisterUnit(unit)
		if err != nil {
			return nil, err
		}
		if result.Kind == core.ResultRejected {
			return nil, fmt.Errorf("register unit %s rejected: %s", su.Symbol, result.Reason)
		}
	}

	out := cmd.OutOrStdout()
	for i, stx := range sc.Transactions {
		pt, err := buildPendingTransaction(stx, cfg.HashBits)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		result := ledger.Execute(pt)
		switch result.Kind {
		case core.ResultApplied:
			fmt.Fprintf(out, "tx %d: applied exec_id=%s\n", i, result.Transaction.ExecID)
		case core.ResultAlreadyApplied:
			fmt.Fprintf(out, "tx %d: already applied exec_id=%s\n", i, result.ExecID)
		case core.ResultRejected:
			fmt.Fprintf(out, "tx %d: rejected kind=%s reason=%s\n", i, result.Reason.Kind(), result.Reason.Error())
		}
	}
	return ledger, nil
}

func printBalances(out io.Writer, ledger *core.Ledger) {
	fmt.Fprintln(out, "--- final balances ---")
	for _, w := range ledger.ListWallets() {
		for _, u := range ledger.ListUnits() {
			bal := ledger.GetBalance(w, u)
			if !bal.IsZero() {
				fmt.Fprintf(out, "%s %s = %s\n", w, u, bal.ToCanonicalString())
			}
		}
	}
}
