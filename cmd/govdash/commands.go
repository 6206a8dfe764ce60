package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"govdash/internal/governance"
	"govdash/internal/horizon"
)

var (
	executeTarget string
	executeValue  string
	uniqueID      string
)

var ratioCmd = &cobra.Command{
	Use:   "ratio",
	Short: "Read the current minimum collateralization ratio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.NewFlow("cli").LoadRatio(cmd.Context())
		if err != nil {
			return err
		}
		return report(v.Refresh)
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Submit execute_change to the governance contract",
	Long: `Builds, signs, and submits execute_change(target, value) from the configured wallet,
then re-reads the ratio. Signing requires STELLAR_SECRET_KEY.

Example:
  govdash execute --target CA... --value 11000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		target := executeTarget
		if target == "" {
			target = a.XAsset.ContractID()
		}
		v, err := a.NewFlow("cli").ExecuteChange(cmd.Context(), target, executeValue)
		if err != nil {
			return err
		}
		if err := report(v.Execute); err != nil {
			return err
		}
		if v.Refresh.Phase != governance.Idle {
			return report(v.Refresh)
		}
		return nil
	},
}

var sequenceCmd = &cobra.Command{
	Use:   "sequence [public-key]",
	Short: "Print the sequence number an account's next transaction must use",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		account := cfg.Wallet.Address
		if a.Wallet != nil {
			account = a.Wallet.Address()
		}
		if len(args) == 1 {
			account = args[0]
		}
		if account == "" {
			return errors.New("no public key given and no wallet configured")
		}
		return printSequence(cmd.Context(), a.Lookup, account)
	},
}

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "Show the configured contracts and wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Governance: %s\n", orNone(cfg.Contracts.Governance))
		fmt.Printf("XAsset:     %s\n", orNone(cfg.Contracts.XAsset))
		fmt.Printf("Wallet:     %s\n", orNone(cfg.Wallet.Address))
		fmt.Printf("Network:    %s\n", cfg.Network.Passphrase)
		return nil
	},
}

func init() {
	executeCmd.Flags().StringVar(&executeTarget, "target", "", "target contract id (defaults to the xasset contract)")
	executeCmd.Flags().StringVar(&executeValue, "value", "", "new ratio in basis points")
	_ = executeCmd.MarkFlagRequired("value")
	sequenceCmd.Flags().StringVar(&uniqueID, "unique-id", "", "cache disambiguator, for parity with the dashboard API")
}

func printSequence(ctx context.Context, f horizon.Fetcher, account string) error {
	res, err := f.Fetch(ctx, horizon.Query{
		PublicKey:  account,
		HorizonURL: cfg.Network.HorizonURL,
		Headers:    cfg.Network.Headers,
		UniqueID:   uniqueID,
		Enabled:    true,
	})
	if err != nil {
		return err
	}
	switch res.State {
	case horizon.StateAccountMissing:
		fmt.Fprintln(os.Stderr, res.Message)
		return errors.Errorf("account %s not found", res.AccountID)
	default:
		fmt.Println(res.NextSequence)
		return nil
	}
}

// report prints an action's message and turns a failed action into a non-zero exit.
func report(st governance.ActionState) error {
	if st.Phase == governance.Failed {
		return errors.New(st.Message)
	}
	fmt.Println(st.Message)
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(not configured)"
	}
	return s
}
