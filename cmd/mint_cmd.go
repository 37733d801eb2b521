package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reserve-vault/relaypay/go/internal/conf"
)

var approveCmd = cobra.Command{
	Use:   "approve [amount]",
	Short: "Allow the vault to spend the reserve asset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		execWithConfigAndArgs(cmd, func(config *conf.GlobalConfiguration, args []string) {
			withApp(cmd.Context(), config, func(a *app) error {
				balance, err := knownBalance(cmd, a, a.config.Chain.ReserveAddress)
				if err != nil {
					return err
				}
				if err := a.allowanceEngine().Approve(cmd.Context(), args[0], balance); err != nil {
					return err
				}
				fmt.Printf("approved %s\n", args[0])
				return nil
			})
		}, args)
	},
}

var mintCmd = cobra.Command{
	Use:   "mint [amount]",
	Short: "Approve the reserve asset and mint the wrapped token",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		execWithConfigAndArgs(cmd, func(config *conf.GlobalConfiguration, args []string) {
			withApp(cmd.Context(), config, func(a *app) error {
				balance, err := knownBalance(cmd, a, a.config.Chain.ReserveAddress)
				if err != nil {
					return err
				}
				engine := a.allowanceEngine()
				if err := engine.Approve(cmd.Context(), args[0], balance); err != nil {
					return err
				}
				if err := engine.Mint(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("minted %s\n", args[0])
				return nil
			})
		}, args)
	},
}

var redeemCmd = cobra.Command{
	Use:   "redeem [amount]",
	Short: "Burn the wrapped token and withdraw the reserve asset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		execWithConfigAndArgs(cmd, func(config *conf.GlobalConfiguration, args []string) {
			withApp(cmd.Context(), config, func(a *app) error {
				balance, err := knownBalance(cmd, a, a.config.Chain.TokenAddress)
				if err != nil {
					return err
				}
				if err := a.redeemEngine().Redeem(cmd.Context(), args[0], balance); err != nil {
					return err
				}
				fmt.Printf("redeemed %s\n", args[0])
				return nil
			})
		}, args)
	},
}

var checkBalance bool

func init() {
	for _, c := range []*cobra.Command{&approveCmd, &mintCmd, &redeemCmd, &transferCmd, &sendCmd} {
		c.Flags().BoolVar(&checkBalance, "check-balance", true, "read the balance first and refuse amounts above it")
	}
}

// knownBalance reads the holder's balance of asset when --check-balance is set
func knownBalance(cmd *cobra.Command, a *app, asset string) (string, error) {
	if !checkBalance {
		return "", nil
	}
	tracker := a.balance(asset)
	if err := tracker.Refresh(cmd.Context()); err != nil {
		return "", err
	}
	return tracker.KnownBalance(), nil
}
