package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	relaypay "github.com/reserve-vault/relaypay/go"
	"github.com/reserve-vault/relaypay/go/events"
	"github.com/reserve-vault/relaypay/go/internal/conf"
)

var sendCmd = cobra.Command{
	Use:   "send [recipient] [amount]",
	Short: "Send the wrapped token without paying gas, through the relayer",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		execWithConfigAndArgs(cmd, func(config *conf.GlobalConfiguration, args []string) {
			withApp(cmd.Context(), config, func(a *app) error {
				tracker := a.balance(a.config.Chain.TokenAddress)
				if checkBalance {
					if err := tracker.Refresh(cmd.Context()); err != nil {
						return err
					}
				}

				coordinator := a.coordinator(tracker)
				coordinator.Subscribe(func(s relaypay.Snapshot) {
					a.logger.WithField("state", s.State).Info("transfer state changed")
				})

				if a.config.Events.Enabled {
					publisher, redisClient, err := events.NewRedisPublisher(a.config.Events.RedisURL, a.logger)
					if err != nil {
						return err
					}
					defer redisClient.Close()
					defer publisher.Close()
					publisher.Attach(coordinator)
				}

				if err := coordinator.ExecuteTransfer(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				result := coordinator.Result()
				fmt.Printf("sent %s to %s (tx %s)\n", args[1], args[0], result.TxHash)
				if balance := tracker.KnownBalance(); balance != "" {
					fmt.Printf("balance: %s\n", balance)
				}
				return nil
			})
		}, args)
	},
}

var transferCmd = cobra.Command{
	Use:   "transfer [recipient] [amount]",
	Short: "Send the wrapped token directly, paying gas",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		execWithConfigAndArgs(cmd, func(config *conf.GlobalConfiguration, args []string) {
			withApp(cmd.Context(), config, func(a *app) error {
				balance, err := knownBalance(cmd, a, a.config.Chain.TokenAddress)
				if err != nil {
					return err
				}
				txHash, err := a.transferEngine().Transfer(cmd.Context(), args[0], args[1], balance)
				if err != nil {
					return err
				}
				fmt.Printf("transferred %s to %s (tx %s)\n", args[1], args[0], txHash)
				return nil
			})
		}, args)
	},
}

var balanceCmd = cobra.Command{
	Use:   "balance",
	Short: "Show the wallet's token and reserve balances",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		execWithConfigAndArgs(cmd, func(config *conf.GlobalConfiguration, args []string) {
			withApp(cmd.Context(), config, func(a *app) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()

				for _, asset := range []struct{ name, address string }{
					{"token", a.config.Chain.TokenAddress},
					{"reserve", a.config.Chain.ReserveAddress},
				} {
					tracker := a.balance(asset.address)
					if err := tracker.Refresh(ctx); err != nil {
						return err
					}
					fmt.Printf("%-8s %s\n", asset.name, tracker.KnownBalance())
				}
				return nil
			})
		}, args)
	},
}
