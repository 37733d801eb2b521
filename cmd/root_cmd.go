package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/reserve-vault/relaypay/go/internal/conf"
)

var configFile = ""

var rootCmd = cobra.Command{
	Use:   "relaypay",
	Short: "Mint, redeem and send the wrapped token, gasless transfers included",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// RootCommand will setup and return the root command
func RootCommand() *cobra.Command {
	rootCmd.AddCommand(
		&approveCmd,
		&mintCmd,
		&redeemCmd,
		&sendCmd,
		&transferCmd,
		&balanceCmd,
		&serveCmd,
		&versionCmd,
	)
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "the config file to use")

	return &rootCmd
}

func execWithConfigAndArgs(cmd *cobra.Command, fn func(config *conf.GlobalConfiguration, args []string), args []string) {
	config, err := conf.LoadGlobal(configFile)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %+v", err)
	}

	fn(config, args)
}
