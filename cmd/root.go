package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/michaelpento.lv/arbbot/utils"
)

var (
	cfgFile string
	logFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "arbbot",
	Short: "A CLI arbitrage bot for DEX price spreads",
	Long: `A CLI bot that scans token pairs across DEX venues, compares quotes,
and executes swaps when the spread covers gas and slippage.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default uses built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "arb-bot.log", "log file path (empty logs to stdout only)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	utils.InitLogger(debug, logFile)
}
