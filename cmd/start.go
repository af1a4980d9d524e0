package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbbot/cmd/bot"
	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/utils"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the arbitrage scan loop",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		if err := config.LoadEnv(); err != nil {
			log.Debug("no .env file loaded", zap.Error(err))
		}

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("Failed to load configuration", zap.Error(err))
		}

		sec, err := config.LoadSecureConfig(!cfg.DryRun)
		if err != nil {
			log.Fatal("Failed to load secrets", zap.Error(err))
		}

		b, err := bot.New(cfg, sec, log)
		if err != nil {
			log.Fatal("Failed to create bot", zap.Error(err))
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		b.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
