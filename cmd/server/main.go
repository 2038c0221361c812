package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sessionly/liveroom-server/internal/app"
	"github.com/sessionly/liveroom-server/internal/config"
	"github.com/sessionly/liveroom-server/internal/log"
)

var (
	cfgFile string
	addr    string
)

var rootCmd = &cobra.Command{
	Use:   "liveroom-server",
	Short: "Real-time session room coordinator",
	Long: `liveroom-server coordinates live session rooms: roster presence,
mute/camera state, screen share arbitration, chat relay with durable
history, attendance records and notification fan-out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bootstrap := log.New("info")

		cfg, cfgPath, err := config.Load(bootstrap, cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if addr != "" {
			cfg.Addr = addr
		}

		logger := log.New(cfg.LogLevel)
		logger.Info().Str("config", cfgPath).Str("addr", cfg.Addr).Msg("starting liveroom server")

		application, err := app.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := application.Run(ctx); err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
		logger.Info().Msg("server stopped")
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "HTTP listen address override")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
