package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/hogehogei/HogepOS/app"
	"github.com/hogehogei/HogepOS/config"
	"github.com/hogehogei/HogepOS/hal"
	"github.com/hogehogei/HogepOS/internal/buildinfo"
	"github.com/hogehogei/HogepOS/internal/logging"
)

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:          "hogepos",
	Short:        "HogepOS - a hosted x86-64 kernel with a priority scheduler",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags(), ".")
		if err != nil {
			return err
		}
		slog.SetDefault(logging.New(os.Stderr, cfg.LogLevel))
		logging.EnableMany(cfg.LogTags)
		return boot(cmd.Context(), cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hogepos %s (commit %s, built %s)\n", buildinfo.Short(), buildinfo.Commit, buildinfo.Date)
	},
}

func boot(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	machine := hal.Config{Width: cfg.Width, Height: cfg.Height, TimerHz: cfg.TimerHz}
	kernel := app.Kernel(app.Config{
		Ticks:      uint64(cfg.Ticks),
		Counters:   cfg.Counters,
		Screenshot: cfg.Screenshot,
		TimerHz:    cfg.TimerHz,
	})
	slog.Info("booting", slog.String("version", buildinfo.Short()), slog.Bool("headless", cfg.Headless))

	var err error
	if cfg.Headless {
		err = hal.RunHeadless(ctx, hal.HeadlessConfig{Config: machine, TTY: cfg.TTY}, kernel)
	} else {
		err = hal.RunWindow(ctx, machine, "HogepOS ("+buildinfo.Short()+")", kernel)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
