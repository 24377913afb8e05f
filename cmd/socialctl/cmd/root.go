package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"socialhub/internal/bootstrap"
	"socialhub/internal/config"

	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:          "socialctl",
		Short:        "SocialHub maintenance commands",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(sweepStoriesCmd)
	rootCmd.AddCommand(reconcileEdgesCmd)
	rootCmd.AddCommand(apiCompatCmd)
}

// Execute executes the root command. SIGINT and SIGTERM cancel the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(*cobra.Command, []string) error {
	c, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c
	return nil
}

// withRuntime connects the stores without the realtime layer, runs fn and
// releases every connection.
func withRuntime(ctx context.Context, fn func(context.Context, *bootstrap.Runtime) error) error {
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRealtime: true})
	if err != nil {
		return err
	}
	defer rt.Close(ctx)
	return fn(ctx, rt)
}
