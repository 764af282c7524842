package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"drbackup/pkg/version"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// errFailures signals a completed command whose outcome must fail the
// process, such as a failed backup or a critical project.
var errFailures = errors.New("one or more projects failed")

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           version.Name,
		Short:         "Disaster-recovery backups for application projects",
		Long:          "drbackup archives projects, replicates them to a hot and an offsite tier, prunes old hot copies and reports backup health.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")

	root.AddCommand(
		newRunCmd(&configPath),
		newHealthCmd(&configPath),
		newWorkerCmd(&configPath),
		newTriggerCmd(&configPath),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailures) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
