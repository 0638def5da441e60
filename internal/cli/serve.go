package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the client agent",
		Long: `Run the client agent.

The agent restores the persisted session, keeps tickets and notifications
fresh through polling and the realtime channel, and serves the local state
API until interrupted.

Example:
  helpdesk serve
  LOCAL_API_PORT=7171 helpdesk serve --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	a, err := openApp(ctx, opts, true)
	if err != nil {
		return err
	}
	defer closeApp(a)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			a.Logger.Info("received signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.Serve(ctx); err != nil {
		return WrapExitError(ExitFailure, "local api", err)
	}
	return nil
}
