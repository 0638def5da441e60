package cli

import (
	"context"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-client/internal/app"
	"github.com/spec-kit/helpdesk-client/internal/config"
	"github.com/spec-kit/helpdesk-client/internal/observability"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	format, _ := cmd.PersistentFlags().GetString("format")
	out := &OutputFormatter{Format: format, Writer: os.Stderr}
	_ = out.Error(err)
	return GetExitCode(err)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

// openApp loads configuration and wires the client. One-shot commands run
// without the realtime channel and log only warnings unless verbose.
func openApp(ctx context.Context, opts *RootOptions, agent bool) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if !agent {
		cfg.Realtime.Transport = config.RealtimeOff
		cfg.Logger.Level = "warn"
	}
	if opts.Verbose {
		cfg.Logger.Level = "debug"
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "init logger", err)
	}
	a, err := app.New(ctx, app.Options{Config: cfg, Logger: logger})
	if err != nil {
		_ = logger.Sync()
		return nil, WrapExitError(ExitCommandError, "start client", err)
	}
	return a, nil
}

func closeApp(a *app.App) {
	a.Close()
	_ = a.Logger.Sync()
}

// restoreSession resumes the persisted session and fails when nobody is
// signed in.
func restoreSession(ctx context.Context, a *app.App) error {
	if err := a.Session.Restore(ctx); err != nil {
		return actionError(err, "restore session")
	}
	if !a.Session.IsAuthenticated() {
		return NewExitError(ExitFailure, "not signed in; run `helpdesk login` first")
	}
	return nil
}

func actionError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return WrapExitError(ExitFailure, errorutil.Message(err, fallback), nil)
}

func parseTicketID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, "invalid ticket id "+strconv.Quote(raw))
	}
	return id, nil
}
