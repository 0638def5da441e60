package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-client/internal/auth"
)

// LocalTokenHashOptions holds flags for the local-token-hash command.
type LocalTokenHashOptions struct {
	*RootOptions
	Password string
	Cost     int
}

// NewLocalTokenHashCommand creates the local-token-hash command.
func NewLocalTokenHashCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LocalTokenHashOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "local-token-hash",
		Short: "Hash a password for LOCAL_API_PASSWORD_HASH",
		Long: `Hash a password for the local state API.

Put the output in LOCAL_API_PASSWORD_HASH; POST /local/token then exchanges
the password for a bearer token. The password is read from standard input
when --password is omitted.

Example:
  echo -n "$PW" | helpdesk local-token-hash`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocalTokenHash(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Password, "password", "", "password to hash")
	cmd.Flags().IntVar(&opts.Cost, "cost", auth.DefaultCost, "bcrypt cost")

	return cmd
}

func runLocalTokenHash(opts *LocalTokenHashOptions, cmd *cobra.Command) error {
	password := opts.Password
	if password == "" {
		line, err := readLine(cmd.InOrStdin())
		if err != nil {
			return WrapExitError(ExitCommandError, "read password", err)
		}
		password = line
	}
	if password == "" {
		return NewExitError(ExitCommandError, "password must not be empty")
	}

	hash, err := auth.HashPassword(password, opts.Cost)
	if err != nil {
		return WrapExitError(ExitCommandError, "hash password", err)
	}
	return formatter(cmd, opts.RootOptions).Success(map[string]string{"hash": hash}, func(w io.Writer) {
		fmt.Fprintln(w, hash)
	})
}
