package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	EmployeeID string
	Password   string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session token",
		Long: `Sign in with employee id and password.

The password is read from standard input when --password is omitted.

Example:
  helpdesk login --employee-id E1001
  echo "$PW" | helpdesk login --employee-id E1001`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.EmployeeID, "employee-id", "", "employee id (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password")
	_ = cmd.MarkFlagRequired("employee-id")

	return cmd
}

func runLogin(opts *LoginOptions, cmd *cobra.Command) error {
	password := opts.Password
	if password == "" {
		line, err := readLine(cmd.InOrStdin())
		if err != nil {
			return WrapExitError(ExitCommandError, "read password", err)
		}
		password = line
	}

	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer closeApp(a)

	form := domain.LoginForm{EmployeeID: strings.TrimSpace(opts.EmployeeID), Password: password}
	if err := a.Session.Login(ctx, form); err != nil {
		return actionError(err, a.Session.AuthError())
	}

	member := a.Session.CurrentMember()
	return formatter(cmd, opts.RootOptions).Success(member, func(w io.Writer) {
		fmt.Fprintf(w, "Signed in as %s (%s, %s)\n", member.Name, member.EmployeeID, member.Role)
	})
}

// RegisterOptions holds flags for the register command.
type RegisterOptions struct {
	*RootOptions
	EmployeeID string
	Name       string
	Email      string
	Password   string
	GroupID    int64
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in with it",
		Long: `Create a helpdesk account. The password must be at least 8 characters
and is read from standard input when --password is omitted.

Example:
  helpdesk register --employee-id E1001 --name "Lin" --email lin@example.com --group 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.EmployeeID, "employee-id", "", "employee id (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password")
	cmd.Flags().Int64Var(&opts.GroupID, "group", 0, "group to join")
	_ = cmd.MarkFlagRequired("employee-id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runRegister(opts *RegisterOptions, cmd *cobra.Command) error {
	password := opts.Password
	if password == "" {
		line, err := readLine(cmd.InOrStdin())
		if err != nil {
			return WrapExitError(ExitCommandError, "read password", err)
		}
		password = line
	}

	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer closeApp(a)

	form := domain.RegisterForm{
		EmployeeID: strings.TrimSpace(opts.EmployeeID),
		Name:       strings.TrimSpace(opts.Name),
		Email:      strings.TrimSpace(opts.Email),
		Password:   password,
	}
	if opts.GroupID > 0 {
		id := opts.GroupID
		form.GroupID = &id
	}
	a.Session.UpdateRegisterForm(form)
	for a.Session.NextRegisterStep() {
	}
	if msg := a.Session.AuthError(); msg != "" {
		return NewExitError(ExitCommandError, msg)
	}
	if err := a.Session.SubmitRegistration(ctx); err != nil {
		return actionError(err, a.Session.AuthError())
	}

	member := a.Session.CurrentMember()
	return formatter(cmd, opts.RootOptions).Success(member, func(w io.Writer) {
		fmt.Fprintf(w, "Registered and signed in as %s (%s, %s)\n", member.Name, member.EmployeeID, member.Role)
	})
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "Sign out and forget the session token",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(rootOpts, cmd)
		},
	}
}

func runLogout(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts, false)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := a.Session.Restore(ctx); err != nil {
		a.Session.ClearSession(ctx)
	} else {
		a.Session.Logout(ctx)
	}
	return formatter(cmd, opts).Success(map[string]bool{"signedOut": true}, func(w io.Writer) {
		fmt.Fprintln(w, "Signed out")
	})
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
