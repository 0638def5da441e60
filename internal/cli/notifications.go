package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// NotificationsOptions holds flags for the notifications command.
type NotificationsOptions struct {
	*RootOptions
	ReadAll bool
}

// NotificationsView is the notifications command payload.
type NotificationsView struct {
	Items       []domain.NotificationItem `json:"items"`
	UnreadCount int                       `json:"unreadCount"`
}

// NewNotificationsCommand creates the notifications command.
func NewNotificationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NotificationsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications",
		Long: `List notifications for the signed-in member.

Example:
  helpdesk notifications
  helpdesk notifications --read-all`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotifications(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.ReadAll, "read-all", false, "mark every notification read")

	return cmd
}

func runNotifications(opts *NotificationsOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := restoreSession(ctx, a); err != nil {
		return err
	}
	if msg := a.Notifications.Feedback(); msg != "" {
		return NewExitError(ExitFailure, msg)
	}
	if opts.ReadAll {
		if err := a.Notifications.MarkAllRead(ctx); err != nil {
			return actionError(err, "mark all read")
		}
	}

	view := NotificationsView{
		Items:       a.Notifications.Notifications(),
		UnreadCount: a.Notifications.UnreadCount(),
	}
	return formatter(cmd, opts.RootOptions).Success(view, func(w io.Writer) {
		writeNotifications(w, view)
	})
}

func writeNotifications(w io.Writer, view NotificationsView) {
	fmt.Fprintf(w, "%d unread\n", view.UnreadCount)
	if len(view.Items) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, n := range view.Items {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		ticket := "-"
		if n.TicketID != nil {
			ticket = fmt.Sprintf("#%d", *n.TicketID)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", mark, n.ID, n.Type, ticket, n.Message)
	}
	_ = tw.Flush()
}
