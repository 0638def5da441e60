package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/tickets"
)

// TicketsOptions holds flags for the tickets command.
type TicketsOptions struct {
	*RootOptions
	Archive bool
	Keyword string
	Mine    bool
	Oldest  bool
	Status  string
}

// NewTicketsCommand creates the tickets command.
func NewTicketsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TicketsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List tickets",
		Long: `List active tickets, or the archive with --archive.

Example:
  helpdesk tickets --keyword vpn --mine
  helpdesk tickets --archive --status CLOSED --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTickets(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Archive, "archive", false, "list closed and deleted tickets")
	cmd.Flags().StringVar(&opts.Keyword, "keyword", "", "filter by keyword")
	cmd.Flags().BoolVar(&opts.Mine, "mine", false, "only tickets I created")
	cmd.Flags().BoolVar(&opts.Oldest, "oldest", false, "oldest first")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status bucket within the view")

	return cmd
}

func runTickets(opts *TicketsOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := restoreSession(ctx, a); err != nil {
		return err
	}

	filters := tickets.DefaultFilters()
	filters.Keyword = opts.Keyword
	filters.OnlyMine = opts.Mine
	if opts.Oldest {
		filters.Sort = tickets.SortOldest
	}
	if opts.Archive {
		filters.ArchiveStatus = opts.Status
	} else {
		filters.ActiveStatus = opts.Status
	}
	a.Tickets.SetFilters(filters)

	list := a.Tickets.ActiveTickets()
	if opts.Archive {
		list = a.Tickets.ArchivedTickets()
	}
	if msg, _ := a.Tickets.TicketFeedback(); msg != "" && len(list) == 0 {
		return NewExitError(ExitFailure, msg)
	}

	return formatter(cmd, opts.RootOptions).Success(list, func(w io.Writer) {
		writeTicketTable(w, list)
	})
}

func writeTicketTable(w io.Writer, list []domain.Ticket) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No tickets")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tSUBJECT\tCREATED")
	for _, t := range list {
		created := "-"
		if !t.CreatedAt.IsZero() {
			created = t.CreatedAt.Local().Format("2006/01/02 15:04")
		}
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%s\t%s\n", t.ID, tickets.EffectiveStatus(t), t.Priority, t.Subject, created)
	}
	_ = tw.Flush()
}

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Subject     string
	Description string
	Urgent      bool
	GroupID     int64
	CategoryID  int64
	Files       []string
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new ticket",
		Long: `Submit a new ticket under the signed-in member's name.

Group and category default to the first ones available.

Example:
  helpdesk submit --subject "VPN down" --description "since 9am" --urgent
  helpdesk submit --subject "Printer" --description "jam" --file ./jam.jpg`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "subject", "", "ticket subject (required)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "ticket description (required)")
	cmd.Flags().BoolVar(&opts.Urgent, "urgent", false, "mark as URGENT")
	cmd.Flags().Int64Var(&opts.GroupID, "group", 0, "group id")
	cmd.Flags().Int64Var(&opts.CategoryID, "category", 0, "category id")
	cmd.Flags().StringArrayVar(&opts.Files, "file", nil, "attachment path (repeatable)")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func runSubmit(opts *SubmitOptions, cmd *cobra.Command) error {
	uploads := make([]apiclient.Upload, 0, len(opts.Files))
	for _, path := range opts.Files {
		upload, err := apiclient.FileUpload(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "attachment", err)
		}
		uploads = append(uploads, upload)
	}

	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := restoreSession(ctx, a); err != nil {
		return err
	}

	form := a.Tickets.Form()
	form.Subject = opts.Subject
	form.Description = opts.Description
	form.Priority = domain.TicketPriorityGeneral
	if opts.Urgent {
		form.Priority = domain.TicketPriorityUrgent
	}
	if opts.GroupID > 0 {
		id := opts.GroupID
		form.GroupID = &id
	}
	if opts.CategoryID > 0 {
		id := opts.CategoryID
		form.CategoryID = &id
	}
	a.Tickets.SetForm(form)
	a.Tickets.SetFiles(uploads)

	created, err := a.Tickets.SubmitTicket(ctx)
	if err != nil {
		return actionError(err, "submit ticket")
	}
	return formatter(cmd, opts.RootOptions).Success(created, func(w io.Writer) {
		msg, _ := a.Tickets.TicketFeedback()
		fmt.Fprintln(w, msg)
	})
}

// NewReplyCommand creates the reply command.
func NewReplyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reply <id> <text>",
		Short: "Reply to a ticket",
		Long: `Reply to a ticket.

Example:
  helpdesk reply 42 "rebooted the switch, please retry"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTicketID(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(args[1]) == "" {
				return NewExitError(ExitCommandError, "reply text must not be empty")
			}
			return runTicketAction(rootOpts, cmd, id, "reply", func(ctx context.Context, store *tickets.Store) error {
				store.SetReplyDraft(id, args[1])
				return store.SendReply(ctx, id)
			})
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <OPEN|PROCEEDING|PENDING|CLOSED>",
		Short: "Change a ticket's status",
		Long: `Change a ticket's status. Requires an IT or ADMIN account.

Example:
  helpdesk status 42 PENDING`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTicketID(args[0])
			if err != nil {
				return err
			}
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			return runTicketAction(rootOpts, cmd, id, "status", func(ctx context.Context, store *tickets.Store) error {
				store.SetStatusDraft(id, status)
				return store.UpdateTicketStatus(ctx, id)
			})
		},
	}
}

func parseStatus(raw string) (domain.TicketStatus, error) {
	if status, ok := tickets.ParseEditableStatus(raw); ok {
		return status, nil
	}
	return "", NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q", raw))
}

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Yes bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a ticket",
		Long: `Soft-delete a ticket. Asks for confirmation unless --yes is given.

Example:
  helpdesk delete 42
  helpdesk delete 42 --yes`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTicketID(args[0])
			if err != nil {
				return err
			}
			return runDelete(opts, cmd, id)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func runDelete(opts *DeleteOptions, cmd *cobra.Command, id int64) error {
	confirmed := false
	confirm := tickets.ConfirmFunc(func(_ context.Context, prompt string) bool {
		confirmed = opts.Yes || promptYes(cmd, prompt)
		return confirmed
	})

	return runTicketAction(opts.RootOptions, cmd, id, "delete", func(ctx context.Context, store *tickets.Store) error {
		ticket, _ := store.Ticket(id)
		if !store.CanDeleteTicket(ticket) {
			return NewExitError(ExitFailure, fmt.Sprintf("ticket #%d cannot be deleted", id))
		}
		if err := store.SoftDeleteTicket(ctx, id, confirm); err != nil {
			return err
		}
		if !confirmed {
			return NewExitError(ExitFailure, "cancelled")
		}
		return nil
	})
}

// DownloadOptions holds flags for the download command.
type DownloadOptions struct {
	*RootOptions
	Dir string
}

// NewDownloadCommand creates the download command.
func NewDownloadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DownloadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "download <ticket-id> <attachment-id>",
		Short: "Save a ticket attachment",
		Long: `Save a ticket attachment under the name the backend suggests.

Example:
  helpdesk download 42 9 --dir ~/Downloads`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ticketID, err := parseTicketID(args[0])
			if err != nil {
				return err
			}
			attachmentID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || attachmentID <= 0 {
				return NewExitError(ExitCommandError, "invalid attachment id "+strconv.Quote(args[1]))
			}
			return runDownload(opts, cmd, ticketID, attachmentID)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", ".", "directory to save into")

	return cmd
}

func runDownload(opts *DownloadOptions, cmd *cobra.Command, ticketID, attachmentID int64) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := restoreSession(ctx, a); err != nil {
		return err
	}
	att, ok := a.Tickets.Attachment(ticketID, attachmentID)
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("attachment %d not found on ticket #%d", attachmentID, ticketID))
	}
	path, err := a.Tickets.DownloadAttachment(ctx, ticketID, att, opts.Dir)
	if err != nil {
		return actionError(err, "download failed")
	}
	return formatter(cmd, opts.RootOptions).Success(map[string]string{"path": path}, func(w io.Writer) {
		fmt.Fprintf(w, "Saved %s\n", path)
	})
}

// promptYes asks a yes/no question on stderr and reads the answer from stdin.
func promptYes(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// runTicketAction restores the session, checks the ticket is visible, runs
// action and prints the resulting ticket.
func runTicketAction(opts *RootOptions, cmd *cobra.Command, id int64, name string, action func(ctx context.Context, store *tickets.Store) error) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts, false)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := restoreSession(ctx, a); err != nil {
		return err
	}
	if _, ok := a.Tickets.Ticket(id); !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("ticket #%d not found", id))
	}

	if err := action(ctx, a.Tickets); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return actionError(err, name+" failed")
	}

	ticket, _ := a.Tickets.Ticket(id)
	return formatter(cmd, opts).Success(ticket, func(w io.Writer) {
		fmt.Fprintf(w, "#%d %s [%s]\n", ticket.ID, ticket.Subject, tickets.EffectiveStatus(ticket))
	})
}
