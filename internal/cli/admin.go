package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-client/internal/admin"
	"github.com/spec-kit/helpdesk-client/internal/app"
	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// NewAdminCommand creates the admin command group. Every subcommand needs an
// ADMIN session; restoring one loads the member, group and category lists.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage members, groups, categories and audit logs",
		Long: `Administrative commands. Requires an ADMIN account.

Example:
  helpdesk admin members
  helpdesk admin members role 12 IT
  helpdesk admin groups add-member 3 12
  helpdesk admin audit --action TICKET_DELETE --limit 20`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newAdminMembersCommand(rootOpts))
	cmd.AddCommand(newAdminCategoriesCommand(rootOpts))
	cmd.AddCommand(newAdminGroupsCommand(rootOpts))
	cmd.AddCommand(newAdminAuditCommand(rootOpts))

	return cmd
}

// runAdmin restores an ADMIN session and runs action against it.
func runAdmin(opts *RootOptions, cmd *cobra.Command, action func(ctx context.Context, a *app.App) error) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts, false)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := restoreSession(ctx, a); err != nil {
		return err
	}
	if !a.Session.IsAdmin() {
		return NewExitError(ExitFailure, "admin account required")
	}
	return action(ctx, a)
}

func parseAdminID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, "invalid "+kind+" id "+strconv.Quote(raw))
	}
	return id, nil
}

func newAdminMembersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "members",
		Short:         "List members",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				if msg := a.Members.Feedback(); msg != "" {
					return NewExitError(ExitFailure, msg)
				}
				return printMembers(cmd, rootOpts, a.Members.List())
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "role <member-id> <ADMIN|IT|USER>",
		Short:         "Change a member's role",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAdminID("member", args[0])
			if err != nil {
				return err
			}
			role, ok := domain.ParseRole(args[1])
			if !ok {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid role %q", args[1]))
			}
			return runAdmin(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				member, err := findMember(a, id)
				if err != nil {
					return err
				}
				if err := a.Members.UpdateRole(ctx, member, role); err != nil {
					return actionError(err, "update role")
				}
				updated, _ := a.Members.Find(id)
				return formatter(cmd, rootOpts).Success(updated, func(w io.Writer) {
					fmt.Fprintf(w, "%s (%s) is now %s\n", updated.Name, updated.EmployeeID, updated.Role)
				})
			})
		},
	})

	var yes bool
	deleteCmd := &cobra.Command{
		Use:           "delete <member-id>",
		Short:         "Delete a member",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAdminID("member", args[0])
			if err != nil {
				return err
			}
			return runAdmin(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				member, err := findMember(a, id)
				if err != nil {
					return err
				}
				confirmed := false
				confirm := admin.ConfirmFunc(func(_ context.Context, prompt string) bool {
					confirmed = yes || promptYes(cmd, prompt)
					return confirmed
				})
				if err := a.Members.Delete(ctx, member, confirm); err != nil {
					return actionError(err, "delete member")
				}
				if !confirmed {
					return NewExitError(ExitFailure, "cancelled")
				}
				return formatter(cmd, rootOpts).Success(map[string]int64{"deleted": id}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %s (%s)\n", member.Name, member.EmployeeID)
				})
			})
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.AddCommand(deleteCmd)

	return cmd
}

// findMember resolves a roster entry; ADMIN accounts cannot be changed.
func findMember(a *app.App, id int64) (domain.Member, error) {
	member, ok := a.Members.Find(id)
	if !ok {
		return domain.Member{}, NewExitError(ExitFailure, fmt.Sprintf("member %d not found", id))
	}
	if member.Role == domain.RoleAdmin {
		return domain.Member{}, NewExitError(ExitFailure, fmt.Sprintf("member %d is an admin and cannot be changed", id))
	}
	return member, nil
}

func printMembers(cmd *cobra.Command, opts *RootOptions, list []domain.Member) error {
	return formatter(cmd, opts).Success(list, func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, "No members")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tEMPLOYEE\tNAME\tEMAIL\tROLE")
		for _, m := range list {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", m.ID, m.EmployeeID, m.Name, m.Email, m.Role)
		}
		_ = tw.Flush()
	})
}

func newAdminCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "categories",
		Short:         "List helpdesk categories",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				if msg := a.Management.CategoryFeedback(); msg != "" {
					return NewExitError(ExitFailure, msg)
				}
				return printCategories(cmd, rootOpts, a.Management.Categories())
			})
		},
	}

	cmd.AddCommand(categoryMutation(rootOpts, "create <name>", "Create a category", 1,
		func(ctx context.Context, m *admin.Management, args []string) error {
			return m.CreateCategory(ctx, args[0])
		}))
	cmd.AddCommand(categoryMutation(rootOpts, "rename <category-id> <name>", "Rename a category", 2,
		func(ctx context.Context, m *admin.Management, args []string) error {
			id, err := parseAdminID("category", args[0])
			if err != nil {
				return err
			}
			return m.UpdateCategory(ctx, id, args[1])
		}))
	cmd.AddCommand(categoryMutation(rootOpts, "delete <category-id>", "Delete a category", 1,
		func(ctx context.Context, m *admin.Management, args []string) error {
			id, err := parseAdminID("category", args[0])
			if err != nil {
				return err
			}
			return m.DeleteCategory(ctx, id)
		}))

	return cmd
}

func categoryMutation(rootOpts *RootOptions, use, short string, nargs int, action func(ctx context.Context, m *admin.Management, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.ExactArgs(nargs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				if err := action(ctx, a.Management, args); err != nil {
					return adminError(err, a.Management.CategoryFeedback())
				}
				return printCategories(cmd, rootOpts, a.Management.Categories())
			})
		},
	}
}

func printCategories(cmd *cobra.Command, opts *RootOptions, list []domain.HelpdeskCategory) error {
	return formatter(cmd, opts).Success(list, func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, "No categories")
			return
		}
		for _, c := range list {
			fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
		}
	})
}

func newAdminGroupsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "groups",
		Short:         "List groups and their members",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				if msg := a.Management.GroupsFeedback(); msg != "" {
					return NewExitError(ExitFailure, msg)
				}
				return printGroups(cmd, rootOpts, a.Management.Groups())
			})
		},
	}

	cmd.AddCommand(groupMutation(rootOpts, "create <name>", "Create a group", 1,
		func(ctx context.Context, m *admin.Management, args []string) error {
			return m.CreateGroup(ctx, args[0])
		}))
	cmd.AddCommand(groupMemberMutation(rootOpts, "add-member", "Add a member to a group", (*admin.Management).AddMemberToGroup))
	cmd.AddCommand(groupMemberMutation(rootOpts, "remove-member", "Remove a member from a group", (*admin.Management).RemoveMemberFromGroup))
	cmd.AddCommand(groupMemberMutation(rootOpts, "supervisor", "Make a member the group supervisor", (*admin.Management).SetGroupSupervisor))

	return cmd
}

func groupMemberMutation(rootOpts *RootOptions, name, short string, action func(m *admin.Management, ctx context.Context, groupID, memberID int64) error) *cobra.Command {
	return groupMutation(rootOpts, name+" <group-id> <member-id>", short, 2,
		func(ctx context.Context, m *admin.Management, args []string) error {
			groupID, err := parseAdminID("group", args[0])
			if err != nil {
				return err
			}
			memberID, err := parseAdminID("member", args[1])
			if err != nil {
				return err
			}
			return action(m, ctx, groupID, memberID)
		})
}

func groupMutation(rootOpts *RootOptions, use, short string, nargs int, action func(ctx context.Context, m *admin.Management, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.ExactArgs(nargs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				if err := action(ctx, a.Management, args); err != nil {
					return adminError(err, a.Management.GroupsFeedback())
				}
				return printGroups(cmd, rootOpts, a.Management.Groups())
			})
		},
	}
}

func printGroups(cmd *cobra.Command, opts *RootOptions, list []domain.AdminGroup) error {
	return formatter(cmd, opts).Success(list, func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, "No groups")
			return
		}
		for _, g := range list {
			fmt.Fprintf(w, "%d\t%s\n", g.ID, g.Name)
			for _, m := range g.Members {
				mark := ""
				if m.Supervisor {
					mark = " (supervisor)"
				}
				fmt.Fprintf(w, "\t%d %s %s%s\n", m.MemberID, m.Name, m.Role, mark)
			}
		}
	})
}

// AuditOptions holds flags for the admin audit command.
type AuditOptions struct {
	*RootOptions
	Filters admin.AuditFilters
}

func newAdminAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Browse audit logs",
		Long: `List audit log entries matching the filters.

Example:
  helpdesk admin audit --action TICKET_DELETE --from 2026-01-01
  helpdesk admin audit export --dir /tmp
  helpdesk admin audit purge --days 180 --yes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				a.AuditLogs.SetFilters(opts.Filters)
				if err := a.AuditLogs.Load(ctx); err != nil {
					return actionError(err, a.AuditLogs.Feedback())
				}
				list := a.AuditLogs.Items()
				return formatter(cmd, rootOpts).Success(list, func(w io.Writer) {
					writeAuditTable(w, list)
				})
			})
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.Filters.Action, "action", "", "action, e.g. TICKET_CREATE")
	flags.StringVar(&opts.Filters.EntityType, "entity-type", "", "entity type")
	flags.StringVar(&opts.Filters.EntityID, "entity-id", "", "entity id")
	flags.StringVar(&opts.Filters.ActorMemberID, "actor", "", "actor member id")
	flags.StringVar(&opts.Filters.From, "from", "", "start date or timestamp")
	flags.StringVar(&opts.Filters.To, "to", "", "end date or timestamp")
	flags.IntVar(&opts.Filters.Limit, "limit", 0, fmt.Sprintf("max rows, 1-%d", admin.MaxAuditLimit))

	var dir string
	exportCmd := &cobra.Command{
		Use:           "export",
		Short:         "Export matching audit logs as CSV",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdmin(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				a.AuditLogs.SetFilters(opts.Filters)
				path, err := a.AuditLogs.ExportCSV(ctx, dir)
				if err != nil {
					return actionError(err, a.AuditLogs.Feedback())
				}
				return formatter(cmd, rootOpts).Success(map[string]string{"path": path}, func(w io.Writer) {
					fmt.Fprintf(w, "Saved %s\n", path)
				})
			})
		},
	}
	exportCmd.Flags().StringVar(&dir, "dir", ".", "directory to save into")
	cmd.AddCommand(exportCmd)

	var days int
	var yes bool
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete audit logs older than the retention window",
		Long: fmt.Sprintf(`Delete audit logs older than --days days. Zero uses the server's
configured retention. At most %d days.`, admin.MaxCleanupDays),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 || days > admin.MaxCleanupDays {
				return NewExitError(ExitCommandError, fmt.Sprintf("--days must be between 0 and %d", admin.MaxCleanupDays))
			}
			return runAdmin(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				if !yes && !promptYes(cmd, fmt.Sprintf("Purge audit logs older than %d days?", days)) {
					return NewExitError(ExitFailure, "cancelled")
				}
				a.AuditLogs.SetCleanupDays(days)
				result, err := a.AuditLogs.Purge(ctx)
				if err != nil {
					return actionError(err, a.AuditLogs.Feedback())
				}
				return formatter(cmd, rootOpts).Success(result, func(w io.Writer) {
					fmt.Fprintln(w, a.AuditLogs.CleanupFeedback())
				})
			})
		},
	}
	purgeCmd.Flags().IntVar(&days, "days", 0, "retention in days; 0 uses the server default")
	purgeCmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.AddCommand(purgeCmd)

	return cmd
}

func writeAuditTable(w io.Writer, list []domain.AuditLogItem) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No audit logs")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tACTOR\tACTION\tENTITY")
	for _, item := range list {
		when := "-"
		if !item.CreatedAt.IsZero() {
			when = item.CreatedAt.Local().Format("2006/01/02 15:04")
		}
		entity := item.EntityType
		if item.EntityID != nil {
			entity = fmt.Sprintf("%s #%d", entity, *item.EntityID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", item.ID, when, item.ActorName, item.Action, entity)
	}
	_ = tw.Flush()
}

// adminError prefers the store's feedback text over the raw error.
func adminError(err error, feedback string) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	if feedback != "" {
		return NewExitError(ExitFailure, feedback)
	}
	return actionError(err, "admin action failed")
}
