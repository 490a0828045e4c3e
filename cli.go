package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wellness/pkg/client"
	"wellness/pkg/reminders"
	"wellness/pkg/storage/jsonfile"
)

const defaultServerURL = "http://localhost:5000/api/reminders"

var cliFlags struct {
	server      string
	user        string
	token       string
	offlineFile string

	status   string
	category string

	text     string
	time     string
	priority string
	repeat   string

	interval time.Duration
}

var remindersCmd = &cobra.Command{
	Use:     "reminders",
	Aliases: []string{"r"},
	Short:   "Manage reminders on a running server",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's reminders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var f reminders.Filter
		switch cliFlags.status {
		case "":
		case "active", "inactive":
			f.Active = reminders.Bool(cliFlags.status == "active")
		default:
			return fmt.Errorf("invalid --status %q: must be active or inactive", cliFlags.status)
		}
		f.Category = cliFlags.category

		c, err := newCLIClient()
		if err != nil {
			return err
		}
		list, err := c.List(cmd.Context(), cliFlags.user, f)
		if err != nil {
			return err
		}
		newPrinter(cmd.OutOrStdout()).list(list)
		return nil
	},
}

var upcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "Show today's remaining reminders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCLIClient()
		if err != nil {
			return err
		}
		list, err := c.Upcoming(cmd.Context(), cliFlags.user)
		if err != nil {
			return err
		}
		newPrinter(cmd.OutOrStdout()).list(list)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a reminder",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCLIClient()
		if err != nil {
			return err
		}
		rem, err := c.Create(cmd.Context(), reminders.Input{
			Owner:     cliFlags.user,
			Text:      cliFlags.text,
			TimeOfDay: cliFlags.time,
			Priority:  reminders.Priority(cliFlags.priority),
			Repeat:    reminders.Repeat(cliFlags.repeat),
			Category:  cliFlags.category,
		})
		if err != nil {
			return err
		}
		p := newPrinter(cmd.OutOrStdout())
		p.success("Created reminder %s\n", rem.ID)
		p.reminder(*rem)
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Mark a reminder as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCLIClient()
		if err != nil {
			return err
		}
		rem, err := c.Complete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		p := newPrinter(cmd.OutOrStdout())
		if rem.Active {
			p.success("Completed, next occurrence %s\n", rem.NextOccurrence.Format(time.RFC822))
		} else {
			p.success("Completed reminder %s\n", rem.ID)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCLIClient()
		if err != nil {
			return err
		}
		if err := c.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		newPrinter(cmd.OutOrStdout()).success("Deleted reminder %s\n", args[0])
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print reminders as they fall due until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCLIClient()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := newPrinter(cmd.OutOrStdout())
		agent := client.NewAgent(c, cliFlags.user, cliFlags.interval, p.fired)
		p.info("Watching reminders for %s, press Ctrl+C to stop\n", cliFlags.user)
		agent.Run(ctx)
		return nil
	},
}

func init() {
	pf := remindersCmd.PersistentFlags()
	pf.StringVar(&cliFlags.server, "server", defaultServerURL, "Base URL of the reminders API")
	pf.StringVarP(&cliFlags.user, "user", "u", "", "User id owning the reminders")
	pf.StringVar(&cliFlags.token, "token", "", "Bearer token sent with every request")
	pf.StringVar(&cliFlags.offlineFile, "offline-file", "", "JSON file used when the server cannot be reached")

	listCmd.Flags().StringVar(&cliFlags.status, "status", "", "Filter by status: active or inactive")
	listCmd.Flags().StringVar(&cliFlags.category, "category", "", "Filter by category")

	addCmd.Flags().StringVar(&cliFlags.text, "text", "", "Reminder text")
	addCmd.Flags().StringVar(&cliFlags.time, "time", "", "Time of day, HH:MM")
	addCmd.Flags().StringVar(&cliFlags.priority, "priority", "", "low, medium or high")
	addCmd.Flags().StringVar(&cliFlags.repeat, "repeat", "", "none, daily, weekly or monthly")
	addCmd.Flags().StringVar(&cliFlags.category, "category", "", "Category")
	_ = addCmd.MarkFlagRequired("text")
	_ = addCmd.MarkFlagRequired("time")

	watchCmd.Flags().DurationVar(&cliFlags.interval, "interval", client.DefaultWatchInterval, "How often to refresh the upcoming list")

	for _, c := range []*cobra.Command{listCmd, upcomingCmd, addCmd, watchCmd} {
		c.PreRunE = requireUser
	}

	remindersCmd.AddCommand(listCmd, upcomingCmd, addCmd, completeCmd, deleteCmd, watchCmd)
	rootCmd.AddCommand(remindersCmd)
}

func requireUser(cmd *cobra.Command, args []string) error {
	if cliFlags.user == "" {
		return errors.New("--user is required")
	}
	return nil
}

func newCLIClient() (*client.Client, error) {
	opts := []client.Option{
		client.WithToken(cliFlags.token),
		client.WithLogger(slog.Default()),
	}
	if cliFlags.offlineFile != "" {
		st, err := jsonfile.New(cliFlags.offlineFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open offline file: %w", err)
		}
		opts = append(opts, client.WithLocal(reminders.NewService(st)))
	}
	return client.New(cliFlags.server, opts...), nil
}

type printer struct {
	w      io.Writer
	green  *color.Color
	yellow *color.Color
	red    *color.Color
	cyan   *color.Color
}

func newPrinter(w io.Writer) *printer {
	return &printer{
		w:      w,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed, color.Bold),
		cyan:   color.New(color.FgCyan),
	}
}

func (p *printer) success(format string, a ...any) {
	p.green.Fprintf(p.w, "✓ "+format, a...)
}

func (p *printer) info(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

func (p *printer) list(list []reminders.Reminder) {
	if len(list) == 0 {
		p.info("No reminders\n")
		return
	}
	for _, r := range list {
		p.reminder(r)
	}
}

func (p *printer) reminder(r reminders.Reminder) {
	p.priority(r.Priority).Fprintf(p.w, "%-6s", r.Priority)
	fmt.Fprintf(p.w, " %s  %-9s %s", r.TimeOfDay, r.State(), r.Text)
	p.cyan.Fprintf(p.w, "  [%s] %s\n", r.Category, r.ID)
}

// fired is the watch callback.
func (p *printer) fired(r reminders.Reminder) {
	p.priority(r.Priority).Fprintf(p.w, "⏰ %s %s\n", r.NextOccurrence.Format("15:04"), r.Text)
}

func (p *printer) priority(pr reminders.Priority) *color.Color {
	switch pr {
	case reminders.PriorityHigh:
		return p.red
	case reminders.PriorityMedium:
		return p.yellow
	default:
		return p.green
	}
}
