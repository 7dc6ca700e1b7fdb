package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"acctconsole/internal/api"
	"acctconsole/internal/storage"
	"acctconsole/internal/ui"
)

// NewTUICmd creates the tui command.
func NewTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}
}

func runTUI(cmd *cobra.Command) error {
	c, err := mustCLIContext(cmd)
	if err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("the interactive console needs a terminal; use the accounts subcommands for scripting")
	}
	c.Logger.Info().Str("api", c.Client.BaseURL()).Msg("starting console")
	program := ui.NewProgram(ui.Options{
		Client: c.Client,
		Store:  c.Store,
		Config: c.Config,
		Logger: c.Logger.With().Str("component", "ui").Logger(),
	})
	if err := program.Run(); err != nil {
		return fmt.Errorf("console terminated: %w", err)
	}
	return nil
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the control API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd.Context())
			defer cancel()

			info, err := c.Client.Info(ctx)
			if err != nil {
				state := "API unreachable at"
				if api.IsServerError(err) {
					state = "API failing at"
				}
				fmt.Fprintln(cmd.OutOrStdout(), color.RedString("●"), state, c.Client.BaseURL())
				return err
			}
			return render(cmd.OutOrStdout(), c.Output, info, func(w io.Writer) error {
				fmt.Fprintln(w, color.GreenString("●"), "API reachable at", c.Client.BaseURL())
				fmt.Fprintln(w, prettyJSON(info))
				return nil
			})
		},
	}
}

// NewActivityCmd creates the activity command.
func NewActivityCmd() *cobra.Command {
	var (
		limit     int
		accountID int64
	)

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the local journal of console actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			var activities []storage.Activity
			if accountID > 0 {
				activities, err = c.Store.ListAccountActivity(cmd.Context(), accountID, limit)
			} else {
				activities, err = c.Store.ListActivities(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			rows := make([]map[string]any, 0, len(activities))
			for _, a := range activities {
				row := map[string]any{
					"id":         a.ID,
					"kind":       a.Kind,
					"title":      a.Title,
					"created_at": a.CreatedAt,
				}
				if a.AccountID.Valid {
					row["account_id"] = a.AccountID.Int64
				}
				if a.Details != "" {
					row["details"] = a.Details
				}
				rows = append(rows, row)
			}

			return render(cmd.OutOrStdout(), c.Output, rows, func(w io.Writer) error {
				if len(activities) == 0 {
					fmt.Fprintln(w, "Nothing recorded yet.")
					return nil
				}
				loc := c.Config.Location()
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tACCOUNT\tKIND\tTITLE")
				for _, a := range activities {
					account := "-"
					if a.AccountID.Valid {
						account = "#" + strconv.FormatInt(a.AccountID.Int64, 10)
					}
					kind := a.Kind
					if kind == storage.KindError {
						kind = color.RedString(kind)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.CreatedAt.In(loc).Format("2006-01-02 15:04:05"), account, kind, a.Title)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries")
	cmd.Flags().Int64Var(&accountID, "account", 0, "only entries for this account")

	return cmd
}

// NewVersionCmd creates the version command.
func NewVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version":    version,
				"go_version": runtime.Version(),
				"os":         runtime.GOOS,
				"arch":       runtime.GOARCH,
			}
			format := outputText
			if f := cmd.Flag("output"); f != nil {
				format = f.Value.String()
			}
			return render(cmd.OutOrStdout(), format, info, func(w io.Writer) error {
				fmt.Fprintf(w, "acct-console %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
				return nil
			})
		},
	}
}
