package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"acctconsole/internal/api"
	"acctconsole/internal/storage"
)

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change local settings",
	}

	cmd.AddCommand(newConfigGetURLCmd())
	cmd.AddCommand(newConfigSetURLCmd())
	cmd.AddCommand(newConfigResetURLCmd())
	cmd.AddCommand(newConfigSetTimezoneCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigGetURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-url",
		Short: "Show the API base URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			def := c.Config.Config.API.DefaultURL
			saved, err := c.Store.APIBaseURL(cmd.Context(), def)
			if err != nil {
				return err
			}
			out := map[string]string{
				"saved":   saved,
				"default": def,
				"active":  c.Client.BaseURL(),
			}
			return render(cmd.OutOrStdout(), c.Output, out, func(w io.Writer) error {
				fmt.Fprintln(w, saved)
				return nil
			})
		},
	}
}

func newConfigSetURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-url <url>",
		Short: "Save the API base URL used by later runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			value, err := api.NormalizeBaseURL(args[0])
			if err != nil {
				return err
			}
			if err := c.Store.SetAPIBaseURL(cmd.Context(), value); err != nil {
				return fmt.Errorf("save api url: %w", err)
			}
			c.journal(cmd.Context(), storage.KindSuccess, 0, "API URL saved", value)
			success(cmd.OutOrStdout(), "API URL saved: %s", value)
			return nil
		},
	}
}

func newConfigResetURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-url",
		Short: "Forget the saved API base URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := c.Store.DeleteSetting(cmd.Context(), storage.KeyAPIURL); err != nil {
				return fmt.Errorf("reset api url: %w", err)
			}
			success(cmd.OutOrStdout(), "API URL reset to %s", c.Config.Config.API.DefaultURL)
			return nil
		},
	}
}

func newConfigSetTimezoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-timezone <zone>",
		Short: "Set the IANA timezone used to show times",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			if _, err := time.LoadLocation(args[0]); err != nil {
				return fmt.Errorf("unknown timezone %q", args[0])
			}
			c.Config.Config.UI.Timezone = args[0]
			if err := c.Config.Save(); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Timezone set to %s", args[0])
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show where settings, data and logs live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			out := map[string]string{
				"config":   c.Config.Path(),
				"database": c.Store.Path(),
				"log":      c.Config.Config.Log.File,
			}
			return render(cmd.OutOrStdout(), c.Output, out, func(w io.Writer) error {
				fmt.Fprintf(w, "Config:   %s\n", out["config"])
				fmt.Fprintf(w, "Database: %s\n", out["database"])
				fmt.Fprintf(w, "Log:      %s\n", out["log"])
				return nil
			})
		},
	}
}
