package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"acctconsole/internal/api"
	"acctconsole/internal/config"
	"acctconsole/internal/logger"
	"acctconsole/internal/storage"
)

// GlobalFlags are shared by every command.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	Output     string
	URL        string
}

type contextKey struct{}

// NewRootCmd builds the command tree. Without a subcommand the interactive
// console starts. The returned func releases what the command opened and
// must run after Execute, whether or not it failed.
func NewRootCmd(version string) (*cobra.Command, func() error) {
	flags := &GlobalFlags{}
	var session *CLIContext

	rootCmd := &cobra.Command{
		Use:   "acct-console",
		Short: "Admin console for messaging accounts",
		Long: `acct-console manages messaging accounts through the accounts control API.
Run it without arguments for the interactive console, or use the subcommands
for scripting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			switch flags.Output {
			case outputText, outputJSON, outputYAML:
			default:
				return fmt.Errorf("unknown output format %q (want text, json or yaml)", flags.Output)
			}
			cliCtx, err := setup(cmd.Context(), flags)
			if err != nil {
				return err
			}
			session = cliCtx
			cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, cliCtx))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", outputText, "output format: text, json or yaml")
	rootCmd.PersistentFlags().StringVar(&flags.URL, "url", "", "API base URL for this run (overrides the saved one)")

	rootCmd.AddCommand(NewTUICmd())
	rootCmd.AddCommand(NewAccountsCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewActivityCmd())
	rootCmd.AddCommand(NewVersionCmd(version))

	closeFn := func() error {
		if session == nil {
			return nil
		}
		err := session.Close()
		session = nil
		return err
	}
	return rootCmd, closeFn
}

// setup loads config, starts logging, opens the local store and builds the
// API client. The saved API URL wins over the configured default.
func setup(ctx context.Context, flags *GlobalFlags) (*CLIContext, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadFrom(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Config.Log
	if flags.Verbose {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, err
	}
	log := logger.Component("cli")

	store, err := storage.Open(ctx, cfg.Config.Storage.Path)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	baseURL := strings.TrimSpace(flags.URL)
	if baseURL == "" {
		baseURL, err = store.APIBaseURL(ctx, cfg.Config.API.DefaultURL)
		if err != nil {
			_ = store.Close()
			_ = logger.Close()
			return nil, fmt.Errorf("read saved api url: %w", err)
		}
	} else if baseURL, err = api.NormalizeBaseURL(baseURL); err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	client := api.NewClient(baseURL,
		api.WithTimeout(cfg.Config.API.Timeout),
		api.WithLogger(logger.Component("api")),
		api.WithErrorHook(func(e *api.Error) {
			log.Warn().
				Str("kind", string(e.Kind)).
				Int("status", e.Status).
				Str("request_id", e.RequestID).
				Msg(e.Message)
		}),
	)

	log.Debug().Str("config", cfg.Path()).Str("api", baseURL).Msg("cli ready")
	return &CLIContext{
		Config:  cfg,
		Store:   store,
		Client:  client,
		Logger:  log,
		Output:  flags.Output,
		Verbose: flags.Verbose,
	}, nil
}

// Execute runs the CLI and returns the process exit code.
func Execute(version string) int {
	rootCmd, closeFn := NewRootCmd(version)
	err := rootCmd.Execute()
	if cerr := closeFn(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		return 1
	}
	return 0
}
