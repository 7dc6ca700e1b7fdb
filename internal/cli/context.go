package cli

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"acctconsole/internal/api"
	"acctconsole/internal/config"
	"acctconsole/internal/logger"
	"acctconsole/internal/storage"
)

// CLIContext carries what a command needs to run.
type CLIContext struct {
	Config  *config.Store
	Store   *storage.Store
	Client  *api.Client
	Logger  zerolog.Logger
	Output  string
	Verbose bool
}

func getCLIContext(cmd *cobra.Command) *CLIContext {
	if cmd == nil || cmd.Context() == nil {
		return nil
	}
	cliCtx, _ := cmd.Context().Value(contextKey{}).(*CLIContext)
	return cliCtx
}

func mustCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	cliCtx := getCLIContext(cmd)
	if cliCtx == nil {
		return nil, errors.New("command context not initialized")
	}
	return cliCtx, nil
}

// requestContext bounds one API call by the configured timeout.
func (c *CLIContext) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := c.Config.Config.API.Timeout
	if timeout <= 0 {
		timeout = api.DefaultTimeout
	}
	return context.WithTimeout(parent, timeout)
}

// journal records a CLI action in the local activity log. Failures are
// only logged.
func (c *CLIContext) journal(ctx context.Context, kind string, accountID int64, title, details string) {
	if c.Store == nil {
		return
	}
	err := c.Store.RecordActivity(ctx, &storage.Activity{
		Kind:      kind,
		AccountID: storage.AccountRef(accountID),
		Title:     title,
		Details:   details,
		CreatedAt: time.Now(),
	})
	if err != nil {
		c.Logger.Error().Err(err).Msg("record activity")
	}
}

// Close releases the store and the log file.
func (c *CLIContext) Close() error {
	var errs []error
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
		c.Store = nil
	}
	errs = append(errs, logger.Close())
	return errors.Join(errs...)
}
