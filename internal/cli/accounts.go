package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"acctconsole/internal/accountcsv"
	"acctconsole/internal/api"
	"acctconsole/internal/storage"
)

// NewAccountsCmd creates the accounts command.
func NewAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account", "acc"},
		Short:   "Manage messaging accounts",
		Long:    `List, inspect, start, stop and configure accounts registered with the control API.`,
	}

	cmd.AddCommand(newAccountsListCmd())
	cmd.AddCommand(newAccountsGetCmd())
	cmd.AddCommand(newAccountsStatsCmd())
	cmd.AddCommand(newAccountsToggleCmd("start", "Start an account's bot", true))
	cmd.AddCommand(newAccountsToggleCmd("stop", "Stop an account's bot", false))
	cmd.AddCommand(newAccountsProfileCmd())
	cmd.AddCommand(newAccountsUpdateProfileCmd())
	cmd.AddCommand(newAccountsLockCmd("lock", true))
	cmd.AddCommand(newAccountsLockCmd("unlock", false))
	cmd.AddCommand(newAccountsAllowedChatsCmd())
	cmd.AddCommand(newAccountsMemoryCmd())
	cmd.AddCommand(newAccountsClearMemoryCmd())
	cmd.AddCommand(newAccountsCreateCmd())
	cmd.AddCommand(newAccountsImportCmd())
	cmd.AddCommand(newAccountsCheckSessionsCmd())

	return cmd
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd.Context())
			defer cancel()

			accounts, err := c.Client.ListAccounts(ctx)
			if err != nil {
				return fmt.Errorf("list accounts: %w", err)
			}
			return render(cmd.OutOrStdout(), c.Output, accounts, func(w io.Writer) error {
				if len(accounts) == 0 {
					fmt.Fprintln(w, "No accounts registered.")
					return nil
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tPHONE\tSTATUS")
				for _, a := range accounts {
					phone := a.PhoneNumber
					if phone == "" {
						phone = "N/A"
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\n", a.ID, phone, activeBadge(a.IsActive))
				}
				return tw.Flush()
			})
		},
	}
}

func newAccountsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <account-id>",
		Short: "Show the raw account record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, args[0], false)
		},
	}
}

func newAccountsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <account-id>",
		Short: "Show account status and counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, args[0], true)
		},
	}
}

func runStats(cmd *cobra.Command, arg string, counters bool) error {
	c, err := mustCLIContext(cmd)
	if err != nil {
		return err
	}
	id, err := parseAccountID(arg)
	if err != nil {
		return err
	}
	ctx, cancel := c.requestContext(cmd.Context())
	defer cancel()

	fetch := c.Client.Account
	if counters {
		fetch = c.Client.AccountStats
	}
	stats, err := fetch(ctx, id)
	if err != nil {
		return fmt.Errorf("account %d: %w", id, err)
	}
	return render(cmd.OutOrStdout(), c.Output, stats.Raw, func(w io.Writer) error {
		phone := stats.PhoneNumber
		if phone == "" {
			phone = "N/A"
		}
		fmt.Fprintf(w, "Account #%d\n", id)
		fmt.Fprintf(w, "  Phone:  %s\n", phone)
		fmt.Fprintf(w, "  Status: %s\n", activeBadge(stats.IsActive))
		if stats.Stats != nil {
			fmt.Fprintf(w, "  Messages processed: %s\n", formatScalar(stats.Stats.MessagesProcessed))
			fmt.Fprintf(w, "  Responses sent:     %s\n", formatScalar(stats.Stats.ResponsesSent))
		}
		if c.Verbose {
			fmt.Fprintln(w, prettyJSON(stats.Raw))
		}
		return nil
	})
}

func newAccountsToggleCmd(name, short string, start bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <account-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd.Context())
			defer cancel()

			verb := "stopped"
			if start {
				verb = "started"
				err = c.Client.StartAccount(ctx, id)
			} else {
				err = c.Client.StopAccount(ctx, id)
			}
			if err != nil {
				c.journal(cmd.Context(), storage.KindError, id, "Error: "+err.Error(), name)
				return fmt.Errorf("%s account %d: %w", name, id, err)
			}
			message := fmt.Sprintf("Account #%d %s", id, verb)
			c.journal(cmd.Context(), storage.KindSuccess, id, message, "")
			success(cmd.OutOrStdout(), "%s", message)
			return nil
		},
	}
}

func newAccountsProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile <account-id>",
		Short: "Show the personality profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd.Context())
			defer cancel()

			profile, err := c.Client.Profile(ctx, id)
			if err != nil {
				return fmt.Errorf("profile of account %d: %w", id, err)
			}
			return render(cmd.OutOrStdout(), c.Output, profile.Raw, func(w io.Writer) error {
				printProfile(w, profile)
				return nil
			})
		},
	}
}

func printProfile(w io.Writer, p *api.Profile) {
	fmt.Fprintln(w, "Base settings:")
	if len(p.Base) == 0 {
		fmt.Fprintln(w, "  No data")
	}
	for _, key := range api.SortedKeys(p.Base) {
		if key == api.FieldCustomPrompt {
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", key, formatScalar(p.Base[key]))
	}
	if prompt := p.BaseString(api.FieldCustomPrompt); prompt != "" {
		fmt.Fprintln(w, "Custom prompt:")
		for _, line := range strings.Split(prompt, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
	if p.Constraints != nil {
		fmt.Fprintln(w, "Constraints:")
		for _, key := range api.SortedKeys(p.Constraints) {
			fmt.Fprintf(w, "  %s: %s\n", key, formatScalar(p.Constraints[key]))
		}
	}
	chats, _ := p.AllowedChats()
	summary := "All chats allowed"
	if len(chats) > 0 {
		summary = strings.Join(chats, ", ")
	}
	fmt.Fprintf(w, "Allowed chats: %s\n", summary)
	fmt.Fprintf(w, "Personality: %s\n", lockBadge(p.Locked()))
}

func newAccountsUpdateProfileCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "update-profile <account-id>",
		Short: "Change profile fields from a YAML or JSON file",
		Long: `Change base_config and constraints of a profile. The file holds the
same document the API accepts; keys it leaves out keep their current
values. For example:

  base_config:
    speech_style: friendly
    activity_probability: 0.35
  constraints:
    autonomy_level: 0.8
    allowed_chats: []`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			data, err := readDocument(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd.Context())
			defer cancel()

			current, err := c.Client.Profile(ctx, id)
			if err != nil && !api.IsNotFound(err) {
				return fmt.Errorf("load profile of account %d: %w", id, err)
			}
			update, err := overlayProfile(current, data)
			if err != nil {
				return err
			}
			if _, err := c.Client.UpdateProfile(ctx, id, update); err != nil {
				c.journal(cmd.Context(), storage.KindError, id, "Error: "+err.Error(), "update-profile")
				return fmt.Errorf("update profile of account %d: %w", id, err)
			}
			c.journal(cmd.Context(), storage.KindSuccess, id, "Profile updated", "")
			success(cmd.OutOrStdout(), "Profile of account #%d updated", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "profile document (- for stdin)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func readDocument(stdin io.Reader, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return data, nil
}

// overlayProfile decodes a YAML (or JSON) document on top of the editable
// fields of current, so keys the document omits keep their values.
func overlayProfile(current *api.Profile, data []byte) (api.ProfileUpdate, error) {
	update := current.Update()
	if err := yaml.Unmarshal(data, &update); err != nil {
		return api.ProfileUpdate{}, fmt.Errorf("parse profile: %w", err)
	}
	if err := update.Validate(); err != nil {
		return api.ProfileUpdate{}, err
	}
	return update, nil
}

func newAccountsLockCmd(name string, lock bool) *cobra.Command {
	short := "Lock the personality against automatic changes"
	if !lock {
		short = "Unlock the personality"
	}
	return &cobra.Command{
		Use:   name + " <account-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd.Context())
			defer cancel()

			message := "Personality unlocked"
			if lock {
				message = "Personality locked"
				err = c.Client.LockPersonality(ctx, id)
			} else {
				err = c.Client.UnlockPersonality(ctx, id)
			}
			if err != nil {
				c.journal(cmd.Context(), storage.KindError, id, "Error: "+err.Error(), name)
				return fmt.Errorf("%s account %d: %w", name, id, err)
			}
			c.journal(cmd.Context(), storage.KindSuccess, id, message, "")
			success(cmd.OutOrStdout(), "%s", message)
			return nil
		},
	}
}

func newAccountsAllowedChatsCmd() *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "allowed-chats <account-id> [chat-id...]",
		Short: "Restrict the chats an account answers in",
		Long: `Replace the allowed chat list. Ids may be given as separate arguments or
comma separated. An empty list, set with --clear, allows every chat.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			chats := splitChats(args[1:])
			if len(chats) == 0 && !clearAll {
				return errors.New("no chat ids given; use --clear to allow all chats")
			}
			ctx, cancel := c.requestContext(cmd.Context())
			defer cancel()

			if err := c.Client.UpdateAllowedChats(ctx, id, chats); err != nil {
				c.journal(cmd.Context(), storage.KindError, id, "Error: "+err.Error(), "allowed-chats")
				return fmt.Errorf("update allowed chats of account %d: %w", id, err)
			}
			c.journal(cmd.Context(), storage.KindSuccess, id, "Allowed chats updated", strings.Join(chats, ","))
			if len(chats) == 0 {
				success(cmd.OutOrStdout(), "All chats allowed for account #%d", id)
				return nil
			}
			success(cmd.OutOrStdout(), "Allowed chats of account #%d: %s", id, strings.Join(chats, ", "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearAll, "clear", false, "allow all chats")

	return cmd
}

func newAccountsMemoryCmd() *cobra.Command {
	var chatID string

	cmd := &cobra.Command{
		Use:   "memory <account-id>",
		Short: "Show stored memory",
		Long:  `Show the chat history of one chat with --chat, or the account-level memory document.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd.Context())
			defer cancel()

			mem, err := c.Client.Memory(ctx, id, strings.TrimSpace(chatID))
			if err != nil {
				return fmt.Errorf("memory of account %d: %w", id, err)
			}
			return render(cmd.OutOrStdout(), c.Output, mem.Raw, func(w io.Writer) error {
				if !mem.HasHistory() {
					fmt.Fprintln(w, prettyJSON(mem.Raw))
					return nil
				}
				loc := c.Config.Location()
				for _, msg := range mem.ChatHistory {
					stamp := "unknown time"
					if t, ok := msg.Time(); ok {
						stamp = t.In(loc).Format("2006-01-02 15:04:05")
					}
					text := msg.Text()
					if text == "" {
						text = string(msg.Raw)
					}
					if msg.Username != "" {
						fmt.Fprintf(w, "[%s] %s: %s\n", stamp, msg.Username, text)
					} else {
						fmt.Fprintf(w, "[%s] %s\n", stamp, text)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&chatID, "chat", "", "chat id")

	return cmd
}

func newAccountsClearMemoryCmd() *cobra.Command {
	var chatID string

	cmd := &cobra.Command{
		Use:   "clear-memory <account-id>",
		Short: "Clear stored memory of an account or one chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd.Context())
			defer cancel()

			chatID = strings.TrimSpace(chatID)
			if err := c.Client.ClearMemory(ctx, id, chatID); err != nil {
				c.journal(cmd.Context(), storage.KindError, id, "Error: "+err.Error(), "clear-memory")
				return fmt.Errorf("clear memory of account %d: %w", id, err)
			}
			c.journal(cmd.Context(), storage.KindSuccess, id, "Memory cleared", chatID)
			success(cmd.OutOrStdout(), "Memory cleared")
			return nil
		},
	}

	cmd.Flags().StringVar(&chatID, "chat", "", "only clear this chat")

	return cmd
}

func newAccountsCreateCmd() *cobra.Command {
	var req api.CreateAccountRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
			if req.PhoneNumber == "" {
				return errors.New("--phone is required")
			}
			ctx, cancel := c.requestContext(cmd.Context())
			defer cancel()

			resp, err := c.Client.CreateAccount(ctx, req)
			if err != nil {
				c.journal(cmd.Context(), storage.KindError, 0, "Error: "+err.Error(), "create "+req.PhoneNumber)
				return fmt.Errorf("create account: %w", err)
			}
			message := fmt.Sprintf("Account created with ID: %d", resp.AccountID)
			c.journal(cmd.Context(), storage.KindSuccess, resp.AccountID, message, req.PhoneNumber)
			return render(cmd.OutOrStdout(), c.Output, resp, func(w io.Writer) error {
				success(w, "%s", message)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.PhoneNumber, "phone", "", "phone number")
	cmd.Flags().StringVar(&req.SessionString, "session", "", "session string")
	cmd.Flags().IntVar(&req.APIID, "api-id", 0, "API id")
	cmd.Flags().StringVar(&req.APIHash, "api-hash", "", "API hash")
	_ = cmd.MarkFlagRequired("api-id")

	return cmd
}

func newAccountsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create accounts from a CSV file",
		Long: `Create one account per CSV row. The header must name phone_number and api_id;
session_string and api_hash are optional. Invalid rows are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			result, err := accountcsv.Import(cmd.Context(), c.Client, f)
			if err != nil {
				return err
			}
			c.journal(cmd.Context(), storage.KindImport, 0,
				fmt.Sprintf("Imported %d accounts from %s", result.Created, args[0]),
				strings.Join(result.Errors, "\n"))

			if err := render(cmd.OutOrStdout(), c.Output, result, func(w io.Writer) error {
				success(w, "Created %d accounts, skipped %d", result.Created, result.Skipped)
				for _, e := range result.Errors {
					fmt.Fprintln(w, "  "+e)
				}
				return nil
			}); err != nil {
				return err
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d rows failed", len(result.Errors))
			}
			return nil
		},
	}
}

func newAccountsCheckSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-sessions",
		Short: "Ask the API to validate every account session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd.Context())
			defer cancel()

			raw, err := c.Client.CheckSessions(ctx)
			if err != nil {
				return fmt.Errorf("check sessions: %w", err)
			}
			return render(cmd.OutOrStdout(), c.Output, raw, func(w io.Writer) error {
				success(w, "Session check completed")
				if c.Verbose {
					fmt.Fprintln(w, prettyJSON(raw))
				}
				return nil
			})
		},
	}
}
