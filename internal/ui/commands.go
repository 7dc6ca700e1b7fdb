package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"acctconsole/internal/api"
	"acctconsole/internal/storage"
)

// ActionKind tags a mutating call so its result can be routed.
type ActionKind int

const (
	ActionStart ActionKind = iota
	ActionStop
	ActionLock
	ActionUnlock
	ActionAllowedChats
	ActionUpdateProfile
	ActionClearMemory
)

// Action is a mutating call against one account.
type Action struct {
	Kind      ActionKind
	AccountID int64
	ChatID    string
}

type accountsLoadedMsg struct {
	accounts []api.Account
	err      error
}

type refreshTickMsg struct{}

type sessionsCheckedMsg struct {
	err error
}

type modalContent int

const (
	contentDetails modalContent = iota
	contentProfile
	contentMemory
)

type modalLoadedMsg struct {
	content   modalContent
	accountID int64
	chatID    string
	stats     *api.AccountStats
	profile   *api.Profile
	memory    *api.Memory
	err       error
}

type actionDoneMsg struct {
	action  Action
	message string
	err     error
}

type accountCreatedMsg struct {
	resp *api.CreateAccountResponse
	err  error
}

type notifyExpiredMsg struct {
	seq int
}

type pingMsg struct {
	info json.RawMessage
	err  error
}

type activityLoadedMsg struct {
	activities []storage.Activity
	err        error
}

func (m *model) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	timeout := m.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fn(ctx)
	}
}

func (m *model) fetchAccounts() tea.Cmd {
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		accounts, err := client.ListAccounts(ctx)
		return accountsLoadedMsg{accounts: accounts, err: err}
	})
}

func (m *model) fetchStats(id int64) tea.Cmd {
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		stats, err := client.AccountStats(ctx, id)
		return modalLoadedMsg{content: contentDetails, accountID: id, stats: stats, err: err}
	})
}

func (m *model) fetchProfile(id int64) tea.Cmd {
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		profile, err := client.Profile(ctx, id)
		return modalLoadedMsg{content: contentProfile, accountID: id, profile: profile, err: err}
	})
}

func (m *model) fetchMemory(id int64, chatID string) tea.Cmd {
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		memory, err := client.Memory(ctx, id, chatID)
		return modalLoadedMsg{content: contentMemory, accountID: id, chatID: chatID, memory: memory, err: err}
	})
}

func (m *model) checkSessions() tea.Cmd {
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		_, err := client.CheckSessions(ctx)
		return sessionsCheckedMsg{err: err}
	})
}

func (m *model) ping() tea.Cmd {
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		info, err := client.Info(ctx)
		return pingMsg{info: info, err: err}
	})
}

func (m *model) createAccount(req api.CreateAccountRequest) tea.Cmd {
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		resp, err := client.CreateAccount(ctx, req)
		return accountCreatedMsg{resp: resp, err: err}
	})
}

func (m *model) updateProfile(id int64, update api.ProfileUpdate) tea.Cmd {
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		_, err := client.UpdateProfile(ctx, id, update)
		return actionDoneMsg{action: Action{Kind: ActionUpdateProfile, AccountID: id}, message: "Profile updated", err: err}
	})
}

func (m *model) updateAllowedChats(id int64, chats []string) tea.Cmd {
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		err := client.UpdateAllowedChats(ctx, id, chats)
		return actionDoneMsg{action: Action{Kind: ActionAllowedChats, AccountID: id}, message: "Allowed chats updated", err: err}
	})
}

func (m *model) clearMemory(id int64, chatID string) tea.Cmd {
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		err := client.ClearMemory(ctx, id, chatID)
		return actionDoneMsg{action: Action{Kind: ActionClearMemory, AccountID: id, ChatID: chatID}, message: "Memory cleared", err: err}
	})
}

// runAction issues a single-call action without a payload.
func (m *model) runAction(action Action) tea.Cmd {
	client := m.client
	return m.call(func(ctx context.Context) tea.Msg {
		var (
			err     error
			message string
		)
		switch action.Kind {
		case ActionStart:
			err = client.StartAccount(ctx, action.AccountID)
			message = fmt.Sprintf("Account #%d started", action.AccountID)
		case ActionStop:
			err = client.StopAccount(ctx, action.AccountID)
			message = fmt.Sprintf("Account #%d stopped", action.AccountID)
		case ActionLock:
			err = client.LockPersonality(ctx, action.AccountID)
			message = "Personality locked"
		case ActionUnlock:
			err = client.UnlockPersonality(ctx, action.AccountID)
			message = "Personality unlocked"
		default:
			err = fmt.Errorf("unsupported action %d", action.Kind)
		}
		return actionDoneMsg{action: action, message: message, err: err}
	})
}

func (m *model) loadActivity() tea.Cmd {
	store := m.store
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		activities, err := store.ListActivities(context.Background(), 8)
		return activityLoadedMsg{activities: activities, err: err}
	}
}

func scheduleRefresh(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func batchCmds(cmds []tea.Cmd) tea.Cmd {
	filtered := cmds[:0]
	for _, c := range cmds {
		if c != nil {
			filtered = append(filtered, c)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return tea.Batch(filtered...)
	}
}
