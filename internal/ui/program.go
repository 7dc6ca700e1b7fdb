package ui

import (
	"context"
	"encoding/json"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"acctconsole/internal/api"
	"acctconsole/internal/config"
	"acctconsole/internal/storage"
)

// Backend is the part of the control API the console drives.
type Backend interface {
	BaseURL() string
	Info(ctx context.Context) (json.RawMessage, error)
	ListAccounts(ctx context.Context) ([]api.Account, error)
	AccountStats(ctx context.Context, id int64) (*api.AccountStats, error)
	Profile(ctx context.Context, id int64) (*api.Profile, error)
	UpdateProfile(ctx context.Context, id int64, update api.ProfileUpdate) (json.RawMessage, error)
	Memory(ctx context.Context, id int64, chatID string) (*api.Memory, error)
	ClearMemory(ctx context.Context, id int64, chatID string) error
	StartAccount(ctx context.Context, id int64) error
	StopAccount(ctx context.Context, id int64) error
	LockPersonality(ctx context.Context, id int64) error
	UnlockPersonality(ctx context.Context, id int64) error
	UpdateAllowedChats(ctx context.Context, id int64, chats []string) error
	CreateAccount(ctx context.Context, req api.CreateAccountRequest) (*api.CreateAccountResponse, error)
	CheckSessions(ctx context.Context) (json.RawMessage, error)
}

// Options wires the console to its collaborators. Store may be nil, in which
// case nothing is journaled and the API URL cannot be changed.
type Options struct {
	Client Backend
	Store  *storage.Store
	Config *config.Store
	Logger zerolog.Logger
}

// Program wraps the Bubble Tea program lifecycle.
type Program struct {
	program *tea.Program
}

// NewProgram constructs a new interactive console session.
func NewProgram(opts Options) *Program {
	m := newModel(opts)
	return &Program{program: tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())}
}

// Run launches the Bubble Tea program and blocks until it exits.
func (p *Program) Run() error {
	if p == nil || p.program == nil {
		return fmt.Errorf("nil program")
	}
	_, err := p.program.Run()
	return err
}
