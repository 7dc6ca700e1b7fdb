package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"acctconsole/internal/api"
	"acctconsole/internal/config"
	"acctconsole/internal/storage"
	"acctconsole/internal/theme"
)

// Tab is one of the top-level console pages.
type Tab int

const (
	TabAccounts Tab = iota
	TabCreate
	TabSettings
)

var tabTitles = []string{"Accounts", "Create", "Settings"}

func (t Tab) String() string {
	if int(t) < 0 || int(t) >= len(tabTitles) {
		return "unknown"
	}
	return strings.ToLower(tabTitles[t])
}

// AppState is the transient UI state: one tab and, when the modal is open,
// one modal mode.
type AppState struct {
	Tab       Tab
	ModalOpen bool
	ModalMode ModalMode
}

type model struct {
	client Backend
	store  *storage.Store
	cfg    *config.Store
	log    zerolog.Logger
	theme  theme.Theme
	width  int
	height int

	requestTimeout  time.Duration
	refreshInterval time.Duration
	notifyDuration  time.Duration
	defaultURL      string

	tab     Tab
	spinner spinner.Model

	list     accountList
	modal    modalState
	create   createForm
	settings settingsModel
	note     notification
}

func newModel(opts Options) *model {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Store{}
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &model{
		client:          opts.Client,
		store:           opts.Store,
		cfg:             cfg,
		log:             opts.Logger,
		theme:           theme.Default(),
		requestTimeout:  orDefault(cfg.Config.API.Timeout, api.DefaultTimeout),
		refreshInterval: orDefault(cfg.Config.UI.RefreshInterval, 30*time.Second),
		notifyDuration:  orDefault(cfg.Config.UI.NotificationDuration, 3*time.Second),
		defaultURL:      cfg.Config.API.DefaultURL,
		tab:             TabAccounts,
		spinner:         sp,
	}
	if m.defaultURL == "" {
		m.defaultURL = api.DefaultBaseURL
	}
	m.spinner.Style = m.theme.Accent
	m.modal = newModalState()
	m.create = newCreateForm()
	m.settings = newSettingsModel()
	return m
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (m *model) Init() tea.Cmd {
	return batchCmds([]tea.Cmd{
		m.spinner.Tick,
		m.loadAccounts(),
		scheduleRefresh(m.refreshInterval),
	})
}

// State reports the current tab and modal state.
func (m *model) State() AppState {
	return AppState{Tab: m.tab, ModalOpen: m.modal.open, ModalMode: m.modal.mode}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.modal.resize(m.width, m.height)
		m.modal.refreshViewport(m)
		return m, nil
	case tea.MouseMsg:
		return m, m.handleMouse(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case notifyExpiredMsg:
		if msg.seq == m.note.seq {
			m.note.visible = false
		}
		return m, nil
	case refreshTickMsg:
		return m, batchCmds([]tea.Cmd{m.loadAccounts(), scheduleRefresh(m.refreshInterval)})
	case accountsLoadedMsg:
		return m, m.handleAccountsLoaded(msg)
	case sessionsCheckedMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("session check failed")
			return m, nil
		}
		return m, m.notify("Session check completed", noteSuccess)
	case modalLoadedMsg:
		return m, m.handleModalLoaded(msg)
	case actionDoneMsg:
		return m, m.handleActionDone(msg)
	case accountCreatedMsg:
		return m, m.handleAccountCreated(msg)
	case pingMsg:
		return m, m.handlePing(msg)
	case activityLoadedMsg:
		m.settings.applyActivity(msg)
		return m, nil
	}
	return m, m.updateFocused(msg)
}

func (m *model) handleKey(key tea.KeyMsg) tea.Cmd {
	if m.modal.open {
		return m.updateModal(key)
	}
	switch key.String() {
	case "tab":
		return m.switchTab((m.tab + 1) % Tab(len(tabTitles)))
	case "shift+tab":
		return m.switchTab((m.tab + Tab(len(tabTitles)) - 1) % Tab(len(tabTitles)))
	case "f1":
		return m.switchTab(TabAccounts)
	case "f2":
		return m.switchTab(TabCreate)
	case "f3":
		return m.switchTab(TabSettings)
	}
	switch m.tab {
	case TabCreate:
		return m.updateCreate(key)
	case TabSettings:
		return m.updateSettings(key)
	default:
		return m.updateAccounts(key)
	}
}

// updateFocused forwards non-key messages, such as cursor blinks, to
// whichever input currently has focus.
func (m *model) updateFocused(msg tea.Msg) tea.Cmd {
	if m.modal.open {
		return m.modal.updateInputs(msg)
	}
	switch m.tab {
	case TabCreate:
		return m.create.updateInputs(msg)
	case TabSettings:
		var cmd tea.Cmd
		m.settings.input, cmd = m.settings.input.Update(msg)
		return cmd
	}
	return nil
}

func (m *model) switchTab(next Tab) tea.Cmd {
	if next == m.tab {
		return nil
	}
	m.tab = next
	switch next {
	case TabCreate:
		return m.create.focus()
	case TabSettings:
		return batchCmds([]tea.Cmd{m.settings.open(m), m.loadActivity()})
	default:
		m.create.blur()
		m.settings.input.Blur()
	}
	return nil
}

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if !m.modal.open || msg.Type != tea.MouseLeft {
		return nil
	}
	x, y, w, h := m.modalRect()
	if msg.X < x || msg.X >= x+w || msg.Y < y || msg.Y >= y+h {
		m.closeModal()
	}
	return nil
}

// requestFailed reports a failed API call to the user and the log.
func (m *model) requestFailed(err error) tea.Cmd {
	return m.notify("Error: "+errorMessage(err), noteError)
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := api.AsError(err); ok {
		return apiErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}

func (m *model) View() string {
	if m.modal.open {
		box := m.viewModal()
		if m.width == 0 || m.height == 0 {
			return box + "\n"
		}
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	lines := []string{m.viewHeader(), ""}
	switch m.tab {
	case TabCreate:
		lines = append(lines, m.viewCreate())
	case TabSettings:
		lines = append(lines, m.viewSettings())
	default:
		lines = append(lines, m.viewAccounts())
	}
	if n := m.viewNotification(); n != "" {
		lines = append(lines, "", n)
	}
	lines = append(lines, "", m.viewHelp())
	return strings.Join(lines, "\n") + "\n"
}

func (m *model) viewHeader() string {
	tabs := make([]string, 0, len(tabTitles))
	for i, title := range tabTitles {
		label := title
		if Tab(i) == m.tab {
			tabs = append(tabs, m.theme.TabActive.Render(label))
		} else {
			tabs = append(tabs, m.theme.TabInactive.Render(label))
		}
	}
	title := m.theme.Title.Render("Accounts Console")
	return title + "  " + m.theme.Faint.Render(m.client.BaseURL()) + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *model) viewHelp() string {
	pairs := [][2]string{{"tab", "switch page"}, {"F1-F3", "jump"}}
	switch m.tab {
	case TabAccounts:
		pairs = append(pairs,
			[2]string{"↑/↓", "select"},
			[2]string{"enter", "details"},
			[2]string{"s", "start/stop"},
			[2]string{"p", "profile"},
			[2]string{"m", "memory"},
			[2]string{"r", "refresh"},
			[2]string{"q", "quit"},
		)
	case TabCreate:
		pairs = append(pairs, [2]string{"↑/↓", "field"}, [2]string{"enter", "next/submit"})
	case TabSettings:
		pairs = append(pairs, [2]string{"enter", "save URL"}, [2]string{"ctrl+t", "test connection"})
	}
	pairs = append(pairs, [2]string{"ctrl+c", "exit"})
	return m.renderHelp(pairs)
}

func (m *model) renderHelp(pairs [][2]string) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, m.theme.HelpKey.Render(p[0])+" "+m.theme.HelpValue.Render(p[1]))
	}
	return strings.Join(parts, m.theme.Faint.Render("  •  "))
}
