package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"acctconsole/internal/api"
)

type accountList struct {
	accounts []api.Account
	loading  bool
	err      string
	cursor   int
}

// loadAccounts shows the loading placeholder and fetches the list.
func (m *model) loadAccounts() tea.Cmd {
	m.list.loading = true
	m.list.err = ""
	return m.fetchAccounts()
}

func (m *model) handleAccountsLoaded(msg accountsLoadedMsg) tea.Cmd {
	m.list.loading = false
	if msg.err != nil {
		m.list.accounts = nil
		m.list.err = errorMessage(msg.err)
		return m.requestFailed(msg.err)
	}
	m.list.err = ""
	m.list.accounts = msg.accounts
	if m.list.cursor >= len(m.list.accounts) {
		m.list.cursor = max(len(m.list.accounts)-1, 0)
	}
	return nil
}

func (m *model) selectedAccount() (api.Account, bool) {
	if m.list.loading || m.list.cursor < 0 || m.list.cursor >= len(m.list.accounts) {
		return api.Account{}, false
	}
	return m.list.accounts[m.list.cursor], true
}

func (m *model) updateAccounts(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "q":
		return tea.Quit
	case "up", "k":
		if m.list.cursor > 0 {
			m.list.cursor--
		}
		return nil
	case "down", "j":
		if m.list.cursor < len(m.list.accounts)-1 {
			m.list.cursor++
		}
		return nil
	case "r":
		return tea.Sequence(m.loadAccounts(), m.checkSessions())
	}

	account, ok := m.selectedAccount()
	if !ok {
		return nil
	}
	switch key.String() {
	case "enter", "d":
		return m.openDetails(account.ID)
	case "p":
		return m.openProfile(account.ID)
	case "m":
		return m.openMemoryPrompt(account.ID)
	case "s":
		kind := ActionStart
		if account.IsActive {
			kind = ActionStop
		}
		return m.runAction(Action{Kind: kind, AccountID: account.ID})
	}
	return nil
}

func (m *model) viewAccounts() string {
	lines := []string{m.theme.Subtitle.Render("Registered accounts")}
	switch {
	case m.list.loading:
		lines = append(lines, m.spinner.View()+" "+m.theme.Faint.Render("Loading accounts..."))
	case m.list.err != "":
		lines = append(lines, m.theme.Danger.Render("Failed to load: "+sanitizeLine(m.list.err)))
	case len(m.list.accounts) == 0:
		lines = append(lines, m.theme.Warning.Render("No accounts registered"))
	default:
		cards := make([]string, 0, len(m.list.accounts))
		for i, a := range m.list.accounts {
			cards = append(cards, m.renderAccountCard(a, i == m.list.cursor))
		}
		lines = append(lines, strings.Join(cards, "\n"))
	}
	return strings.Join(lines, "\n")
}

func (m *model) cardWidth() int {
	if m.width <= 0 {
		return 60
	}
	return min(max(m.width-4, 30), 80)
}

func (m *model) renderAccountCard(a api.Account, selected bool) string {
	inner := m.cardWidth() - 4
	badge := m.theme.BadgeIdle.Render("Inactive")
	toggle := "Start"
	if a.IsActive {
		badge = m.theme.BadgeActive.Render("Active")
		toggle = "Stop"
	}
	title := m.theme.Primary.Render(fmt.Sprintf("Account #%d", a.ID))
	header := lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", badge)

	phone := sanitizeLine(a.PhoneNumber)
	if phone == "" {
		phone = "N/A"
	}
	phoneLine := m.theme.Secondary.Render(truncate("Phone: "+phone, inner))

	actions := []string{
		m.theme.HelpKey.Render("enter") + " Details",
		m.theme.HelpKey.Render("s") + " " + toggle,
		m.theme.HelpKey.Render("p") + " Profile",
		m.theme.HelpKey.Render("m") + " Memory",
	}
	body := strings.Join([]string{header, phoneLine, strings.Join(actions, "  ")}, "\n")

	style := m.theme.Card
	if selected {
		style = m.theme.CardSelected
	}
	return style.Width(inner).Render(body)
}
