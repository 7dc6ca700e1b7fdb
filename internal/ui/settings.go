package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"acctconsole/internal/api"
	"acctconsole/internal/storage"
)

type settingsModel struct {
	input      textinput.Model
	saved      string
	err        string
	ping       string
	pinging    bool
	activities []storage.Activity
	journalErr string
}

func newSettingsModel() settingsModel {
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = "http://localhost:8000"
	input.CharLimit = 256
	input.Width = 48
	return settingsModel{input: input}
}

// open refreshes the saved URL and focuses the input.
func (s *settingsModel) open(m *model) tea.Cmd {
	s.err = ""
	s.saved = m.savedURL()
	s.input.SetValue(s.saved)
	s.input.CursorEnd()
	return s.input.Focus()
}

func (s *settingsModel) applyActivity(msg activityLoadedMsg) {
	if msg.err != nil {
		s.journalErr = msg.err.Error()
		return
	}
	s.journalErr = ""
	s.activities = msg.activities
}

func (m *model) savedURL() string {
	if m.store == nil {
		return m.client.BaseURL()
	}
	saved, err := m.store.APIBaseURL(context.Background(), m.defaultURL)
	if err != nil {
		m.log.Error().Err(err).Msg("read api url")
		return m.defaultURL
	}
	return saved
}

func (m *model) updateSettings(key tea.KeyMsg) tea.Cmd {
	s := &m.settings
	switch key.String() {
	case "enter":
		return m.saveURL()
	case "ctrl+t":
		if s.pinging {
			return nil
		}
		s.pinging = true
		s.ping = ""
		return m.ping()
	case "esc":
		s.err = ""
		s.input.SetValue(s.saved)
		s.input.CursorEnd()
		return nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(key)
	return cmd
}

func (m *model) saveURL() tea.Cmd {
	s := &m.settings
	value, err := api.NormalizeBaseURL(s.input.Value())
	if err != nil {
		s.err = err.Error()
		return nil
	}
	if m.store == nil {
		s.err = "No local storage configured; the URL cannot be saved"
		return nil
	}
	if err := m.store.SetAPIBaseURL(context.Background(), value); err != nil {
		s.err = err.Error()
		return nil
	}
	s.err = ""
	s.saved = value
	s.input.SetValue(value)
	return batchCmds([]tea.Cmd{
		m.notify("API URL saved. Restart the console to apply it.", noteSuccess),
		m.loadActivity(),
	})
}

func (m *model) handlePing(msg pingMsg) tea.Cmd {
	m.settings.pinging = false
	if msg.err != nil {
		m.settings.ping = "Unreachable: " + errorMessage(msg.err)
		return m.requestFailed(msg.err)
	}
	m.settings.ping = "Connected: " + compactJSON(msg.info)
	return nil
}

func (m *model) viewSettings() string {
	s := &m.settings
	lines := []string{m.theme.Subtitle.Render("Settings"), ""}
	lines = append(lines, m.field("Active API URL", m.theme.Secondary.Render(m.client.BaseURL())))
	lines = append(lines, m.field("Saved API URL", m.theme.Secondary.Render(sanitizeLine(s.saved))))
	lines = append(lines, m.field("Timezone", m.theme.Secondary.Render(m.cfg.Location().String())))
	if m.store != nil {
		lines = append(lines, m.field("Database", m.theme.Faint.Render(m.store.Path())))
	}
	lines = append(lines, "", m.theme.Secondary.Render("API URL (applies after restart):"))
	lines = append(lines, m.theme.Accent.Render("> ")+s.input.View())
	if s.err != "" {
		lines = append(lines, m.theme.Danger.Render(s.err))
	}
	switch {
	case s.pinging:
		lines = append(lines, m.spinner.View()+" "+m.theme.Faint.Render("Contacting API..."))
	case s.ping != "":
		lines = append(lines, m.theme.Faint.Render(truncate(s.ping, max(m.cardWidth(), 40))))
	}

	lines = append(lines, "", m.theme.Highlight.Render("Recent activity"))
	switch {
	case s.journalErr != "":
		lines = append(lines, m.theme.Danger.Render("Failed to load activity: "+s.journalErr))
	case len(s.activities) == 0:
		lines = append(lines, m.theme.Faint.Render("Nothing recorded yet"))
	default:
		loc := m.cfg.Location()
		for _, a := range s.activities {
			stamp := a.CreatedAt.In(loc).Format("Jan 02 15:04:05")
			style := m.theme.Secondary
			if a.Kind == storage.KindError {
				style = m.theme.Danger
			}
			lines = append(lines, m.theme.Faint.Render(stamp)+"  "+style.Render(truncate(sanitizeLine(a.Title), max(m.cardWidth()-18, 20))))
		}
	}
	return strings.Join(lines, "\n")
}
