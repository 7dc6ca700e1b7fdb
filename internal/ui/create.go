package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"acctconsole/internal/api"
)

type createField struct {
	label string
	input textinput.Model
}

type createForm struct {
	fields     []createField
	index      int
	err        string
	submitting bool
}

func newCreateForm() createForm {
	specs := []struct {
		label       string
		placeholder string
		limit       int
		secret      bool
	}{
		{"Phone number", "+12025550123", 32, false},
		{"Session string", "Telethon session string", 4096, true},
		{"API ID", "12345", 16, false},
		{"API hash", "0123456789abcdef", 64, true},
	}
	form := createForm{}
	for _, s := range specs {
		input := textinput.New()
		input.Prompt = ""
		input.Placeholder = s.placeholder
		input.CharLimit = s.limit
		input.Width = 48
		if s.secret {
			input.EchoMode = textinput.EchoPassword
			input.EchoCharacter = '•'
		}
		form.fields = append(form.fields, createField{label: s.label, input: input})
	}
	return form
}

func (f *createForm) focus() tea.Cmd {
	f.blur()
	return f.fields[f.index].input.Focus()
}

func (f *createForm) blur() {
	for i := range f.fields {
		f.fields[i].input.Blur()
	}
}

func (f *createForm) move(delta int) tea.Cmd {
	f.index = (f.index + delta + len(f.fields)) % len(f.fields)
	return f.focus()
}

func (f *createForm) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.index].input, cmd = f.fields[f.index].input.Update(msg)
	return cmd
}

func (f *createForm) value(i int) string {
	return strings.TrimSpace(f.fields[i].input.Value())
}

// request validates the form. api_id must be an integer.
func (f *createForm) request() (api.CreateAccountRequest, error) {
	phone := f.value(0)
	if phone == "" {
		return api.CreateAccountRequest{}, fmt.Errorf("phone number is required")
	}
	apiID, err := strconv.Atoi(f.value(2))
	if err != nil {
		return api.CreateAccountRequest{}, fmt.Errorf("API ID must be an integer")
	}
	return api.CreateAccountRequest{
		PhoneNumber:   phone,
		SessionString: f.value(1),
		APIID:         apiID,
		APIHash:       f.value(3),
	}, nil
}

func (m *model) updateCreate(key tea.KeyMsg) tea.Cmd {
	form := &m.create
	switch key.String() {
	case "up":
		return form.move(-1)
	case "down":
		return form.move(1)
	case "enter", "ctrl+s":
		if key.String() == "enter" && form.index < len(form.fields)-1 {
			return form.move(1)
		}
		return m.submitCreate()
	case "esc":
		form.err = ""
		return nil
	}
	return form.updateInputs(key)
}

func (m *model) submitCreate() tea.Cmd {
	form := &m.create
	if form.submitting {
		return nil
	}
	req, err := form.request()
	if err != nil {
		form.err = err.Error()
		return nil
	}
	form.err = ""
	form.submitting = true
	return m.createAccount(req)
}

func (m *model) handleAccountCreated(msg accountCreatedMsg) tea.Cmd {
	m.create.submitting = false
	if msg.err != nil {
		return m.requestFailed(msg.err)
	}
	id := int64(0)
	if msg.resp != nil {
		id = msg.resp.AccountID
	}
	note := m.notifyAccount(id, fmt.Sprintf("Account created with ID: %d", id), noteSuccess)
	m.create = newCreateForm()
	switchCmd := m.switchTab(TabAccounts)
	return batchCmds([]tea.Cmd{note, switchCmd, m.loadAccounts()})
}

func (m *model) viewCreate() string {
	lines := []string{m.theme.Subtitle.Render("Add account"), ""}
	for i, f := range m.create.fields {
		marker := "  "
		label := m.theme.HelpValue.Render(fmt.Sprintf("%-15s", f.label))
		if i == m.create.index {
			marker = m.theme.Accent.Render("› ")
			label = m.theme.HelpKey.Render(fmt.Sprintf("%-15s", f.label))
		}
		lines = append(lines, marker+label+" "+f.input.View())
	}
	if m.create.err != "" {
		lines = append(lines, "", m.theme.Danger.Render(m.create.err))
	}
	if m.create.submitting {
		lines = append(lines, "", m.spinner.View()+" "+m.theme.Faint.Render("Creating account..."))
	}
	lines = append(lines, "", m.theme.Faint.Render("Enter moves to the next field and submits on the last one. ctrl+s submits from anywhere."))
	return strings.Join(lines, "\n")
}
