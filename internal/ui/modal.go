package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"acctconsole/internal/api"
)

// ModalMode is what the single modal region currently shows.
type ModalMode int

const (
	ModalLoading ModalMode = iota
	ModalDetails
	ModalProfile
	ModalEditProfile
	ModalMemory
	ModalPrompt
	ModalError
)

var modalModeNames = []string{"loading", "details", "profile", "edit-profile", "memory", "prompt", "error"}

func (m ModalMode) String() string {
	if int(m) < 0 || int(m) >= len(modalModeNames) {
		return "unknown"
	}
	return modalModeNames[m]
}

type promptPurpose int

const (
	promptMemoryChat promptPurpose = iota
	promptAllowedChats
)

type modalPrompt struct {
	purpose promptPurpose
	label   string
	input   textinput.Model
}

type modalState struct {
	open         bool
	mode         ModalMode
	accountID    int64
	loadingLabel string

	stats   *api.AccountStats
	profile *api.Profile
	memory  *api.Memory
	chatID  string
	err     string

	prompt   modalPrompt
	form     profileForm
	viewport viewport.Model
	width    int
}

const (
	defaultModalWidth  = 80
	defaultModalHeight = 20
)

func newModalState() modalState {
	return modalState{
		mode:     ModalLoading,
		viewport: viewport.New(defaultModalWidth, defaultModalHeight),
		width:    defaultModalWidth,
	}
}

// resize fits the modal inside a terminal of the given size.
func (s *modalState) resize(width, height int) {
	w := defaultModalWidth
	if width > 0 {
		w = min(width-8, 100)
	}
	if w < 30 {
		w = 30
	}
	h := defaultModalHeight
	if height > 0 {
		h = height - 14
	}
	if h < 5 {
		h = 5
	}
	s.width = w
	s.viewport.Width = w
	s.viewport.Height = h
	s.form.resize(w)
}

func (s *modalState) refreshViewport(m *model) {
	s.viewport.SetContent(wrapText(m.modalBody(), s.width))
}

func (s *modalState) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch s.mode {
	case ModalPrompt:
		s.prompt.input, cmd = s.prompt.input.Update(msg)
	case ModalEditProfile:
		cmd = s.form.updateInputs(msg)
	}
	return cmd
}

// openModal shows the modal for an account in the loading state.
func (m *model) openModal(id int64, label string) {
	m.modal.open = true
	m.modal.mode = ModalLoading
	m.modal.accountID = id
	m.modal.loadingLabel = label
	m.modal.err = ""
}

func (m *model) closeModal() {
	m.modal.open = false
	m.modal.prompt.input.Blur()
	m.modal.form.blur()
}

func (m *model) openDetails(id int64) tea.Cmd {
	m.openModal(id, "Loading account")
	return m.fetchStats(id)
}

func (m *model) openProfile(id int64) tea.Cmd {
	m.openModal(id, "Loading profile")
	return m.fetchProfile(id)
}

func (m *model) openMemoryPrompt(id int64) tea.Cmd {
	m.openModal(id, "Loading memory")
	return m.startPrompt(promptMemoryChat, "Chat ID (leave empty for account memory):", "")
}

func (m *model) startPrompt(purpose promptPurpose, label, value string) tea.Cmd {
	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 512
	input.Width = m.modal.width - 4
	input.SetValue(value)
	input.CursorEnd()
	m.modal.prompt = modalPrompt{purpose: purpose, label: label, input: input}
	m.modal.mode = ModalPrompt
	return m.modal.prompt.input.Focus()
}

func (m *model) handleModalLoaded(msg modalLoadedMsg) tea.Cmd {
	m.modal.accountID = msg.accountID
	if msg.err != nil {
		m.modal.mode = ModalError
		m.modal.err = errorMessage(msg.err)
		m.modal.refreshViewport(m)
		return m.requestFailed(msg.err)
	}
	switch msg.content {
	case contentDetails:
		m.modal.stats = msg.stats
		m.modal.mode = ModalDetails
	case contentProfile:
		m.modal.profile = msg.profile
		m.modal.mode = ModalProfile
	case contentMemory:
		m.modal.memory = msg.memory
		m.modal.chatID = msg.chatID
		m.modal.mode = ModalMemory
	}
	m.modal.refreshViewport(m)
	m.modal.viewport.GotoTop()
	return nil
}

func (m *model) handleActionDone(msg actionDoneMsg) tea.Cmd {
	action := msg.action
	if msg.err != nil {
		if action.Kind == ActionUpdateProfile {
			m.modal.form.submitting = false
		}
		return m.requestFailed(msg.err)
	}
	cmds := []tea.Cmd{m.notifyAccount(action.AccountID, msg.message, noteSuccess)}
	switch action.Kind {
	case ActionStart, ActionStop:
		cmds = append(cmds, m.loadAccounts())
	case ActionLock, ActionUnlock, ActionAllowedChats, ActionUpdateProfile:
		m.modal.form.submitting = false
		m.modal.mode = ModalLoading
		m.modal.loadingLabel = "Loading profile"
		cmds = append(cmds, m.fetchProfile(action.AccountID))
	case ActionClearMemory:
		m.modal.mode = ModalLoading
		m.modal.loadingLabel = "Loading memory"
		cmds = append(cmds, m.fetchMemory(action.AccountID, action.ChatID))
	}
	return batchCmds(cmds)
}

func (m *model) updateModal(key tea.KeyMsg) tea.Cmd {
	switch m.modal.mode {
	case ModalPrompt:
		return m.updatePrompt(key)
	case ModalEditProfile:
		return m.updateProfileForm(key)
	}

	id := m.modal.accountID
	switch key.String() {
	case "esc", "q":
		m.closeModal()
		return nil
	}

	switch m.modal.mode {
	case ModalProfile:
		switch key.String() {
		case "e":
			m.modal.form = newProfileForm(m.modal.profile, m.modal.width)
			m.modal.mode = ModalEditProfile
			return m.modal.form.focus()
		case "l":
			return m.runAction(Action{Kind: ActionLock, AccountID: id})
		case "u":
			return m.runAction(Action{Kind: ActionUnlock, AccountID: id})
		case "c":
			current, _ := m.modal.profile.AllowedChats()
			return m.startPrompt(promptAllowedChats, "Allowed chat IDs, comma separated (e.g. -1001234567890, -1009876543210):", strings.Join(current, ", "))
		}
	case ModalMemory:
		if key.String() == "x" {
			return m.clearMemory(id, m.modal.chatID)
		}
	}

	var cmd tea.Cmd
	m.modal.viewport, cmd = m.modal.viewport.Update(key)
	return cmd
}

func (m *model) updatePrompt(key tea.KeyMsg) tea.Cmd {
	switch key.Type {
	case tea.KeyEsc:
		m.modal.prompt.input.Blur()
		if m.modal.prompt.purpose == promptAllowedChats {
			m.modal.mode = ModalProfile
			return nil
		}
		// skipping the chat id falls back to the account memory
		m.modal.mode = ModalLoading
		return m.fetchMemory(m.modal.accountID, "")
	case tea.KeyEnter:
		value := m.modal.prompt.input.Value()
		m.modal.prompt.input.Blur()
		id := m.modal.accountID
		if m.modal.prompt.purpose == promptAllowedChats {
			m.modal.mode = ModalProfile
			return m.updateAllowedChats(id, splitList(value))
		}
		m.modal.mode = ModalLoading
		return m.fetchMemory(id, strings.TrimSpace(value))
	}
	var cmd tea.Cmd
	m.modal.prompt.input, cmd = m.modal.prompt.input.Update(key)
	return cmd
}

// modalRect returns the screen position and size of the modal box.
func (m *model) modalRect() (x, y, w, h int) {
	box := m.viewModalBox()
	w, h = lipgloss.Width(box), lipgloss.Height(box)
	total := h
	if n := m.viewNotification(); n != "" {
		total += 1 + lipgloss.Height(n)
	}
	x = max((m.width-w)/2, 0)
	y = max((m.height-total)/2, 0)
	return x, y, w, h
}

func (m *model) viewModal() string {
	box := m.viewModalBox()
	if n := m.viewNotification(); n != "" {
		return lipgloss.JoinVertical(lipgloss.Center, box, "", n)
	}
	return box
}

func (m *model) viewModalBox() string {
	lines := []string{m.theme.Subtitle.Render(m.modalTitle()), ""}
	switch m.modal.mode {
	case ModalLoading:
		lines = append(lines, m.spinner.View()+" "+m.theme.Faint.Render(m.modal.loadingLabel+"..."))
	case ModalPrompt:
		lines = append(lines, m.theme.Secondary.Render(m.modal.prompt.label))
		lines = append(lines, m.theme.Accent.Render("> ")+m.modal.prompt.input.View())
	case ModalEditProfile:
		lines = append(lines, m.modal.form.view(m.theme))
	default:
		lines = append(lines, m.modal.viewport.View())
	}
	lines = append(lines, "", m.renderHelp(m.modalHelp()))
	return m.theme.Modal.Render(strings.Join(lines, "\n"))
}

func (m *model) modalTitle() string {
	id := m.modal.accountID
	switch m.modal.mode {
	case ModalDetails:
		return fmt.Sprintf("Account #%d", id)
	case ModalProfile:
		return fmt.Sprintf("Account #%d personality profile", id)
	case ModalEditProfile:
		return fmt.Sprintf("Edit profile of account #%d", id)
	case ModalMemory:
		if m.modal.memory.HasHistory() {
			return fmt.Sprintf("Chat %s history", sanitizeLine(m.modal.chatID))
		}
		return fmt.Sprintf("Account #%d memory", id)
	case ModalPrompt:
		if m.modal.prompt.purpose == promptAllowedChats {
			return fmt.Sprintf("Allowed chats of account #%d", id)
		}
		return fmt.Sprintf("Account #%d memory", id)
	case ModalError:
		return fmt.Sprintf("Account #%d", id)
	}
	return fmt.Sprintf("Account #%d", id)
}

func (m *model) modalHelp() [][2]string {
	closeKeys := [2]string{"esc/q", "close"}
	scroll := [2]string{"↑/↓ pgup/pgdn", "scroll"}
	switch m.modal.mode {
	case ModalPrompt:
		if m.modal.prompt.purpose == promptMemoryChat {
			return [][2]string{{"enter", "confirm"}, {"esc", "account memory"}}
		}
		return [][2]string{{"enter", "confirm"}, {"esc", "cancel"}}
	case ModalEditProfile:
		return [][2]string{{"tab/shift+tab", "field"}, {"←/→", "choose"}, {"ctrl+s", "save"}, {"esc", "cancel"}}
	case ModalProfile:
		return [][2]string{{"e", "edit"}, {"l", "lock"}, {"u", "unlock"}, {"c", "allowed chats"}, scroll, closeKeys}
	case ModalMemory:
		return [][2]string{{"x", "clear memory"}, scroll, closeKeys}
	case ModalLoading:
		return [][2]string{closeKeys}
	}
	return [][2]string{scroll, closeKeys}
}

// modalBody renders the scrollable content for the current mode.
func (m *model) modalBody() string {
	switch m.modal.mode {
	case ModalDetails:
		return m.renderDetails(m.modal.stats)
	case ModalProfile:
		return m.renderProfile(m.modal.profile)
	case ModalMemory:
		return m.renderMemory(m.modal.memory)
	case ModalError:
		return m.theme.Danger.Render("Error: " + sanitize(m.modal.err))
	}
	return ""
}

func (m *model) renderDetails(stats *api.AccountStats) string {
	if stats == nil {
		return m.theme.Faint.Render("No data")
	}
	phone := sanitizeLine(stats.PhoneNumber)
	if phone == "" {
		phone = "N/A"
	}
	status := m.theme.BadgeIdle.Render("Inactive")
	if stats.IsActive {
		status = m.theme.BadgeActive.Render("Active")
	}
	lines := []string{
		m.field("Phone", phone),
		m.field("Status", status),
	}
	if stats.Stats != nil {
		lines = append(lines,
			m.field("Messages processed", formatNumber(stats.Stats.MessagesProcessed)),
			m.field("Responses sent", formatNumber(stats.Stats.ResponsesSent)),
		)
	}
	lines = append(lines, "", m.theme.Highlight.Render("Raw data"), m.theme.Code.Render(prettyJSON(stats.Raw)))
	return strings.Join(lines, "\n")
}

func (m *model) renderProfile(p *api.Profile) string {
	if p == nil {
		return m.theme.Faint.Render("No data")
	}
	lines := []string{m.theme.Highlight.Render("Base settings")}
	if len(p.Base) == 0 {
		lines = append(lines, m.theme.Faint.Render("No data"))
	} else {
		for _, key := range api.SortedKeys(p.Base) {
			if key == api.FieldCustomPrompt {
				continue
			}
			lines = append(lines, m.field(key, formatValue(p.Base[key])))
		}
	}
	if prompt := p.BaseString(api.FieldCustomPrompt); prompt != "" {
		lines = append(lines, "", m.theme.Highlight.Render("Custom prompt"), sanitize(prompt))
	}
	if p.Constraints != nil {
		lines = append(lines, "", m.theme.Highlight.Render("Constraints"))
		for _, key := range api.SortedKeys(p.Constraints) {
			lines = append(lines, m.field(key, formatValue(p.Constraints[key])))
		}
	}

	chats, _ := p.AllowedChats()
	summary := "All chats allowed"
	if len(chats) > 0 {
		summary = sanitizeLine(strings.Join(chats, ", "))
	}
	lock := m.theme.BadgeActive.Render("Unlocked")
	if p.Locked() {
		lock = m.theme.BadgeLocked.Render("Locked")
	}
	lines = append(lines,
		"",
		m.theme.Highlight.Render("Allowed chats"),
		m.field(api.FieldAllowedChats, summary),
		"",
		m.field("Personality", lock),
		"",
		m.theme.Highlight.Render("Full profile data"),
		m.theme.Code.Render(prettyJSON(p.Raw)),
	)
	return strings.Join(lines, "\n")
}

func (m *model) renderMemory(mem *api.Memory) string {
	if mem == nil {
		return m.theme.Faint.Render("No data")
	}
	if !mem.HasHistory() {
		return m.theme.Code.Render(prettyJSON(mem.Raw))
	}
	loc := m.cfg.Location()
	lines := make([]string, 0, len(mem.ChatHistory)*3)
	for _, msg := range mem.ChatHistory {
		stamp := "unknown time"
		if t, ok := msg.Time(); ok {
			stamp = t.In(loc).Format("2006-01-02 15:04:05")
		}
		header := stamp
		if msg.Username != "" {
			header += "  " + sanitizeLine(msg.Username)
		}
		text := msg.Text()
		if text == "" {
			text = compactJSON(msg.Raw)
		}
		lines = append(lines, m.theme.Faint.Render(header), sanitize(text), "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func (m *model) field(label, value string) string {
	return m.theme.HelpKey.Render(sanitizeLine(label)+":") + " " + value
}
