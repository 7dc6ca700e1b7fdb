package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acctconsole/internal/api"
	"acctconsole/internal/config"
	"acctconsole/internal/fakeapi"
	"acctconsole/internal/storage"
)

type harness struct {
	m     *model
	fake  *fakeapi.Server
	store *storage.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := fakeapi.New()
	server := fake.Serve()
	t.Cleanup(server.Close)

	store, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Store{}
	cfg.Config.API.DefaultURL = server.URL
	cfg.Config.API.Timeout = 5 * time.Second
	cfg.Config.UI.NotificationDuration = time.Millisecond
	cfg.Config.UI.RefreshInterval = time.Hour
	cfg.Config.UI.Timezone = "UTC"

	m := newModel(Options{
		Client: api.NewClient(server.URL),
		Store:  store,
		Config: cfg,
		Logger: zerolog.Nop(),
	})
	return &harness{m: m, fake: fake, store: store}
}

// collect runs cmd and returns the messages it produces, expanding batches.
// Commands that block longer than a moment, such as cursor blinks, are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(300 * time.Millisecond):
		return nil
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// pump feeds the results of cmd back into the model until it settles.
func (h *harness) pump(cmd tea.Cmd) {
	queue := collect(cmd)
	for i := 0; len(queue) > 0 && i < 50; i++ {
		msg := queue[0]
		queue = queue[1:]
		_, next := h.m.Update(msg)
		queue = append(queue, collect(next)...)
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "f1":
		return tea.KeyMsg{Type: tea.KeyF1}
	case "f2":
		return tea.KeyMsg{Type: tea.KeyF2}
	case "f3":
		return tea.KeyMsg{Type: tea.KeyF3}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends a key and returns its command without running it.
func (h *harness) press(k string) tea.Cmd {
	_, cmd := h.m.Update(keyMsg(k))
	return cmd
}

// send presses a key and pumps whatever it triggers.
func (h *harness) send(k string) {
	h.pump(h.press(k))
}

func (h *harness) loadAccounts() {
	h.pump(h.m.loadAccounts())
}

func (h *harness) formField(key string) *profileField {
	for i := range h.m.modal.form.fields {
		if h.m.modal.form.fields[i].key == key {
			return &h.m.modal.form.fields[i]
		}
	}
	return nil
}

func TestAccountsRenderOneCardPerAccount(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+10000000001", true)
	h.fake.AddAccount("+10000000002", false)

	h.loadAccounts()

	require.Len(t, h.m.list.accounts, 2)
	view := h.m.View()
	assert.Contains(t, view, "Account #1")
	assert.Contains(t, view, "Account #2")
	assert.Contains(t, view, "+10000000001")
	assert.Equal(t, 1, strings.Count(view, "Stop"))
	assert.Equal(t, 1, strings.Count(view, " Start"))
	assert.Contains(t, view, "Active")
	assert.Contains(t, view, "Inactive")
}

func TestAccountsEmptyState(t *testing.T) {
	h := newHarness(t)
	h.loadAccounts()
	assert.Contains(t, h.m.View(), "No accounts registered")
}

func TestAccountsLoadFailureShowsInlineMessage(t *testing.T) {
	h := newHarness(t)
	h.fake.Fail(http.MethodGet, "/accounts", http.StatusInternalServerError, `{"detail":"database offline"}`)

	h.loadAccounts()

	assert.Empty(t, h.m.list.accounts)
	assert.Contains(t, h.m.View(), "Failed to load: database offline")
	assert.Equal(t, noteError, h.m.note.kind)
	assert.Equal(t, "Error: database offline", h.m.note.message)
}

func TestAccountsLoadingPlaceholder(t *testing.T) {
	h := newHarness(t)
	cmd := h.m.loadAccounts()
	require.NotNil(t, cmd)
	assert.Contains(t, h.m.View(), "Loading accounts...")
}

func TestToggleStartsInactiveAccount(t *testing.T) {
	h := newHarness(t)
	id := h.fake.AddAccount("+1", false)
	h.loadAccounts()

	h.send("s")

	assert.True(t, h.fake.IsActive(id))
	require.Len(t, h.m.list.accounts, 1)
	assert.True(t, h.m.list.accounts[0].IsActive, "list reloads after the action")

	activities, err := h.store.ListAccountActivity(context.Background(), id, 10)
	require.NoError(t, err)
	require.NotEmpty(t, activities)
	assert.Equal(t, "Account #1 started", activities[0].Title)
}

func TestToggleStopsActiveAccount(t *testing.T) {
	h := newHarness(t)
	id := h.fake.AddAccount("+1", true)
	h.loadAccounts()

	h.send("s")

	assert.False(t, h.fake.IsActive(id))
	assert.Len(t, h.fake.RequestsTo(http.MethodPost, "/accounts/1/stop"), 1)
}

func TestDetailsModal(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+15550001", true)
	h.loadAccounts()

	h.send("enter")

	state := h.m.State()
	assert.True(t, state.ModalOpen)
	assert.Equal(t, ModalDetails, state.ModalMode)
	body := h.m.modalBody()
	assert.Contains(t, body, "+15550001")
	assert.Contains(t, body, "Active")
	assert.Contains(t, body, "Raw data")

	h.send("esc")
	assert.False(t, h.m.State().ModalOpen)
}

func TestDetailsErrorShowsInModal(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", true)
	h.loadAccounts()
	h.fake.Fail(http.MethodGet, "/accounts/1/stats", http.StatusNotFound, `{"detail":"Account not found"}`)

	h.send("d")

	assert.Equal(t, ModalError, h.m.modal.mode)
	assert.Contains(t, h.m.modalBody(), "Account not found")
	assert.Equal(t, "Error: Account not found", h.m.note.message)
}

func TestProfileFormDefaultsWhenSectionsMissing(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.fake.SetProfile(1, map[string]any{})
	h.loadAccounts()

	h.send("p")
	require.Equal(t, ModalProfile, h.m.modal.mode)
	assert.Contains(t, h.m.modalBody(), "No data")
	assert.Contains(t, h.m.modalBody(), "All chats allowed")

	h.press("e")
	require.Equal(t, ModalEditProfile, h.m.modal.mode)
	assert.Equal(t, "0.35", h.formField(api.FieldActivityProbability).value())
	assert.Equal(t, "0.8", h.formField(api.FieldAutonomyLevel).value())
	assert.Equal(t, "friendly", h.formField(api.FieldSpeechStyle).value())
	assert.Equal(t, "", h.formField(api.FieldInterests).value())
}

func TestProfileEditRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.fake.SetProfile(1, map[string]any{
		"base": map[string]any{
			"speech_style":         "ironic",
			"emoji_usage":          "sparingly",
			"interests":            []any{"go", "tea"},
			"activity_probability": 0.5,
			"custom_prompt":        "be brief",
		},
		"constraints": map[string]any{
			"autonomy_level": 0.0,
			"banned_users":   []any{"spam"},
		},
	})
	h.loadAccounts()
	h.send("p")
	h.press("e")

	assert.Equal(t, "0", h.formField(api.FieldAutonomyLevel).value(), "a present zero is kept")
	emoji := h.formField(api.FieldEmojiUsage)
	assert.Equal(t, "sparingly", emoji.value(), "unknown values stay selectable")
	assert.Len(t, emoji.choices, 4)

	h.formField(api.FieldBannedTopics).input.SetValue("politics, , war ")
	h.send("ctrl+s")

	puts := h.fake.RequestsTo(http.MethodPut, "/accounts/1/profile")
	require.Len(t, puts, 1)
	var sent map[string]map[string]any
	require.NoError(t, json.Unmarshal(puts[0].Body, &sent))
	assert.Equal(t, "ironic", sent["base_config"]["speech_style"])
	assert.Equal(t, "short", sent["base_config"]["message_length"])
	assert.Equal(t, []any{"go", "tea"}, sent["base_config"]["interests"])
	assert.Equal(t, 0.5, sent["base_config"]["activity_probability"])
	assert.Equal(t, "be brief", sent["base_config"]["custom_prompt"])
	assert.Equal(t, 0.0, sent["constraints"]["autonomy_level"])
	assert.Equal(t, []any{"politics", "war"}, sent["constraints"]["banned_topics"])
	assert.Equal(t, []any{"spam"}, sent["constraints"]["banned_users"])
	assert.Equal(t, []any{}, sent["constraints"]["allowed_chats"])

	assert.Equal(t, ModalProfile, h.m.modal.mode, "profile is re-fetched after saving")
	assert.Equal(t, "Profile updated", h.m.note.message)
}

func TestProfileEditRejectsInvalidNumber(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.fake.SetProfile(1, map[string]any{"base": map[string]any{}, "constraints": map[string]any{}})
	h.loadAccounts()
	h.send("p")
	h.press("e")

	tests := []struct {
		name     string
		activity string
		autonomy string
		err      string
	}{
		{"not a number", "often", "0.8", "activity_probability must be a number"},
		{"activity above one", "7.5", "0.8", "activity_probability must be between 0 and 1"},
		{"autonomy below zero", "0.35", "-3", "autonomy_level must be between 0 and 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.formField(api.FieldActivityProbability).input.SetValue(tt.activity)
			h.formField(api.FieldAutonomyLevel).input.SetValue(tt.autonomy)
			cmd := h.press("ctrl+s")

			assert.Nil(t, cmd)
			assert.Equal(t, tt.err, h.m.modal.form.err)
			assert.Equal(t, ModalEditProfile, h.m.modal.mode)
			assert.Empty(t, h.fake.RequestsTo(http.MethodPut, "/accounts/1/profile"))
		})
	}
}

func TestProfileEditAcceptsBounds(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.fake.SetProfile(1, map[string]any{"base": map[string]any{}, "constraints": map[string]any{}})
	h.loadAccounts()
	h.send("p")
	h.press("e")

	h.formField(api.FieldActivityProbability).input.SetValue("1")
	h.formField(api.FieldAutonomyLevel).input.SetValue("0")
	h.send("ctrl+s")

	puts := h.fake.RequestsTo(http.MethodPut, "/accounts/1/profile")
	require.Len(t, puts, 1)
	var sent map[string]map[string]any
	require.NoError(t, json.Unmarshal(puts[0].Body, &sent))
	assert.Equal(t, 1.0, sent["base_config"]["activity_probability"])
	assert.Equal(t, 0.0, sent["constraints"]["autonomy_level"])
}

func TestProfileEditKeepsLongValues(t *testing.T) {
	lines := make([]string, 120)
	for i := range lines {
		lines[i] = fmt.Sprintf("rule %d:\tstay on topic", i+1)
	}
	prompt := strings.Join(lines, "\n")
	interests := make([]any, 150)
	for i := range interests {
		interests[i] = fmt.Sprintf("interest-%03d", i)
	}

	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.fake.SetProfile(1, map[string]any{
		"base": map[string]any{
			"interests":     interests,
			"custom_prompt": prompt,
		},
		"constraints": map[string]any{},
	})
	h.loadAccounts()
	h.send("p")
	h.press("e")
	h.send("ctrl+s")

	puts := h.fake.RequestsTo(http.MethodPut, "/accounts/1/profile")
	require.Len(t, puts, 1)
	var sent map[string]map[string]any
	require.NoError(t, json.Unmarshal(puts[0].Body, &sent))
	assert.Equal(t, prompt, sent["base_config"]["custom_prompt"])
	assert.Equal(t, interests, sent["base_config"]["interests"])
}

func TestProfileEditedPromptKeepsAllLines(t *testing.T) {
	lines := make([]string, 120)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}

	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.fake.SetProfile(1, map[string]any{"base": map[string]any{}, "constraints": map[string]any{}})
	h.loadAccounts()
	h.send("p")
	h.press("e")

	h.formField(api.FieldCustomPrompt).area.SetValue(strings.Join(lines, "\n"))
	h.send("ctrl+s")

	puts := h.fake.RequestsTo(http.MethodPut, "/accounts/1/profile")
	require.Len(t, puts, 1)
	var sent map[string]map[string]any
	require.NoError(t, json.Unmarshal(puts[0].Body, &sent))
	assert.Equal(t, strings.Join(lines, "\n"), sent["base_config"]["custom_prompt"])
}

func TestProfileEditEscReturnsToProfile(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.fake.SetProfile(1, map[string]any{"base": map[string]any{}})
	h.loadAccounts()
	h.send("p")
	h.press("e")

	h.press("esc")
	assert.Equal(t, ModalProfile, h.m.modal.mode)
	assert.True(t, h.m.modal.open)
}

func TestLockAndUnlockPersonality(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.fake.SetProfile(1, map[string]any{"base": map[string]any{}, "constraints": map[string]any{}})
	h.loadAccounts()
	h.send("p")

	h.send("l")
	assert.Equal(t, "Personality locked", h.m.note.message)
	require.Equal(t, ModalProfile, h.m.modal.mode)
	assert.True(t, h.m.modal.profile.Locked())
	assert.Contains(t, h.m.modalBody(), "Locked")

	h.send("u")
	assert.Equal(t, "Personality unlocked", h.m.note.message)
	assert.False(t, h.m.modal.profile.Locked())
}

func TestAllowedChatsPrompt(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.fake.SetProfile(1, map[string]any{
		"base":        map[string]any{},
		"constraints": map[string]any{"allowed_chats": []any{"-100"}},
	})
	h.loadAccounts()
	h.send("p")

	h.press("c")
	require.Equal(t, ModalPrompt, h.m.modal.mode)
	assert.Equal(t, "-100", h.m.modal.prompt.input.Value(), "prompt is prefilled")

	h.m.modal.prompt.input.SetValue("a, b ,,c")
	h.send("enter")

	constraints := h.fake.Profile(1)["constraints"].(map[string]any)
	assert.Equal(t, []any{"a", "b", "c"}, constraints["allowed_chats"])
	assert.Equal(t, ModalProfile, h.m.modal.mode)
	assert.Equal(t, "Allowed chats updated", h.m.note.message)
	assert.Contains(t, h.m.modalBody(), "a, b, c")
}

func TestAllowedChatsPromptCancelReturnsToProfile(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.fake.SetProfile(1, map[string]any{"base": map[string]any{}})
	h.loadAccounts()
	h.send("p")
	h.press("c")

	h.send("esc")

	assert.Equal(t, ModalProfile, h.m.modal.mode)
	assert.Empty(t, h.fake.RequestsTo(http.MethodPut, "/accounts/1/allowed_chats"))
}

func TestMemoryPromptEscLoadsAccountMemory(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.loadAccounts()

	h.press("m")
	require.Equal(t, ModalPrompt, h.m.modal.mode)
	h.m.modal.prompt.input.SetValue("-42")
	h.send("esc")

	assert.True(t, h.m.modal.open)
	require.Equal(t, ModalMemory, h.m.modal.mode)
	assert.Empty(t, h.m.modal.chatID)
	reqs := h.fake.RequestsTo(http.MethodGet, "/accounts/1/memory")
	require.Len(t, reqs, 1)
	assert.NotContains(t, reqs[0].Query, "chat_id")
}

func TestMemoryChatHistory(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.fake.SetChatHistory(1, "-42", []map[string]any{
		{"timestamp": 1700000000.0, "content": "hello there", "username": "alice"},
		{"timestamp": "2024-01-02T03:04:05", "message_text": "second"},
		{"timestamp": nil, "sticker": "cat"},
	})
	h.loadAccounts()

	h.press("m")
	h.m.modal.prompt.input.SetValue(" -42 ")
	h.send("enter")

	require.Equal(t, ModalMemory, h.m.modal.mode)
	assert.Equal(t, "-42", h.m.modal.chatID)
	body := h.m.modalBody()
	assert.Contains(t, body, "2023-11-14 22:13:20")
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "hello there")
	assert.Contains(t, body, "2024-01-02 03:04:05")
	assert.Contains(t, body, "second")
	assert.Contains(t, body, "unknown time")
	assert.Contains(t, body, `"sticker":"cat"`)
	assert.Equal(t, "Chat -42 history", h.m.modalTitle())
}

func TestMemoryWithoutChatShowsDocument(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.loadAccounts()

	h.press("m")
	h.send("enter")

	require.Equal(t, ModalMemory, h.m.modal.mode)
	assert.Contains(t, h.m.modalBody(), "Use ?chat_id=")
}

func TestClearMemory(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.fake.SetChatHistory(1, "7", []map[string]any{{"timestamp": 1.0, "content": "x"}})
	h.loadAccounts()
	h.press("m")
	h.m.modal.prompt.input.SetValue("7")
	h.send("enter")

	h.send("x")

	clears := h.fake.RequestsTo(http.MethodPost, "/accounts/1/memory/clear")
	require.Len(t, clears, 1)
	assert.Equal(t, "chat_id=7", clears[0].Query)
	assert.Equal(t, "Memory cleared", h.m.note.message)
	assert.Equal(t, ModalMemory, h.m.modal.mode)
	assert.False(t, h.m.modal.memory.HasHistory())
}

func TestLateResponseDoesNotReopenModal(t *testing.T) {
	h := newHarness(t)
	h.fake.AddAccount("+1", false)
	h.loadAccounts()

	cmd := h.press("enter")
	require.True(t, h.m.modal.open)
	h.press("esc")
	require.False(t, h.m.modal.open)

	h.pump(cmd)
	assert.False(t, h.m.modal.open)
}

func TestModalLastWriterWins(t *testing.T) {
	h := newHarness(t)
	h.m.openModal(1, "Loading")
	h.m.Update(modalLoadedMsg{content: contentProfile, accountID: 1, profile: &api.Profile{}})
	h.m.Update(modalLoadedMsg{content: contentDetails, accountID: 2, stats: &api.AccountStats{PhoneNumber: "+2"}})

	assert.Equal(t, ModalDetails, h.m.modal.mode)
	assert.Equal(t, int64(2), h.m.modal.accountID)
}

func TestNotificationStaleTickIgnored(t *testing.T) {
	h := newHarness(t)
	h.m.notify("first", noteSuccess)
	first := h.m.note.seq
	h.m.notify("second", noteError)

	h.m.Update(notifyExpiredMsg{seq: first})
	assert.True(t, h.m.note.visible)
	assert.Equal(t, "second", h.m.note.message)

	h.m.Update(notifyExpiredMsg{seq: h.m.note.seq})
	assert.False(t, h.m.note.visible)
	assert.NotContains(t, h.m.View(), "second")
}

func TestNotificationExpires(t *testing.T) {
	h := newHarness(t)
	h.pump(h.m.notify("done", noteSuccess))
	assert.False(t, h.m.note.visible)

	activities, err := h.store.ListActivities(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "done", activities[0].Title)
	assert.False(t, activities[0].AccountID.Valid)
}

func TestBackdropClickClosesModal(t *testing.T) {
	h := newHarness(t)
	h.m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	h.m.openModal(1, "Loading account")

	x, y, w, hgt := h.m.modalRect()
	h.m.Update(tea.MouseMsg{X: x + w/2, Y: y + hgt/2, Type: tea.MouseLeft})
	assert.True(t, h.m.modal.open, "click inside keeps the modal")

	h.m.Update(tea.MouseMsg{X: 0, Y: 0, Type: tea.MouseLeft})
	assert.False(t, h.m.modal.open)
}

func TestTabSwitching(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, TabAccounts, h.m.State().Tab)

	h.press("tab")
	assert.Equal(t, TabCreate, h.m.State().Tab)
	h.press("tab")
	assert.Equal(t, TabSettings, h.m.State().Tab)
	h.press("tab")
	assert.Equal(t, TabAccounts, h.m.State().Tab)
	h.press("shift+tab")
	assert.Equal(t, TabSettings, h.m.State().Tab)
	h.press("f2")
	assert.Equal(t, TabCreate, h.m.State().Tab)
	h.press("f1")
	assert.Equal(t, TabAccounts, h.m.State().Tab)
	assert.Equal(t, "accounts", TabAccounts.String())
}

func TestTabKeysIgnoredWhileModalOpen(t *testing.T) {
	h := newHarness(t)
	h.m.openModal(1, "Loading")
	h.press("f3")
	assert.Equal(t, TabAccounts, h.m.State().Tab)
}

func TestCreateRejectsNonIntegerAPIID(t *testing.T) {
	h := newHarness(t)
	h.press("f2")
	h.m.create.fields[0].input.SetValue("+15551234")
	h.m.create.fields[2].input.SetValue("12a")

	cmd := h.press("ctrl+s")

	assert.Nil(t, cmd)
	assert.Equal(t, "API ID must be an integer", h.m.create.err)
	assert.Empty(t, h.fake.RequestsTo(http.MethodPost, "/accounts"))
}

func TestCreateAccountFlow(t *testing.T) {
	h := newHarness(t)
	h.press("f2")
	h.m.create.fields[0].input.SetValue(" +15551234 ")
	h.m.create.fields[1].input.SetValue("session")
	h.m.create.fields[2].input.SetValue("12345")
	h.m.create.fields[3].input.SetValue("hash")
	h.m.create.index = len(h.m.create.fields) - 1

	h.send("enter")

	posts := h.fake.RequestsTo(http.MethodPost, "/accounts")
	require.Len(t, posts, 1)
	var sent api.CreateAccountRequest
	require.NoError(t, json.Unmarshal(posts[0].Body, &sent))
	assert.Equal(t, api.CreateAccountRequest{PhoneNumber: "+15551234", SessionString: "session", APIID: 12345, APIHash: "hash"}, sent)

	assert.Equal(t, "Account created with ID: 1", h.m.note.message)
	assert.Equal(t, TabAccounts, h.m.State().Tab)
	assert.Len(t, h.m.list.accounts, 1)
	assert.Equal(t, "", h.m.create.fields[0].input.Value(), "form is reset")
}

func TestCreateEnterAdvancesFields(t *testing.T) {
	h := newHarness(t)
	h.press("f2")
	h.press("enter")
	assert.Equal(t, 1, h.m.create.index)
	h.press("up")
	assert.Equal(t, 0, h.m.create.index)
	assert.Empty(t, h.fake.Requests())
}

func TestSessionsCheckedNotifiesOnlyOnSuccess(t *testing.T) {
	h := newHarness(t)
	h.m.Update(sessionsCheckedMsg{err: &api.Error{Message: "boom"}})
	assert.False(t, h.m.note.visible)

	h.m.Update(sessionsCheckedMsg{})
	assert.Equal(t, "Session check completed", h.m.note.message)
}

func TestRefreshKeyIssuesReloadAndSessionCheck(t *testing.T) {
	h := newHarness(t)
	cmd := h.press("r")
	require.NotNil(t, cmd)
	assert.True(t, h.m.list.loading)
}
