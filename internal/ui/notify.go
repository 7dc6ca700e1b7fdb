package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"acctconsole/internal/storage"
)

type noteKind string

const (
	noteSuccess noteKind = storage.KindSuccess
	noteError   noteKind = storage.KindError
)

type notification struct {
	seq     int
	message string
	kind    noteKind
	visible bool
}

func (m *model) notify(message string, kind noteKind) tea.Cmd {
	return m.notifyAccount(0, message, kind)
}

// notifyAccount shows message and journals it against an account. A newer
// notification replaces the current one and restarts its timer.
func (m *model) notifyAccount(accountID int64, message string, kind noteKind) tea.Cmd {
	m.note.seq++
	m.note.message = message
	m.note.kind = kind
	m.note.visible = true
	m.journal(accountID, message, kind)

	seq := m.note.seq
	return tea.Tick(m.notifyDuration, func(time.Time) tea.Msg {
		return notifyExpiredMsg{seq: seq}
	})
}

func (m *model) journal(accountID int64, message string, kind noteKind) {
	event := m.log.Info()
	if kind == noteError {
		event = m.log.Warn()
	}
	event.Int64("account_id", accountID).Msg(message)

	if m.store == nil {
		return
	}
	err := m.store.RecordActivity(context.Background(), &storage.Activity{
		Kind:      string(kind),
		AccountID: storage.AccountRef(accountID),
		Title:     message,
	})
	if err != nil {
		m.log.Error().Err(err).Msg("record activity")
	}
}

func (m *model) viewNotification() string {
	if !m.note.visible || m.note.message == "" {
		return ""
	}
	text := sanitizeLine(m.note.message)
	if m.width > 4 {
		text = truncate(text, m.width-4)
	}
	if m.note.kind == noteError {
		return m.theme.NotifyError.Render(text)
	}
	return m.theme.NotifySuccess.Render(text)
}
