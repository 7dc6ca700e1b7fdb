package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"acctconsole/internal/api"
	"acctconsole/internal/theme"
)

type fieldKind int

const (
	fieldChoice fieldKind = iota
	fieldText
	fieldArea
)

type profileField struct {
	key     string
	kind    fieldKind
	choices []string
	choice  int
	input   textinput.Model
	area    textarea.Model

	// initial is the value the field was loaded with and loaded is what the
	// widget reported right after. The widgets rewrite tabs and carriage
	// returns, so an untouched field hands back initial unchanged.
	initial string
	loaded  string
}

func (f *profileField) value() string {
	var v string
	switch f.kind {
	case fieldChoice:
		if f.choice >= 0 && f.choice < len(f.choices) {
			return f.choices[f.choice]
		}
		return ""
	case fieldArea:
		v = f.area.Value()
	default:
		v = f.input.Value()
	}
	if v == f.loaded {
		return f.initial
	}
	return v
}

type profileForm struct {
	fields     []profileField
	index      int
	err        string
	submitting bool
}

func choiceField(key string, choices []string, current string) profileField {
	opts := append([]string(nil), choices...)
	idx := 0
	if current != "" {
		found := false
		for i, c := range opts {
			if c == current {
				idx, found = i, true
				break
			}
		}
		if !found {
			opts = append(opts, current)
			idx = len(opts) - 1
		}
	}
	return profileField{key: key, kind: fieldChoice, choices: opts, choice: idx}
}

func textField(key, value string, width int) profileField {
	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 0
	input.Width = width
	input.SetValue(value)
	return profileField{key: key, kind: fieldText, input: input, initial: value, loaded: input.Value()}
}

func areaField(key, value string, width int) profileField {
	area := textarea.New()
	area.ShowLineNumbers = false
	area.CharLimit = 0
	area.MaxHeight = 0
	area.SetWidth(width)
	area.SetHeight(4)
	area.SetValue(value)
	return profileField{key: key, kind: fieldArea, area: area, initial: value, loaded: area.Value()}
}

func numberText(v float64, ok bool, def float64) string {
	if !ok {
		v = def
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// newProfileForm pre-populates the editor from p. Numbers missing from the
// profile get their defaults; a present zero is kept.
func newProfileForm(p *api.Profile, width int) profileForm {
	inputWidth := max(width-26, 10)

	activity, hasActivity := p.BaseFloat(api.FieldActivityProbability)
	autonomy, hasAutonomy := p.ConstraintFloat(api.FieldAutonomyLevel)
	allowed, _ := p.AllowedChats()

	form := profileForm{
		fields: []profileField{
			choiceField(api.FieldSpeechStyle, api.SpeechStyles, p.BaseString(api.FieldSpeechStyle)),
			choiceField(api.FieldMessageLength, api.MessageLengths, p.BaseString(api.FieldMessageLength)),
			choiceField(api.FieldEmojiUsage, api.EmojiUsages, p.BaseString(api.FieldEmojiUsage)),
			textField(api.FieldInterests, strings.Join(p.BaseList(api.FieldInterests), ", "), inputWidth),
			textField(api.FieldActivityProbability, numberText(activity, hasActivity, api.DefaultActivityProbability), inputWidth),
			areaField(api.FieldCustomPrompt, p.BaseString(api.FieldCustomPrompt), max(width-4, 20)),
			textField(api.FieldAutonomyLevel, numberText(autonomy, hasAutonomy, api.DefaultAutonomyLevel), inputWidth),
			textField(api.FieldBannedTopics, strings.Join(p.ConstraintList(api.FieldBannedTopics), ", "), inputWidth),
			textField(api.FieldBannedUsers, strings.Join(p.ConstraintList(api.FieldBannedUsers), ", "), inputWidth),
			textField(api.FieldAllowedChats, strings.Join(allowed, ", "), inputWidth),
		},
	}
	return form
}

func (f *profileForm) resize(width int) {
	for i := range f.fields {
		switch f.fields[i].kind {
		case fieldText:
			f.fields[i].input.Width = max(width-26, 10)
		case fieldArea:
			f.fields[i].area.SetWidth(max(width-4, 20))
		}
	}
}

func (f *profileForm) focus() tea.Cmd {
	f.blur()
	if f.index < 0 || f.index >= len(f.fields) {
		return nil
	}
	field := &f.fields[f.index]
	switch field.kind {
	case fieldText:
		return field.input.Focus()
	case fieldArea:
		return field.area.Focus()
	}
	return nil
}

func (f *profileForm) blur() {
	for i := range f.fields {
		f.fields[i].input.Blur()
		f.fields[i].area.Blur()
	}
}

func (f *profileForm) move(delta int) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	f.index = (f.index + delta + len(f.fields)) % len(f.fields)
	return f.focus()
}

func (f *profileForm) updateInputs(msg tea.Msg) tea.Cmd {
	if f.index < 0 || f.index >= len(f.fields) {
		return nil
	}
	field := &f.fields[f.index]
	var cmd tea.Cmd
	switch field.kind {
	case fieldText:
		field.input, cmd = field.input.Update(msg)
	case fieldArea:
		field.area, cmd = field.area.Update(msg)
	}
	return cmd
}

func (f *profileForm) field(key string) string {
	for i := range f.fields {
		if f.fields[i].key == key {
			return f.fields[i].value()
		}
	}
	return ""
}

func parseNumber(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return v, nil
}

// build turns the form into the full-replace update payload.
func (f *profileForm) build() (api.ProfileUpdate, error) {
	activity, err := parseNumber(api.FieldActivityProbability, f.field(api.FieldActivityProbability))
	if err != nil {
		return api.ProfileUpdate{}, err
	}
	autonomy, err := parseNumber(api.FieldAutonomyLevel, f.field(api.FieldAutonomyLevel))
	if err != nil {
		return api.ProfileUpdate{}, err
	}
	update := api.ProfileUpdate{
		BaseConfig: api.BaseConfig{
			SpeechStyle:         f.field(api.FieldSpeechStyle),
			MessageLength:       f.field(api.FieldMessageLength),
			EmojiUsage:          f.field(api.FieldEmojiUsage),
			Interests:           splitList(f.field(api.FieldInterests)),
			ActivityProbability: activity,
			CustomPrompt:        f.field(api.FieldCustomPrompt),
		},
		Constraints: api.ConstraintsConfig{
			AutonomyLevel: autonomy,
			BannedTopics:  splitList(f.field(api.FieldBannedTopics)),
			BannedUsers:   splitList(f.field(api.FieldBannedUsers)),
			AllowedChats:  splitList(f.field(api.FieldAllowedChats)),
		},
	}
	if err := update.Validate(); err != nil {
		return api.ProfileUpdate{}, err
	}
	return update, nil
}

func (m *model) updateProfileForm(key tea.KeyMsg) tea.Cmd {
	form := &m.modal.form
	switch key.String() {
	case "esc":
		form.blur()
		m.modal.mode = ModalProfile
		return nil
	case "ctrl+s":
		if form.submitting {
			return nil
		}
		update, err := form.build()
		if err != nil {
			form.err = err.Error()
			return nil
		}
		form.err = ""
		form.submitting = true
		return m.updateProfile(m.modal.accountID, update)
	case "tab":
		return form.move(1)
	case "shift+tab":
		return form.move(-1)
	}

	field := &form.fields[form.index]
	switch field.kind {
	case fieldChoice:
		switch key.String() {
		case "left", "h":
			field.choice = (field.choice - 1 + len(field.choices)) % len(field.choices)
		case "right", "l", " ":
			field.choice = (field.choice + 1) % len(field.choices)
		case "enter", "down":
			return form.move(1)
		case "up":
			return form.move(-1)
		}
		return nil
	case fieldText:
		switch key.String() {
		case "enter", "down":
			return form.move(1)
		case "up":
			return form.move(-1)
		}
	}
	return form.updateInputs(key)
}

func (f *profileForm) view(t theme.Theme) string {
	lines := make([]string, 0, len(f.fields)+6)
	for i := range f.fields {
		field := &f.fields[i]
		marker := "  "
		label := t.HelpValue.Render(fmt.Sprintf("%-21s", field.key))
		if i == f.index {
			marker = t.Accent.Render("› ")
			label = t.HelpKey.Render(fmt.Sprintf("%-21s", field.key))
		}
		switch field.kind {
		case fieldChoice:
			opts := make([]string, len(field.choices))
			for j, c := range field.choices {
				if j == field.choice {
					opts[j] = t.Highlight.Render("[" + c + "]")
				} else {
					opts[j] = t.Faint.Render(" " + c + " ")
				}
			}
			lines = append(lines, marker+label+" "+strings.Join(opts, " "))
		case fieldText:
			lines = append(lines, marker+label+" "+field.input.View())
		case fieldArea:
			lines = append(lines, marker+label)
			lines = append(lines, field.area.View())
		}
	}
	if f.err != "" {
		lines = append(lines, "", t.Danger.Render(f.err))
	}
	if f.submitting {
		lines = append(lines, "", t.Faint.Render("Saving..."))
	}
	return strings.Join(lines, "\n")
}
