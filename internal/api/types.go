package api

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Account is the summary record returned by GET /accounts.
type Account struct {
	ID          int64  `json:"id"`
	PhoneNumber string `json:"phone_number"`
	IsActive    bool   `json:"is_active"`
}

// AccountStats is a read-only snapshot of one account.
type AccountStats struct {
	PhoneNumber string          `json:"phone_number"`
	IsActive    bool            `json:"is_active"`
	Stats       *StatsCounters  `json:"stats,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// StatsCounters holds the message counters reported for an account.
type StatsCounters struct {
	MessagesProcessed float64 `json:"messages_processed"`
	ResponsesSent     float64 `json:"responses_sent"`
}

// Profile is the personality profile of an account. Both sections are
// optional and kept as generic documents so unknown keys survive.
type Profile struct {
	Base        map[string]any  `json:"base,omitempty"`
	Constraints map[string]any  `json:"constraints,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// Profile field names read by the console.
const (
	FieldSpeechStyle         = "speech_style"
	FieldMessageLength       = "message_length"
	FieldEmojiUsage          = "emoji_usage"
	FieldInterests           = "interests"
	FieldActivityProbability = "activity_probability"
	FieldCustomPrompt        = "custom_prompt"
	FieldAutonomyLevel       = "autonomy_level"
	FieldBannedTopics        = "banned_topics"
	FieldBannedUsers         = "banned_users"
	FieldAllowedChats        = "allowed_chats"
	FieldPersonalityLocked   = "personality_locked"
)

// BaseString returns a string field of the base section.
func (p *Profile) BaseString(key string) string {
	if p == nil {
		return ""
	}
	return stringValue(p.Base, key)
}

// BaseFloat returns a numeric field of the base section.
func (p *Profile) BaseFloat(key string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return floatValue(p.Base, key)
}

// BaseList returns a list field of the base section.
func (p *Profile) BaseList(key string) []string {
	if p == nil {
		return nil
	}
	return listValue(p.Base, key)
}

// ConstraintFloat returns a numeric field of the constraints section.
func (p *Profile) ConstraintFloat(key string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return floatValue(p.Constraints, key)
}

// ConstraintList returns a list field of the constraints section.
func (p *Profile) ConstraintList(key string) []string {
	if p == nil {
		return nil
	}
	return listValue(p.Constraints, key)
}

// AllowedChats returns the allowed chat ids and whether the list is set at all.
func (p *Profile) AllowedChats() ([]string, bool) {
	if p == nil || p.Constraints == nil {
		return nil, false
	}
	v, ok := p.Constraints[FieldAllowedChats]
	if !ok || v == nil {
		return nil, false
	}
	return listValue(p.Constraints, FieldAllowedChats), true
}

// Locked reports the personality_locked constraint.
func (p *Profile) Locked() bool {
	if p == nil || p.Constraints == nil {
		return false
	}
	locked, _ := p.Constraints[FieldPersonalityLocked].(bool)
	return locked
}

// SortedKeys returns the keys of a profile section in stable order.
func SortedKeys(section map[string]any) []string {
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ProfileUpdate is the full-replace payload of PUT /accounts/{id}/profile.
type ProfileUpdate struct {
	BaseConfig  BaseConfig        `json:"base_config" yaml:"base_config"`
	Constraints ConstraintsConfig `json:"constraints" yaml:"constraints"`
}

// BaseConfig is the editable part of the base personality.
type BaseConfig struct {
	SpeechStyle         string   `json:"speech_style" yaml:"speech_style"`
	MessageLength       string   `json:"message_length" yaml:"message_length"`
	EmojiUsage          string   `json:"emoji_usage" yaml:"emoji_usage"`
	Interests           []string `json:"interests" yaml:"interests"`
	ActivityProbability float64  `json:"activity_probability" yaml:"activity_probability"`
	CustomPrompt        string   `json:"custom_prompt" yaml:"custom_prompt"`
}

// ConstraintsConfig is the editable part of the constraints.
type ConstraintsConfig struct {
	AutonomyLevel float64  `json:"autonomy_level" yaml:"autonomy_level"`
	BannedTopics  []string `json:"banned_topics" yaml:"banned_topics"`
	BannedUsers   []string `json:"banned_users" yaml:"banned_users"`
	AllowedChats  []string `json:"allowed_chats" yaml:"allowed_chats"`
}

// Choices offered for the enumerated profile fields. The first entry is used
// when the profile has no value.
var (
	SpeechStyles   = []string{"friendly", "ironic", "formal"}
	MessageLengths = []string{"short", "medium", "detailed"}
	EmojiUsages    = []string{"never", "rarely", "often"}
)

// Defaults for numeric fields missing from a profile. A present zero is kept.
const (
	DefaultActivityProbability = 0.35
	DefaultAutonomyLevel       = 0.8
)

// Update returns the editable fields of p as a full-replace payload,
// filling missing values with their defaults.
func (p *Profile) Update() ProfileUpdate {
	orFirst := func(v string, choices []string) string {
		if v == "" {
			return choices[0]
		}
		return v
	}
	activity, ok := p.BaseFloat(FieldActivityProbability)
	if !ok {
		activity = DefaultActivityProbability
	}
	autonomy, ok := p.ConstraintFloat(FieldAutonomyLevel)
	if !ok {
		autonomy = DefaultAutonomyLevel
	}
	allowed, _ := p.AllowedChats()
	u := ProfileUpdate{
		BaseConfig: BaseConfig{
			SpeechStyle:         orFirst(p.BaseString(FieldSpeechStyle), SpeechStyles),
			MessageLength:       orFirst(p.BaseString(FieldMessageLength), MessageLengths),
			EmojiUsage:          orFirst(p.BaseString(FieldEmojiUsage), EmojiUsages),
			Interests:           p.BaseList(FieldInterests),
			ActivityProbability: activity,
			CustomPrompt:        p.BaseString(FieldCustomPrompt),
		},
		Constraints: ConstraintsConfig{
			AutonomyLevel: autonomy,
			BannedTopics:  p.ConstraintList(FieldBannedTopics),
			BannedUsers:   p.ConstraintList(FieldBannedUsers),
			AllowedChats:  allowed,
		},
	}
	u.normalize()
	return u
}

// Validate checks the numeric fields, which must lie in [0, 1].
func (u ProfileUpdate) Validate() error {
	if err := checkFraction(FieldActivityProbability, u.BaseConfig.ActivityProbability); err != nil {
		return err
	}
	return checkFraction(FieldAutonomyLevel, u.Constraints.AutonomyLevel)
}

func checkFraction(key string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%s must be between 0 and 1", key)
	}
	return nil
}

// normalize makes every list field a non-nil slice so it encodes as [].
func (u *ProfileUpdate) normalize() {
	if u.BaseConfig.Interests == nil {
		u.BaseConfig.Interests = []string{}
	}
	if u.Constraints.BannedTopics == nil {
		u.Constraints.BannedTopics = []string{}
	}
	if u.Constraints.BannedUsers == nil {
		u.Constraints.BannedUsers = []string{}
	}
	if u.Constraints.AllowedChats == nil {
		u.Constraints.AllowedChats = []string{}
	}
}

// CreateAccountRequest is the body of POST /accounts.
type CreateAccountRequest struct {
	PhoneNumber   string `json:"phone_number"`
	SessionString string `json:"session_string"`
	APIID         int    `json:"api_id"`
	APIHash       string `json:"api_hash"`
}

// CreateAccountResponse is returned by POST /accounts.
type CreateAccountResponse struct {
	AccountID int64  `json:"account_id"`
	Message   string `json:"message,omitempty"`
}

// Memory is either a chat history or an arbitrary document.
type Memory struct {
	ChatHistory []ChatMessage
	Raw         json.RawMessage `json:"-"`
}

// HasHistory reports whether the memory carries chat messages.
func (m *Memory) HasHistory() bool {
	return m != nil && len(m.ChatHistory) > 0
}

// ChatMessage is one entry of a chat history.
type ChatMessage struct {
	Timestamp   any             `json:"timestamp"`
	Content     string          `json:"content,omitempty"`
	MessageText string          `json:"message_text,omitempty"`
	Username    string          `json:"username,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// Text returns the message body, preferring content over message_text.
func (c ChatMessage) Text() string {
	if c.Content != "" {
		return c.Content
	}
	return c.MessageText
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Time decodes the timestamp, which is either epoch seconds (as a number or
// a numeric string) or ISO-8601.
func (c ChatMessage) Time() (time.Time, bool) {
	switch v := c.Timestamp.(type) {
	case float64:
		return epoch(v), true
	case string:
		value := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return epoch(f), true
		}
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func epoch(v float64) time.Time {
	sec := int64(v)
	nsec := int64((v - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

func stringValue(section map[string]any, key string) string {
	if section == nil {
		return ""
	}
	s, _ := section[key].(string)
	return s
}

func floatValue(section map[string]any, key string) (float64, bool) {
	if section == nil {
		return 0, false
	}
	f, ok := section[key].(float64)
	return f, ok
}

func listValue(section map[string]any, key string) []string {
	if section == nil {
		return nil
	}
	items, ok := section[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case nil:
		default:
			b, err := json.Marshal(v)
			if err == nil {
				out = append(out, string(b))
			}
		}
	}
	return out
}
