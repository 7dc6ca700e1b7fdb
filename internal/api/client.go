// Package api is the HTTP client for the accounts control API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is used when nothing else has been configured.
const DefaultBaseURL = "http://localhost:8000"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 15 * time.Second

// Client issues JSON requests against the control API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
	onError    func(*Error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger attaches a request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithErrorHook registers a callback invoked for every failed request
// before the error is returned to the caller.
func WithErrorHook(fn func(*Error)) Option {
	return func(c *Client) {
		c.onError = fn
	}
}

// NewClient creates a client for baseURL. An empty baseURL falls back to
// DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeBaseURL validates an absolute http(s) URL and strips the
// trailing slash.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("API URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("API URL must look like http://host:port")
	}
	return strings.TrimSuffix(raw, "/"), nil
}

// BaseURL returns the base URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs a request against endpoint, which is relative to the base URL.
// body is marshalled as JSON unless it is nil or already a json.RawMessage.
// Caller headers override the defaults. The returned bytes are valid JSON.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any, header http.Header) (json.RawMessage, error) {
	requestID := uuid.NewString()
	start := time.Now()

	raw, status, err := c.do(ctx, method, endpoint, body, header, requestID)

	event := c.log.Debug()
	if err != nil {
		event = c.log.Warn().Err(err)
	}
	event.
		Str("method", method).
		Str("path", endpoint).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Str("request_id", requestID).
		Msg("api request")

	if err != nil {
		apiErr, ok := AsError(err)
		if !ok {
			apiErr = &Error{Kind: KindTransport, Message: err.Error(), Err: err}
		}
		apiErr.RequestID = requestID
		if c.onError != nil {
			c.onError(apiErr)
		}
		return nil, apiErr
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, header http.Header, requestID string) (json.RawMessage, int, error) {
	var reqBody io.Reader
	switch b := body.(type) {
	case nil:
	case json.RawMessage:
		reqBody = bytes.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return nil, 0, &Error{Kind: KindDecode, Message: fmt.Sprintf("encode request: %v", err), Err: err}
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(endpoint), reqBody)
	if err != nil {
		return nil, 0, transportError(err, requestID)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	for key, values := range header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, transportError(err, requestID)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, transportError(fmt.Errorf("read response body: %w", err), requestID)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, ParseError(resp.StatusCode, respBody)
	}

	trimmed := bytes.TrimSpace(respBody)
	if !json.Valid(trimmed) {
		return nil, resp.StatusCode, decodeError(fmt.Errorf("body is not JSON"))
	}
	return json.RawMessage(trimmed), resp.StatusCode, nil
}

func (c *Client) buildURL(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.baseURL + endpoint
}

func (c *Client) get(ctx context.Context, endpoint string, out any) (json.RawMessage, error) {
	raw, err := c.Do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, c.fail(decodeError(err))
		}
	}
	return raw, nil
}

// fail routes an error raised after a successful transfer through the hook.
func (c *Client) fail(apiErr *Error) error {
	if c.onError != nil {
		c.onError(apiErr)
	}
	return apiErr
}

func accountPath(id int64, parts ...string) string {
	path := "/accounts/" + strconv.FormatInt(id, 10)
	for _, p := range parts {
		path += "/" + p
	}
	return path
}

func withChatID(path, chatID string) string {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return path
	}
	q := url.Values{}
	q.Set("chat_id", chatID)
	return path + "?" + q.Encode()
}

// Info returns the API root document.
func (c *Client) Info(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/", nil)
}

// ListAccounts fetches every registered account.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if _, err := c.get(ctx, "/accounts", &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Account fetches GET /accounts/{id}.
func (c *Client) Account(ctx context.Context, id int64) (*AccountStats, error) {
	return c.stats(ctx, accountPath(id))
}

// AccountStats fetches GET /accounts/{id}/stats.
func (c *Client) AccountStats(ctx context.Context, id int64) (*AccountStats, error) {
	return c.stats(ctx, accountPath(id, "stats"))
}

func (c *Client) stats(ctx context.Context, path string) (*AccountStats, error) {
	var stats AccountStats
	raw, err := c.get(ctx, path, &stats)
	if err != nil {
		return nil, err
	}
	stats.Raw = raw
	return &stats, nil
}

// Profile fetches the personality profile of an account.
func (c *Client) Profile(ctx context.Context, id int64) (*Profile, error) {
	var profile Profile
	raw, err := c.get(ctx, accountPath(id, "profile"), &profile)
	if err != nil {
		return nil, err
	}
	profile.Raw = raw
	return &profile, nil
}

// UpdateProfile replaces the profile. List fields are always sent as lists.
func (c *Client) UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) (json.RawMessage, error) {
	update.normalize()
	return c.Do(ctx, http.MethodPut, accountPath(id, "profile"), update, nil)
}

// Memory fetches chat-scoped memory when chatID is set, otherwise the
// account-level document.
func (c *Client) Memory(ctx context.Context, id int64, chatID string) (*Memory, error) {
	raw, err := c.get(ctx, withChatID(accountPath(id, "memory"), chatID), nil)
	if err != nil {
		return nil, err
	}
	return decodeMemory(raw), nil
}

// ClearMemory asks the API to drop stored memory.
func (c *Client) ClearMemory(ctx context.Context, id int64, chatID string) error {
	_, err := c.Do(ctx, http.MethodPost, withChatID(accountPath(id, "memory", "clear"), chatID), nil, nil)
	return err
}

func decodeMemory(raw json.RawMessage) *Memory {
	mem := &Memory{Raw: raw}
	var doc struct {
		ChatHistory []json.RawMessage `json:"chat_history"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return mem
	}
	for _, entry := range doc.ChatHistory {
		var msg ChatMessage
		if err := json.Unmarshal(entry, &msg); err != nil {
			msg = ChatMessage{}
		}
		msg.Raw = entry
		mem.ChatHistory = append(mem.ChatHistory, msg)
	}
	return mem
}

// StartAccount starts the account's bot.
func (c *Client) StartAccount(ctx context.Context, id int64) error {
	return c.post(ctx, accountPath(id, "start"))
}

// StopAccount stops the account's bot.
func (c *Client) StopAccount(ctx context.Context, id int64) error {
	return c.post(ctx, accountPath(id, "stop"))
}

// LockPersonality freezes the personality against evolution.
func (c *Client) LockPersonality(ctx context.Context, id int64) error {
	return c.post(ctx, accountPath(id, "profile", "lock"))
}

// UnlockPersonality lifts the personality lock.
func (c *Client) UnlockPersonality(ctx context.Context, id int64) error {
	return c.post(ctx, accountPath(id, "profile", "unlock"))
}

func (c *Client) post(ctx context.Context, endpoint string) error {
	_, err := c.Do(ctx, http.MethodPost, endpoint, nil, nil)
	return err
}

// UpdateAllowedChats replaces the allowed chat list.
func (c *Client) UpdateAllowedChats(ctx context.Context, id int64, chats []string) error {
	if chats == nil {
		chats = []string{}
	}
	_, err := c.Do(ctx, http.MethodPut, accountPath(id, "allowed_chats"), chats, nil)
	return err
}

// CreateAccount registers a new account.
func (c *Client) CreateAccount(ctx context.Context, req CreateAccountRequest) (*CreateAccountResponse, error) {
	raw, err := c.Do(ctx, http.MethodPost, "/accounts", req, nil)
	if err != nil {
		return nil, err
	}
	var out CreateAccountResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, c.fail(decodeError(err))
	}
	return &out, nil
}

// CheckSessions asks the API to validate every stored session.
func (c *Client) CheckSessions(ctx context.Context) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, "/accounts/check_sessions", nil, nil)
}
