// Package fakeapi is an in-memory stand-in for the accounts control API.
// It records every request and can be told to fail specific routes.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
)

// Request is a recorded inbound request.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type account struct {
	ID          int64          `json:"id"`
	PhoneNumber string         `json:"phone_number"`
	IsActive    bool           `json:"is_active"`
	Stats       map[string]any `json:"stats,omitempty"`
}

type failure struct {
	status int
	body   string
}

// Server holds the fake backend state.
type Server struct {
	mu       sync.Mutex
	router   *mux.Router
	nextID   int64
	accounts map[int64]*account
	profiles map[int64]map[string]any
	memory   map[int64]map[string][]map[string]any
	failures map[string]failure
	requests []Request
}

// New builds an empty fake backend.
func New() *Server {
	s := &Server{
		nextID:   1,
		accounts: map[int64]*account{},
		profiles: map[int64]map[string]any{},
		memory:   map[int64]map[string][]map[string]any{},
		failures: map[string]failure{},
	}
	s.router = s.routes()
	return s
}

// Serve starts an httptest server backed by s. Callers close it.
func (s *Server) Serve() *httptest.Server {
	return httptest.NewServer(s)
}

// ServeHTTP records the request, applies injected failures, then routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body.Close()

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	fail, failing := s.failures[routeKey(r.Method, r.URL.Path)]
	s.mu.Unlock()

	if failing {
		w.WriteHeader(fail.status)
		_, _ = io.WriteString(w, fail.body)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	s.router.ServeHTTP(w, r)
}

// Fail makes every request to method+path answer with status and raw body.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, path)] = failure{status: status, body: body}
}

// Heal removes an injected failure.
func (s *Server) Heal(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, routeKey(method, path))
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns recorded requests matching method and path.
func (s *Server) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// AddAccount registers an account directly and returns its id.
func (s *Server) AddAccount(phone string, active bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccountLocked(phone, active)
}

func (s *Server) addAccountLocked(phone string, active bool) int64 {
	id := s.nextID
	s.nextID++
	s.accounts[id] = &account{
		ID:          id,
		PhoneNumber: phone,
		IsActive:    active,
		Stats:       map[string]any{"messages_processed": 0, "responses_sent": 0},
	}
	return id
}

// SetProfile replaces the stored profile document of an account.
func (s *Server) SetProfile(id int64, profile map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[id] = profile
}

// Profile returns the stored profile document of an account.
func (s *Server) Profile(id int64) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[id]
}

// SetChatHistory stores messages for a chat of an account.
func (s *Server) SetChatHistory(id int64, chatID string, messages []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memory[id] == nil {
		s.memory[id] = map[string][]map[string]any{}
	}
	s.memory[id][chatID] = messages
}

// IsActive reports whether the account is running.
func (s *Server) IsActive(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	return ok && a.IsActive
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts", s.handleCreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts/check_sessions", s.handleCheckSessions).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id:[0-9]+}", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id:[0-9]+}/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id:[0-9]+}/start", s.handleSetActive(true)).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id:[0-9]+}/stop", s.handleSetActive(false)).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id:[0-9]+}/profile", s.handleGetProfile).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id:[0-9]+}/profile", s.handleUpdateProfile).Methods(http.MethodPut)
	r.HandleFunc("/accounts/{id:[0-9]+}/profile/lock", s.handleLock(true)).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id:[0-9]+}/profile/unlock", s.handleLock(false)).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id:[0-9]+}/allowed_chats", s.handleAllowedChats).Methods(http.MethodPut)
	r.HandleFunc("/accounts/{id:[0-9]+}/memory", s.handleMemory).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id:[0-9]+}/memory/clear", s.handleClearMemory).Methods(http.MethodPost)
	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "Accounts Control API", "version": "1.0.0"})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		a := s.accounts[id]
		out = append(out, map[string]any{"id": a.ID, "phone_number": a.PhoneNumber, "is_active": a.IsActive})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber   string `json:"phone_number"`
		SessionString string `json:"session_string"`
		APIID         *int   `json:"api_id"`
		APIHash       string `json:"api_hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.PhoneNumber == "" || req.APIID == nil {
		writeDetail(w, http.StatusBadRequest, "phone_number and api_id are required")
		return
	}
	s.mu.Lock()
	id := s.addAccountLocked(req.PhoneNumber, false)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"account_id": id, "message": "Account created"})
}

func (s *Server) handleCheckSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "Session check completed", "results": map[string]any{}})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.lookupLocked(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id":   a.ID,
		"phone_number": a.PhoneNumber,
		"is_active":    a.IsActive,
		"stats":        a.Stats,
	})
}

func (s *Server) handleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		a, ok := s.lookupLocked(w, r)
		if !ok {
			return
		}
		a.IsActive = active
		verb := "stopped"
		if active {
			verb = "started"
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": fmt.Sprintf("Account %d %s", a.ID, verb)})
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.lookupLocked(w, r)
	if !ok {
		return
	}
	profile, ok := s.profiles[a.ID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Profile not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update struct {
		BaseConfig  map[string]any `json:"base_config"`
		Constraints map[string]any `json:"constraints"`
	}
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.lookupLocked(w, r)
	if !ok {
		return
	}
	profile := s.profileLocked(a.ID)
	mergeSection(profile, "base", update.BaseConfig)
	mergeSection(profile, "constraints", update.Constraints)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated", "profile": profile})
}

func (s *Server) handleLock(locked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		a, ok := s.lookupLocked(w, r)
		if !ok {
			return
		}
		profile, ok := s.profiles[a.ID]
		if !ok {
			writeDetail(w, http.StatusNotFound, "Profile not found")
			return
		}
		mergeSection(profile, "constraints", map[string]any{"personality_locked": locked})
		msg := "Personality unlocked"
		if locked {
			msg = "Personality locked"
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": msg, "profile": profile})
	}
}

func (s *Server) handleAllowedChats(w http.ResponseWriter, r *http.Request) {
	var chats []string
	if err := json.NewDecoder(r.Body).Decode(&chats); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if chats == nil {
		chats = []string{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.lookupLocked(w, r)
	if !ok {
		return
	}
	profile := s.profileLocked(a.ID)
	list := make([]any, len(chats))
	for i, c := range chats {
		list[i] = c
	}
	mergeSection(profile, "constraints", map[string]any{"allowed_chats": list})
	writeJSON(w, http.StatusOK, map[string]any{"message": "Allowed chats updated", "profile": profile})
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.lookupLocked(w, r)
	if !ok {
		return
	}
	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Use ?chat_id=... to get specific chat history"})
		return
	}
	history := s.memory[a.ID][chatID]
	if history == nil {
		history = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chat_history": history})
}

func (s *Server) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.lookupLocked(w, r)
	if !ok {
		return
	}
	if chatID := r.URL.Query().Get("chat_id"); chatID != "" {
		delete(s.memory[a.ID], chatID)
	} else {
		delete(s.memory, a.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Memory cleared"})
}

func (s *Server) lookupLocked(w http.ResponseWriter, r *http.Request) (*account, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid account id")
		return nil, false
	}
	a, ok := s.accounts[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Account not found")
		return nil, false
	}
	return a, true
}

func (s *Server) profileLocked(id int64) map[string]any {
	profile, ok := s.profiles[id]
	if !ok {
		profile = map[string]any{
			"base":        map[string]any{},
			"constraints": map[string]any{},
		}
		s.profiles[id] = profile
	}
	return profile
}

func mergeSection(profile map[string]any, name string, values map[string]any) {
	if len(values) == 0 {
		return
	}
	section, _ := profile[name].(map[string]any)
	if section == nil {
		section = map[string]any{}
		profile[name] = section
	}
	for k, v := range values {
		section[k] = v
	}
}

func routeKey(method, path string) string {
	return method + " " + path
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}
