// Package testutil provides a scriptable fake helpdesk backend and session
// doubles for package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/spec-kit/helpdesk-client/internal/apiclient"
	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// Backend is an httptest server routing on method and path.
type Backend struct {
	Server *httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  map[string]int
	bodies map[string][]byte
	auth   map[string]string
}

// NewBackend starts a server that is closed when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		routes: make(map[string]http.HandlerFunc),
		calls:  make(map[string]int),
		bodies: make(map[string][]byte),
		auth:   make(map[string]string),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the server origin.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Client returns an apiclient bound to the server with a fixed token.
func (b *Backend) Client(token string) *apiclient.Client {
	return apiclient.New(apiclient.Options{BaseURL: b.URL(), Token: apiclient.StaticToken(token)})
}

// ClientWith returns an apiclient bound to the server with a dynamic token.
func (b *Backend) ClientWith(token apiclient.TokenFunc) *apiclient.Client {
	return apiclient.New(apiclient.Options{BaseURL: b.URL(), Token: token})
}

// Handle routes method+path to h, replacing any earlier route.
func (b *Backend) Handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = h
}

// JSON routes method+path to a fixed JSON response.
func (b *Backend) JSON(method, path string, status int, body any) {
	b.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Calls reports how many requests reached method+path.
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

// TotalCalls reports every request the server received.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

// LastBody returns the last request body sent to method+path.
func (b *Backend) LastBody(method, path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[method+" "+path]
}

// LastAuthorization returns the Authorization header of the last request to
// method+path.
func (b *Backend) LastAuthorization(method, path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.auth[method+" "+path]
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	b.mu.Lock()
	b.calls[key]++
	b.bodies[key] = body
	b.auth[key] = r.Header.Get("Authorization")
	handler, ok := b.routes[key]
	b.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]string{"message": "no route " + key})
		return
	}
	handler(w, r)
}

// WriteJSON writes body as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// Session is a fixed session double.
type Session struct {
	mu     sync.Mutex
	member *domain.Member
	gen    uint64
}

// NewSession returns a session authenticated as member (nil for anonymous).
func NewSession(member *domain.Member) *Session {
	return &Session{member: member, gen: 1}
}

// CurrentMember returns a copy of the member.
func (s *Session) CurrentMember() *domain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.member == nil {
		return nil
	}
	m := *s.member
	return &m
}

// IsAuthenticated reports whether a member is set.
func (s *Session) IsAuthenticated() bool {
	return s.CurrentMember() != nil
}

// IsItOrAdmin reports a privileged role.
func (s *Session) IsItOrAdmin() bool {
	m := s.CurrentMember()
	return m != nil && m.Role.IsPrivileged()
}

// IsAdmin reports the ADMIN role.
func (s *Session) IsAdmin() bool {
	m := s.CurrentMember()
	return m != nil && m.Role == domain.RoleAdmin
}

// Generation returns the session generation.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Reset logs the double out and bumps the generation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.member = nil
	s.gen++
}

// Member builds a test member.
func Member(id int64, role domain.Role) *domain.Member {
	n := strconv.FormatInt(id, 10)
	return &domain.Member{ID: id, EmployeeID: "E" + n, Name: "Member " + n, Email: "m" + n + "@example.com", Role: role}
}
