// ABOUTME: Shared fixtures for auth tests
// ABOUTME: Fixed clock, in-memory credential store, and token helpers

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// testSecret is a 32-byte secret that meets MinSecretLength.
var testSecret = []byte("records-gateway-test-secret-32b!")

var testEpoch = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTokens(t *testing.T, clock *testClock) *TokenService {
	t.Helper()
	tokens, err := NewTokenService(TokenConfig{Secret: testSecret, TTL: 3 * time.Hour, Now: clock.Now})
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return tokens
}

func issue(t *testing.T, tokens *TokenService, p Principal) string {
	t.Helper()
	token, err := tokens.Issue(p)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return token
}

var (
	student = Principal{ID: "john@example.com", Role: RoleStudent, DisplayName: "John Doe", Status: ActiveStatus}
	teacher = Principal{ID: "ada@example.edu", Role: RoleTeacher, DisplayName: "Ada Lovelace", Status: ActiveStatus}
)

// mockCredentialStore is an in-memory CredentialStore.
type mockCredentialStore struct {
	mu      sync.Mutex
	entries map[string]Credentials
	err     error
	lookups int
}

func newMockCredentialStore(principals ...Principal) *mockCredentialStore {
	m := &mockCredentialStore{entries: make(map[string]Credentials)}
	for _, p := range principals {
		m.entries[p.ID] = Credentials{Principal: p}
	}
	return m
}

func (m *mockCredentialStore) put(p Principal, secret string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[p.ID] = Credentials{Principal: p, PasswordHash: string(hash)}
}

func (m *mockCredentialStore) update(id string, fn func(*Principal)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.entries[id]
	fn(&c.Principal)
	m.entries[id] = c
}

func (m *mockCredentialStore) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

func (m *mockCredentialStore) LookupCredentials(ctx context.Context, id string) (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.err != nil {
		return Credentials{}, m.err
	}
	c, ok := m.entries[id]
	if !ok {
		return Credentials{}, ErrPrincipalNotFound
	}
	return c, nil
}

func (m *mockCredentialStore) LookupPrincipal(ctx context.Context, id string) (Principal, error) {
	c, err := m.LookupCredentials(ctx, id)
	return c.Principal, err
}

// countingHasher records how many comparisons were made.
type countingHasher struct {
	PasswordHasher
	mu       sync.Mutex
	compares int
}

func (h *countingHasher) Compare(hash, secret string) error {
	h.mu.Lock()
	h.compares++
	h.mu.Unlock()
	return h.PasswordHasher.Compare(hash, secret)
}

var errStoreDown = errors.New("database is down")
