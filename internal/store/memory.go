package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dropDatabas3/janus/internal/config"
)

// Memory es el directorio en memoria, sembrado desde la config.
// Sirve para dev y tests; en producción va Postgres.
type Memory struct {
	mu    sync.RWMutex
	users map[string]*User // key: username en minúsculas
}

func NewMemory(seed []config.SeedUser) *Memory {
	m := &Memory{users: make(map[string]*User, len(seed))}
	for _, s := range seed {
		u := &User{
			ID:          uuid.NewString(),
			Username:    firstNonEmpty(s.Email, s.Subject),
			Email:       s.Email,
			DisplayName: s.DisplayName,
		}
		if u.Username == "" {
			continue
		}
		m.users[strings.ToLower(u.Username)] = u
		// el subject también resuelve, por si el provider manda "sub"
		if s.Subject != "" && !strings.EqualFold(s.Subject, u.Username) {
			m.users[strings.ToLower(s.Subject)] = u
		}
	}
	return m
}

func (m *Memory) FindByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) Provision(ctx context.Context, username, email, displayName string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(username))
	if u, ok := m.users[key]; ok {
		cp := *u
		return &cp, nil
	}
	u := &User{
		ID:          uuid.NewString(),
		Username:    username,
		Email:       email,
		DisplayName: displayName,
	}
	m.users[key] = u
	cp := *u
	return &cp, nil
}

func (m *Memory) Close() error { return nil }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
