// Package users resolves chat ids to the user records the dispatcher needs.
// Persistence is left to the host; Memory keeps records for the process lifetime.
package users

import (
	"context"
	"sync"
)

// State is a user's position in a multi-step conversation. StateNone is the default.
type State int

const StateNone State = 0

// Language is a text resource language key, e.g. "en" or "fa".
type Language string

const (
	LangEn Language = "en"
	LangFa Language = "fa"
)

type User struct {
	ID       int64
	ChatID   int64
	State    State
	Language Language
}

// Directory resolves a chat id to a user record. The returned record is a
// snapshot; changes go through the directory's own setters.
type Directory interface {
	Resolve(ctx context.Context, chatID int64) (*User, error)
}

// Memory is an in-memory Directory. Unknown chats get a fresh record in
// StateNone with the default language.
type Memory struct {
	mu    sync.Mutex
	lang  Language
	users map[int64]*User
}

func NewMemory(defaultLang Language) *Memory {
	if defaultLang == "" {
		defaultLang = LangEn
	}
	return &Memory{lang: defaultLang, users: map[int64]*User{}}
}

func (m *Memory) Resolve(ctx context.Context, chatID int64) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.getLocked(chatID)
	return &cp, nil
}

// SetState updates a user's state, creating the record if needed.
func (m *Memory) SetState(chatID int64, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getLocked(chatID).State = s
}

func (m *Memory) SetLanguage(chatID int64, lang Language) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getLocked(chatID).Language = lang
}

// Len is the number of known users.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *Memory) getLocked(chatID int64) *User {
	u, ok := m.users[chatID]
	if !ok {
		u = &User{ID: chatID, ChatID: chatID, Language: m.lang}
		m.users[chatID] = u
	}
	return u
}
