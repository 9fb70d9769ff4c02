// Package plugin groups handler registrations into named units that the
// binary can switch on and off.
package plugin

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"glassbot/internal/bot"
	"glassbot/internal/users"
	logx "glassbot/pkg/logx"
	"glassbot/pkg/planner"
)

// Deps is what a plugin may register against.
type Deps struct {
	Bot     *bot.Bot
	Planner *planner.Planner
	Users   *users.Memory
	Log     logx.Logger
}

type Plugin interface {
	Name() string
	Register(deps Deps) error
}

var ErrDuplicatePlugin = errors.New("plugin already registered")

// Manager registers plugins once each, in the order given.
type Manager struct {
	deps Deps

	mu    sync.Mutex
	names map[string]struct{}
}

func NewManager(deps Deps) *Manager {
	if deps.Log.IsZero() {
		deps.Log = logx.Nop()
	}
	return &Manager{deps: deps, names: map[string]struct{}{}}
}

// Register stops at the first failing plugin. A panic inside a plugin's
// Register is reported as an error.
func (m *Manager) Register(ps ...Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ps {
		name := p.Name()
		if _, ok := m.names[name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicatePlugin, name)
		}
		deps := m.deps
		deps.Log = m.deps.Log.With(logx.String("plugin", name))
		if err := m.safeCall(name, func() error { return p.Register(deps) }); err != nil {
			return fmt.Errorf("plugin %s: %w", name, err)
		}
		m.names[name] = struct{}{}
		m.deps.Log.Debug("plugin registered", logx.String("plugin", name))
	}
	return nil
}

// Names lists registered plugins, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.names))
	for n := range m.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) safeCall(label string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.deps.Log.Error("panic in plugin call",
				logx.String("call", label),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("panic in %s: %v", label, r)
		}
	}()
	return fn()
}
