package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnauthorized    = errors.New("unauthorized")
)

type ManagerConfig struct {
	Session       SessionConfig
	SingleSession bool
	// Seed derives every session's random source. Zero seeds from the clock.
	Seed int64
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	active   string // newest session code
	cfg      ManagerConfig
	seeds    *rand.Rand
	opts     []Option
	onCreate []func(*Session)
	onRemove []func(*Session)
}

func NewManager(cfg ManagerConfig, opts ...Option) *Manager {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		seeds:    rand.New(rand.NewSource(seed)),
		opts:     opts,
	}
}

// OnCreate registers fn to run for every new session before it is returned
// to the caller. Used to attach subscribers.
func (m *Manager) OnCreate(fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreate = append(m.onCreate, fn)
}

// OnRemove registers fn to run after a session leaves the manager, whether
// it was replaced, removed or swept. The session is already closed.
func (m *Manager) OnRemove(fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemove = append(m.onRemove, fn)
}

func (m *Manager) Create() (code string, token string, s *Session) {
	m.mu.Lock()
	code = randomCode(m.seeds, 5)
	for m.sessions[code] != nil {
		code = randomCode(m.seeds, 5)
	}
	opts := append([]Option{WithRandom(rand.New(rand.NewSource(m.seeds.Int63())))}, m.opts...)
	s = NewSession(code, m.cfg.Session, opts...)
	s.Token = uuid.NewString()

	var evicted []*Session
	if m.cfg.SingleSession {
		for c, old := range m.sessions {
			evicted = append(evicted, old)
			delete(m.sessions, c)
		}
	}
	m.sessions[code] = s
	m.active = code
	hooks := append([]func(*Session){}, m.onCreate...)
	m.mu.Unlock()

	m.dropped(evicted, "session replaced")
	for _, fn := range hooks {
		fn(s)
	}
	log.Info().Str("code", code).Msg("session created")
	return code, s.Token, s
}

func (m *Manager) Get(code string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.sessions[code]
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Authorize returns the session only if token belongs to it.
func (m *Manager) Authorize(code, token string) (*Session, error) {
	s, err := m.Get(code)
	if err != nil {
		return nil, err
	}
	if token == "" || token != s.Token {
		return nil, ErrUnauthorized
	}
	return s, nil
}

func (m *Manager) Active() (string, *Session) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == "" {
		return "", nil
	}
	return m.active, m.sessions[m.active]
}

func (m *Manager) Remove(code string) error {
	m.mu.Lock()
	s := m.sessions[code]
	if s == nil {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, code)
	if m.active == code {
		m.active = ""
	}
	m.mu.Unlock()
	m.dropped([]*Session{s}, "session removed")
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions that have seen no transition for longer than maxIdle
// and returns how many were removed.
func (m *Manager) Sweep(now time.Time, maxIdle time.Duration) int {
	m.mu.Lock()
	var idle []*Session
	for code, s := range m.sessions {
		if now.Sub(s.LastActive()) > maxIdle {
			idle = append(idle, s)
			delete(m.sessions, code)
			if m.active == code {
				m.active = ""
			}
		}
	}
	m.mu.Unlock()
	m.dropped(idle, "idle session removed")
	return len(idle)
}

// dropped closes sessions already taken out of the map and runs the
// removal hooks for each. Must be called without m.mu held.
func (m *Manager) dropped(gone []*Session, msg string) {
	if len(gone) == 0 {
		return
	}
	m.mu.RLock()
	hooks := append([]func(*Session){}, m.onRemove...)
	m.mu.RUnlock()
	for _, s := range gone {
		s.Close()
		log.Info().Str("code", s.Code).Msg(msg)
		for _, fn := range hooks {
			fn(s)
		}
	}
}

func randomCode(r *rand.Rand, n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[r.Intn(len(letters))]
	}
	return string(b)
}
