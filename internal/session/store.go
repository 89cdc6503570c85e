package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	ErrTicketNotHeld = errors.New("session ticket is not being served")
	ErrEmptyTurn     = errors.New("turn text is empty")
	ErrInvalidRole   = errors.New("turn role must be user or assistant")
)

// Turn is one immutable message in a session's history.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     []Turn    `json:"turns"`
}

// Session owns the ordered turn history for one conversation.
// History is only mutated through a Ticket that is currently being served.
type Session struct {
	id        string
	createdAt time.Time
	seq       sequencer

	mu        sync.RWMutex
	turns     []Turn
	updatedAt time.Time
}

func newSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{id: id, createdAt: now, updatedAt: now}
}

func (s *Session) ID() string { return s.id }

// Turns returns a copy of the history in chronological order.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]Turn, len(s.turns))
	copy(turns, s.turns)
	return Snapshot{
		ID:        s.id,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
		Turns:     turns,
	}
}

// Reserve takes the next arrival ticket for this session. The caller must
// eventually call Release, whether or not it ever waited on the ticket.
func (s *Session) Reserve() *Ticket {
	return &Ticket{session: s, n: s.seq.take()}
}

// Reserved reports how many tickets have ever been handed out.
func (s *Session) Reserved() int {
	s.seq.mu.Lock()
	defer s.seq.mu.Unlock()
	return int(s.seq.next)
}

func (s *Session) append(role Role, text string) (Turn, error) {
	if role != RoleUser && role != RoleAssistant {
		return Turn{}, ErrInvalidRole
	}
	if text == "" {
		return Turn{}, ErrEmptyTurn
	}
	now := time.Now().UTC()
	t := Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
	s.updatedAt = now
	return t, nil
}

// Store is the process-wide mapping from session id to Session.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	onCreate func(*Session)
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// SetCreateHook registers a callback invoked once per newly created session.
func (m *Store) SetCreateHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreate = hook
}

// GetOrCreate returns the session for id, creating it on first reference.
// Concurrent first access for the same id yields the same Session.
func (m *Store) GetOrCreate(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s
	}
	s = newSession(id)
	m.sessions[id] = s
	hook := m.onCreate
	m.mu.Unlock()

	if hook != nil {
		hook(s)
	}
	return s
}

// Lookup returns an existing session without creating one.
func (m *Store) Lookup(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Store) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
