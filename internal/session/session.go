// Package session keeps each dashboard client's filter selection private to
// that client.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"calls_dashboard/filter"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// Session is a snapshot of one client's state.
type Session struct {
	ID        string           `json:"id"`
	Selection filter.Selection `json:"selection"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Patch changes some dimensions of a selection; nil fields are kept.
type Patch struct {
	Reasons *[]string `json:"reasons,omitempty"`
	Cities  *[]string `json:"cities,omitempty"`
	Years   *[]int    `json:"years,omitempty"`
}

// Apply returns sel with the patch applied.
func (p Patch) Apply(sel filter.Selection) filter.Selection {
	out := sel.Clone()
	if p.Reasons != nil {
		out.Reasons = append([]string{}, (*p.Reasons)...)
	}
	if p.Cities != nil {
		out.Cities = append([]string{}, (*p.Cities)...)
	}
	if p.Years != nil {
		out.Years = append([]int{}, (*p.Years)...)
	}
	return out
}

// Manager stores sessions in memory. Idle sessions expire after ttl; when
// full, the least recently used session is evicted.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	now      func() time.Time
}

// NewManager creates a manager. ttl <= 0 disables expiry; maxSessions <= 0
// disables the size bound.
func NewManager(ttl time.Duration, maxSessions int) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      maxSessions,
		now:      time.Now,
	}
}

// Create starts a session with sel.
func (m *Manager) Create(sel filter.Selection) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.pruneLocked(now)
	if m.max > 0 && len(m.sessions) >= m.max {
		m.evictOldestLocked()
	}
	s := &Session{
		ID:        uuid.NewString(),
		Selection: sel.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.sessions[s.ID] = s
	return copySession(s)
}

// Get returns the session and refreshes its idle timer.
func (m *Manager) Get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.liveLocked(id)
	if err != nil {
		return Session{}, err
	}
	s.UpdatedAt = m.now()
	return copySession(s), nil
}

// Update applies p to the session's selection.
func (m *Manager) Update(id string, p Patch) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.liveLocked(id)
	if err != nil {
		return Session{}, err
	}
	s.Selection = p.Apply(s.Selection)
	s.UpdatedAt = m.now()
	return copySession(s), nil
}

// Delete removes the session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked(m.now())
	return len(m.sessions)
}

// Prune drops expired sessions and returns how many were removed.
func (m *Manager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneLocked(m.now())
}

func (m *Manager) liveLocked(id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(s, m.now()) {
		delete(m.sessions, id)
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.UpdatedAt) > m.ttl
}

func (m *Manager) pruneLocked(now time.Time) int {
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) evictOldestLocked() {
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.sessions[ids[i]].UpdatedAt.Before(m.sessions[ids[j]].UpdatedAt)
	})
	if len(ids) > 0 {
		delete(m.sessions, ids[0])
	}
}

func copySession(s *Session) Session {
	out := *s
	out.Selection = s.Selection.Clone()
	return out
}
