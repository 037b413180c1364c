// Package session provides per-session conversational state: lifecycle with
// TTL expiry, bounded message history, the order draft, and the multi-turn
// order flow state machine.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookbot/internal/logging"
	"bookbot/internal/types"
)

// ErrSessionNotFound is returned for missing or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// =============================================================================
// SESSION DATA
// =============================================================================

// Message is one entry of a session's conversation history.
type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// record is the mutable per-session state. Each record carries its own
// mutex so sessions mutate independently; the manager lock only guards the
// map itself.
type record struct {
	mu sync.Mutex

	id         string
	userID     string
	orderState types.OrderState
	draft      *types.OrderDraft
	history    *types.Ring[Message]
	context    map[string]interface{}

	createdAt time.Time
	updatedAt time.Time
	expiresAt time.Time
}

// Info is a read-only snapshot of a session for callers outside the package.
type Info struct {
	ID           string
	UserID       string
	OrderState   types.OrderState
	Draft        *types.OrderDraft
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    time.Time
}

// Statistics summarizes the session population.
type Statistics struct {
	Total   int
	Active  int
	Ordered int // active sessions with an order in progress
	Expired int
}

// =============================================================================
// MANAGER
// =============================================================================

// Config controls session lifetime and history bounds.
type Config struct {
	Timeout         time.Duration
	CleanupInterval time.Duration
	HistoryLimit    int
}

// DefaultConfig returns the standard session configuration: one hour TTL,
// five minute sweeps, fifty messages of history.
func DefaultConfig() Config {
	return Config{
		Timeout:         time.Hour,
		CleanupInterval: 5 * time.Minute,
		HistoryLimit:    50,
	}
}

// Manager owns all live sessions. Expiry is checked lazily on every access
// and additionally swept periodically once Start is called.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*record

	cfg Config

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewManager creates a session manager. Zero config fields fall back to
// defaults.
func NewManager(cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	return &Manager{
		sessions: make(map[string]*record),
		cfg:      cfg,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the periodic expiry sweeper. Optional; lazy expiry alone
// keeps behavior correct, the sweeper just bounds memory.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweeper and waits for it to exit. Safe to call
// multiple times or without a prior Start.
func (m *Manager) Stop() {
	m.mu.RLock()
	started := m.started
	m.mu.RUnlock()

	m.stopOnce.Do(func() {
		close(m.stop)
		if started {
			<-m.done
		}
	})
}

// Create starts a new session and returns its id. An empty userID gets a
// derived placeholder identity.
func (m *Manager) Create(userID string) string {
	id := uuid.NewString()
	if userID == "" {
		userID = "user_" + id[:8]
	}

	now := time.Now()
	rec := &record{
		id:         id,
		userID:     userID,
		orderState: types.OrderStateNone,
		history:    types.NewRing[Message](m.cfg.HistoryLimit),
		context:    make(map[string]interface{}),
		createdAt:  now,
		updatedAt:  now,
		expiresAt:  now.Add(m.cfg.Timeout),
	}

	m.mu.Lock()
	m.sessions[id] = rec
	m.mu.Unlock()

	logging.Session("created session %s for user %s", id, userID)
	return id
}

// get returns the live record for id, deleting it when expired.
func (m *Manager) get(id string) (*record, error) {
	m.mu.RLock()
	rec, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	rec.mu.Lock()
	expired := time.Now().After(rec.expiresAt)
	rec.mu.Unlock()
	if expired {
		m.Delete(id)
		return nil, fmt.Errorf("%w: %s (expired)", ErrSessionNotFound, id)
	}
	return rec, nil
}

// Get returns a snapshot of a session, or ErrSessionNotFound.
func (m *Manager) Get(id string) (Info, error) {
	rec, err := m.get(id)
	if err != nil {
		return Info{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.updatedAt = time.Now()
	return snapshotLocked(rec), nil
}

func snapshotLocked(rec *record) Info {
	info := Info{
		ID:           rec.id,
		UserID:       rec.userID,
		OrderState:   rec.orderState,
		MessageCount: rec.history.Len(),
		CreatedAt:    rec.createdAt,
		UpdatedAt:    rec.updatedAt,
		ExpiresAt:    rec.expiresAt,
	}
	if rec.draft != nil {
		draft := *rec.draft
		info.Draft = &draft
	}
	return info
}

// Exists reports whether a session is live (present and unexpired).
func (m *Manager) Exists(id string) bool {
	_, err := m.get(id)
	return err == nil
}

// Delete removes a session unconditionally.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		logging.Session("deleted session %s", id)
	}
	return ok
}

// AddMessage appends a turn to the session history, evicting the oldest
// beyond the configured limit.
func (m *Manager) AddMessage(id, role, content string, metadata map[string]interface{}) error {
	rec, err := m.get(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.history.Push(Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  metadata,
	})
	rec.updatedAt = time.Now()
	return nil
}

// History returns up to limit most recent messages, oldest first. A
// non-positive limit returns everything buffered.
func (m *Manager) History(id string, limit int) ([]Message, error) {
	rec, err := m.get(id)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	msgs := rec.history.Items()
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// OrderState returns the session's current order flow state.
func (m *Manager) OrderState(id string) (types.OrderState, error) {
	rec, err := m.get(id)
	if err != nil {
		return types.OrderStateNone, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.orderState, nil
}

// SetOrderState transitions the session's order flow state.
func (m *Manager) SetOrderState(id string, state types.OrderState) error {
	rec, err := m.get(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.orderState = state
	rec.updatedAt = time.Now()
	return nil
}

// Draft returns a copy of the session's order draft, or nil when no order
// is in progress.
func (m *Manager) Draft(id string) (*types.OrderDraft, error) {
	rec, err := m.get(id)
	if err != nil {
		return nil, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.draft == nil {
		return nil, nil
	}
	draft := *rec.draft
	return &draft, nil
}

// SetDraft replaces the session's order draft.
func (m *Manager) SetDraft(id string, draft *types.OrderDraft) error {
	rec, err := m.get(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.draft = draft
	rec.updatedAt = time.Now()
	return nil
}

// UpdateDraft mutates the draft in place under the session lock. Returns
// ErrSessionNotFound for dead sessions and false when no draft exists.
func (m *Manager) UpdateDraft(id string, mutate func(*types.OrderDraft)) (bool, error) {
	rec, err := m.get(id)
	if err != nil {
		return false, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.draft == nil {
		return false, nil
	}
	mutate(rec.draft)
	rec.draft.UpdatedAt = time.Now()
	rec.updatedAt = time.Now()
	return true, nil
}

// ClearDraft drops the draft and resets the flow state to none.
func (m *Manager) ClearDraft(id string) error {
	rec, err := m.get(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.draft = nil
	rec.orderState = types.OrderStateNone
	rec.updatedAt = time.Now()
	return nil
}

// SetContext stores a free-form context value on the session.
func (m *Manager) SetContext(id, key string, value interface{}) error {
	rec, err := m.get(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.context[key] = value
	rec.updatedAt = time.Now()
	return nil
}

// Context reads a free-form context value from the session.
func (m *Manager) Context(id, key string) (interface{}, bool) {
	rec, err := m.get(id)
	if err != nil {
		return nil, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	v, ok := rec.context[key]
	return v, ok
}

// sweep deletes every expired session.
func (m *Manager) sweep() {
	now := time.Now()

	m.mu.RLock()
	var expired []string
	for id, rec := range m.sessions {
		rec.mu.Lock()
		if now.After(rec.expiresAt) {
			expired = append(expired, id)
		}
		rec.mu.Unlock()
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.Delete(id)
	}
	if len(expired) > 0 {
		logging.Session("swept %d expired sessions", len(expired))
	}
}

// Stats counts sessions by liveness. Expired-but-unswept sessions show up
// in Expired until the next sweep or access.
func (m *Manager) Stats() Statistics {
	now := time.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Statistics{Total: len(m.sessions)}
	for _, rec := range m.sessions {
		rec.mu.Lock()
		if now.After(rec.expiresAt) {
			stats.Expired++
		} else {
			stats.Active++
			if rec.orderState != types.OrderStateNone {
				stats.Ordered++
			}
		}
		rec.mu.Unlock()
	}
	return stats
}

// expireNow force-expires a session; test hook.
func (m *Manager) expireNow(id string) {
	m.mu.RLock()
	rec, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return
	}
	rec.mu.Lock()
	rec.expiresAt = time.Now().Add(-time.Second)
	rec.mu.Unlock()
}
