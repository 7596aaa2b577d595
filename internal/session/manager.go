package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"commodity-sim-go/internal/ledger"
	"commodity-sim-go/internal/models"
	"commodity-sim-go/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoSession is returned by any operation referring to a session id
// that does not exist (never logged in, or already logged out).
var ErrNoSession = errors.New("no such session")

// Session is one logged-in user: their ledger and optional profile.
// The ledger has its own lock; mu guards the profile.
type Session struct {
	ID       string
	Username string
	Ledger   *ledger.Ledger

	mu      sync.Mutex
	profile *models.Profile

	// persistMu serializes snapshot writes with teardown. Once
	// discarded is set, no persist may write this session's snapshot.
	persistMu sync.Mutex
	discarded bool
}

// discard closes the ledger and bars any later snapshot write. An
// in-flight persist holds persistMu during its Save, so discard also
// waits for that write to finish.
func (s *Session) discard() {
	s.Ledger.Close()
	s.persistMu.Lock()
	s.discarded = true
	s.persistMu.Unlock()
}

// Manager owns the user sessions and their persistence. Every accepted
// state change (login, trade, profile submit) is snapshotted to the
// store keyed by username, so a session survives a process restart.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session // by session id
	byUser   map[string]string   // username -> session id

	startingBalance float64
	prices          ledger.PriceSource
	store           store.SnapshotStore
	logger          *zap.Logger
}

// NewManager creates a session manager.
func NewManager(startingBalance float64, prices ledger.PriceSource, snapshots store.SnapshotStore, logger *zap.Logger) *Manager {
	return &Manager{
		sessions:        make(map[string]*Session),
		byUser:          make(map[string]string),
		startingBalance: startingBalance,
		prices:          prices,
		store:           snapshots,
		logger:          logger.Named("session"),
	}
}

func storageKey(username string) string {
	return "user:" + username
}

// Login creates a fresh session for the username: starting balance,
// empty holdings, empty log, no profile. A prior session for the same
// username is replaced outright, nothing is merged.
func (m *Manager) Login(username string) (*Session, error) {
	sess := &Session{
		ID:       uuid.NewString(),
		Username: username,
		Ledger:   ledger.New(m.startingBalance, m.prices, m.logger),
	}

	m.mu.Lock()
	m.dropLocked(username)
	m.sessions[sess.ID] = sess
	m.byUser[username] = sess.ID
	m.mu.Unlock()

	m.logger.Info("User logged in",
		zap.String("username", username),
		zap.String("session_id", sess.ID))

	if err := m.persist(sess); err != nil {
		m.logger.Error("Failed to persist fresh session", zap.Error(err))
	}
	return sess, nil
}

// Resume restores the username's session from the snapshot store, or
// falls back to a fresh Login when no snapshot exists.
func (m *Manager) Resume(username string) (*Session, error) {
	snap, err := m.store.Load(storageKey(username))
	if errors.Is(err, store.ErrNotFound) {
		return m.Login(username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to restore session for %q: %w", username, err)
	}

	sess := &Session{
		ID:       snap.ID,
		Username: snap.Username,
		Ledger:   ledger.Restore(snap.Ledger, m.prices, m.logger),
		profile:  snap.Profile,
	}

	m.mu.Lock()
	m.dropLocked(username)
	m.sessions[sess.ID] = sess
	m.byUser[username] = sess.ID
	m.mu.Unlock()

	m.logger.Info("Session restored from snapshot",
		zap.String("username", username),
		zap.String("session_id", sess.ID))
	return sess, nil
}

// Logout discards the session, its ledger and its profile, and removes
// the persisted snapshot. Irreversible. Closing the ledger first means
// an in-flight trade finishes before the state is thrown away.
func (m *Manager) Logout(sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
		delete(m.byUser, sess.Username)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNoSession
	}

	// Bar further persists and delete the snapshot under the same
	// lock, so an in-flight save cannot land after the delete.
	sess.Ledger.Close()
	sess.persistMu.Lock()
	sess.discarded = true
	err := m.store.Delete(storageKey(sess.Username))
	sess.persistMu.Unlock()
	if err != nil {
		m.logger.Error("Failed to delete persisted snapshot", zap.Error(err))
	}

	m.logger.Info("User logged out", zap.String("username", sess.Username))
	return nil
}

// Get looks a session up by id.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Buy executes a buy on the session's ledger and snapshots the result.
func (m *Manager) Buy(sessionID string, instrument models.Instrument, quantity float64) (*models.Transaction, error) {
	return m.trade(sessionID, instrument, quantity, (*ledger.Ledger).Buy)
}

// Sell executes a sell on the session's ledger and snapshots the result.
func (m *Manager) Sell(sessionID string, instrument models.Instrument, quantity float64) (*models.Transaction, error) {
	return m.trade(sessionID, instrument, quantity, (*ledger.Ledger).Sell)
}

func (m *Manager) trade(sessionID string, instrument models.Instrument, quantity float64,
	op func(*ledger.Ledger, models.Instrument, float64) (*models.Transaction, error)) (*models.Transaction, error) {

	sess, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	tx, err := op(sess.Ledger, instrument, quantity)
	if err != nil {
		return nil, err
	}

	if err := m.persist(sess); err != nil {
		// The trade itself is applied; a persistence failure only
		// affects durability across restarts.
		m.logger.Error("Failed to persist session after trade", zap.Error(err))
	}
	return tx, nil
}

// SetProfile creates or fully replaces the session's investor profile.
// CreatedAt is stamped at call time on every replace; profile edits do
// not keep a stable identity.
func (m *Manager) SetProfile(sessionID string, data models.ProfileData) error {
	sess, err := m.Get(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	sess.profile = &models.Profile{ProfileData: data, CreatedAt: time.Now()}
	sess.mu.Unlock()

	if err := m.persist(sess); err != nil {
		m.logger.Error("Failed to persist session after profile change", zap.Error(err))
	}

	m.logger.Info("Profile saved", zap.String("username", sess.Username))
	return nil
}

// HasProfile reports whether the session has an investor profile.
func (m *Manager) HasProfile(sessionID string) (bool, error) {
	sess, err := m.Get(sessionID)
	if err != nil {
		return false, err
	}
	return sess.Profile() != nil, nil
}

// Profile returns a copy of the session's profile, or nil.
func (s *Session) Profile() *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

func (m *Manager) persist(sess *Session) error {
	sess.persistMu.Lock()
	defer sess.persistMu.Unlock()

	if sess.discarded {
		// Torn down while the change was in flight; do not
		// resurrect a snapshot Logout already deleted.
		return nil
	}

	snap := &models.SessionSnapshot{
		ID:       sess.ID,
		Username: sess.Username,
		Ledger:   sess.Ledger.Snapshot(),
		Profile:  sess.Profile(),
	}
	return m.store.Save(storageKey(sess.Username), snap)
}

// dropLocked removes any existing session for the username. Caller
// holds m.mu.
func (m *Manager) dropLocked(username string) {
	if id, ok := m.byUser[username]; ok {
		if old, ok := m.sessions[id]; ok {
			old.discard()
			delete(m.sessions, id)
		}
		delete(m.byUser, username)
	}
}
