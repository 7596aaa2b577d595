package session

import (
	"sync"
	"testing"

	"commodity-sim-go/internal/ledger"
	"commodity-sim-go/internal/models"
	"commodity-sim-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPrices struct{}

func (stubPrices) CurrentPrice(instrument models.Instrument) (float64, error) {
	switch instrument {
	case models.Gold:
		return 1800, nil
	case models.Silver:
		return 25, nil
	}
	return 0, assert.AnError
}

func newTestManager(t *testing.T) (*Manager, *store.MemorySnapshotStore) {
	t.Helper()
	snapshots := store.NewMemorySnapshotStore()
	return NewManager(10000, stubPrices{}, snapshots, zap.NewNop()), snapshots
}

func sampleProfileData() models.ProfileData {
	return models.ProfileData{
		FirstName:       "Alice",
		LastName:        "Martin",
		Email:           "alice@example.com",
		ExperienceLevel: models.ExperienceIntermediate,
		RiskProfile:     models.RiskConservative,
	}
}

func TestLogin_CreatesFreshSession(t *testing.T) {
	m, _ := newTestManager(t)

	sess, err := m.Login("alice")
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, 10000.0, sess.Ledger.Balance())
	assert.Empty(t, sess.Ledger.TransactionHistory(ledger.Ascending))

	has, err := m.HasProfile(sess.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestLogin_ReplacesPriorSession(t *testing.T) {
	m, _ := newTestManager(t)

	first, err := m.Login("alice")
	require.NoError(t, err)
	_, err = m.Buy(first.ID, models.Gold, 1)
	require.NoError(t, err)

	second, err := m.Login("alice")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 10000.0, second.Ledger.Balance(), "relogin must not merge prior state")

	// The replaced session is gone and its ledger refuses trades.
	_, err = m.Get(first.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = first.Ledger.Buy(models.Gold, 1)
	assert.ErrorIs(t, err, ledger.ErrClosed)
}

func TestLogout_DiscardsEverything(t *testing.T) {
	m, snapshots := newTestManager(t)

	sess, err := m.Login("alice")
	require.NoError(t, err)
	_, err = m.Buy(sess.ID, models.Gold, 1)
	require.NoError(t, err)

	require.NoError(t, m.Logout(sess.ID))

	_, err = m.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = snapshots.Load("user:alice")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, m.Logout(sess.ID), ErrNoSession)
}

func TestTrade_ThroughManager(t *testing.T) {
	m, _ := newTestManager(t)
	sess, err := m.Login("alice")
	require.NoError(t, err)

	tx, err := m.Buy(sess.ID, models.Gold, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TradeBuy, tx.Kind)
	assert.Equal(t, 8200.0, sess.Ledger.Balance())

	_, err = m.Sell(sess.ID, models.Gold, 2)
	assert.ErrorIs(t, err, ledger.ErrInsufficientHoldings)
	assert.Equal(t, 8200.0, sess.Ledger.Balance())

	_, err = m.Buy("missing", models.Gold, 1)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSetProfile_FullReplaceResetsCreatedAt(t *testing.T) {
	m, _ := newTestManager(t)
	sess, err := m.Login("alice")
	require.NoError(t, err)

	require.NoError(t, m.SetProfile(sess.ID, sampleProfileData()))

	has, err := m.HasProfile(sess.ID)
	require.NoError(t, err)
	assert.True(t, has)

	first := sess.Profile()
	require.NotNil(t, first)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, "Alice", first.FirstName)

	replacement := sampleProfileData()
	replacement.RiskProfile = models.RiskAggressive
	require.NoError(t, m.SetProfile(sess.ID, replacement))

	second := sess.Profile()
	require.NotNil(t, second)
	assert.Equal(t, models.RiskAggressive, second.RiskProfile)
	assert.False(t, second.CreatedAt.Before(first.CreatedAt),
		"replacing the profile stamps a new CreatedAt")
}

func TestPersistence_SaveOnChange(t *testing.T) {
	m, snapshots := newTestManager(t)
	sess, err := m.Login("alice")
	require.NoError(t, err)

	snap, err := snapshots.Load("user:alice")
	require.NoError(t, err)
	assert.Equal(t, 10000.0, snap.Ledger.Balance)

	_, err = m.Buy(sess.ID, models.Silver, 4)
	require.NoError(t, err)
	require.NoError(t, m.SetProfile(sess.ID, sampleProfileData()))

	snap, err = snapshots.Load("user:alice")
	require.NoError(t, err)
	assert.Equal(t, 10000-4*25.0, snap.Ledger.Balance)
	assert.Equal(t, 4.0, snap.Ledger.Holdings[models.Silver])
	require.Len(t, snap.Ledger.Transactions, 1)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "alice@example.com", snap.Profile.Email)
}

func TestResume_RestoresPersistedSession(t *testing.T) {
	snapshots := store.NewMemorySnapshotStore()

	// First process lifetime.
	m1 := NewManager(10000, stubPrices{}, snapshots, zap.NewNop())
	sess, err := m1.Login("alice")
	require.NoError(t, err)
	_, err = m1.Buy(sess.ID, models.Gold, 2)
	require.NoError(t, err)
	require.NoError(t, m1.SetProfile(sess.ID, sampleProfileData()))

	// Second process lifetime over the same store.
	m2 := NewManager(10000, stubPrices{}, snapshots, zap.NewNop())
	restored, err := m2.Resume("alice")
	require.NoError(t, err)

	assert.Equal(t, sess.ID, restored.ID)
	assert.Equal(t, 10000-2*1800.0, restored.Ledger.Balance())
	assert.Equal(t, 2.0, restored.Ledger.Holding(models.Gold))

	history := restored.Ledger.TransactionHistory(ledger.Ascending)
	require.Len(t, history, 1)
	assert.Equal(t, models.TradeBuy, history[0].Kind)

	has, err := m2.HasProfile(restored.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

// blockingStore pauses inside Save while blocking is enabled, so tests
// can hold a snapshot write in flight across other manager calls.
type blockingStore struct {
	store.SnapshotStore
	mu      sync.Mutex
	block   bool
	entered chan struct{}
	release chan struct{}
}

func newBlockingStore(inner store.SnapshotStore) *blockingStore {
	return &blockingStore{
		SnapshotStore: inner,
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (b *blockingStore) setBlock(block bool) {
	b.mu.Lock()
	b.block = block
	b.mu.Unlock()
}

func (b *blockingStore) Save(key string, snap *models.SessionSnapshot) error {
	b.mu.Lock()
	blocked := b.block
	b.mu.Unlock()
	if blocked {
		b.entered <- struct{}{}
		<-b.release
	}
	return b.SnapshotStore.Save(key, snap)
}

func TestLogout_NotUndoneByInFlightSave(t *testing.T) {
	inner := store.NewMemorySnapshotStore()
	blocking := newBlockingStore(inner)
	m := NewManager(10000, stubPrices{}, blocking, zap.NewNop())

	sess, err := m.Login("alice")
	require.NoError(t, err)

	// Hold the trade's snapshot write in flight.
	blocking.setBlock(true)
	tradeDone := make(chan error, 1)
	go func() {
		_, err := m.Buy(sess.ID, models.Gold, 1)
		tradeDone <- err
	}()
	<-blocking.entered
	blocking.setBlock(false)

	// Logout while the save is still in flight. It must wait for the
	// write to finish before deleting the key, never the other way
	// around.
	logoutDone := make(chan error, 1)
	go func() { logoutDone <- m.Logout(sess.ID) }()

	close(blocking.release)
	require.NoError(t, <-tradeDone)
	require.NoError(t, <-logoutDone)

	_, err = inner.Load("user:alice")
	assert.ErrorIs(t, err, store.ErrNotFound,
		"a logged-out session must stay discarded")
}

func TestLogout_BarsLaterSaves(t *testing.T) {
	m, snapshots := newTestManager(t)
	sess, err := m.Login("alice")
	require.NoError(t, err)

	require.NoError(t, m.Logout(sess.ID))

	// A persist attempted after teardown is a no-op.
	require.NoError(t, m.persist(sess))
	_, err = snapshots.Load("user:alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResume_NoSnapshotFallsBackToFreshLogin(t *testing.T) {
	m, _ := newTestManager(t)

	sess, err := m.Resume("bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", sess.Username)
	assert.Equal(t, 10000.0, sess.Ledger.Balance())
}
