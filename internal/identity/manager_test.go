// internal/identity/manager_test.go
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/paywallkit/internal/recording"
	"github.com/javajoker/paywallkit/internal/storage"
)

type stubAssignments struct {
	mu      sync.Mutex
	fetches []string
	err     error
	block   chan struct{}
}

func (a *stubAssignments) FetchAssignments(_ context.Context, userID string) error {
	if a.block != nil {
		<-a.block
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetches = append(a.fetches, userID)
	return a.err
}

func (a *stubAssignments) fetched() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.fetches))
	copy(out, a.fetches)
	return out
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestManager() (*Manager, *storage.Memory, *stubAssignments, *recording.Memory) {
	store := storage.NewMemory()
	assignments := &stubAssignments{}
	recorder := recording.NewMemory()
	m := NewManager(store, assignments, recorder, testLogger())
	return m, store, assignments, recorder
}

func TestNewManagerGeneratesAlias(t *testing.T) {
	m, store, _, _ := newTestManager()

	alias := m.Identity().AliasID
	assert.True(t, strings.HasPrefix(alias, aliasPrefix))

	persisted, ok := store.GetString(storage.KeyAliasID)
	require.True(t, ok)
	assert.Equal(t, alias, persisted)
}

func TestNewManagerRestoresPersistedIdentity(t *testing.T) {
	store := storage.NewMemory()
	store.SetString(storage.KeyAppUserID, "user-1")
	store.SetString(storage.KeyAliasID, "anonymous:persisted")

	m := NewManager(store, nil, recording.NewMemory(), testLogger())

	assert.Equal(t, "user-1", m.UserID())
	assert.Equal(t, "anonymous:persisted", m.Identity().AliasID)
}

func TestStartMarksReady(t *testing.T) {
	m, _, assignments, _ := newTestManager()
	assert.False(t, m.IsReady())

	m.Start(context.Background())

	assert.True(t, m.IsReady())
	assert.Equal(t, []string{m.UserID()}, assignments.fetched())
}

func TestIdentifySameIDIsNoOp(t *testing.T) {
	m, _, assignments, _ := newTestManager()
	m.Identify(context.Background(), "user-1", &Options{RestorePaywallAssignments: true})
	require.True(t, m.IsReady())
	aliasBefore := m.Identity().AliasID
	fetchesBefore := len(assignments.fetched())

	m.Identify(context.Background(), "user-1", nil)

	assert.True(t, m.IsReady())
	assert.Equal(t, aliasBefore, m.Identity().AliasID)
	assert.Len(t, assignments.fetched(), fetchesBefore)
}

func TestIdentifyEmptyIDIsIgnored(t *testing.T) {
	m, _, _, _ := newTestManager()

	m.Identify(context.Background(), "   ", nil)

	assert.False(t, m.IsLoggedIn())
}

func TestIdentifySwitchResetsPreviousIdentity(t *testing.T) {
	m, store, _, _ := newTestManager()
	m.Identify(context.Background(), "user-1", &Options{RestorePaywallAssignments: true})
	m.MergeUserAttributes(map[string]interface{}{"plan": "pro"})
	aliasBefore := m.Identity().AliasID

	m.Identify(context.Background(), "user-2", &Options{RestorePaywallAssignments: true})

	ident := m.Identity()
	assert.Equal(t, "user-2", ident.AppUserID)
	assert.NotEqual(t, aliasBefore, ident.AliasID)
	assert.NotContains(t, ident.Attributes, "plan")

	persisted, ok := store.GetString(storage.KeyAppUserID)
	require.True(t, ok)
	assert.Equal(t, "user-2", persisted)
}

func TestIdentifySyncAwaitsAssignments(t *testing.T) {
	m, _, assignments, _ := newTestManager()

	m.Identify(context.Background(), "user-1", &Options{RestorePaywallAssignments: true})

	assert.True(t, m.IsReady())
	assert.Equal(t, []string{"user-1"}, assignments.fetched())
}

func TestIdentifyAsyncBecomesReadyEventually(t *testing.T) {
	m, _, assignments, _ := newTestManager()
	assignments.block = make(chan struct{})

	m.Identify(context.Background(), "user-1", nil)

	assert.False(t, m.IsReady())
	close(assignments.block)

	require.NoError(t, waitReady(m))
	assert.Equal(t, []string{"user-1"}, assignments.fetched())
}

func TestIdentifyAssignmentFailureStillMarksReady(t *testing.T) {
	m, _, assignments, _ := newTestManager()
	assignments.err = errors.New("network down")

	m.Identify(context.Background(), "user-1", &Options{RestorePaywallAssignments: true})

	assert.True(t, m.IsReady())
}

func TestStaleAssignmentFetchDoesNotFlipReadiness(t *testing.T) {
	m, _, assignments, _ := newTestManager()
	assignments.block = make(chan struct{})

	m.Identify(context.Background(), "user-1", nil)
	m.Reset(true) // a newer transition owns readiness now

	close(assignments.block)

	// The first identify's detached fetch completes against a stale epoch.
	time.Sleep(20 * time.Millisecond)
	assert.False(t, m.IsReady())
}

func TestResetOutsideIdentifyEndsReady(t *testing.T) {
	m, _, _, _ := newTestManager()
	m.Identify(context.Background(), "user-1", &Options{RestorePaywallAssignments: true})
	aliasBefore := m.Identity().AliasID

	m.Reset(false)

	assert.True(t, m.IsReady())
	assert.False(t, m.IsLoggedIn())
	assert.NotEqual(t, aliasBefore, m.Identity().AliasID)
	assert.Empty(t, m.Identity().Attributes)
}

func TestResetDuringIdentifyLeavesReadinessToCaller(t *testing.T) {
	m, _, _, _ := newTestManager()
	m.Identify(context.Background(), "user-1", &Options{RestorePaywallAssignments: true})

	m.Reset(true)

	assert.False(t, m.IsReady())
}

func TestUserIDFallsBackToAlias(t *testing.T) {
	m, _, _, _ := newTestManager()

	assert.Equal(t, m.Identity().AliasID, m.UserID())

	m.Identify(context.Background(), "user-1", &Options{RestorePaywallAssignments: true})
	assert.Equal(t, "user-1", m.UserID())
}

func TestMergeUserAttributes(t *testing.T) {
	m, store, _, recorder := newTestManager()
	m.Identify(context.Background(), "user-1", &Options{RestorePaywallAssignments: true})

	m.MergeUserAttributes(map[string]interface{}{"plan": "pro", "seats": 3})
	m.MergeUserAttributes(map[string]interface{}{"plan": nil, "seats": 5})

	attrs := m.Identity().Attributes
	assert.NotContains(t, attrs, "plan")
	assert.Equal(t, 5, attrs["seats"])
	assert.Equal(t, m.Identity().AliasID, attrs["aliasId"])
	assert.Equal(t, "user-1", attrs["appUserId"])

	var persisted map[string]interface{}
	require.True(t, store.GetJSON(storage.KeyUserAttributes, &persisted))
	assert.Equal(t, "user-1", persisted["appUserId"])

	assert.Eventually(t, func() bool {
		return recorder.CountByName(recording.EventAttributesChanged) == 2
	}, time.Second, time.Millisecond)
}

func TestWaitUntilReadyHonorsContext(t *testing.T) {
	m, _, _, _ := newTestManager()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, m.WaitUntilReady(ctx))

	m.Start(context.Background())
	assert.NoError(t, m.WaitUntilReady(context.Background()))
}

func waitReady(m *Manager) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return m.WaitUntilReady(ctx)
}
