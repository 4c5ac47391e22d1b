// internal/identity/manager.go
package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/paywallkit/internal/models"
	"github.com/javajoker/paywallkit/internal/recording"
	"github.com/javajoker/paywallkit/internal/storage"
)

const aliasPrefix = "anonymous:"

// AssignmentFetcher refreshes paywall assignments for a user after an
// identity transition.
type AssignmentFetcher interface {
	FetchAssignments(ctx context.Context, userID string) error
}

// Options controls how Identify finalizes readiness.
type Options struct {
	// RestorePaywallAssignments makes Identify await the assignment refresh
	// before the identity becomes ready; otherwise the refresh runs detached.
	RestorePaywallAssignments bool
}

// Manager owns the current user identity. Reads and mutations of appUserID,
// aliasID and attributes all serialize through one mutex so no caller ever
// observes a new alias paired with a stale app user id. Readiness flips false
// before any externally visible mutation and true only once the mutation's
// dependent work has completed.
type Manager struct {
	mu         sync.Mutex
	appUserID  string
	aliasID    string
	attributes map[string]interface{}
	ready      chan struct{}
	isReady    bool
	epoch      uint64

	store       storage.Store
	assignments AssignmentFetcher
	recorder    recording.Recorder
	log         *logrus.Logger
}

func NewManager(
	store storage.Store,
	assignments AssignmentFetcher,
	recorder recording.Recorder,
	log *logrus.Logger,
) *Manager {
	m := &Manager{
		attributes:  make(map[string]interface{}),
		ready:       make(chan struct{}),
		store:       store,
		assignments: assignments,
		recorder:    recorder,
		log:         log,
	}

	if id, ok := store.GetString(storage.KeyAppUserID); ok {
		m.appUserID = id
	}
	if alias, ok := store.GetString(storage.KeyAliasID); ok && alias != "" {
		m.aliasID = alias
	} else {
		m.aliasID = newAlias()
		store.SetString(storage.KeyAliasID, m.aliasID)
	}
	var attrs map[string]interface{}
	if store.GetJSON(storage.KeyUserAttributes, &attrs) && attrs != nil {
		m.attributes = attrs
	}

	return m
}

func newAlias() string {
	return aliasPrefix + uuid.NewString()
}

// Start fetches assignments for the persisted identity and marks the manager
// ready. Called once after configuration.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	epoch := m.epoch
	userID := m.userIDLocked()
	m.mu.Unlock()

	m.refreshAssignments(ctx, userID, epoch)
}

// Identify switches the externally visible identity to the given app user id.
// An empty id after trimming is logged and ignored; identifying as the
// current id is a no-op. Switching away from a different previous id resets
// identity-scoped state first.
func (m *Manager) Identify(ctx context.Context, userID string, opts *Options) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		m.log.Warn("identify called with an empty user id, ignoring")
		return
	}

	m.mu.Lock()
	if userID == m.appUserID {
		m.mu.Unlock()
		return
	}

	m.setReadyLocked(false)
	m.epoch++
	epoch := m.epoch

	if m.appUserID != "" {
		// Reset-before-switch: the previous user's attributes and alias must
		// not leak into the new identity.
		m.clearLocked()
	}

	m.appUserID = userID
	m.store.SetString(storage.KeyAppUserID, userID)
	m.mu.Unlock()

	if opts != nil && opts.RestorePaywallAssignments {
		m.refreshAssignments(ctx, userID, epoch)
		return
	}

	go m.refreshAssignments(context.Background(), userID, epoch)
}

// Reset clears the app user id, regenerates the anonymous alias and drops all
// user attributes. When duringIdentify is true the enclosing identify flow
// finalizes readiness; otherwise the manager becomes ready again here.
func (m *Manager) Reset(duringIdentify bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setReadyLocked(false)
	m.epoch++
	m.clearLocked()

	if !duringIdentify {
		m.setReadyLocked(true)
	}
}

// MergeUserAttributes shallow-merges the given attributes into the current
// set. New values win and an explicit nil clears a key. The current alias id
// and, when set, app user id are always injected. The change event is emitted
// off the identity-mutation path.
func (m *Manager) MergeUserAttributes(attrs map[string]interface{}) {
	m.mu.Lock()

	merged := make(map[string]interface{}, len(m.attributes)+len(attrs)+2)
	for k, v := range m.attributes {
		merged[k] = v
	}
	for k, v := range attrs {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	merged["aliasId"] = m.aliasID
	if m.appUserID != "" {
		merged["appUserId"] = m.appUserID
	}

	m.attributes = merged
	m.store.SetJSON(storage.KeyUserAttributes, merged)

	snapshot := make(map[string]interface{}, len(merged))
	for k, v := range merged {
		snapshot[k] = v
	}
	m.mu.Unlock()

	go m.recorder.TrackEvent(recording.EventAttributesChanged, snapshot)
}

// Identity returns a consistent snapshot of the current identity.
func (m *Manager) Identity() models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()

	attrs := make(map[string]interface{}, len(m.attributes))
	for k, v := range m.attributes {
		attrs[k] = v
	}
	return models.Identity{
		AppUserID:  m.appUserID,
		AliasID:    m.aliasID,
		Attributes: attrs,
	}
}

// UserID is the externally visible identity: app user id when logged in, the
// anonymous alias otherwise.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userIDLocked()
}

func (m *Manager) IsLoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appUserID != ""
}

func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isReady
}

// WaitUntilReady blocks until the identity is ready or the context ends.
// Rule evaluation gates on this.
func (m *Manager) WaitUntilReady(ctx context.Context) error {
	m.mu.Lock()
	ch := m.ready
	m.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) userIDLocked() string {
	if m.appUserID != "" {
		return m.appUserID
	}
	return m.aliasID
}

func (m *Manager) clearLocked() {
	m.appUserID = ""
	m.aliasID = newAlias()
	m.attributes = make(map[string]interface{})
	m.store.Delete(storage.KeyAppUserID)
	m.store.SetString(storage.KeyAliasID, m.aliasID)
	m.store.Delete(storage.KeyUserAttributes)
}

func (m *Manager) setReadyLocked(ready bool) {
	if ready == m.isReady {
		return
	}
	m.isReady = ready
	if ready {
		close(m.ready)
	} else {
		m.ready = make(chan struct{})
	}
}

// refreshAssignments completes an identity transition: fetch assignments for
// the new identity, then flip ready. A transition that started after this one
// (a newer epoch) keeps ownership of readiness.
func (m *Manager) refreshAssignments(ctx context.Context, userID string, epoch uint64) {
	if m.assignments != nil {
		if err := m.assignments.FetchAssignments(ctx, userID); err != nil {
			m.log.WithError(err).WithField("user_id", userID).Warn("assignment refresh failed")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return
	}
	m.setReadyLocked(true)
}
