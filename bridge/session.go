package bridge

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds the process-wide state the command server consults at
// dispatch time. It replaces ambient host-session globals with an injected
// object: created at startup, shared by the server and whatever host UI
// toggles the asset-library capability at runtime.
type Session struct {
	// ID identifies this server session in logs.
	ID string

	// Started is when the session was created.
	Started time.Time

	mu           sync.Mutex
	assetLibrary bool
}

// NewSession creates a Session with a fresh ID. assetLibrary sets the
// initial state of the asset-library toggle.
func NewSession(assetLibrary bool) *Session {
	return &Session{
		ID:           uuid.New().String(),
		Started:      time.Now(),
		assetLibrary: assetLibrary,
	}
}

// AssetLibraryEnabled reports whether the asset-library command subset is
// currently enabled.
func (s *Session) AssetLibraryEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assetLibrary
}

// SetAssetLibrary enables or disables the asset-library command subset. The
// change takes effect on the next dispatch, without restarting the server.
func (s *Session) SetAssetLibrary(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assetLibrary = enabled
}
