// Package session holds the authenticated identity and drives its expiry
// lifecycle. A single cancellable timer is armed per login; re-login cancels
// the previous timer before arming a new one, so a stale timer can never log
// out a freshly re-authenticated session.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fairyhunter13/shop-state-engine/internal/apperr"
	"github.com/fairyhunter13/shop-state-engine/internal/blob"
	"github.com/fairyhunter13/shop-state-engine/internal/model"
)

// Store holds the current session. The zero state is unauthenticated. Store
// is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	cur      *model.Session
	timer    *time.Timer
	gen      uint64 // bumped on every install/clear; stale timer callbacks check it
	blobs    blob.Store
	blobKey  string
	onExpire func()
	now      func() time.Time
}

// New creates an unauthenticated Store. blobs may be nil to disable
// persistence.
func New(blobs blob.Store, blobKey string) *Store {
	return &Store{blobs: blobs, blobKey: blobKey, now: time.Now}
}

// SetExpiryHandler registers the callback invoked exactly once when the
// expiry timer fires, after the session has been cleared. Set it before the
// first Login.
func (s *Store) SetExpiryHandler(fn func()) {
	s.mu.Lock()
	s.onExpire = fn
	s.mu.Unlock()
}

// Login replaces the session wholesale, computes the absolute expiry instant,
// and (re)arms the expiry timer. A non-positive lifetime is rejected before
// any state changes.
func (s *Store) Login(userID, token string, expiresInSeconds int64) error {
	if userID == "" || token == "" {
		return fmt.Errorf("%w: user id and token are required", apperr.ErrValidation)
	}
	if expiresInSeconds <= 0 {
		return fmt.Errorf("%w: token lifetime must be positive", apperr.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ttl := time.Duration(expiresInSeconds) * time.Second
	sess := model.Session{
		UserID:         userID,
		Token:          token,
		TokenExpiresAt: s.now().Add(ttl),
	}
	s.installLocked(sess, ttl)
	s.persistLocked()
	return nil
}

// installLocked replaces the session and re-arms the timer. The generation
// counter invalidates any previously armed timer whose callback is already in
// flight.
func (s *Store) installLocked(sess model.Session, ttl time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.cur = &sess
	s.timer = time.AfterFunc(ttl, func() { s.expire(gen) })
}

// expire is the timer callback. It clears the session and fires the expiry
// handler unless a login or logout superseded the timer.
func (s *Store) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.cur == nil {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	fn := s.onExpire
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Logout clears the session to unauthenticated, cancels any armed timer, and
// discards the persisted blob. Logging out while unauthenticated is a no-op.
func (s *Store) Logout() {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
}

func (s *Store) clearLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.cur = nil
	if s.blobs != nil {
		_ = s.blobs.Delete(s.blobKey)
	}
}

func (s *Store) persistLocked() {
	if s.blobs == nil || s.cur == nil {
		return
	}
	b, err := json.Marshal(s.cur)
	if err != nil {
		return
	}
	_ = s.blobs.Set(s.blobKey, b)
}

// Restore reinstalls a previously persisted session if it has not expired.
// An expired, malformed, or absent blob leaves the store unauthenticated; the
// expired or malformed blob is discarded.
func (s *Store) Restore() error {
	if s.blobs == nil {
		return nil
	}
	raw, err := s.blobs.Get(s.blobKey)
	if err != nil {
		return nil
	}
	var sess model.Session
	if err := json.Unmarshal(raw, &sess); err != nil || sess.UserID == "" || sess.Token == "" {
		_ = s.blobs.Delete(s.blobKey)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := sess.TokenExpiresAt.Sub(s.now())
	if remaining <= 0 {
		_ = s.blobs.Delete(s.blobKey)
		return nil
	}
	s.installLocked(sess, remaining)
	return nil
}

// IsAuthenticated reports whether a session is present and its token has not
// passed its expiry instant.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil && s.cur.TokenExpiresAt.After(s.now())
}

// Current returns a copy of the session, if any.
func (s *Store) Current() (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return model.Session{}, false
	}
	return *s.cur, true
}

// UserID returns the signed-in user id, or "" when unauthenticated.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.UserID
}

// Token returns the current access token, or "" when unauthenticated. Its
// signature matches remote.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.Token
}
