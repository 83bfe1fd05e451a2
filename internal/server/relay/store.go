// Package relay keeps short-lived blobs that one client uploads and another
// fetches by session id.
package relay

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/logging"
	"github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a session lives after creation. Reads and writes do
// not extend it.
const DefaultTTL = 60 * time.Minute

type session struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

// Store is the shared session map. It is safe for concurrent use.
type Store struct {
	sessions *cache.Cache
	ttl      time.Duration
	now      func() time.Time
	logger   logging.Logger
}

// NewStore returns an empty store. Expired sessions are invisible at once
// and freed by Run.
func NewStore(ttl time.Duration, logger logging.Logger) *Store {
	return &Store{
		sessions: cache.New(ttl, 0),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// CreateSession inserts an empty session and returns its id, the current
// time in epoch microseconds bumped until unused.
func (s *Store) CreateSession() int64 {
	id := s.now().UnixMicro()
	for s.sessions.Add(key(id), &session{}, s.ttl) != nil {
		id++
	}
	return id
}

// Put stores data in session id, replacing earlier data. Unknown or expired
// ids give common.ErrorNotFound.
func (s *Store) Put(id int64, data []byte) error {
	v, ok := s.sessions.Get(key(id))
	if !ok {
		return common.ErrorNotFound
	}
	sess := v.(*session)
	sess.mu.Lock()
	sess.data = append([]byte(nil), data...)
	sess.set = true
	sess.mu.Unlock()
	return nil
}

// Get returns the data of session id. It is false for unknown or expired
// sessions and for sessions nothing was put into yet.
func (s *Store) Get(id int64) ([]byte, bool) {
	v, ok := s.sessions.Get(key(id))
	if !ok {
		return nil, false
	}
	sess := v.(*session)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.set {
		return nil, false
	}
	return append([]byte(nil), sess.data...), true
}

// Len counts stored sessions, expired ones included until the next sweep.
func (s *Store) Len() int {
	return s.sessions.ItemCount()
}

// Run drops expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug(ctx, "relay reaper stopped")
			return
		case <-ticker.C:
			before := s.sessions.ItemCount()
			s.sessions.DeleteExpired()
			if n := before - s.sessions.ItemCount(); n > 0 {
				s.logger.Debug(ctx, "relay sessions expired", "count", n)
			}
		}
	}
}
