package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nextgate-hq/relay/pkg/config"
	"nextgate-hq/relay/pkg/kvstore"
)

// Store persists sessions in the shared key-value store under
// <prefix><id> with a TTL.
type Store struct {
	kv        *kvstore.Client
	prefix    string
	ttl       time.Duration
	scanCount int64
}

// NewStore creates a Store from the session configuration.
func NewStore(kv *kvstore.Client, cfg config.SessionConfig) *Store {
	return &Store{
		kv:        kv,
		prefix:    cfg.Prefix,
		ttl:       cfg.TTL,
		scanCount: int64(cfg.ScanCount),
	}
}

// TTL returns the session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// New returns an unsaved session with a fresh random id.
func (s *Store) New() *Session {
	return newSession(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Load reads the session with the given id. A missing session yields an
// error matching kvstore.ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := s.kv.Get(ctx, s.key(id))
	if err != nil {
		return nil, err
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("session %s: decode: %w", id, err)
	}

	sess := newSession(id)
	sess.isNew = false
	if rec.Values != nil {
		sess.values = rec.Values
	}
	sess.user = rec.User
	return sess, nil
}

// Save writes the session and resets its TTL.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess.snapshot())
	if err != nil {
		return fmt.Errorf("session %s: encode: %w", sess.ID, err)
	}
	if err := s.kv.Set(ctx, s.key(sess.ID), string(data), s.ttl); err != nil {
		return err
	}

	sess.mu.Lock()
	sess.isNew = false
	sess.modified = false
	sess.mu.Unlock()
	return nil
}

// Touch renews the TTL of an unmodified session.
func (s *Store) Touch(ctx context.Context, id string) error {
	return s.kv.Expire(ctx, s.key(id), s.ttl)
}

// Destroy deletes the session from the store and marks it destroyed.
func (s *Store) Destroy(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	sess.destroyed = true
	sess.mu.Unlock()
	return s.kv.Del(ctx, s.key(sess.ID))
}

// IDs lists the ids of all stored sessions.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Scan(ctx, s.prefix+"*", s.scanCount)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, s.prefix))
	}
	return ids, nil
}

// Length returns the number of stored sessions.
func (s *Store) Length(ctx context.Context) (int, error) {
	ids, err := s.IDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
