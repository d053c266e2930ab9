// Package kv provides the namespaced key-value store the repositories and the
// session manager persist to. Values are JSON encoded on every write and
// decoded on every read; nothing is cached in memory.
//
// The store favours availability over correctness: decode failures and
// backend read errors read as "absent", and write errors are logged and
// dropped.
package kv

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"
)

// DefaultNamespace prefixes every key written through a Store.
const DefaultNamespace = "task-management-"

// ErrUnavailable is returned by backends whose storage medium cannot be reached.
var ErrUnavailable = errors.New("kv: storage unavailable")

// Backend is a raw string key-value medium.
type Backend interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// Store is a namespaced JSON view over a Backend.
type Store struct {
	backend   Backend
	namespace string
	logger    *logrus.Logger
}

// New creates a Store. A nil backend yields a store whose operations are
// no-ops and whose reads are always absent.
func New(backend Backend, namespace string, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		backend:   backend,
		namespace: namespace,
		logger:    logger,
	}
}

// Available reports whether the store has a storage medium behind it.
func (s *Store) Available() bool {
	return s != nil && s.backend != nil
}

func (s *Store) key(key string) string {
	return s.namespace + key
}

// Get decodes the value stored under key into dest and reports whether a
// value was found.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	if !s.Available() {
		return false
	}

	raw, ok, err := s.backend.Get(ctx, s.key(key))
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("kv read failed")
		return false
	}
	if !ok {
		return false
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logger.WithError(err).WithField("key", key).Debug("kv value is not valid json")
		return false
	}
	return true
}

// Set encodes value and stores it under key. Failures are logged, not returned.
func (s *Store) Set(ctx context.Context, key string, value any) {
	if !s.Available() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Error("failed to encode kv value")
		return
	}
	if err := s.backend.Set(ctx, s.key(key), string(data)); err != nil {
		s.logger.WithError(err).WithField("key", key).Error("failed to save kv value")
	}
}

func (s *Store) Remove(ctx context.Context, key string) {
	if !s.Available() {
		return
	}
	if err := s.backend.Delete(ctx, s.key(key)); err != nil {
		s.logger.WithError(err).WithField("key", key).Error("failed to remove kv value")
	}
}

// Clear removes every key in the store's namespace and nothing else.
func (s *Store) Clear(ctx context.Context) {
	if !s.Available() {
		return
	}
	if err := s.backend.DeletePrefix(ctx, s.namespace); err != nil {
		s.logger.WithError(err).WithField("namespace", s.namespace).Error("failed to clear kv namespace")
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	if !s.Available() {
		return nil
	}
	return s.backend.Close()
}
