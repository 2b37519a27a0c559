// Package prefs holds small, independent preference values. Each value lives
// under its own storage key; there is no atomicity across values.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"staybook/internal/storage"
)

const schemaVersion = 1

// Flag is a single named preference value.
type Flag[T any] struct {
	key       string
	legacyKey string
	def       T

	kv    storage.KV
	queue *storage.WriteQueue
	log   logrus.FieldLogger

	mu    sync.RWMutex
	value T
	set   bool
	// newer blocks writes while key holds a value from a newer schema.
	newer bool
}

// NewFlag creates a flag stored under key, holding def until loaded or set.
// legacyKey, when not empty, is read if key is absent.
func NewFlag[T any](key, legacyKey string, def T, kv storage.KV, queue *storage.WriteQueue, logger logrus.FieldLogger) *Flag[T] {
	return &Flag[T]{
		key:       key,
		legacyKey: legacyKey,
		def:       def,
		kv:        kv,
		queue:     queue,
		log:       logger.WithFields(logrus.Fields{"component": "prefs", "key": key}),
		value:     def,
	}
}

// Load reads the persisted value. Absent or unreadable values keep the default.
func (f *Flag[T]) Load(ctx context.Context) {
	value, migrated, ok := f.read(ctx)
	if !ok {
		return
	}

	f.mu.Lock()
	f.value = value
	f.set = true
	if migrated {
		f.persist(value)
	}
	f.mu.Unlock()
}

func (f *Flag[T]) read(ctx context.Context) (value T, migrated bool, ok bool) {
	key := f.key
	blob, found, err := f.kv.Get(ctx, key)
	if err == nil && !found && f.legacyKey != "" {
		key = f.legacyKey
		blob, found, err = f.kv.Get(ctx, key)
	}
	if err != nil {
		f.log.WithError(err).Error("Failed to read preference, using default")
		return value, false, false
	}
	if !found {
		return value, false, false
	}

	version, err := storage.Decode(blob, schemaVersion, &value)
	if errors.Is(err, storage.ErrUnsupportedVersion) && key == f.key {
		f.log.WithError(err).Warn("Preference written by a newer version, changes will not be saved")
		f.mu.Lock()
		f.newer = true
		f.mu.Unlock()
		var zero T
		return zero, false, false
	}
	if err != nil {
		f.log.WithError(err).Warn("Corrupt preference, using default")
		var zero T
		return zero, false, false
	}
	return value, version < schemaVersion || key != f.key, true
}

// Get returns the current value, or the default when never set.
func (f *Flag[T]) Get() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// IsSet reports whether the value came from storage or Set rather than the default.
func (f *Flag[T]) IsSet() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.set
}

// Set updates the value in memory and schedules its persistence.
func (f *Flag[T]) Set(value T) storage.Ticket {
	f.mu.Lock()
	f.value = value
	f.set = true
	ticket := f.persist(value)
	f.mu.Unlock()

	f.log.WithField("value", value).Debug("Preference updated")
	return ticket
}

// Update applies fn to the current value under the flag's lock and persists the result.
func (f *Flag[T]) Update(fn func(T) T) (T, storage.Ticket) {
	f.mu.Lock()
	value := fn(f.value)
	f.value = value
	f.set = true
	ticket := f.persist(value)
	f.mu.Unlock()
	return value, ticket
}

// persist is called with mu held.
func (f *Flag[T]) persist(value T) storage.Ticket {
	if f.newer {
		f.log.Warn("Preference kept in memory only, stored value has a newer format")
		return storage.FailedTicket(f.key, fmt.Errorf("preference %s not saved: %w", f.key, storage.ErrUnsupportedVersion))
	}
	blob, err := storage.Encode(schemaVersion, value)
	if err != nil {
		f.log.WithError(err).Error("Failed to encode preference")
		return storage.FailedTicket(f.key, fmt.Errorf("failed to encode preference %s: %w", f.key, err))
	}
	return f.queue.Enqueue(f.key, blob)
}
