// Package favorites keeps the user's liked listings for the lifetime of the
// application and mirrors them to device storage after every change.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"staybook/internal/domain"
	"staybook/internal/storage"
)

const (
	// StorageKey holds the favorites blob.
	StorageKey = "favorites"
	// legacyStorageKey is where older app versions kept a bare JSON array.
	legacyStorageKey = "@app_favorites_storage"

	schemaVersion = 1
)

// ErrMissingID is returned when toggling a listing without an identifier.
var ErrMissingID = errors.New("listing has no id")

// Store is the in-memory favorites collection. Memory is the source of truth
// for the session; storage is a best-effort mirror for the next one.
type Store struct {
	kv    storage.KV
	queue *storage.WriteQueue
	log   logrus.FieldLogger

	mu    sync.Mutex
	items []domain.Listing
	// newer is set when storage holds a newer format than this build writes.
	// Changes then stay in memory so that data is never overwritten.
	newer bool
}

// NewStore creates an empty store. Call Load once at startup.
func NewStore(kv storage.KV, queue *storage.WriteQueue, logger logrus.FieldLogger) *Store {
	return &Store{
		kv:    kv,
		queue: queue,
		log:   logger.WithField("component", "favorites"),
	}
}

// Load replaces the in-memory collection with the persisted one. Missing or
// unreadable data leaves the collection empty; failures are logged only.
func (s *Store) Load(ctx context.Context) {
	items, migrated, newer := s.read(ctx)

	s.mu.Lock()
	s.items = items
	s.newer = newer
	if migrated {
		s.persist(items)
	}
	s.mu.Unlock()

	s.log.WithField("count", len(items)).Info("Favorites loaded")
}

// read fetches the blob, falling back to the legacy key. migrated is true when
// the data came in an older format and should be rewritten; newer is true when
// the blob under StorageKey was written by a newer schema.
func (s *Store) read(ctx context.Context) (items []domain.Listing, migrated, newer bool) {
	key := StorageKey
	blob, found, err := s.kv.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).Error("Failed to read favorites, starting empty")
		return nil, false, false
	}
	if !found {
		key = legacyStorageKey
		blob, found, err = s.kv.Get(ctx, key)
		if err != nil || !found {
			if err != nil {
				s.log.WithError(err).Error("Failed to read legacy favorites, starting empty")
			}
			return nil, false, false
		}
	}

	version, err := storage.Decode(blob, schemaVersion, &items)
	if errors.Is(err, storage.ErrUnsupportedVersion) && key == StorageKey {
		s.log.WithError(err).Warn("Favorites written by a newer version, changes will not be saved")
		return nil, false, true
	}
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Corrupt favorites blob, starting empty")
		return nil, false, false
	}

	items = dedupe(items)
	return items, version < schemaVersion || key != StorageKey, false
}

// dedupe drops entries without an id and repeated ids, keeping the first occurrence.
func dedupe(items []domain.Listing) []domain.Listing {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, l := range items {
		if l.ID == "" {
			continue
		}
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Toggle removes the listing when it is a favorite and appends it otherwise.
// The returned slice is the updated collection; the ticket completes when the
// whole collection has been written to storage.
func (s *Store) Toggle(listing domain.Listing) ([]domain.Listing, storage.Ticket, error) {
	if listing.ID == "" {
		return nil, storage.Ticket{}, ErrMissingID
	}

	s.mu.Lock()
	next := make([]domain.Listing, 0, len(s.items)+1)
	removed := false
	for _, l := range s.items {
		if l.ID == listing.ID {
			removed = true
			continue
		}
		next = append(next, l)
	}
	if !removed {
		next = append(next, listing)
	}
	s.items = next
	ticket := s.persist(next)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"listing_id": listing.ID,
		"liked":      !removed,
		"count":      len(next),
	}).Info("Favorite toggled")
	return clone(next), ticket, nil
}

// persist enqueues a full snapshot. Callers hold mu, which keeps enqueue order
// identical to mutation order.
func (s *Store) persist(items []domain.Listing) storage.Ticket {
	if s.newer {
		s.log.Warn("Favorites kept in memory only, stored data has a newer format")
		return storage.FailedTicket(StorageKey, fmt.Errorf("favorites not saved: %w", storage.ErrUnsupportedVersion))
	}
	if items == nil {
		items = []domain.Listing{}
	}
	blob, err := storage.Encode(schemaVersion, items)
	if err != nil {
		s.log.WithError(err).Error("Failed to encode favorites")
		return storage.FailedTicket(StorageKey, fmt.Errorf("failed to encode favorites: %w", err))
	}
	return s.queue.Enqueue(StorageKey, blob)
}

// IsFavorite reports whether id is in the collection. No I/O.
func (s *Store) IsFavorite(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.items {
		if l.ID == id {
			return true
		}
	}
	return false
}

// List returns a copy of the collection in insertion order.
func (s *Store) List() []domain.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.items)
}

// Len returns the number of favorites.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Flush waits for pending writes to land.
func (s *Store) Flush(ctx context.Context) error {
	return s.queue.Flush(ctx)
}

func clone(items []domain.Listing) []domain.Listing {
	out := make([]domain.Listing, len(items))
	copy(out, items)
	return out
}
