package prefs

import (
	"context"
	"slices"

	"github.com/sirupsen/logrus"

	"staybook/internal/storage"
)

// ReadSet tracks which notifications the user has opened.
type ReadSet struct {
	flag *Flag[[]string]
}

// NewReadSet returns an empty read set backed by its own storage key.
func NewReadSet(kv storage.KV, queue *storage.WriteQueue, logger logrus.FieldLogger) *ReadSet {
	return &ReadSet{
		flag: NewFlag[[]string](KeyReadNotifications, legacyKeyReadNotifications, nil, kv, queue, logger),
	}
}

// Load reads the persisted ids.
func (r *ReadSet) Load(ctx context.Context) {
	r.flag.Load(ctx)
}

// MarkRead adds id to the set. changed is false when id was already read,
// in which case nothing is written.
func (r *ReadSet) MarkRead(id string) (changed bool, ticket storage.Ticket) {
	if r.IsRead(id) {
		return false, storage.Ticket{}
	}
	_, ticket = r.flag.Update(func(ids []string) []string {
		if slices.Contains(ids, id) {
			return ids
		}
		changed = true
		next := make([]string, len(ids), len(ids)+1)
		copy(next, ids)
		return append(next, id)
	})
	return changed, ticket
}

// IsRead reports whether id has been opened.
func (r *ReadSet) IsRead(id string) bool {
	return slices.Contains(r.flag.Get(), id)
}

// IDs returns the read ids in the order they were read.
func (r *ReadSet) IDs() []string {
	return slices.Clone(r.flag.Get())
}

// UnreadCount returns how many of the known notification ids have not been read.
// Read ids that are not known do not lower the count, so it never goes negative.
func (r *ReadSet) UnreadCount(known []string) int {
	read := r.flag.Get()
	seen := make(map[string]struct{}, len(known))
	unread := 0
	for _, id := range known {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !slices.Contains(read, id) {
			unread++
		}
	}
	return unread
}
