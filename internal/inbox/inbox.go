// Package inbox lists the user's notifications with their read state.
package inbox

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"staybook/internal/domain"
	"staybook/internal/storage"
)

//go:embed notifications.json
var seedNotifications []byte

// ErrUnknownNotification is returned by Open for an id not in the inbox.
var ErrUnknownNotification = errors.New("unknown notification")

// ReadTracker remembers which notifications were opened.
type ReadTracker interface {
	MarkRead(id string) (bool, storage.Ticket)
	IsRead(id string) bool
	UnreadCount(known []string) int
}

// Inbox is the fixed list of known notifications.
type Inbox struct {
	items []domain.Notification
	read  ReadTracker
	log   logrus.FieldLogger
}

// New returns an inbox of items tracked by read.
func New(items []domain.Notification, read ReadTracker, logger logrus.FieldLogger) *Inbox {
	return &Inbox{
		items: slices.Clone(items),
		read:  read,
		log:   logger.WithField("component", "inbox"),
	}
}

// Load returns the inbox of bundled notifications.
func Load(read ReadTracker, logger logrus.FieldLogger) (*Inbox, error) {
	var items []domain.Notification
	if err := json.Unmarshal(seedNotifications, &items); err != nil {
		return nil, fmt.Errorf("failed to decode bundled notifications: %w", err)
	}
	return New(items, read, logger), nil
}

// List returns the notifications with their read state filled in.
func (i *Inbox) List() []domain.Notification {
	out := slices.Clone(i.items)
	for k := range out {
		out[k].Read = i.read.IsRead(out[k].ID)
	}
	return out
}

// Open marks the notification read and returns it. The ticket resolves when
// the read state is stored.
func (i *Inbox) Open(id string) (domain.Notification, storage.Ticket, error) {
	idx := slices.IndexFunc(i.items, func(n domain.Notification) bool { return n.ID == id })
	if idx < 0 {
		return domain.Notification{}, storage.Ticket{}, ErrUnknownNotification
	}

	changed, ticket := i.read.MarkRead(id)
	if changed {
		i.log.WithField("notification_id", id).Debug("Notification marked read")
	}
	n := i.items[idx]
	n.Read = true
	return n, ticket, nil
}

// UnreadCount is the badge count of the inbox.
func (i *Inbox) UnreadCount() int {
	ids := make([]string, 0, len(i.items))
	for _, n := range i.items {
		ids = append(ids, n.ID)
	}
	return i.read.UnreadCount(ids)
}
