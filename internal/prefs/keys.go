package prefs

import (
	"github.com/sirupsen/logrus"

	"staybook/internal/storage"
)

// Preference keys. The legacy keys were used by earlier app versions.
const (
	KeyHostMode          = "user_mode_host"
	KeyReadNotifications = "read_notifications_ids"

	legacyKeyHostMode          = "@user_mode_host"
	legacyKeyReadNotifications = "@read_notifications_ids"
)

// NewHostMode returns the host/guest mode toggle. It defaults to guest mode.
func NewHostMode(kv storage.KV, queue *storage.WriteQueue, logger logrus.FieldLogger) *Flag[bool] {
	return NewFlag(KeyHostMode, legacyKeyHostMode, false, kv, queue, logger)
}
