package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// KV is the device-local key-value storage used by the client stores.
// Values are opaque bytes (JSON-encoded by the caller). Lookups are by exact key
// only and there are no transactions spanning several keys.
type KV interface {
	// Get returns the value stored under key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close gracefully shuts down the storage.
	Close() error
}

// Supported storage drivers.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Open opens the key-value storage selected by driver at path.
func Open(driver, path string, logger logrus.FieldLogger) (KV, error) {
	switch driver {
	case DriverBadger, "":
		return NewBadgerStore(path, logger)
	case DriverSQLite:
		return NewSQLiteStore(path, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
