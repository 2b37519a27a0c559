package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// BadgerStore implements KV on top of BadgerDB.
type BadgerStore struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// NewBadgerStore opens (or creates) a BadgerDB database at dbPath.
func NewBadgerStore(dbPath string, logger logrus.FieldLogger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}
	logger.Info("BadgerDB opened successfully at path: ", dbPath)

	return &BadgerStore{
		db:  db,
		log: logger.WithField("component", "kv"),
	}, nil
}

// Close closes the BadgerDB database.
func (s *BadgerStore) Close() error {
	s.log.Info("Closing BadgerDB...")
	if err := s.db.Close(); err != nil {
		s.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	s.log.Info("BadgerDB closed.")
	return nil
}

// badgerKey namespaces store keys so the database can later hold other record kinds.
// Format: kv:{key}
func badgerKey(key string) []byte {
	return []byte("kv:" + key)
}

// Get reads the value stored under key.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	log := s.log.WithField("key", key)

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		log.Debug("Key not found")
		return nil, false, nil
	}
	if err != nil {
		log.WithError(err).Error("Failed to read key from BadgerDB")
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	log.WithField("bytes", len(value)).Debug("Key read")
	return value, true, nil
}

// Set stores value under key, overwriting any previous value.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte) error {
	log := s.log.WithFields(logrus.Fields{
		"key":   key,
		"bytes": len(value),
	})

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(badgerKey(key), value))
	})
	if err != nil {
		log.WithError(err).Error("Failed to write key to BadgerDB")
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	log.Debug("Key written")
	return nil
}

// Delete removes key. Badger deletes are idempotent.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(key))
	})
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("Failed to delete key from BadgerDB")
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// --- BadgerDB Internal Logger ---

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Infof(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
