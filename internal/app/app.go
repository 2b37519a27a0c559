// Package app owns the long-lived state of one installation and hands it to
// the front-ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"staybook/internal/account"
	"staybook/internal/ads"
	"staybook/internal/auth"
	"staybook/internal/booking"
	"staybook/internal/catalog"
	"staybook/internal/config"
	"staybook/internal/favorites"
	"staybook/internal/inbox"
	"staybook/internal/media"
	"staybook/internal/prefs"
	"staybook/internal/session"
	"staybook/internal/storage"
)

// App is the application state. Screens receive it by reference.
type App struct {
	Config config.Config

	KV    storage.KV
	Queue *storage.WriteQueue

	Favorites *favorites.Store
	HostMode  *prefs.Flag[bool]
	ReadSet   *prefs.ReadSet

	Auth    auth.Provider
	Account *account.Service
	Gate    *session.Gate

	Catalog  *catalog.Catalog
	Bookings *booking.Bookings
	Received *booking.Received
	Inbox    *inbox.Inbox

	Ads              *ads.Ads
	Unavailabilities *ads.Unavailabilities

	base   logrus.FieldLogger
	log    logrus.FieldLogger
	bucket media.Bucket

	stopOnce sync.Once
	stopErr  error
}

// Option overrides a dependency built by New.
type Option func(*options)

type options struct {
	kv       storage.KV
	provider auth.Provider
	bucket   media.Bucket
}

// WithKV uses kv instead of opening the configured store. New takes ownership of it.
func WithKV(kv storage.KV) Option {
	return func(o *options) { o.kv = kv }
}

// WithProvider uses p instead of the hosted auth client.
func WithProvider(p auth.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithBucket uses b for identity photos instead of the configured backend.
func WithBucket(b media.Bucket) Option {
	return func(o *options) { o.bucket = b }
}

// New opens local storage and builds every component. Nothing is loaded
// until Load or Start.
func New(cfg config.Config, logger logrus.FieldLogger, opts ...Option) (*App, error) {
	log := logger.WithField("component", "app")
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	kv := o.kv
	if kv == nil {
		var err error
		kv, err = storage.Open(cfg.StorageDriver, cfg.StoragePath(), logger)
		if err != nil {
			log.WithError(err).Error("Failed to open local storage")
			return nil, fmt.Errorf("failed to open local storage: %w", err)
		}
	}

	a := &App{Config: cfg, KV: kv, base: logger, log: log}
	if err := a.build(logger, o); err != nil {
		_ = kv.Close()
		return nil, err
	}
	log.WithField("storage_driver", cfg.StorageDriver).Info("Application initialized")
	return a, nil
}

func (a *App) build(logger logrus.FieldLogger, o options) error {
	a.Queue = storage.NewWriteQueue(a.KV, logger)
	a.Favorites = favorites.NewStore(a.KV, a.Queue, logger)
	a.HostMode = prefs.NewHostMode(a.KV, a.Queue, logger)
	a.ReadSet = prefs.NewReadSet(a.KV, a.Queue, logger)

	a.Auth = o.provider
	if a.Auth == nil {
		a.Auth = auth.NewClient(a.Config.SupabaseURL, a.Config.SupabaseAnonKey, a.KV, logger,
			auth.WithHTTPClient(&http.Client{Timeout: a.Config.HTTPTimeout}))
	}

	a.bucket = o.bucket
	if a.bucket == nil {
		bucket, err := newBucket(a.Config, logger)
		if err != nil {
			return err
		}
		a.bucket = bucket
	}
	uploader := media.NewUploader(a.bucket, logger)
	a.Account = account.NewService(a.Auth, uploader, logger)

	var err error
	if a.Catalog, err = catalog.Load(); err != nil {
		return err
	}
	if a.Inbox, err = inbox.Load(a.ReadSet, logger); err != nil {
		return err
	}
	a.Bookings = booking.NewBookings(booking.SeedBookings())
	a.Received = booking.NewReceived(booking.SeedReceived())
	a.Ads = ads.NewAds(ads.SeedAds(), uploader, logger)
	a.Unavailabilities = ads.NewUnavailabilities(ads.SeedUnavailabilities(), time.Now)
	return nil
}

func newBucket(cfg config.Config, logger logrus.FieldLogger) (media.Bucket, error) {
	switch cfg.MediaBackend {
	case media.BackendCloudinary:
		return media.NewCloudinaryBucket(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, logger)
	case media.BackendSupabase, "":
		return media.NewSupabaseBucket(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.KYCBucket, cfg.HTTPTimeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.MediaBackend)
	}
}

// Load reads the persisted stores. Unreadable values fall back to defaults.
func (a *App) Load(ctx context.Context) {
	a.Favorites.Load(ctx)
	a.HostMode.Load(ctx)
	a.ReadSet.Load(ctx)
	a.log.WithFields(logrus.Fields{
		"favorites": a.Favorites.Len(),
		"host_mode": a.HostMode.Get(),
	}).Info("Local state loaded")
}

// Start loads the stores and puts the session gate in front of nav.
func (a *App) Start(ctx context.Context, nav session.Navigator) {
	a.Load(ctx)
	a.Gate = session.NewGate(a.Auth, nav, a.base)
	a.Gate.Start(ctx)
}

// Stop detaches the gate, writes pending changes and closes local storage.
// Later calls return the result of the first.
func (a *App) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { a.stopErr = a.stop(ctx) })
	return a.stopErr
}

func (a *App) stop(ctx context.Context) error {
	if a.Gate != nil {
		a.Gate.Stop()
	}
	var errs []error
	if err := a.Queue.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to drain pending writes: %w", err))
	}
	if err := a.KV.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close local storage: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		a.log.WithError(err).Error("Application stopped with errors")
		return err
	}
	a.log.Info("Application stopped")
	return nil
}
