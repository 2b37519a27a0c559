package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/ads"
	"staybook/internal/auth/authtest"
	"staybook/internal/config"
	"staybook/internal/media"
	"staybook/internal/session"
	"staybook/internal/storage"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func testConfig(srv *authtest.Server, dir, driver string) config.Config {
	return config.Config{
		SupabaseURL:     srv.URL,
		SupabaseAnonKey: authtest.AnonKey,
		StorageDriver:   driver,
		BadgerDBPath:    filepath.Join(dir, "badger"),
		SQLitePath:      filepath.Join(dir, "staybook.db"),
		MediaBackend:    "supabase",
		KYCBucket:       "kyc-documents",
		HTTPTimeout:     5 * time.Second,
	}
}

func TestApp_StateSurvivesRestart(t *testing.T) {
	for _, driver := range []string{storage.DriverBadger, storage.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			srv := authtest.NewServer(t)
			srv.AddUser("awa@example.com", "secret1", nil)
			cfg := testConfig(srv, t.TempDir(), driver)
			ctx := context.Background()

			a, err := New(cfg, testLogger())
			require.NoError(t, err)
			nav := session.NewMemoryNavigator()
			a.Start(ctx, nav)
			require.NoError(t, a.Gate.Wait(ctx))
			assert.Equal(t, session.LoginRoute, nav.Current())

			_, err = a.Account.Login(ctx, "awa@example.com", "secret1")
			require.NoError(t, err)
			assert.Equal(t, session.HomeRoute, nav.Current())

			villa, ok := a.Catalog.ByID("3")
			require.True(t, ok)
			_, _, err = a.Favorites.Toggle(villa)
			require.NoError(t, err)
			a.HostMode.Set(true)
			_, _, err = a.Inbox.Open("1")
			require.NoError(t, err)
			require.NoError(t, a.Stop(ctx))
			require.NoError(t, a.Stop(ctx), "stopping twice is harmless")

			again, err := New(cfg, testLogger())
			require.NoError(t, err)
			defer again.Stop(ctx)
			nav = session.NewMemoryNavigator()
			again.Start(ctx, nav)

			assert.Equal(t, session.StateAuthenticated, again.Gate.State())
			assert.Equal(t, session.HomeRoute, nav.Current())
			assert.True(t, again.Favorites.IsFavorite("3"))
			assert.True(t, again.HostMode.Get())
			assert.Equal(t, 1, again.Inbox.UnreadCount())
		})
	}
}

func TestNew_RejectsUnknownDriver(t *testing.T) {
	srv := authtest.NewServer(t)
	cfg := testConfig(srv, t.TempDir(), "redis")
	_, err := New(cfg, testLogger())
	assert.ErrorIs(t, err, storage.ErrUnknownDriver)
}

func TestNew_CloudinaryBackend(t *testing.T) {
	srv := authtest.NewServer(t)
	cfg := testConfig(srv, t.TempDir(), storage.DriverSQLite)
	cfg.MediaBackend = "cloudinary"
	cfg.CloudinaryCloudName = "demo"
	cfg.CloudinaryAPIKey = "key"
	cfg.CloudinaryAPISecret = "secret"

	a, err := New(cfg, testLogger())
	require.NoError(t, err)
	defer a.Stop(context.Background())
	assert.NotNil(t, a.Account)
}

// pathBucket records uploaded object paths.
type pathBucket struct {
	paths []string
}

func (b *pathBucket) Upload(_ context.Context, path string, r io.Reader, _ string) error {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	b.paths = append(b.paths, path)
	return nil
}

func (b *pathBucket) PublicURL(path string) (string, error) {
	return "https://cdn.example/" + path, nil
}

func TestNew_HostAdsShareTheBucket(t *testing.T) {
	srv := authtest.NewServer(t)
	bucket := &pathBucket{}
	a, err := New(testConfig(srv, t.TempDir(), storage.DriverSQLite), testLogger(), WithBucket(bucket))
	require.NoError(t, err)
	defer a.Stop(context.Background())

	require.Len(t, a.Ads.List(), 4)
	assert.Equal(t, 4, a.Unavailabilities.Count("1"))

	ad, err := a.Ads.Publish(context.Background(), ads.Draft{
		Title: "Case Lagune", Price: "75.000", Photos: []media.Photo{{Ext: ".jpg", Data: []byte("x")}},
	})
	require.NoError(t, err)
	require.Len(t, bucket.paths, 1)
	assert.True(t, strings.HasPrefix(bucket.paths[0], media.FolderListings+"/"))
	assert.Equal(t, "https://cdn.example/"+bucket.paths[0], ad.Cover())
}
