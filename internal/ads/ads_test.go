package ads

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/media"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return l
}

type fakeUploader struct {
	folders []string
	err     error
}

func (u *fakeUploader) UploadPhoto(_ context.Context, folder, ext string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	u.folders = append(u.folders, folder)
	return "https://cdn.example/" + folder + "/photo" + ext, nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDraft_Validate(t *testing.T) {
	photo := []media.Photo{{Ext: ".jpg", Data: []byte("x")}}
	tests := []struct {
		name  string
		draft Draft
		field string
	}{
		{"missing title", Draft{Price: "50.000", Photos: photo}, "title"},
		{"blank title", Draft{Title: "  ", Price: "50.000", Photos: photo}, "title"},
		{"missing price", Draft{Title: "Villa", Photos: photo}, "title"},
		{"price without digits", Draft{Title: "Villa", Price: "gratuit", Photos: photo}, "title"},
		{"no photo", Draft{Title: "Villa", Price: "50.000"}, "photos"},
		{"valid", Draft{Title: "Villa", Price: "50.000", Photos: photo}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestPublish(t *testing.T) {
	uploader := &fakeUploader{}
	ads := NewAds(SeedAds(), uploader, testLogger())

	ad, err := ads.Publish(context.Background(), Draft{
		Title:    " Case Lagune ",
		Price:    "75000",
		Location: "Jacqueville",
		Photos:   []media.Photo{{Ext: ".jpg", Data: []byte("a")}, {Ext: ".png", Data: []byte("b")}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ad.ID)
	assert.Equal(t, "Case Lagune", ad.Title)
	assert.Equal(t, "75.000", ad.Price)
	assert.Equal(t, StatusPending, ad.Status)
	assert.Equal(t, []string{"https://cdn.example/annonces/photo.jpg", "https://cdn.example/annonces/photo.png"}, ad.Photos)
	assert.Equal(t, []string{media.FolderListings, media.FolderListings}, uploader.folders)

	list := ads.List()
	require.Len(t, list, 5)
	assert.Equal(t, ad.ID, list[4].ID)
	got, ok := ads.ByID(ad.ID)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example/annonces/photo.jpg", got.Cover())
}

func TestPublish_ValidatesBeforeUploading(t *testing.T) {
	uploader := &fakeUploader{}
	ads := NewAds(nil, uploader, testLogger())

	_, err := ads.Publish(context.Background(), Draft{Title: "Villa", Price: "50.000"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Ajoutez au moins une photo pour valider.", ve.Message)
	assert.Empty(t, uploader.folders)
	assert.Empty(t, ads.List())
}

func TestPublish_UploadFailureAddsNothing(t *testing.T) {
	boom := errors.New("bucket offline")
	ads := NewAds(nil, &fakeUploader{err: boom}, testLogger())

	_, err := ads.Publish(context.Background(), Draft{
		Title: "Villa", Price: "50.000", Photos: []media.Photo{{Data: []byte("x")}},
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, ads.List())

	_, err = NewAds(nil, nil, testLogger()).Publish(context.Background(), Draft{
		Title: "Villa", Price: "50.000", Photos: []media.Photo{{Data: []byte("x")}},
	})
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	ads := NewAds(SeedAds(), nil, testLogger())
	assert.True(t, ads.Delete("3"))
	assert.False(t, ads.Delete("3"))
	_, ok := ads.ByID("3")
	assert.False(t, ok)
	assert.Len(t, ads.List(), 3)
}

func TestUnavailabilities_ListFiltersAndSorts(t *testing.T) {
	blocks := NewUnavailabilities(SeedUnavailabilities(), func() time.Time { return day("2024-05-02") })

	all := blocks.List("1", FilterAll)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(all), "latest start first")

	assert.Equal(t, []string{"1", "2"}, ids(blocks.List("1", FilterUpcoming)), "a block not yet over is upcoming")
	assert.Equal(t, []string{"3", "4"}, ids(blocks.List("1", FilterPast)))
	assert.Empty(t, blocks.List("2", FilterAll))

	assert.Equal(t, 4, blocks.Count("1"))
	assert.Zero(t, blocks.Count("2"))
}

func TestUnavailabilities_Block(t *testing.T) {
	blocks := NewUnavailabilities(nil, func() time.Time { return day("2026-03-01") })

	_, err := blocks.Block("2", day("2026-04-01"), day("2026-04-03"), "   ")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "reason", ve.Field)

	_, err = blocks.Block("2", day("2026-04-03"), day("2026-04-01"), "Travaux")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "end", ve.Field)
	assert.Empty(t, blocks.List("2", FilterAll))

	single, err := blocks.Block("2", day("2026-04-01"), day("2026-04-01"), "Occupation")
	require.NoError(t, err, "a one-day block is valid")
	later, err := blocks.Block("2", day("2026-05-10"), day("2026-05-12"), " Travaux ")
	require.NoError(t, err)
	assert.Equal(t, "Travaux", later.Reason)

	assert.Equal(t, []string{later.ID, single.ID}, ids(blocks.List("2", FilterUpcoming)))
	assert.Empty(t, blocks.List("2", FilterPast))
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{
		"":        FilterAll,
		"Tous":    FilterAll,
		"avenir":  FilterUpcoming,
		"À venir": FilterUpcoming,
		"a-venir": FilterUpcoming,
		"Terminé": FilterPast,
		"termine": FilterPast,
	} {
		got, err := ParseFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFilter("demain")
	assert.Error(t, err)
}

func ids(items []Unavailability) []string {
	out := make([]string, 0, len(items))
	for _, u := range items {
		out = append(out, u.ID)
	}
	return out
}
