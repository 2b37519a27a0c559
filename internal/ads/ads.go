// Package ads holds the host's side of the marketplace: the ads they publish
// and the periods during which each ad cannot be booked.
package ads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"staybook/internal/catalog"
	"staybook/internal/media"
)

// Status is the publication state of an ad.
type Status string

const (
	StatusActive   Status = "Actif"
	StatusOccupied Status = "Occupé"
	StatusPending  Status = "En attente"
)

// Ad is a listing published by the host.
type Ad struct {
	ID          string
	Title       string
	Location    string
	Price       string
	Description string
	Status      Status
	Photos      []string
}

// Cover returns the first photo, or "".
func (a Ad) Cover() string {
	if len(a.Photos) == 0 {
		return ""
	}
	return a.Photos[0]
}

// ValidationError is a form error detected before any upload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Draft holds the fields of the new ad form.
type Draft struct {
	Title       string
	Price       string
	Location    string
	Description string
	Photos      []media.Photo
}

// Validate checks the form the way the two publishing steps do: title and
// price first, then at least one photo.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" || catalog.ParsePrice(d.Price) == 0 {
		return &ValidationError{Field: "title", Message: "Titre et prix obligatoires."}
	}
	if len(d.Photos) == 0 {
		return &ValidationError{Field: "photos", Message: "Ajoutez au moins une photo pour valider."}
	}
	return nil
}

// PhotoUploader stores ad photos and returns their public URL.
type PhotoUploader interface {
	UploadPhoto(ctx context.Context, folder, ext string, r io.Reader) (string, error)
}

var errPhotosUnavailable = errors.New("photo storage is not configured")

// Ads is the host's list of ads. It lives for the screen session and is not
// persisted.
type Ads struct {
	photos PhotoUploader
	log    logrus.FieldLogger

	mu    sync.Mutex
	items []Ad
}

// NewAds returns a list holding items. photos may be nil, in which case
// publishing fails.
func NewAds(items []Ad, photos PhotoUploader, logger logrus.FieldLogger) *Ads {
	return &Ads{
		photos: photos,
		log:    logger.WithField("component", "ads"),
		items:  slices.Clone(items),
	}
}

// List returns the ads in publication order.
func (a *Ads) List() []Ad {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.items)
}

// ByID returns the ad with id.
func (a *Ads) ByID(id string) (Ad, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := slices.IndexFunc(a.items, func(ad Ad) bool { return ad.ID == id })
	if i < 0 {
		return Ad{}, false
	}
	return a.items[i], true
}

// Publish validates d, uploads its photos and adds the ad, pending review.
// Nothing is uploaded when the form is invalid.
func (a *Ads) Publish(ctx context.Context, d Draft) (Ad, error) {
	if err := d.Validate(); err != nil {
		return Ad{}, err
	}
	if a.photos == nil {
		return Ad{}, errPhotosUnavailable
	}

	log := a.log.WithFields(logrus.Fields{"title": d.Title, "photos": len(d.Photos)})
	log.Info("Attempting to publish ad")

	urls := make([]string, 0, len(d.Photos))
	for _, p := range d.Photos {
		url, err := a.photos.UploadPhoto(ctx, media.FolderListings, p.Ext, bytes.NewReader(p.Data))
		if err != nil {
			log.WithError(err).Error("Failed to upload ad photo")
			return Ad{}, err
		}
		urls = append(urls, url)
	}

	ad := Ad{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(d.Title),
		Location:    strings.TrimSpace(d.Location),
		Price:       catalog.FormatAmount(catalog.ParsePrice(d.Price)),
		Description: strings.TrimSpace(d.Description),
		Status:      StatusPending,
		Photos:      urls,
	}
	a.mu.Lock()
	a.items = append(a.items, ad)
	a.mu.Unlock()

	log.WithField("ad_id", ad.ID).Info("Ad published successfully")
	return ad, nil
}

// Delete removes the ad with id. It reports whether one was removed.
func (a *Ads) Delete(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.items)
	a.items = slices.DeleteFunc(a.items, func(ad Ad) bool { return ad.ID == id })
	if len(a.items) == n {
		return false
	}
	a.log.WithField("ad_id", id).Info("Ad deleted")
	return true
}
