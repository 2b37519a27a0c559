package media

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Folders of the identity verification photos and of the host's ad photos.
const (
	FolderPieces   = "pieces"
	FolderSelfies  = "selfies"
	FolderListings = "annonces"
)

// Photo is an image picked by the user.
type Photo struct {
	Ext  string
	Data []byte
}

// Uploader names and stores user photos.
type Uploader struct {
	bucket Bucket
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewUploader returns an uploader writing to bucket.
func NewUploader(bucket Bucket, logger logrus.FieldLogger) *Uploader {
	return &Uploader{
		bucket: bucket,
		log:    logger.WithField("component", "photo_uploader"),
		now:    time.Now,
	}
}

// UploadKYC stores an identity verification photo under folder and returns
// its public URL.
func (u *Uploader) UploadKYC(ctx context.Context, folder, ext string, r io.Reader) (string, error) {
	return u.UploadPhoto(ctx, folder, ext, r)
}

// UploadPhoto stores the photo in r under folder and returns its public URL.
// Objects are named {unix millis}-{random}.{ext}; ext defaults to jpg.
func (u *Uploader) UploadPhoto(ctx context.Context, folder, ext string, r io.Reader) (string, error) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "jpg"
	}
	name := fmt.Sprintf("%s/%d-%s.%s", folder, u.now().UnixMilli(), uuid.NewString()[:8], ext)

	log := u.log.WithFields(logrus.Fields{"folder": folder, "object": name})
	log.Info("Attempting to upload photo")

	counter := &countingReader{r: r}
	if err := u.bucket.Upload(ctx, name, counter, "image/jpeg"); err != nil {
		log.WithError(err).Error("Photo upload failed")
		return "", err
	}

	url, err := u.bucket.PublicURL(name)
	if err != nil {
		log.WithError(err).Error("Failed to resolve photo URL")
		return "", err
	}
	log.WithField("size", humanize.Bytes(uint64(counter.n))).Info("Photo uploaded successfully")
	return url, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
