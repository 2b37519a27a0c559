package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/sirupsen/logrus"
)

// CloudinaryBucket stores images on Cloudinary. Object paths become public
// IDs without their extension, so the delivery URL can pick the format.
type CloudinaryBucket struct {
	cld *cloudinary.Cloudinary
	log logrus.FieldLogger
}

// NewCloudinaryBucket creates a bucket for the given account.
func NewCloudinaryBucket(cloudName, apiKey, apiSecret string, logger logrus.FieldLogger) (*CloudinaryBucket, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryBucket{
		cld: cld,
		log: logger.WithFields(logrus.Fields{"component": "media", "cloud": cloudName}),
	}, nil
}

var _ Bucket = (*CloudinaryBucket)(nil)

// Upload sends the image in r under the public ID derived from p.
func (b *CloudinaryBucket) Upload(ctx context.Context, p string, r io.Reader, contentType string) error {
	result, err := b.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     publicID(p),
		ResourceType: "image",
		Overwrite:    api.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("upload of %s failed: %w", p, err)
	}
	if result.Error.Message != "" {
		return &APIError{Status: 400, Message: result.Error.Message}
	}
	b.log.WithFields(logrus.Fields{
		"public_id":  result.PublicID,
		"secure_url": result.SecureURL,
	}).Debug("Image stored")
	return nil
}

// PublicURL returns the delivery URL of the image stored at p.
func (b *CloudinaryBucket) PublicURL(p string) (string, error) {
	img, err := b.cld.Image(strings.TrimLeft(p, "/"))
	if err != nil {
		return "", fmt.Errorf("failed to build image asset: %w", err)
	}
	u, err := img.String()
	if err != nil {
		return "", fmt.Errorf("failed to build image url: %w", err)
	}
	return u, nil
}

func publicID(p string) string {
	p = strings.TrimLeft(p, "/")
	return strings.TrimSuffix(p, path.Ext(p))
}
