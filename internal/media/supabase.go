package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// SupabaseBucket stores objects in a bucket of the hosted storage API.
type SupabaseBucket struct {
	baseURL string
	apiKey  string
	bucket  string
	http    *http.Client
	log     logrus.FieldLogger
}

// NewSupabaseBucket returns a client for bucket of the project at baseURL.
func NewSupabaseBucket(baseURL, apiKey, bucket string, timeout time.Duration, logger logrus.FieldLogger) *SupabaseBucket {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SupabaseBucket{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		http:    &http.Client{Timeout: timeout},
		log:     logger.WithFields(logrus.Fields{"component": "media", "bucket": bucket}),
	}
}

var _ Bucket = (*SupabaseBucket)(nil)

// Upload creates the object at path. Existing objects are not overwritten.
func (b *SupabaseBucket) Upload(ctx context.Context, path string, r io.Reader, contentType string) error {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", b.baseURL, b.bucket, escapePath(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, r)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("apikey", b.apiKey)
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload of %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeStorageError(resp)
	}
	return nil
}

// PublicURL returns the public object address. The bucket must be public.
func (b *SupabaseBucket) PublicURL(path string) (string, error) {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", b.baseURL, b.bucket, escapePath(path)), nil
}

func escapePath(path string) string {
	parts := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func decodeStorageError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
