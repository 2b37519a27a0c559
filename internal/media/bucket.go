// Package media uploads user photos to hosted object storage.
package media

import (
	"context"
	"fmt"
	"io"
)

// Bucket is an object store that serves uploaded objects at public URLs.
type Bucket interface {
	// Upload stores the content of r at path.
	Upload(ctx context.Context, path string, r io.Reader, contentType string) error
	// PublicURL returns the address the object at path is served from.
	PublicURL(path string) (string, error)
}

// Backends selectable from configuration.
const (
	BackendSupabase   = "supabase"
	BackendCloudinary = "cloudinary"
)

// APIError is an upload rejected by the storage service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storage: %s (%d)", e.Message, e.Status)
}
