package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedVersion is returned when a blob was written by a newer schema
// than the reader understands.
var ErrUnsupportedVersion = errors.New("unsupported schema version")

// LegacyVersion is reported for blobs written without an envelope.
const LegacyVersion = 0

// envelope wraps every persisted blob with its schema version.
type envelope struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Data    json.RawMessage `json:"data"`
}

// Encode wraps payload in a versioned envelope.
func Encode(version int, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	blob, err := json.Marshal(envelope{
		Version: version,
		SavedAt: time.Now().UTC(),
		Data:    data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return blob, nil
}

// Decode unwraps blob into out and returns the schema version it was written with.
// A bare JSON value (no envelope) is decoded directly and reported as LegacyVersion.
// Blobs newer than maxVersion are rejected with ErrUnsupportedVersion.
func Decode(blob []byte, maxVersion int, out any) (int, error) {
	trimmed := bytes.TrimSpace(blob)
	if len(trimmed) == 0 {
		return 0, errors.New("empty blob")
	}

	if trimmed[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return 0, fmt.Errorf("failed to decode blob: %w", err)
		}
		if _, ok := fields["version"]; ok {
			var env envelope
			if err := json.Unmarshal(trimmed, &env); err != nil {
				return 0, fmt.Errorf("failed to decode envelope: %w", err)
			}
			if env.Version > maxVersion {
				return env.Version, fmt.Errorf("%w: %d (max %d)", ErrUnsupportedVersion, env.Version, maxVersion)
			}
			if err := json.Unmarshal(env.Data, out); err != nil {
				return env.Version, fmt.Errorf("failed to decode payload v%d: %w", env.Version, err)
			}
			return env.Version, nil
		}
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return LegacyVersion, fmt.Errorf("failed to decode legacy payload: %w", err)
	}
	return LegacyVersion, nil
}
