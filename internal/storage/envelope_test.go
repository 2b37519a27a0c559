package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	blob, err := Encode(1, []string{"1", "2"})
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"version":1`)

	var ids []string
	version, err := Decode(blob, 1, &ids)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestDecode_LegacyBareValues(t *testing.T) {
	var ids []string
	version, err := Decode([]byte(`["1"]`), 1, &ids)
	require.NoError(t, err)
	assert.Equal(t, LegacyVersion, version)
	assert.Equal(t, []string{"1"}, ids)

	var host bool
	version, err = Decode([]byte("true"), 1, &host)
	require.NoError(t, err)
	assert.Equal(t, LegacyVersion, version)
	assert.True(t, host)

	// An object without a version field is a legacy object, not an envelope.
	var obj map[string]string
	version, err = Decode([]byte(`{"id":"7"}`), 1, &obj)
	require.NoError(t, err)
	assert.Equal(t, LegacyVersion, version)
	assert.Equal(t, "7", obj["id"])
}

func TestDecode_Rejects(t *testing.T) {
	var ids []string

	_, err := Decode([]byte(`{"version":9,"data":[]}`), 1, &ids)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Decode([]byte(`{not json`), 1, &ids)
	assert.Error(t, err)

	_, err = Decode([]byte("   "), 1, &ids)
	assert.Error(t, err)

	_, err = Decode([]byte(`{"version":1,"data":{"a":1}}`), 1, &ids)
	assert.Error(t, err, "payload shape mismatch must be reported")
}
