package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactStoreRoundTrip(t *testing.T) {
	store := NewFileArtifactStore(t.TempDir())

	data := []byte("%PDF-1.4 test artifact")
	location, err := store.Save("closure_000001.pdf", data)
	require.NoError(t, err)

	got, err := store.Read(location)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, DigestHex(data), DigestHex(got))
}

func TestArtifactStoreRejectsTraversal(t *testing.T) {
	store := NewFileArtifactStore(t.TempDir())

	_, err := store.Read("../etc/passwd")
	assert.Error(t, err)
}

func TestDigestHexStable(t *testing.T) {
	// SHA-256 of the empty input — the canonical known-answer check
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		DigestHex(nil))
	assert.Equal(t, DigestHex([]byte("abc")), DigestHex([]byte("abc")))
	assert.NotEqual(t, DigestHex([]byte("abc")), DigestHex([]byte("abd")))
}
