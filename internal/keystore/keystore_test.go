package keystore

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyFile(t *testing.T, records map[uint16][]byte) string {
	t.Helper()

	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(len(records)))
	// Deterministic order is not required by the format.
	for index, key := range records {
		rec := make([]byte, 2)
		binary.BigEndian.PutUint16(rec, index)
		buf = append(buf, rec...)
		buf = append(buf, key...)
	}

	path := filepath.Join(t.TempDir(), "keys.bin")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestLoad(t *testing.T) {
	want := map[uint16][]byte{
		0x0001: {0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF},
		0x0002: {0xFE, 0xDC, 0xBA, 0x98, 0x76, 0x54, 0x32, 0x10},
	}

	keys, err := Load(writeKeyFile(t, want))
	require.NoError(t, err)
	assert.Equal(t, want, keys)
}

func TestLoadEmptyPath(t *testing.T) {
	keys, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.bin"))
	assert.Error(t, err)
}

func TestLoadTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.bin")

	// Declares two records but carries only one.
	buf := []byte{0x00, 0x02, 0x00, 0x01, 1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
