// Package keystore loads the DES key table used for S_PDU decryption.
//
// The key file is a binary record set: a big-endian uint16 record count
// followed by records of a uint16 key index and an 8-byte DES key. An empty
// path, or a file declaring zero records, yields an empty table, which
// disables decryption; a missing or truncated file is an error.
package keystore

import (
	"encoding/binary"
	"fmt"
	"os"
)

const (
	countLen  = 2
	indexLen  = 2
	keyLen    = 8
	recordLen = indexLen + keyLen
)

// Load reads the key table at path. An empty path is not an error: it
// returns an empty table.
func Load(path string) (map[uint16][]byte, error) {
	keys := make(map[uint16][]byte)
	if path == "" {
		return keys, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}

	if len(data) < countLen {
		return nil, fmt.Errorf("keystore: %s: %d bytes, need at least %d", path, len(data), countLen)
	}

	count := int(binary.BigEndian.Uint16(data[:countLen]))
	want := countLen + count*recordLen
	if len(data) < want {
		return nil, fmt.Errorf("keystore: %s: %d bytes, need %d for %d records", path, len(data), want, count)
	}

	for i := 0; i < count; i++ {
		off := countLen + i*recordLen
		index := binary.BigEndian.Uint16(data[off : off+indexLen])
		key := make([]byte, keyLen)
		copy(key, data[off+indexLen:off+recordLen])
		keys[index] = key
	}

	return keys, nil
}
