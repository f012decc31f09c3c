// Package spdu implements decryption of CCSDS Session Protocol Data Units,
// the encryption wrapper around a transported xRIT file. The data field is
// DES-encrypted in ECB mode under a key selected by the key header inside
// the xRIT header chain.
package spdu

import (
	"crypto/des"
	"encoding/binary"
	"fmt"

	"github.com/rcarmo/go-xrit/internal/protocol/encoding"
)

const (
	primaryHeaderLen  = 16
	primaryHeaderBits = primaryHeaderLen * 8

	keyHeaderType = 7
	desBlockLen   = 8
)

// PlainKeyIndex marks an unencrypted file.
const PlainKeyIndex = 0x0000

// Result is the outcome of processing one S_PDU.
type Result struct {
	// Plaintext is the full xRIT byte stream: header field followed by the
	// (decrypted) data field. For unencrypted input it is the input itself.
	Plaintext []byte
	KeyIndex  uint16
	// Decrypted is set when a DES key was applied.
	Decrypted bool
	// UnknownKey is set when the key index was not in the table; the data
	// field is passed through still encrypted.
	UnknownKey bool
	// Padding is the number of null bytes appended to fill the last DES
	// block.
	Padding int
}

// Decrypt parses the xRIT primary and key headers of an S_PDU and decrypts
// the data field when a known key applies. An empty key table disables
// decryption entirely.
func Decrypt(data []byte, keys map[uint16][]byte) (*Result, error) {
	if len(keys) == 0 {
		return &Result{Plaintext: data}, nil
	}

	if len(data) < primaryHeaderLen {
		return nil, fmt.Errorf("spdu: %d bytes, need %d for primary header", len(data), primaryHeaderLen)
	}

	header := data[:primaryHeaderLen]
	totalHeaderLen, _ := encoding.ReadBits(header, 32, 32, primaryHeaderBits)
	dataLenBits, _ := encoding.ReadBits(header, 64, 64, primaryHeaderBits)
	dataLen := int(dataLenBits / 8)

	if int(totalHeaderLen) > len(data) {
		return nil, fmt.Errorf("spdu: header field %d bytes beyond %d available", totalHeaderLen, len(data))
	}

	headerField := data[:totalHeaderLen]
	dataField := data[totalHeaderLen:]
	if dataLen < len(dataField) {
		dataField = dataField[:dataLen]
	}

	index, ok := findKeyIndex(headerField)
	if !ok || index == PlainKeyIndex {
		return &Result{Plaintext: data, KeyIndex: index}, nil
	}

	key, ok := keys[index]
	if !ok {
		return &Result{Plaintext: data, KeyIndex: index, UnknownKey: true}, nil
	}

	// Fill the last DES block with null bytes.
	padding := 0
	if rem := len(dataField) % desBlockLen; rem != 0 {
		padding = desBlockLen - rem
		padded := make([]byte, len(dataField)+padding)
		copy(padded, dataField)
		dataField = padded
	}

	block, err := des.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("spdu: key %#04x: %w", index, err)
	}

	plain := make([]byte, 0, len(headerField)+len(dataField))
	plain = append(plain, headerField...)
	buf := make([]byte, desBlockLen)
	for off := 0; off < len(dataField); off += desBlockLen {
		block.Decrypt(buf, dataField[off:off+desBlockLen])
		plain = append(plain, buf...)
	}

	return &Result{
		Plaintext: plain,
		KeyIndex:  index,
		Decrypted: true,
		Padding:   padding,
	}, nil
}

// findKeyIndex walks the header chain looking for the key header (type 7)
// and returns the 2-byte key index from its value field. Each record is
// {type:1, length:2 big-endian, value}; the index sits after two reserved
// value bytes. A chain without a key header yields (0, false).
func findKeyIndex(headerField []byte) (uint16, bool) {
	offset := 0
	for offset+3 <= len(headerField) {
		htype := headerField[offset]
		hlen := int(binary.BigEndian.Uint16(headerField[offset+1 : offset+3]))
		if hlen < 3 {
			return 0, false
		}
		if htype == keyHeaderType {
			if offset+7 > len(headerField) || offset+hlen > len(headerField) {
				return 0, false
			}
			return binary.BigEndian.Uint16(headerField[offset+5 : offset+7]), true
		}
		offset += hlen
	}
	return 0, false
}
