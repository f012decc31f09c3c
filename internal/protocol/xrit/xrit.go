// Package xrit implements parsing and emission of LRIT/HRIT files: the
// header chain walk for the annotation filename and the date/mode-structured
// output tree.
package xrit

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rcarmo/go-xrit/internal/protocol/encoding"
)

const (
	primaryHeaderLen  = 16
	primaryHeaderBits = primaryHeaderLen * 8

	annotationHeaderType = 4
	// Record value bytes start after {type:1, length:2}.
	recordValueOffset = 3
)

var fileTypeNames = map[uint8]string{
	0:   "Image",
	1:   "GTS",
	2:   "AlphanumericText",
	3:   "KeyMessage",
	128: "CMDPS",
	129: "NWP",
	130: "GOCI",
	131: "Typhoon",
}

var ErrNoAnnotation = errors.New("xrit: no annotation text header")

// File is a parsed xRIT file ready for emission. Data holds the full raw
// byte stream, headers and data field alike.
type File struct {
	FileType       uint8
	TotalHeaderLen int
	DataLen        int
	Filename       string
	Data           []byte
}

// Parse decodes the primary header and walks the header chain to the
// annotation text record carrying the filename.
func Parse(data []byte) (*File, error) {
	if len(data) < primaryHeaderLen {
		return nil, fmt.Errorf("xrit: %d bytes, need %d for primary header", len(data), primaryHeaderLen)
	}

	header := data[:primaryHeaderLen]
	fileType, _ := encoding.ReadBits(header, 24, 8, primaryHeaderBits)
	totalHeaderLen, _ := encoding.ReadBits(header, 32, 32, primaryHeaderBits)
	dataLenBits, _ := encoding.ReadBits(header, 64, 64, primaryHeaderBits)

	f := &File{
		FileType:       uint8(fileType),
		TotalHeaderLen: int(totalHeaderLen),
		DataLen:        int(dataLenBits / 8),
		Data:           data,
	}

	name, err := annotation(data, f.TotalHeaderLen)
	if err != nil {
		return nil, err
	}
	f.Filename = name

	return f, nil
}

// annotation walks the header records following the primary header until the
// annotation text record and decodes its value as the filename.
func annotation(data []byte, totalHeaderLen int) (string, error) {
	end := totalHeaderLen
	if end > len(data) {
		end = len(data)
	}

	offset := primaryHeaderLen
	for offset+recordValueOffset <= end {
		htype := data[offset]
		hlen := int(binary.BigEndian.Uint16(data[offset+1 : offset+3]))
		if hlen < recordValueOffset || offset+hlen > end {
			break
		}
		if htype == annotationHeaderType {
			return string(data[offset+recordValueOffset : offset+hlen]), nil
		}
		offset += hlen
	}

	return "", ErrNoAnnotation
}

// TypeName returns the descriptive label for the file type, or "Type<n>"
// with the numeric value for unknown types.
func (f *File) TypeName() string {
	if name, ok := fileTypeNames[f.FileType]; ok {
		return name
	}
	return fmt.Sprintf("Type%d", f.FileType)
}

// SavePath derives <root>/<date>/<mode>/<filename> from the underscore-
// delimited annotation filename. IMG names carry the observation mode in
// field 1 and the date in field 4; ADD names in fields 1 and 3.
func (f *File) SavePath(root string) (string, error) {
	fields := strings.Split(f.Filename, "_")

	var mode, date string
	switch {
	case len(fields) >= 7 && fields[0] == "IMG":
		mode, date = fields[1], fields[4]
	case len(fields) >= 6 && fields[0] == "ADD":
		mode, date = fields[1], fields[3]
	default:
		return "", fmt.Errorf("xrit: unrecognized filename %q", f.Filename)
	}

	return filepath.Join(root, date, mode, f.Filename), nil
}

// Save writes the raw xRIT byte stream under root, creating intermediate
// directories as needed, and returns the written path.
func (f *File) Save(root string) (string, error) {
	path, err := f.SavePath(root)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("xrit: %w", err)
	}
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return "", fmt.Errorf("xrit: %w", err)
	}

	return path, nil
}

// Date returns the transmission date parsed out of the annotation filename,
// or "" when the name has no recognizable date field.
func (f *File) Date() string {
	fields := strings.Split(f.Filename, "_")
	switch {
	case len(fields) >= 7 && fields[0] == "IMG":
		return fields[4]
	case len(fields) >= 6 && fields[0] == "ADD":
		return fields[3]
	}
	return ""
}

// Mode returns the observation mode field of the annotation filename, or "".
func (f *File) Mode() string {
	fields := strings.Split(f.Filename, "_")
	if len(fields) >= 2 && (fields[0] == "IMG" || fields[0] == "ADD") {
		return fields[1]
	}
	return ""
}
