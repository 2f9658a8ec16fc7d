package persistence

import (
	"errors"
	"fmt"
	"strings"
)

// Magic identifies savegame files.
var Magic = [4]byte{'F', '8', 'S', 'G'}

// Version is the current file format version.
const Version uint16 = 1

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrInvalidVersion     = errors.New("unsupported version")
	ErrUnknownCodec       = errors.New("unknown codec")
	ErrUnknownCompression = errors.New("unknown compression")
	ErrTruncated          = errors.New("truncated savegame")
)

// header is the fixed-size prefix of every savegame. The codec name of
// CodecLen bytes and then the body follow it.
type header struct {
	Magic       [4]byte
	Version     uint16
	Compression Compression
	CodecLen    uint8
	RawLength   uint64 // encoded document size before compression
	BodyLength  uint64 // size of the body as stored
	Checksum    uint32 // CRC32 of the encoded document
}

// Compression names the algorithm applied to the encoded document.
type Compression uint8

const (
	// CompressionNone stores the document as encoded.
	CompressionNone Compression = 0
	// CompressionZstd favors ratio; the default.
	CompressionZstd Compression = 1
	// CompressionLZ4 favors speed.
	CompressionLZ4 Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses the String form of a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
	}
}
