package persistence

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cosh/fallen-8-core-sub000/codec"
	"github.com/cosh/fallen-8-core-sub000/resource"
)

// Option configures encoding and decoding.
type Option func(*options)

type options struct {
	codec       codec.Codec
	compression Compression
	controller  *resource.Controller
}

func defaultOptions() options {
	return options{
		codec:       codec.Default,
		compression: CompressionZstd,
	}
}

// WithCodec sets the codec new savegames are encoded with. Decoding always
// uses the codec named in the header.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithCompression sets the compression of new savegames.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithController throttles savegame IO with the controller's IO limit.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// Encode writes doc to w as a savegame.
func Encode(ctx context.Context, w io.Writer, doc *Document, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	raw, err := o.codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	body, applied, err := compress(raw, o.compression)
	if err != nil {
		return fmt.Errorf("compress document: %w", err)
	}

	name := o.codec.Name()
	if len(name) > 255 {
		return fmt.Errorf("%w: name too long", ErrUnknownCodec)
	}
	h := header{
		Magic:       Magic,
		Version:     Version,
		Compression: applied,
		CodecLen:    uint8(len(name)),
		RawLength:   uint64(len(raw)),
		BodyLength:  uint64(len(body)),
		Checksum:    Checksum(raw),
	}

	rw := resource.NewRateLimitedWriter(ctx, w, o.controller)
	if err := binary.Write(rw, binary.LittleEndian, &h); err != nil {
		return err
	}
	if _, err := io.WriteString(rw, name); err != nil {
		return err
	}
	_, err = rw.Write(body)
	return err
}

// Marshal returns doc encoded as a savegame.
func Marshal(ctx context.Context, doc *Document, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(ctx, &buf, doc, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Info describes a savegame without its document.
type Info struct {
	Version     uint16
	Codec       string
	Compression Compression
	RawLength   uint64
	BodyLength  uint64
}

func readHeader(r io.Reader) (header, string, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, "", fmt.Errorf("%w: header: %w", ErrTruncated, err)
	}
	if h.Magic != Magic {
		return h, "", ErrInvalidMagic
	}
	if h.Version != Version {
		return h, "", fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}
	name := make([]byte, h.CodecLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return h, "", fmt.Errorf("%w: codec name: %w", ErrTruncated, err)
	}
	return h, string(name), nil
}

// Decode reads a savegame from r. Only WithController applies.
func Decode(ctx context.Context, r io.Reader, opts ...Option) (*Document, Info, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	rr := resource.NewRateLimitedReader(ctx, r, o.controller)

	h, name, err := readHeader(rr)
	if err != nil {
		return nil, Info{}, err
	}
	info := Info{
		Version:     h.Version,
		Codec:       name,
		Compression: h.Compression,
		RawLength:   h.RawLength,
		BodyLength:  h.BodyLength,
	}
	c, ok := codec.ByName(name)
	if !ok {
		return nil, info, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}

	// Read through a limit rather than preallocating a size taken from a
	// possibly corrupt header.
	body, err := io.ReadAll(io.LimitReader(rr, int64(min(h.BodyLength, 1<<62))))
	if err != nil {
		return nil, info, err
	}
	if uint64(len(body)) != h.BodyLength {
		return nil, info, fmt.Errorf("%w: body is %d bytes, header says %d", ErrTruncated, len(body), h.BodyLength)
	}
	raw, err := decompress(body, h.Compression, h.RawLength)
	if err != nil {
		return nil, info, fmt.Errorf("decompress document: %w", err)
	}
	if uint64(len(raw)) != h.RawLength {
		return nil, info, fmt.Errorf("%w: document is %d bytes, header says %d", ErrTruncated, len(raw), h.RawLength)
	}
	if err := verify(raw, h.Checksum); err != nil {
		return nil, info, err
	}

	doc := new(Document)
	if err := c.Unmarshal(raw, doc); err != nil {
		return nil, info, fmt.Errorf("decode document: %w", err)
	}
	return doc, info, nil
}

// Unmarshal decodes a savegame held in memory.
func Unmarshal(ctx context.Context, data []byte, opts ...Option) (*Document, Info, error) {
	return Decode(ctx, bytes.NewReader(data), opts...)
}

// Inspect reads only the header of a savegame.
func Inspect(r io.Reader) (Info, error) {
	h, name, err := readHeader(r)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Version:     h.Version,
		Codec:       name,
		Compression: h.Compression,
		RawLength:   h.RawLength,
		BodyLength:  h.BodyLength,
	}, nil
}
