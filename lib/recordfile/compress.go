// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package recordfile

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the codec applied to one array payload. The
// numeric values are stored implicitly via the text form in record
// files; they never change meaning.
type Compression uint8

const (
	// CompressionNone stores raw bytes. Chosen when probing shows no
	// worthwhile ratio (high-entropy data).
	CompressionNone Compression = 0

	// CompressionLZ4 is block-mode LZ4. Fast default for payloads
	// that compress a little but not enough to justify zstd.
	CompressionLZ4 Compression = 1

	// CompressionZstd is zstd at the default level. Best ratios for
	// index-like and repetitive payloads.
	CompressionZstd Compression = 2

	// CompressionShuffleLZ4 transposes the payload by byte position
	// within each element before LZ4. Adjacent samples in scientific
	// arrays tend to share exponent and high-order mantissa bytes, so
	// grouping those bytes makes runs LZ4 can exploit. The element
	// width comes from the array's dtype.
	CompressionShuffleLZ4 Compression = 3
)

// String returns the codec's text form, the form stored in record
// files.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	case CompressionShuffleLZ4:
		return "shuffle+lz4"
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

// ParseCompression parses the text form produced by String.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	case "shuffle+lz4":
		return CompressionShuffleLZ4, nil
	}
	return 0, fmt.Errorf("unknown compression codec %q", name)
}

// MarshalText implements encoding.TextMarshaler so the codec appears
// as its name in record files and diagnostic output.
func (c Compression) MarshalText() ([]byte, error) {
	if c > CompressionShuffleLZ4 {
		return nil, fmt.Errorf("cannot marshal unknown compression codec %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// errIncompressible is returned by the codec helpers when compressed
// output would not be smaller than the input. Callers fall back to
// CompressionNone.
var errIncompressible = fmt.Errorf("data is incompressible")

// zstdEncoder and zstdDecoder are reused across calls to avoid
// repeated initialization. Both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("recordfile: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("recordfile: zstd decoder initialization failed: " + err.Error())
	}
}

// compress encodes raw with the given codec. width is the array's
// element width in bytes; only the shuffle codec uses it.
func compress(raw []byte, codec Compression, width int) ([]byte, error) {
	switch codec {
	case CompressionNone:
		return raw, nil
	case CompressionLZ4:
		return compressLZ4(raw)
	case CompressionZstd:
		return compressZstd(raw)
	case CompressionShuffleLZ4:
		return compressLZ4(shuffleTranspose(raw, width))
	}
	return nil, fmt.Errorf("unsupported compression codec %d", codec)
}

// decompress reverses compress. rawSize must match the original
// payload length exactly; a mismatch is an error, never truncation.
func decompress(data []byte, codec Compression, width, rawSize int) ([]byte, error) {
	switch codec {
	case CompressionNone:
		if len(data) != rawSize {
			return nil, fmt.Errorf("uncompressed payload: size %d does not match expected %d", len(data), rawSize)
		}
		return data, nil
	case CompressionLZ4:
		return decompressLZ4(data, rawSize)
	case CompressionZstd:
		return decompressZstd(data, rawSize)
	case CompressionShuffleLZ4:
		shuffled, err := decompressLZ4(data, rawSize)
		if err != nil {
			return nil, err
		}
		return shuffleUntranspose(shuffled, width), nil
	}
	return nil, fmt.Errorf("unsupported compression codec %d", codec)
}

// compressAuto probes raw and encodes it with the best codec for its
// shape, falling back to raw storage when nothing helps. It never
// fails.
func compressAuto(raw []byte, width int) ([]byte, Compression) {
	codec := selectCompression(raw, width)
	if codec == CompressionNone {
		return raw, CompressionNone
	}
	encoded, err := compress(raw, codec, width)
	if err != nil {
		return raw, CompressionNone
	}
	return encoded, codec
}

// compressionProbeLimit bounds how much of a payload the selection
// probe compresses. Large arrays are judged by their prefix.
const compressionProbeLimit = 512 * 1024

// selectCompression probes a prefix of raw to pick a codec. The
// shuffle transpose is tried first for multi-byte elements; otherwise
// a zstd probe decides between zstd (ratio ≥ 1.5), lz4 (≥ 1.1), and
// raw storage.
func selectCompression(raw []byte, width int) Compression {
	if len(raw) == 0 {
		return CompressionNone
	}

	sample := raw
	if len(sample) > compressionProbeLimit {
		cut := compressionProbeLimit - compressionProbeLimit%width
		sample = sample[:cut]
	}

	zstdRatio := probeRatio(len(sample), len(zstdEncoder.EncodeAll(sample, nil)))

	if width > 1 {
		if encoded, err := compressLZ4(shuffleTranspose(sample, width)); err == nil {
			shuffleRatio := probeRatio(len(sample), len(encoded))
			if shuffleRatio >= zstdRatio && shuffleRatio >= 1.2 {
				return CompressionShuffleLZ4
			}
		}
	}

	switch {
	case zstdRatio >= 1.5:
		return CompressionZstd
	case zstdRatio >= 1.1:
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

func probeRatio(rawLen, encodedLen int) float64 {
	if encodedLen == 0 {
		return 0
	}
	return float64(rawLen) / float64(encodedLen)
}

func compressLZ4(raw []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(raw))
	destination := make([]byte, bound)

	written, err := lz4.CompressBlock(raw, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	// CompressBlock returns 0 when it judges the data incompressible.
	// Also reject output that is not actually smaller.
	if written == 0 || written >= len(raw) {
		return nil, errIncompressible
	}

	return destination[:written], nil
}

func decompressLZ4(data []byte, rawSize int) ([]byte, error) {
	destination := make([]byte, rawSize)
	read, err := lz4.UncompressBlock(data, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != rawSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, rawSize)
	}
	return destination, nil
}

func compressZstd(raw []byte) ([]byte, error) {
	encoded := zstdEncoder.EncodeAll(raw, nil)
	if len(encoded) >= len(raw) {
		return nil, errIncompressible
	}
	return encoded, nil
}

func decompressZstd(data []byte, rawSize int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(data, make([]byte, 0, rawSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != rawSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), rawSize)
	}
	return result, nil
}

// shuffleTranspose rearranges raw so that byte position 0 of every
// element comes first, then byte position 1, and so on. Elements are
// width bytes wide; trailing bytes that do not fill an element are
// appended unchanged.
func shuffleTranspose(raw []byte, width int) []byte {
	if width <= 1 {
		return raw
	}

	elementCount := len(raw) / width
	remainder := len(raw) % width
	output := make([]byte, len(raw))

	for i := range elementCount {
		for b := range width {
			output[b*elementCount+i] = raw[i*width+b]
		}
	}
	// Trailing bytes of a ragged payload are carried unchanged.
	if remainder > 0 {
		copy(output[elementCount*width:], raw[elementCount*width:])
	}

	return output
}

// shuffleUntranspose reverses shuffleTranspose.
func shuffleUntranspose(shuffled []byte, width int) []byte {
	if width <= 1 {
		return shuffled
	}

	elementCount := len(shuffled) / width
	output := make([]byte, len(shuffled))

	for i := range elementCount {
		for b := range width {
			output[i*width+b] = shuffled[b*elementCount+i]
		}
	}
	copy(output[elementCount*width:], shuffled[elementCount*width:])

	return output
}
