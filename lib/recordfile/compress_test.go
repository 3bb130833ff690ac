// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package recordfile

import (
	"bytes"
	"math"
	"math/rand/v2"
	"testing"
)

// compressibleBytes returns a payload every codec can shrink.
func compressibleBytes(length int) []byte {
	data := make([]byte, length)
	for i := range data {
		data[i] = byte(i / 64)
	}
	return data
}

// randomBytes returns deterministic pseudo-random (incompressible)
// data.
func randomBytes(length int) []byte {
	rng := rand.New(rand.NewPCG(7, 13))
	data := make([]byte, length)
	for i := range data {
		data[i] = byte(rng.Uint32())
	}
	return data
}

func TestCompressRoundtripAllCodecs(t *testing.T) {
	raw := compressibleBytes(16 * 1024)

	for _, codec := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd, CompressionShuffleLZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			encoded, err := compress(raw, codec, 8)
			if err != nil {
				t.Fatalf("compress: %v", err)
			}
			if codec != CompressionNone && len(encoded) >= len(raw) {
				t.Errorf("codec %s did not shrink compressible data: %d >= %d",
					codec, len(encoded), len(raw))
			}

			decoded, err := decompress(encoded, codec, 8, len(raw))
			if err != nil {
				t.Fatalf("decompress: %v", err)
			}
			if !bytes.Equal(decoded, raw) {
				t.Error("roundtrip produced different bytes")
			}
		})
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	raw := compressibleBytes(4096)
	encoded, err := compress(raw, CompressionZstd, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := decompress(encoded, CompressionZstd, 1, len(raw)+1); err == nil {
		t.Error("decompress accepted a wrong raw size")
	}
}

func TestLZ4RejectsIncompressible(t *testing.T) {
	if _, err := compressLZ4(randomBytes(8192)); err != errIncompressible {
		t.Errorf("compressLZ4 on random data: got %v, want errIncompressible", err)
	}
}

func TestShuffleTransposeInverse(t *testing.T) {
	for _, width := range []int{1, 4, 8} {
		for _, length := range []int{0, 1, 7, 8, 64, 4096, 4097} {
			data := randomBytes(length)
			back := shuffleUntranspose(shuffleTranspose(data, width), width)
			if !bytes.Equal(back, data) {
				t.Errorf("width %d length %d: untranspose(transpose(x)) != x", width, length)
			}
		}
	}
}

func TestShuffleGroupsBytePositions(t *testing.T) {
	// Two 4-byte elements: transposing groups first bytes together.
	data := []byte{0xA0, 0xA1, 0xA2, 0xA3, 0xB0, 0xB1, 0xB2, 0xB3}
	want := []byte{0xA0, 0xB0, 0xA1, 0xB1, 0xA2, 0xB2, 0xA3, 0xB3}
	got := shuffleTranspose(data, 4)
	if !bytes.Equal(got, want) {
		t.Errorf("transpose: got % x, want % x", got, want)
	}
}

func TestSelectCompression(t *testing.T) {
	if got := selectCompression(nil, 8); got != CompressionNone {
		t.Errorf("empty payload: got %s, want none", got)
	}
	if got := selectCompression(randomBytes(64*1024), 8); got != CompressionNone {
		t.Errorf("random payload: got %s, want none", got)
	}
	if got := selectCompression(compressibleBytes(64*1024), 1); got == CompressionNone {
		t.Error("compressible payload judged incompressible")
	}
}

func TestCompressAutoFallsBackToRaw(t *testing.T) {
	raw := randomBytes(32 * 1024)
	encoded, codec := compressAuto(raw, 8)
	if codec != CompressionNone {
		t.Fatalf("random data selected codec %s", codec)
	}
	if !bytes.Equal(encoded, raw) {
		t.Error("CompressionNone did not pass data through")
	}
}

func TestParseCompressionRoundtrip(t *testing.T) {
	for _, codec := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd, CompressionShuffleLZ4} {
		parsed, err := ParseCompression(codec.String())
		if err != nil {
			t.Fatalf("ParseCompression(%q): %v", codec.String(), err)
		}
		if parsed != codec {
			t.Errorf("roundtrip: got %v, want %v", parsed, codec)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression accepted an unknown codec")
	}
}

func TestArrayRoundtripSmoothSignal(t *testing.T) {
	values := make([]float64, 8192)
	for i := range values {
		values[i] = math.Sin(float64(i) / 100)
	}

	array, err := NewFloat64Array("signal", []int64{int64(len(values))}, values)
	if err != nil {
		t.Fatalf("NewFloat64Array: %v", err)
	}
	t.Logf("codec=%s raw=%d stored=%d", array.Codec, array.RawSize, len(array.Data))

	decoded, err := array.Float64s()
	if err != nil {
		t.Fatalf("Float64s: %v", err)
	}
	for i := range values {
		if decoded[i] != values[i] {
			t.Fatalf("values[%d] = %v, want %v", i, decoded[i], values[i])
		}
	}
}

func TestArrayShapeValidation(t *testing.T) {
	if _, err := NewFloat64Array("bad", []int64{3}, []float64{1, 2}); err == nil {
		t.Error("shape/length mismatch accepted")
	}
	if _, err := NewFloat64Array("bad", []int64{-1}, nil); err == nil {
		t.Error("negative dimension accepted")
	}
	if _, err := NewInt32Array("ok", []int64{2, 2}, []int32{1, 2, 3, 4}); err != nil {
		t.Errorf("valid int32 array rejected: %v", err)
	}
}

func TestArrayDTypeMismatch(t *testing.T) {
	array, err := NewInt64Array("counts", []int64{3}, []int64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := array.Float64s(); err == nil {
		t.Error("Float64s on an int64 array succeeded")
	}
	decoded, err := array.Int64s()
	if err != nil {
		t.Fatalf("Int64s: %v", err)
	}
	if decoded[2] != 3 {
		t.Errorf("decoded[2] = %d, want 3", decoded[2])
	}
}

func TestArrayDetectsCorruption(t *testing.T) {
	// Random bit patterns are incompressible, so the payload stores
	// raw and flipping a byte reaches the digest check rather than
	// the decompressor.
	rng := rand.New(rand.NewPCG(3, 5))
	values := make([]float64, 512)
	for i := range values {
		values[i] = math.Float64frombits(rng.Uint64())
	}
	array, err := NewFloat64Array("payload", []int64{int64(len(values))}, values)
	if err != nil {
		t.Fatal(err)
	}

	if array.Codec == CompressionNone {
		array.Data[0] ^= 0xFF
	} else {
		array.Digest[0] ^= 0xFF
	}
	if _, err := array.Float64s(); err == nil {
		t.Error("corrupted payload decoded without error")
	}
}

func TestInt32Float32Roundtrip(t *testing.T) {
	f32, err := NewFloat32Array("f", []int64{4}, []float32{0.5, -1.25, 3e7, 0})
	if err != nil {
		t.Fatal(err)
	}
	back32, err := f32.Float32s()
	if err != nil {
		t.Fatal(err)
	}
	if back32[1] != -1.25 {
		t.Errorf("float32 roundtrip: got %v", back32)
	}

	i32, err := NewInt32Array("i", []int64{2}, []int32{-7, 2147483647})
	if err != nil {
		t.Fatal(err)
	}
	backI32, err := i32.Int32s()
	if err != nil {
		t.Fatal(err)
	}
	if backI32[0] != -7 || backI32[1] != 2147483647 {
		t.Errorf("int32 roundtrip: got %v", backI32)
	}
}

func BenchmarkNewFloat64Array(b *testing.B) {
	values := make([]float64, 64*1024)
	for i := range values {
		values[i] = math.Sin(float64(i) / 100)
	}
	shape := []int64{int64(len(values))}

	b.ReportAllocs()
	b.SetBytes(int64(len(values) * 8))
	for b.Loop() {
		if _, err := NewFloat64Array("signal", shape, values); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFloat64sDecode(b *testing.B) {
	values := make([]float64, 64*1024)
	for i := range values {
		values[i] = math.Sin(float64(i) / 100)
	}
	array, err := NewFloat64Array("signal", []int64{int64(len(values))}, values)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.SetBytes(array.RawSize)
	for b.Loop() {
		if _, err := array.Float64s(); err != nil {
			b.Fatal(err)
		}
	}
}
