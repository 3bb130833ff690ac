// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package recordfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Element dtypes. Stored as-is in record files; the width (bytes per
// element) drives shape validation and the shuffle codec.
const (
	DTypeFloat64 = "float64"
	DTypeFloat32 = "float32"
	DTypeInt64   = "int64"
	DTypeInt32   = "int32"
)

func dtypeWidth(dtype string) (int, error) {
	switch dtype {
	case DTypeFloat64, DTypeInt64:
		return 8, nil
	case DTypeFloat32, DTypeInt32:
		return 4, nil
	}
	return 0, fmt.Errorf("unknown dtype %q", dtype)
}

// Array is one numeric payload of a document. Data holds the encoded
// (possibly compressed) bytes; RawSize and Digest describe the raw
// little-endian element bytes and are verified on decode.
type Array struct {
	Name    string      `cbor:"name"`
	DType   string      `cbor:"dtype"`
	Shape   []int64     `cbor:"shape"`
	Codec   Compression `cbor:"codec"`
	RawSize int64       `cbor:"raw_size"`
	Digest  Digest      `cbor:"digest"`
	Data    []byte      `cbor:"data"`
}

// newArray validates shape against the raw payload, digests it, and
// picks a codec.
func newArray(name, dtype string, shape []int64, raw []byte) (Array, error) {
	width, err := dtypeWidth(dtype)
	if err != nil {
		return Array{}, fmt.Errorf("array %q: %w", name, err)
	}

	elements := int64(1)
	for _, dim := range shape {
		if dim < 0 {
			return Array{}, fmt.Errorf("array %q: negative dimension %d", name, dim)
		}
		elements *= dim
	}
	if elements*int64(width) != int64(len(raw)) {
		return Array{}, fmt.Errorf("array %q: shape %v wants %d bytes, have %d",
			name, shape, elements*int64(width), len(raw))
	}

	data, codec := compressAuto(raw, width)
	return Array{
		Name:    name,
		DType:   dtype,
		Shape:   shape,
		Codec:   codec,
		RawSize: int64(len(raw)),
		Digest:  digestArray(raw),
		Data:    data,
	}, nil
}

// raw decodes, size-checks, and digest-checks the payload.
func (a *Array) raw(wantDType string) ([]byte, error) {
	if a.DType != wantDType {
		return nil, fmt.Errorf("array %q holds %s, not %s", a.Name, a.DType, wantDType)
	}
	width, err := dtypeWidth(a.DType)
	if err != nil {
		return nil, fmt.Errorf("array %q: %w", a.Name, err)
	}

	raw, err := decompress(a.Data, a.Codec, width, int(a.RawSize))
	if err != nil {
		return nil, fmt.Errorf("array %q: %w", a.Name, err)
	}
	if digestArray(raw) != a.Digest {
		return nil, fmt.Errorf("array %q: digest mismatch, payload corrupt", a.Name)
	}
	return raw, nil
}

// NewFloat64Array builds an array payload from float64 values laid
// out row-major per shape.
func NewFloat64Array(name string, shape []int64, values []float64) (Array, error) {
	raw := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	return newArray(name, DTypeFloat64, shape, raw)
}

// Float64s decodes a float64 payload, verifying size and digest.
func (a *Array) Float64s() ([]float64, error) {
	raw, err := a.raw(DTypeFloat64)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(raw)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return values, nil
}

// NewFloat32Array builds an array payload from float32 values.
func NewFloat32Array(name string, shape []int64, values []float32) (Array, error) {
	raw := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return newArray(name, DTypeFloat32, shape, raw)
}

// Float32s decodes a float32 payload, verifying size and digest.
func (a *Array) Float32s() ([]float32, error) {
	raw, err := a.raw(DTypeFloat32)
	if err != nil {
		return nil, err
	}
	values := make([]float32, len(raw)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return values, nil
}

// NewInt64Array builds an array payload from int64 values.
func NewInt64Array(name string, shape []int64, values []int64) (Array, error) {
	raw := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[i*8:], uint64(v))
	}
	return newArray(name, DTypeInt64, shape, raw)
}

// Int64s decodes an int64 payload, verifying size and digest.
func (a *Array) Int64s() ([]int64, error) {
	raw, err := a.raw(DTypeInt64)
	if err != nil {
		return nil, err
	}
	values := make([]int64, len(raw)/8)
	for i := range values {
		values[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return values, nil
}

// NewInt32Array builds an array payload from int32 values.
func NewInt32Array(name string, shape []int64, values []int32) (Array, error) {
	raw := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(v))
	}
	return newArray(name, DTypeInt32, shape, raw)
}

// Int32s decodes an int32 payload, verifying size and digest.
func (a *Array) Int32s() ([]int32, error) {
	raw, err := a.raw(DTypeInt32)
	if err != nil {
		return nil, err
	}
	values := make([]int32, len(raw)/4)
	for i := range values {
		values[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return values, nil
}
