// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tensorio reads and writes the raw tensor files handled by the
// hwyquant command: headerless little-endian arrays, optionally zstd
// compressed, plus a JSON or YAML sidecar describing quantized codes.
package tensorio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"slices"
	"unsafe"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/exp/mmap"
)

// Element is the set of element types a tensor file may hold.
type Element interface {
	float32 | int8 | uint8 | int16 | uint16 | int32 | uint32
}

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Read maps the file at path and decodes it as a []T. Compressed files are
// recognized by the zstd frame magic. Both forms are decoded from the
// mapping in fixed-size chunks, so the file is never copied whole.
func Read[T Element](path string) ([]T, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	defer r.Close()
	mapped := io.NewSectionReader(r, 0, int64(r.Len()))

	var out []T
	if compressed(r) {
		dec, err := zstd.NewReader(mapped)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
		defer dec.Close()
		out, err = decodeStream[T](dec, 0)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
		return out, nil
	}

	out, err = decodeStream[T](mapped, r.Len())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func compressed(r *mmap.ReaderAt) bool {
	if r.Len() < len(zstdMagic) {
		return false
	}
	for i, b := range zstdMagic {
		if r.At(i) != b {
			return false
		}
	}
	return true
}

// Write encodes data and writes it to path, zstd compressed when compress
// is set.
func Write[T Element](path string, data []T, compress bool) error {
	raw := Encode(data)
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("zstd encoder: %w", err)
		}
		raw = enc.EncodeAll(raw, nil)
		if err := enc.Close(); err != nil {
			return fmt.Errorf("zstd encoder: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Encode returns the little-endian bytes of data.
func Encode[T Element](data []T) []byte {
	out, err := binary.Append(nil, binary.LittleEndian, data)
	if err != nil {
		// Every Element is a fixed-size type.
		panic(err)
	}
	return out
}

// Decode interprets raw as little-endian T values.
func Decode[T Element](raw []byte) ([]T, error) {
	size := elementSize[T]()
	if len(raw)%size != 0 {
		return nil, errElementSize(len(raw), size)
	}
	out := make([]T, len(raw)/size)
	if _, err := binary.Decode(raw, binary.LittleEndian, out); err != nil {
		return nil, err
	}
	return out, nil
}

// chunkBytes is the staging buffer size for streamed decoding. It is a
// multiple of every Element size.
const chunkBytes = 64 << 10

// decodeStream decodes little-endian T values from rd chunk by chunk.
// sizeHint is the expected byte count, or 0 when unknown.
func decodeStream[T Element](rd io.Reader, sizeHint int) ([]T, error) {
	size := elementSize[T]()
	if sizeHint%size != 0 {
		return nil, errElementSize(sizeHint, size)
	}
	out := make([]T, 0, sizeHint/size)
	buf := make([]byte, chunkBytes)
	total := 0
	for {
		k, err := io.ReadFull(rd, buf)
		total += k
		if k%size != 0 {
			return nil, errElementSize(total, size)
		}
		if k > 0 {
			n := len(out)
			out = slices.Grow(out, k/size)[:n+k/size]
			if _, derr := binary.Decode(buf[:k], binary.LittleEndian, out[n:]); derr != nil {
				return nil, derr
			}
		}
		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			return out, nil
		default:
			return nil, err
		}
	}
}

func elementSize[T Element]() int {
	return int(unsafe.Sizeof(*new(T)))
}

func errElementSize(n, size int) error {
	return fmt.Errorf("%d bytes is not a multiple of the %d-byte element size", n, size)
}
