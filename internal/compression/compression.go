/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package compression provides configurable compression for catalog
snapshots at rest.

Compression Overview:
=====================

This module implements configurable compression for:
- Catalog snapshots at rest, to reduce disk footprint as documents accrue
- Batch operations for better compression ratios

Bus envelopes, including the document list in
version_confirmation_request, are not compressed by this package.

Supported Algorithms:
=====================

1. LZ4: Fast compression/decompression, moderate ratio
2. Snappy: Very fast, lower ratio, good for real-time
3. Zstd: Best ratio, configurable speed/ratio tradeoff
4. Gzip: stdlib codec, used only when selected explicitly ("" and "none"
   select no compression)

Batch Compression:
==================

Batching multiple entries before compression improves ratios:
1. Collect entries into a batch
2. Compress the entire batch
3. Store/transmit compressed batch
4. Decompress and split on read
*/
package compression

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm
type Algorithm int

const (
	AlgorithmNone Algorithm = iota
	AlgorithmGzip
	AlgorithmLZ4
	AlgorithmSnappy
	AlgorithmZstd
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmGzip:
		return "gzip"
	case AlgorithmLZ4:
		return "lz4"
	case AlgorithmSnappy:
		return "snappy"
	case AlgorithmZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses a compression algorithm from string
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "none", "":
		return AlgorithmNone, nil
	case "gzip":
		return AlgorithmGzip, nil
	case "lz4":
		return AlgorithmLZ4, nil
	case "snappy":
		return AlgorithmSnappy, nil
	case "zstd":
		return AlgorithmZstd, nil
	default:
		return AlgorithmNone, fmt.Errorf("unknown compression algorithm: %s", s)
	}
}

// Level represents compression level
type Level int

const (
	LevelFastest Level = 1
	LevelDefault Level = 5
	LevelBest    Level = 9
)

// Config holds compression configuration
type Config struct {
	Algorithm        Algorithm `json:"algorithm"`
	Level            Level     `json:"level"`
	MinSize          int       `json:"min_size"`          // Minimum size to compress
	BatchSize        int       `json:"batch_size"`        // Number of entries per batch
	BatchTimeout     int       `json:"batch_timeout_ms"`  // Max wait time for batch (ms)
	DictionaryEnable bool      `json:"dictionary_enable"` // Use dictionary compression
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Algorithm:        AlgorithmZstd,
		Level:            LevelDefault,
		MinSize:          256,
		BatchSize:        100,
		BatchTimeout:     10,
		DictionaryEnable: false,
	}
}

// Errors
var (
	ErrDataTooSmall    = errors.New("data too small to compress")
	ErrInvalidHeader   = errors.New("invalid compression header")
	ErrUnsupportedAlgo = errors.New("unsupported compression algorithm")
)

// Compressor provides compression/decompression operations. Below
// config.MinSize, Compress stores data unmodified behind an
// AlgorithmNone header so small payloads (a lone catalog entry) never
// pay codec overhead.
type Compressor struct {
	config     Config
	gzipPool   sync.Pool
	bufferPool sync.Pool
}

// NewCompressor creates a new compressor
func NewCompressor(config Config) *Compressor {
	return &Compressor{
		config: config,
		gzipPool: sync.Pool{
			New: func() interface{} {
				return gzip.NewWriter(nil)
			},
		},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

// Compress encodes data with the configured algorithm, prefixed by a
// one-byte header naming the algorithm actually used (so Decompress
// never needs the caller to remember which algorithm compressed a given
// blob, and so MinSize-exempt data round-trips correctly).
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	algo := c.config.Algorithm
	if len(data) < c.config.MinSize {
		algo = AlgorithmNone
	}

	body, err := compressWith(algo, data, c.config.Level)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(algo))
	out = append(out, body...)
	return out, nil
}

// Decompress reads the algorithm header Compress wrote and decodes
// accordingly; the algo parameter is accepted for API symmetry with
// call sites that already track the negotiated algorithm, but the
// header is authoritative.
func (c *Compressor) Decompress(data []byte, _ Algorithm) ([]byte, error) {
	if len(data) < 1 {
		return nil, ErrInvalidHeader
	}
	algo := Algorithm(data[0])
	return decompressWith(algo, data[1:])
}

func compressWith(algo Algorithm, data []byte, level Level) ([]byte, error) {
	switch algo {
	case AlgorithmNone:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case AlgorithmGzip:
		buf := new(bytes.Buffer)
		gz, err := gzip.NewWriterLevel(buf, clampGzipLevel(level))
		if err != nil {
			return nil, err
		}
		if _, err := gz.Write(data); err != nil {
			return nil, err
		}
		if err := gz.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case AlgorithmLZ4:
		buf := new(bytes.Buffer)
		w := lz4.NewWriter(buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case AlgorithmSnappy:
		return snappy.Encode(nil, data), nil
	case AlgorithmZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(int(level))))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, ErrUnsupportedAlgo
	}
}

func decompressWith(algo Algorithm, data []byte) ([]byte, error) {
	switch algo {
	case AlgorithmNone:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case AlgorithmGzip:
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(gz)
	case AlgorithmLZ4:
		r := lz4.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)
	case AlgorithmSnappy:
		return snappy.Decode(nil, data)
	case AlgorithmZstd:
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec)
	default:
		return nil, ErrUnsupportedAlgo
	}
}

func clampGzipLevel(l Level) int {
	if l < gzip.HuffmanOnly || l > gzip.BestCompression {
		return gzip.DefaultCompression
	}
	return int(l)
}

// BatchCompressor collects several entries and compresses them as one
// framed blob: a varint entry count, then each entry as a varint length
// prefix followed by its bytes, with the whole frame passed through a
// single Compressor.Compress call so small catalog entries amortize
// codec overhead across a batch.
type BatchCompressor struct {
	config  Config
	entries [][]byte
}

// NewBatchCompressor creates a batch compressor using config's algorithm.
func NewBatchCompressor(config Config) *BatchCompressor {
	return &BatchCompressor{config: config}
}

// Add appends one entry to the pending batch.
func (b *BatchCompressor) Add(entry []byte) {
	b.entries = append(b.entries, entry)
}

// Flush frames and compresses every entry added since the last Flush,
// then clears the pending batch.
func (b *BatchCompressor) Flush() ([]byte, error) {
	frame := new(bytes.Buffer)
	countBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(countBuf, uint64(len(b.entries)))
	frame.Write(countBuf[:n])

	for _, entry := range b.entries {
		lenBuf := make([]byte, binary.MaxVarintLen64)
		n := binary.PutUvarint(lenBuf, uint64(len(entry)))
		frame.Write(lenBuf[:n])
		frame.Write(entry)
	}
	b.entries = nil

	compressor := NewCompressor(b.config)
	return compressor.Compress(frame.Bytes())
}

// DecompressBatch reverses Flush, returning the original entries in order.
func (b *BatchCompressor) DecompressBatch(data []byte, algo Algorithm) ([][]byte, error) {
	compressor := NewCompressor(b.config)
	raw, err := compressor.Decompress(data, algo)
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(raw)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}

	entries := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		entryLen, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		entry := make([]byte, entryLen)
		if _, err := io.ReadFull(r, entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
