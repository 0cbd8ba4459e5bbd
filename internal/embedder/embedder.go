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
Package embedder stands in for the embedding model, which the coordination
protocol treats as an opaque function embed(text) -> fixed-dimension float
vector. This package's job is only to produce a stable, deterministic
vector of the configured dimensionality so the rest of the system (commit
hashing, similarity search) has something concrete to operate on; it makes
no claim of semantic quality.

Vectors are serialized with snappy (github.com/golang/snappy) before being
handed to blobstore.Add, matching the corpus's preference for a real
compression library over a hand-rolled format for on-wire/on-disk payloads.
*/
package embedder

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/golang/snappy"
)

// Embedder derives a fixed-dimension embedding for a chunk of text.
type Embedder struct {
	dims int
}

// New returns an Embedder producing vectors of the given dimensionality.
func New(dims int) *Embedder {
	return &Embedder{dims: dims}
}

// Embed derives a deterministic unit vector from text using feature
// hashing: each dimension accumulates the signed hash of every token
// assigned to it, and the result is L2-normalized.
func (e *Embedder) Embed(text string) []float64 {
	vec := make([]float64, e.dims)
	if e.dims == 0 {
		return vec
	}

	tokens := tokenize(text)
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dims))
		sign := 1.0
		if sum&1 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func tokenize(text string) []string {
	var tokens []string
	start := -1
	for i, r := range text {
		isWord := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if isWord {
			if start == -1 {
				start = i
			}
		} else if start != -1 {
			tokens = append(tokens, text[start:i])
			start = -1
		}
	}
	if start != -1 {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// EncodeVector serializes a vector to bytes (little-endian float64s, then
// snappy-compressed) suitable for blobstore.Add and on-disk persistence.
func EncodeVector(vec []float64) []byte {
	raw := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	return snappy.Encode(nil, raw)
}

// DecodeVector reverses EncodeVector.
func DecodeVector(data []byte) ([]float64, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}
	vec := make([]float64, len(raw)/8)
	for i := range vec {
		bits := binary.LittleEndian.Uint64(raw[i*8:])
		vec[i] = math.Float64frombits(bits)
	}
	return vec, nil
}
