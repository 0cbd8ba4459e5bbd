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

package embedder

import (
	"math"
	"testing"
)

func TestEmbedDeterministic(t *testing.T) {
	e := New(16)
	v1 := e.Embed("hello world")
	v2 := e.Embed("hello world")
	if len(v1) != 16 {
		t.Fatalf("expected 16 dims, got %d", len(v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("embed not deterministic at index %d: %v vs %v", i, v1[i], v2[i])
		}
	}
}

func TestEmbedUnitNorm(t *testing.T) {
	e := New(32)
	v := e.Embed("some reasonably long piece of text with several tokens")
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if math.Abs(norm-1.0) > 1e-9 {
		t.Errorf("expected unit norm, got %f", norm)
	}
}

func TestEmbedDiffersByContent(t *testing.T) {
	e := New(64)
	v1 := e.Embed("alpha bravo charlie")
	v2 := e.Embed("delta echo foxtrot")
	same := true
	for i := range v1 {
		if v1[i] != v2[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("expected different embeddings for different text")
	}
}

func TestEncodeDecodeVectorRoundTrip(t *testing.T) {
	e := New(8)
	v := e.Embed("round trip me")
	encoded := EncodeVector(v)
	decoded, err := DecodeVector(encoded)
	if err != nil {
		t.Fatalf("DecodeVector failed: %v", err)
	}
	if len(decoded) != len(v) {
		t.Fatalf("length mismatch: %d vs %d", len(decoded), len(v))
	}
	for i := range v {
		if decoded[i] != v[i] {
			t.Errorf("index %d: expected %f got %f", i, v[i], decoded[i])
		}
	}
}

func TestEmbedEmptyText(t *testing.T) {
	e := New(4)
	v := e.Embed("")
	for _, x := range v {
		if x != 0 {
			t.Error("expected zero vector for empty text")
		}
	}
}
