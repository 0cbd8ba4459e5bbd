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
Package vectorindex stands in for the vector-similarity index, treated as
an opaque component by the coordination protocol: build from a list of
vectors, search top-k by L2 distance. It is rebuilt wholesale on every
commit rather than incrementally updated, so it always agrees with the
freshly persisted catalog.
*/
package vectorindex

import (
	"math"
	"sort"

	"catalogmesh/internal/model"
)

// Entry pairs a catalog entry with its embedding vector.
type Entry struct {
	CatalogEntry model.CatalogEntry
	Vector       []float64
}

// Index is a brute-force L2-distance nearest-neighbor index.
type Index struct {
	entries []Entry
}

// Build constructs an Index from a list of (entry, vector) pairs.
func Build(entries []Entry) *Index {
	return &Index{entries: entries}
}

// Len reports how many vectors the index holds.
func (idx *Index) Len() int { return len(idx.entries) }

// Search returns the top-k nearest entries to query by L2 distance,
// ascending by distance.
func (idx *Index) Search(query []float64, topK int) []model.SearchHit {
	type scored struct {
		entry model.CatalogEntry
		dist  float64
	}
	scoredEntries := make([]scored, 0, len(idx.entries))
	for _, e := range idx.entries {
		scoredEntries = append(scoredEntries, scored{entry: e.CatalogEntry, dist: l2Distance(query, e.Vector)})
	}
	sort.Slice(scoredEntries, func(i, j int) bool { return scoredEntries[i].dist < scoredEntries[j].dist })

	if topK > len(scoredEntries) {
		topK = len(scoredEntries)
	}
	hits := make([]model.SearchHit, 0, topK)
	for i := 0; i < topK; i++ {
		hits = append(hits, model.SearchHit{
			Rank:     i + 1,
			Distance: scoredEntries[i].dist,
			CID:      scoredEntries[i].entry.CID,
			Filename: scoredEntries[i].entry.Filename,
			AddedAt:  scoredEntries[i].entry.AddedAt,
		})
	}
	return hits
}

func l2Distance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
