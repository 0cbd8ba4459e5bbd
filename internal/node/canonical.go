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

package node

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"catalogmesh/internal/model"
)

// canonicalHash computes SHA256(canonical_json(documents)), where
// canonical_json sorts object keys lexicographically. encoding/json
// already sorts map[string]any keys when marshaling, so a struct's own
// field order is normalized by round-tripping through a generic map.
func canonicalHash(documents []model.CatalogEntry) (string, error) {
	raw, err := json.Marshal(documents)
	if err != nil {
		return "", err
	}
	var generic []map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
