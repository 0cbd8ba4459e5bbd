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

package bus

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"catalogmesh/internal/model"
)

// wireWrapper is the outer object the storage layer's HTTP pub/sub endpoint
// wraps every message in, with the actual envelope base64-encoded in Data.
type wireWrapper struct {
	From string `json:"from,omitempty"`
	Data string `json:"data,omitempty"`
}

// parseFrame accepts a single transport frame (one line from either the
// HTTP pub/sub endpoint's base64-wrapped "data" framing, or the raw NDJSON
// line framing of the subscribe-stream CLI) and decodes the envelope it
// carries. Malformed frames return ok=false so the caller can silently
// drop them, per the bus contract.
func parseFrame(line []byte) (model.Envelope, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return model.Envelope{}, false
	}

	var wrapper wireWrapper
	if err := json.Unmarshal(line, &wrapper); err == nil && wrapper.Data != "" {
		decoded, err := base64.StdEncoding.DecodeString(wrapper.Data)
		if err == nil {
			var env model.Envelope
			if err := json.Unmarshal(decoded, &env); err == nil && env.Type != "" {
				return env, true
			}
		}
	}

	var env model.Envelope
	if err := json.Unmarshal(line, &env); err == nil && env.Type != "" {
		return env, true
	}
	return model.Envelope{}, false
}
