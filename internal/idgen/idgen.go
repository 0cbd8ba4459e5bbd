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
Package idgen generates the UUIDs the coordination protocol requires:
document identifiers, search identifiers, and search poll tokens.
*/
package idgen

import "github.com/google/uuid"

// NewDocID returns a fresh document identifier.
func NewDocID() string { return uuid.NewString() }

// NewSearchID returns a fresh search identifier.
func NewSearchID() string { return uuid.NewString() }

// NewToken returns a fresh search poll token.
func NewToken() string { return uuid.NewString() }
