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

// Package catalogsort orders confirmed documents and search hits by
// filename for display. Peers speak many locales; a plain byte-wise sort
// puts "Zebra.pdf" before "apple.pdf" and scrambles accented filenames,
// so GET /documents supports binary, case-insensitive, and full Unicode
// collation alongside the byte-wise default.
package catalogsort

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collation selects how filenames are compared for sorting.
type Collation string

const (
	// CollationBinary sorts by raw byte value (the Go default `<`).
	CollationBinary Collation = "binary"
	// CollationNocase sorts case-insensitively.
	CollationNocase Collation = "nocase"
	// CollationUnicode sorts using locale-aware Unicode collation rules.
	CollationUnicode Collation = "unicode"
)

// ParseCollation maps a query-string value to a Collation, defaulting to
// CollationBinary for an empty or unrecognized value.
func ParseCollation(s string) Collation {
	switch Collation(strings.ToLower(s)) {
	case CollationNocase:
		return CollationNocase
	case CollationUnicode:
		return CollationUnicode
	default:
		return CollationBinary
	}
}

// Collator compares two filenames under a collation's rules.
type Collator interface {
	Compare(a, b string) int
}

type binaryCollator struct{}

func (binaryCollator) Compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type nocaseCollator struct{}

func (nocaseCollator) Compare(a, b string) int {
	return binaryCollator{}.Compare(strings.ToLower(a), strings.ToLower(b))
}

// unicodeCollator wraps golang.org/x/text/collate for locale-aware
// ordering (accents, case, and script-specific tailoring).
type unicodeCollator struct {
	c *collate.Collator
}

func newUnicodeCollator(locale string) unicodeCollator {
	tag := language.Make(locale)
	if tag == language.Und {
		tag = language.English
	}
	return unicodeCollator{c: collate.New(tag, collate.Loose)}
}

func (u unicodeCollator) Compare(a, b string) int {
	return u.c.CompareString(a, b)
}

// NewCollator returns the Collator for the given Collation and locale
// (locale is only consulted for CollationUnicode; BCP 47, e.g. "de", "tr").
func NewCollator(c Collation, locale string) Collator {
	switch c {
	case CollationNocase:
		return nocaseCollator{}
	case CollationUnicode:
		return newUnicodeCollator(locale)
	default:
		return binaryCollator{}
	}
}

// Named is anything with a display filename to sort on.
type Named interface {
	SortKey() string
}

// SortByName stably sorts items by SortKey() under the given collation.
func SortByName[T Named](items []T, c Collation, locale string) {
	coll := NewCollator(c, locale)
	sort.SliceStable(items, func(i, j int) bool {
		return coll.Compare(items[i].SortKey(), items[j].SortKey()) < 0
	})
}
