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

package catalogsort

import "testing"

type fakeEntry string

func (f fakeEntry) SortKey() string { return string(f) }

func TestSortByNameBinaryIsCaseSensitive(t *testing.T) {
	items := []fakeEntry{"banana.txt", "Apple.txt", "cherry.txt"}
	SortByName(items, CollationBinary, "")
	if items[0] != "Apple.txt" {
		t.Fatalf("expected 'Apple.txt' first under binary collation (uppercase sorts before lowercase), got %v", items)
	}
}

func TestSortByNameNocaseIgnoresCase(t *testing.T) {
	items := []fakeEntry{"banana.txt", "Apple.txt", "cherry.txt"}
	SortByName(items, CollationNocase, "")
	want := []fakeEntry{"Apple.txt", "banana.txt", "cherry.txt"}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("nocase sort = %v, want %v", items, want)
		}
	}
}

func TestSortByNameUnicodeOrdersAccentsNearBase(t *testing.T) {
	items := []fakeEntry{"cafe.txt", "café.txt", "cafz.txt"}
	SortByName(items, CollationUnicode, "en")
	if items[len(items)-1] != "cafz.txt" {
		t.Fatalf("expected 'cafz.txt' last under unicode collation, got %v", items)
	}
}

func TestParseCollationDefaultsToBinary(t *testing.T) {
	if ParseCollation("") != CollationBinary {
		t.Fatalf("expected empty string to default to binary")
	}
	if ParseCollation("bogus") != CollationBinary {
		t.Fatalf("expected unrecognized value to default to binary")
	}
	if ParseCollation("NOCASE") != CollationNocase {
		t.Fatalf("expected case-insensitive match on collation name")
	}
}
