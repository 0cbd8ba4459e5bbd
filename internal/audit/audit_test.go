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

package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLogEventWithEmptyPathIsNoOp(t *testing.T) {
	m := NewManager(Config{})
	m.LogEvent(Event{Type: EventUploadReceived, PeerID: "p1"})
	m.Stop()
	if m.Dropped() != 0 {
		t.Fatalf("expected no drops for a disabled manager")
	}
}

func TestLogEventWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	m := NewManager(Config{Path: path, QueueSize: 8})

	m.LogEvent(Event{Type: EventUploadReceived, PeerID: "p1", DocID: "d1", Filename: "a.txt"})
	m.LogEvent(Event{Type: EventDocumentApproved, PeerID: "p1", DocID: "d1"})
	m.Stop()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var count int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decoding audit line: %v", err)
		}
		if e.DocID != "d1" {
			t.Fatalf("got doc_id %q, want d1", e.DocID)
		}
		count++
	}
	if count != 2 {
		t.Fatalf("expected 2 audit lines, got %d", count)
	}
}
