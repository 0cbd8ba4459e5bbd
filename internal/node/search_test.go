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
	"context"
	"testing"
	"time"

	nodeerrors "catalogmesh/internal/errors"
	"catalogmesh/internal/model"
)

func TestSoloSearchRoundTrip(t *testing.T) {
	n, _ := newTestNode(t, "solo")
	makeLeader(n)

	searchID, token := n.InitSearch(context.Background(), "catalog mesh test", 3)
	if searchID == "" || token == "" {
		t.Fatal("expected non-empty search id and token")
	}

	deadline := time.Now().Add(2 * time.Second)
	var status string
	for time.Now().Before(deadline) {
		var err *nodeerrors.NodeError
		status, _, err = n.PollSearch(context.Background(), searchID, token)
		if err != nil {
			t.Fatalf("unexpected poll error: %v", err)
		}
		if status == "ok" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if status != "ok" {
		t.Fatalf("expected solo search to resolve to ok, got %q", status)
	}
}

func TestPollSearchUnknownID(t *testing.T) {
	n, _ := newTestNode(t, "solo")
	_, _, err := n.PollSearch(context.Background(), "no-such-id", "token")
	if err == nil {
		t.Fatal("expected an error for an unknown search id")
	}
}

func TestPollSearchBadToken(t *testing.T) {
	n, _ := newTestNode(t, "solo")
	makeLeader(n)
	searchID, _ := n.InitSearch(context.Background(), "prompt", 3)

	_, _, err := n.PollSearch(context.Background(), searchID, "wrong-token")
	if err == nil {
		t.Fatal("expected a token mismatch error")
	}
}

func TestSearchRoundRobinCursorAdvances(t *testing.T) {
	n, _ := newTestNode(t, "self")
	first := n.nextCursor(3)
	second := n.nextCursor(3)
	third := n.nextCursor(3)
	fourth := n.nextCursor(3)

	if first != 0 || second != 1 || third != 2 || fourth != 0 {
		t.Errorf("expected cursor sequence 0,1,2,0; got %d,%d,%d,%d", first, second, third, fourth)
	}
}

func TestOnSearchResultResponseOverwritesExistingResult(t *testing.T) {
	n, _ := newTestNode(t, "leader")
	n.mu.Lock()
	n.searchResults["s1"] = nil
	n.mu.Unlock()

	n.onSearchResultResponse(model.Envelope{
		Type: model.TypeSearchResultResponse, SearchID: "s1", PeerID: "peer-2",
	})

	res, ok := n.getSearchResult("s1")
	if !ok || res == nil || res.Origin != "peer-2" {
		t.Errorf("expected search result overwritten with origin peer-2, got %+v", res)
	}
}
