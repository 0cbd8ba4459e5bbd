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
	"testing"
	"time"
)

func TestClusterSizeSoloLazySelfInsert(t *testing.T) {
	n, _ := newTestNode(t, "solo")
	if got := n.ClusterSize(); got != 1 {
		t.Errorf("expected cluster size 1 for solo node, got %d", got)
	}
}

func TestClusterSizeCountsMarkedPeers(t *testing.T) {
	n, _ := newTestNode(t, "self")
	n.MarkPeer("peer-2")
	n.MarkPeer("peer-3")
	if got := n.ClusterSize(); got != 3 {
		t.Errorf("expected cluster size 3, got %d", got)
	}
}

func TestEvictStalePeers(t *testing.T) {
	n, _ := newTestNode(t, "self")
	n.mu.Lock()
	n.peers["stale-peer"] = time.Now().Add(-(PeerTimeout + time.Second))
	n.mu.Unlock()

	if got := n.ClusterSize(); got != 1 {
		t.Errorf("expected stale peer evicted, cluster size 1, got %d", got)
	}
}
