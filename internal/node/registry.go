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
	"time"

	"catalogmesh/internal/audit"
)

// markPeerLocked upserts peerID's last-seen timestamp to now. Called with the
// lock already held, from every inbound envelope with a non-empty sender
// and from the heartbeat loop marking self.
func (n *Node) markPeerLocked(peerID string, now time.Time) {
	if peerID == "" {
		return
	}
	n.peers[peerID] = now
}

// MarkPeer upserts peerID's last-seen timestamp to now.
func (n *Node) MarkPeer(peerID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.markPeerLocked(peerID, time.Now())
}

// evictStaleLocked drops peers whose last-seen timestamp predates
// PeerTimeout relative to now. The lock must already be held.
func (n *Node) evictStaleLocked(now time.Time) {
	for id, lastSeen := range n.peers {
		if id == n.peerID {
			continue
		}
		if now.Sub(lastSeen) > PeerTimeout {
			delete(n.peers, id)
			n.audit.LogEvent(audit.Event{Type: audit.EventPeerEvicted, PeerID: id})
		}
	}
}

// ClusterSize evicts stale peers, lazily inserts self, and returns the live
// peer count, so a single isolated node always reports size 1.
func (n *Node) ClusterSize() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clusterSizeLocked()
}

func (n *Node) clusterSizeLocked() int {
	now := time.Now()
	n.markPeerLocked(n.peerID, now)
	n.evictStaleLocked(now)
	return len(n.peers)
}

// LivePeers returns a sorted-by-caller snapshot of live peer identifiers
// (including self), after evicting stale entries.
func (n *Node) LivePeers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := time.Now()
	n.markPeerLocked(n.peerID, now)
	n.evictStaleLocked(now)

	ids := make([]string, 0, len(n.peers))
	for id := range n.peers {
		ids = append(ids, id)
	}
	return ids
}
