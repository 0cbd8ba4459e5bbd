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
	"time"

	"catalogmesh/internal/model"
)

// Status is the GET /status response shape: a point-in-time snapshot of
// this node's view of the cluster.
type Status struct {
	PeerID            string                   `json:"peer_id"`
	State             string                   `json:"state"`
	Term              uint64                   `json:"term"`
	LeaderID          string                   `json:"leader_id,omitempty"`
	VersionConfirmed  uint64                   `json:"version_confirmed"`
	TotalConfirmed    int                      `json:"total_confirmed"`
	TotalPeers        int                      `json:"total_peers"`
	LivePeers         []string                 `json:"live_peers"`
	PendingProposals  []model.PendingProposal  `json:"pending_proposals"`
	StartedAt         time.Time                `json:"started_at"`
}

// StatusSnapshot assembles the GET /status payload.
func (n *Node) StatusSnapshot() Status {
	n.mu.Lock()
	defer n.mu.Unlock()

	pending := make([]model.PendingProposal, 0, len(n.sessions))
	for _, s := range n.sessions {
		pending = append(pending, model.PendingProposal{
			DocID:         s.DocID,
			Filename:      s.Filename,
			ApproveCount:  s.ApproveCount(),
			RequiredVotes: s.RequiredVotes,
		})
	}

	now := time.Now()
	n.markPeerLocked(n.peerID, now)
	n.evictStaleLocked(now)
	liveIDs := make([]string, 0, len(n.peers))
	for id := range n.peers {
		liveIDs = append(liveIDs, id)
	}

	return Status{
		PeerID:           n.peerID,
		State:            n.state.String(),
		Term:             n.term,
		LeaderID:         n.leaderID,
		VersionConfirmed: n.catalog.VersionConfirmed,
		TotalConfirmed:   len(n.catalog.DocumentsConfirmed),
		TotalPeers:       len(n.peers),
		LivePeers:        liveIDs,
		PendingProposals: pending,
		StartedAt:        n.startedAt,
	}
}

// Download streams a file's bytes back out of content-addressed storage,
// for GET /download/{cid}.
func (n *Node) Download(ctx context.Context, cid string) ([]byte, error) {
	return n.blob.Cat(ctx, cid)
}
