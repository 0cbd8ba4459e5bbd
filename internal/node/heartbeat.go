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

// runHeartbeatLoop fires every LeaderHeartbeatInterval regardless of role,
// emitting the leader or follower heartbeat variant.
func (n *Node) runHeartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(LeaderHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.emitHeartbeat(ctx)
		}
	}
}

func (n *Node) emitHeartbeat(ctx context.Context) {
	env, isLeader := n.buildHeartbeatEnvelope()
	n.MarkPeer(n.peerID)
	_ = isLeader
	n.bus.Publish(ctx, env)
}

func (n *Node) buildHeartbeatEnvelope() (model.Envelope, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now()
	if n.state != model.Leader {
		return model.Envelope{
			Type:      model.TypePeerHeartbeat,
			PeerID:    n.peerID,
			State:     n.state.String(),
			Timestamp: now,
		}, false
	}

	pending := make([]model.PendingProposal, 0, len(n.sessions))
	for _, s := range n.sessions {
		if s.Status != model.PendingApproval {
			continue
		}
		pending = append(pending, model.PendingProposal{
			DocID:         s.DocID,
			Filename:      s.Filename,
			ApproveCount:  s.ApproveCount(),
			RequiredVotes: s.RequiredVotes,
		})
	}

	return model.Envelope{
		Type:             model.TypeLeaderHeartbeat,
		LeaderID:         n.peerID,
		Term:             n.term,
		Timestamp:        now,
		PendingProposals: pending,
		TotalConfirmed:   len(n.catalog.DocumentsConfirmed),
		TotalPeers:       n.clusterSizeLockedNoEvict(),
	}, true
}

// clusterSizeLockedNoEvict returns len(n.peers) without triggering a fresh
// eviction sweep, since the caller (heartbeat build) already holds mu and
// a full evictStaleLocked pass isn't needed for a summary count.
func (n *Node) clusterSizeLockedNoEvict() int {
	return len(n.peers)
}

// onPeerHeartbeat just relies on the dispatch loop's MarkPeer; a follower
// heartbeat carries no information this node needs to act on beyond
// liveness tracking.
func (n *Node) onPeerHeartbeat(env model.Envelope) {}

// onLeaderHeartbeat advances last_leader_heartbeat monotonically only when
// the envelope's term is at least as large as the current term, and steps
// down any stale self-belief of leadership from a lower term.
func (n *Node) onLeaderHeartbeat(env model.Envelope) {
	n.mu.Lock()
	demote := n.stepDownIfHigherTermLocked(env.Term, env.LeaderID)
	if env.Term >= n.term {
		if env.Term > n.term {
			n.term = env.Term
		}
		n.leaderID = env.LeaderID
		n.lastLeaderHeartbeat = time.Now()
		if n.state == model.Leader && env.LeaderID != n.peerID {
			n.state = model.Follower
			demote = true
		}
	}
	n.mu.Unlock()

	if demote {
		n.log.Warn("demoted by higher/equal-term leader heartbeat", "leader", env.LeaderID)
		n.stopHTTPSurface()
	}
}
