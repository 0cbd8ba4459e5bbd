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
Raft-style single-round election: a node starts Follower, waits a
randomized startup grace window, then (absent an observed leader
heartbeat) becomes Candidate, requests votes, and either wins a majority
within VoteWaitTimeout or falls back to Follower and retries on the next
leader-liveness timeout.
*/
package node

import (
	"context"
	"math/rand"
	"time"

	"catalogmesh/internal/audit"
	"catalogmesh/internal/model"
)

// runElectionMonitor is the startup-grace / leader-liveness timer. It
// fires an election whenever the node has gone too long without an
// observed leader heartbeat.
func (n *Node) runElectionMonitor(ctx context.Context) {
	delay := randomDuration(ElectionTimeoutMin, ElectionTimeoutMax)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if n.shouldElect() {
				n.runElection(ctx)
			}
			timer.Reset(n.nextMonitorInterval())
		}
	}
}

// shouldElect reports whether this node is due to trigger an election:
// it is not already Leader, and enough time has elapsed since the last
// observed leader heartbeat (or none was ever observed).
func (n *Node) shouldElect() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == model.Leader {
		return false
	}
	if n.lastLeaderHeartbeat.IsZero() {
		return true
	}
	return time.Since(n.lastLeaderHeartbeat) > LeaderTimeout
}

// nextMonitorInterval polls frequently enough to notice LeaderTimeout
// expiring without busy-waiting.
func (n *Node) nextMonitorInterval() time.Duration {
	return 1 * time.Second
}

func randomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := max - min
	return min + time.Duration(rand.Int63n(int64(span)))
}

// runElection drives one candidate round: increment term, vote for self,
// broadcast request_vote, and wait up to VoteWaitTimeout for a majority.
func (n *Node) runElection(ctx context.Context) {
	term, cluster := n.becomeCandidate()

	n.bus.Publish(ctx, model.Envelope{
		Type:        model.TypeRequestVote,
		CandidateID: n.peerID,
		Term:        term,
		Timestamp:   time.Now(),
	})

	required := cluster/2 + 1
	deadline := time.Now().Add(VoteWaitTimeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n.votesForTerm(term) >= required {
				n.becomeLeader(term)
				return
			}
		}
	}
	n.electionTimedOut(term)
}

// becomeCandidate atomically increments the term, transitions to
// Candidate, votes for self, and returns the new term and the current
// cluster-size snapshot used to compute the majority threshold.
func (n *Node) becomeCandidate() (uint64, int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.term++
	n.state = model.Candidate
	n.votedFor = n.peerID
	n.electionTerm = n.term
	n.votesReceived = map[string]struct{}{n.peerID: {}}
	n.leaderID = ""

	now := time.Now()
	n.markPeerLocked(n.peerID, now)
	n.evictStaleLocked(now)
	return n.term, len(n.peers)
}

func (n *Node) votesForTerm(term uint64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.electionTerm != term || n.state != model.Candidate {
		return 0
	}
	return len(n.votesReceived)
}

// becomeLeader transitions Candidate -> Leader and starts the HTTP surface.
func (n *Node) becomeLeader(term uint64) {
	n.mu.Lock()
	if n.electionTerm != term || n.state != model.Candidate {
		n.mu.Unlock()
		return
	}
	n.state = model.Leader
	n.leaderID = n.peerID
	n.mu.Unlock()

	n.log.Info("elected leader", "term", itoa(term))
	n.audit.LogEvent(audit.Event{Type: audit.EventLeaderElected, PeerID: n.peerID, Term: term})
	n.startHTTPSurface()
}

// electionTimedOut falls back Candidate -> Follower when no majority is
// reached within VoteWaitTimeout.
func (n *Node) electionTimedOut(term uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.electionTerm == term && n.state == model.Candidate {
		n.state = model.Follower
		n.votedFor = ""
	}
}

// onRequestVote implements the single-vote-per-term grant rule and the
// higher-term step-down rule.
func (n *Node) onRequestVote(ctx context.Context, env model.Envelope) {
	grant, voterID, candidate, term, steppedDown := n.evaluateVoteRequest(env)
	if steppedDown {
		n.log.Warn("demoted by higher-term request_vote", "term", itoa(env.Term))
		n.stopHTTPSurface()
	}
	if voterID == "" {
		return
	}
	n.bus.Publish(ctx, model.Envelope{
		Type:        model.TypeVoteResponse,
		VoterID:     voterID,
		CandidateID: candidate,
		Term:        term,
		VoteGranted: grant,
		Timestamp:   time.Now(),
	})
}

func (n *Node) evaluateVoteRequest(env model.Envelope) (grant bool, voterID, candidate string, term uint64, steppedDown bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	steppedDown = n.stepDownIfHigherTermLocked(env.Term, "")

	if env.Term < n.term {
		return false, "", "", 0, steppedDown
	}
	if env.Term > n.term {
		// stepDownIfHigherTermLocked already adopted env.Term above.
	}
	if n.votedFor != "" && n.votedFor != env.CandidateID {
		return false, n.peerID, env.CandidateID, env.Term, steppedDown
	}
	n.votedFor = env.CandidateID
	return true, n.peerID, env.CandidateID, env.Term, steppedDown
}

// onVoteResponse tallies a vote_response addressed to this node as the
// current candidate for the matching term.
func (n *Node) onVoteResponse(env model.Envelope) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if env.CandidateID != n.peerID {
		return
	}
	if n.state != model.Candidate || env.Term != n.electionTerm {
		return
	}
	if env.VoteGranted {
		n.votesReceived[env.VoterID] = struct{}{}
	}
}

// stepDownIfHigherTermLocked implements "a request-vote envelope from term
// T > current_term forces current_term <- T, state -> Follower, voted_for
// <- cleared, leader_id <- cleared". Must be called with mu held. The
// leaderHint argument is not used: leader_id is always cleared on a
// step-down. Reports whether this node
// was Leader before the step-down: a leader observing a strictly-higher
// term in any envelope must stop serving its HTTP surface, so callers must
// call stopHTTPSurface() after releasing mu when this returns true.
func (n *Node) stepDownIfHigherTermLocked(term uint64, leaderHint string) bool {
	if term <= n.term {
		return false
	}
	wasLeader := n.state == model.Leader
	n.term = term
	n.state = model.Follower
	n.votedFor = ""
	n.leaderID = ""
	if wasLeader {
		n.audit.LogEvent(audit.Event{Type: audit.EventLeaderStepDown, PeerID: n.peerID, Term: term})
	}
	return wasLeader
}
