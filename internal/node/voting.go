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
Voting Core: per-document approval sessions. A session is created either
by an inbound HTTP upload (leader) or an observed document_proposal
envelope (every node); votes merge idempotently, last-writer-wins; only
the leader drives terminal Approved/Rejected transitions.
*/
package node

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"catalogmesh/internal/audit"
	"catalogmesh/internal/idgen"
	"catalogmesh/internal/model"
)

// CreateUploadSession is the leader-side entry point for POST /upload: it
// snapshots the cluster size, creates a VotingSession, persists the raw
// bytes to pending_uploads/, and broadcasts document_proposal.
func (n *Node) CreateUploadSession(ctx context.Context, filename string, raw []byte) (*model.VotingSession, error) {
	docID := idgen.NewDocID()
	clusterSize := n.ClusterSize()
	now := time.Now()

	session := model.NewVotingSession(docID, filename, raw, clusterSize, now)
	n.mu.Lock()
	n.sessions[docID] = session
	totalPeers := n.clusterSizeLocked()
	n.mu.Unlock()

	if err := n.persistPendingUpload(docID, raw); err != nil {
		return nil, err
	}

	n.bus.Publish(ctx, model.Envelope{
		Type:          model.TypeDocumentProposal,
		DocID:         docID,
		Filename:      filename,
		TotalPeers:    totalPeers,
		RequiredVotes: session.RequiredVotes,
		Timestamp:     now,
		FromPeer:      n.peerID,
	})

	// the leader auto-votes approve for its own proposal after a short delay.
	go n.scheduleAutoVote(ctx, docID, LeaderAutoVoteDelay)

	n.audit.LogEvent(audit.Event{
		Type:     audit.EventUploadReceived,
		PeerID:   n.peerID,
		DocID:    docID,
		Filename: filename,
	})

	return session, nil
}

func (n *Node) persistPendingUpload(docID string, raw []byte) error {
	dir := filepath.Join(n.cfg.DataDir, "pending_uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, docID), raw, 0o644)
}

func (n *Node) removePendingUpload(docID string) {
	_ = os.Remove(filepath.Join(n.cfg.DataDir, "pending_uploads", docID))
}

// onDocumentProposal creates a mirrored, bytes-less VotingSession on every
// non-leader receiver and schedules the randomized follower auto-vote.
func (n *Node) onDocumentProposal(ctx context.Context, env model.Envelope) {
	n.mu.Lock()
	if _, exists := n.sessions[env.DocID]; exists {
		n.mu.Unlock()
		return
	}
	clusterSize := env.TotalPeers
	if clusterSize <= 0 {
		clusterSize = n.clusterSizeLocked()
	}
	session := model.NewVotingSession(env.DocID, env.Filename, nil, clusterSize, time.Now())
	n.sessions[env.DocID] = session
	isLeader := n.state == model.Leader
	n.mu.Unlock()

	if isLeader {
		// the leader already created its own session directly in
		// CreateUploadSession; this is the bus echo of its own
		// broadcast and is ignored to avoid re-voting.
		return
	}
	go n.scheduleAutoVote(ctx, env.DocID, FollowerAutoVoteDelay)
}

// scheduleAutoVote waits delay then applies and publishes an approve vote
// for (docID, self), fulfilling "auto-voting fires at most once per
// (doc_id, self) regardless of proposal redelivery" via add_vote's own
// idempotence.
func (n *Node) scheduleAutoVote(ctx context.Context, docID string, delay time.Duration) {
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return
	}
	n.castVote(ctx, docID, n.peerID, model.VoteApprove)
}

// castVote applies a vote locally and publishes a peer_vote envelope so
// every other node observes it too.
func (n *Node) castVote(ctx context.Context, docID, peerID string, kind model.VoteKind) {
	existed := n.applyVoteAndResolve(ctx, docID, peerID, kind)
	if !existed {
		return
	}
	n.bus.Publish(ctx, model.Envelope{
		Type:      model.TypePeerVote,
		DocID:     docID,
		Vote:      string(kind),
		PeerID:    peerID,
		Timestamp: time.Now(),
	})
}

// onPeerVote applies an inbound peer_vote; only the leader additionally
// runs resolution.
func (n *Node) onPeerVote(ctx context.Context, env model.Envelope) {
	kind := model.VoteApprove
	if env.Vote == string(model.VoteReject) {
		kind = model.VoteReject
	}
	n.applyVoteAndResolve(ctx, env.DocID, env.PeerID, kind)
}

// applyVoteAndResolve merges a vote into the named session and, if this
// node is the leader, evaluates resolution — all within one critical
// section. This is the concrete stand-in for the reentrant-mutex idiom:
// rather than vote-merge calling back into a separately-locked resolution
// step, both happen under a single mu.Lock()/Unlock() pair, since Go's
// sync.Mutex is not reentrant. Any side effects resolution triggers
// (ingestion, publishing document_rejected) are deferred until after the
// lock is released.
func (n *Node) applyVoteAndResolve(ctx context.Context, docID, peerID string, kind model.VoteKind) bool {
	var toIngest *model.VotingSession
	var toReject *model.VotingSession

	n.mu.Lock()
	session, ok := n.sessions[docID]
	if !ok {
		n.mu.Unlock()
		return false
	}
	session.AddVote(peerID, kind)

	if n.state == model.Leader && session.Status == model.PendingApproval {
		switch {
		case session.ApproveCount() >= session.RequiredVotes:
			session.Status = model.Approved
			session.DecidedAt = time.Now()
			toIngest = session
		case session.RejectCount() >= session.RequiredVotes:
			session.Status = model.Rejected
			session.DecidedAt = time.Now()
			toReject = session
		}
	}
	n.mu.Unlock()

	n.audit.LogEvent(audit.Event{
		Type:   audit.EventVoteCast,
		PeerID: peerID,
		DocID:  docID,
		Detail: map[string]any{"kind": string(kind)},
	})

	if toIngest != nil {
		n.audit.LogEvent(audit.Event{Type: audit.EventDocumentApproved, PeerID: n.peerID, DocID: docID})
		go n.runIngestAndCommit(ctx, toIngest)
	}
	if toReject != nil {
		n.audit.LogEvent(audit.Event{Type: audit.EventDocumentRejected, PeerID: n.peerID, DocID: docID})
		n.rejectSession(ctx, toReject)
	}
	return true
}

// rejectSession broadcasts document_rejected and drops the pending file.
func (n *Node) rejectSession(ctx context.Context, session *model.VotingSession) {
	n.bus.Publish(ctx, model.Envelope{
		Type:         model.TypeDocumentRejected,
		DocID:        session.DocID,
		Filename:     session.Filename,
		VotesApprove: session.ApproveCount(),
		VotesReject:  session.RejectCount(),
		Timestamp:    time.Now(),
	})
	n.removePendingUpload(session.DocID)

	n.mu.Lock()
	delete(n.sessions, session.DocID)
	n.mu.Unlock()
}

// onDocumentRejected drops any locally mirrored session for a rejected
// document (followers never decide rejection themselves).
func (n *Node) onDocumentRejected(env model.Envelope) {
	n.mu.Lock()
	delete(n.sessions, env.DocID)
	n.mu.Unlock()
}
