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

package model

import "time"

// CatalogEntry is one confirmed document in the replicated catalog.
type CatalogEntry struct {
	CID             string    `json:"cid"`
	Filename        string    `json:"filename"`
	AddedAt         time.Time `json:"added_at"`
	EmbeddingCID    string    `json:"embedding_cid"`
	EmbeddingPath   string    `json:"embedding_path"`
}

// SortKey implements catalogsort.Named for filename-based ordering.
func (e CatalogEntry) SortKey() string { return e.Filename }

// Catalog is the per-node persisted replicated document list.
type Catalog struct {
	VersionConfirmed   uint64         `json:"version_confirmed"`
	DocumentsConfirmed []CatalogEntry `json:"documents_confirmed"`
	LastUpdated        time.Time      `json:"last_updated"`
}

// NodeState is a position in the Raft-style election state machine.
type NodeState int

const (
	Follower NodeState = iota
	Candidate
	Leader
)

func (s NodeState) String() string {
	switch s {
	case Follower:
		return "follower"
	case Candidate:
		return "candidate"
	case Leader:
		return "leader"
	default:
		return "unknown"
	}
}

// VoteKind is the two possible verdicts on a VotingSession.
type VoteKind string

const (
	VoteApprove VoteKind = "approve"
	VoteReject  VoteKind = "reject"
)

// SessionStatus is the lifecycle stage of a VotingSession.
type SessionStatus string

const (
	PendingApproval SessionStatus = "pending_approval"
	Approved        SessionStatus = "approved"
	Rejected        SessionStatus = "rejected"
)

// VotingSession tracks the approve/reject ballots for one uploaded document.
type VotingSession struct {
	DocID         string
	Filename      string
	RawBytes      []byte // leader only; nil on peers
	Status        SessionStatus
	ClusterSize   int
	RequiredVotes int
	VotesApprove  map[string]struct{}
	VotesReject   map[string]struct{}
	CreatedAt     time.Time
	DecidedAt     time.Time
}

// NewVotingSession builds a session snapshotting clusterSize at creation time.
func NewVotingSession(docID, filename string, raw []byte, clusterSize int, now time.Time) *VotingSession {
	return &VotingSession{
		DocID:         docID,
		Filename:      filename,
		RawBytes:      raw,
		Status:        PendingApproval,
		ClusterSize:   clusterSize,
		RequiredVotes: clusterSize/2 + 1,
		VotesApprove:  make(map[string]struct{}),
		VotesReject:   make(map[string]struct{}),
		CreatedAt:     now,
	}
}

// AddVote is idempotent and last-writer-wins: peerID is first removed from
// both sets, then inserted into the set named by kind.
func (s *VotingSession) AddVote(peerID string, kind VoteKind) {
	delete(s.VotesApprove, peerID)
	delete(s.VotesReject, peerID)
	switch kind {
	case VoteApprove:
		s.VotesApprove[peerID] = struct{}{}
	case VoteReject:
		s.VotesReject[peerID] = struct{}{}
	}
}

// ApproveCount and RejectCount report the current ballot tallies.
func (s *VotingSession) ApproveCount() int { return len(s.VotesApprove) }
func (s *VotingSession) RejectCount() int  { return len(s.VotesReject) }

// StagedCommit is the per-CID tuple held between version_confirmation_request
// and a matching vector_commit.
type StagedCommit struct {
	Embedding []byte
	Version   uint64
	Hash      string
	Documents []CatalogEntry
}

// ConfirmationSet is the leader's per-version accumulator of (peer, hash) pairs.
type ConfirmationSet struct {
	Hashes    map[string]string // peer_id -> hash
	CreatedAt time.Time
}

// SearchRequest is the leader's bookkeeping record for one dispatched search.
type SearchRequest struct {
	Token      string
	TargetPeer string
	Prompt     string
	TopK       int
	CreatedAt  time.Time
}

// SearchHit is one ranked result row.
type SearchHit struct {
	Rank     int       `json:"rank"`
	Distance float64   `json:"distance"`
	CID      string    `json:"cid"`
	Filename string    `json:"filename"`
	AddedAt  time.Time `json:"added_at"`
}

// SearchResult is the outcome of one search, produced by the executing peer.
type SearchResult struct {
	Origin  string      `json:"origin_peer"`
	Results []SearchHit `json:"results"`
}
