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
Package model holds the shared wire and domain types every catalogmesh
package depends on: bus envelope shapes, the catalog data model, and the
voting/commit/search session types described by the node's coordination
protocol. Centralizing them here keeps internal/bus, internal/node and
internal/httpapi free of import cycles.
*/
package model

import "time"

// EnvelopeType discriminates the bus envelope variants.
type EnvelopeType string

const (
	TypePeerHeartbeat            EnvelopeType = "peer_heartbeat"
	TypeLeaderHeartbeat          EnvelopeType = "leader_heartbeat"
	TypeRequestVote              EnvelopeType = "request_vote"
	TypeVoteResponse             EnvelopeType = "vote_response"
	TypeDocumentProposal         EnvelopeType = "document_proposal"
	TypePeerVote                 EnvelopeType = "peer_vote"
	TypeDocumentApproved         EnvelopeType = "document_approved"
	TypeDocumentRejected         EnvelopeType = "document_rejected"
	TypeVersionConfirmationReq   EnvelopeType = "version_confirmation_request"
	TypeVersionConfirmation      EnvelopeType = "version_confirmation"
	TypeVectorCommit             EnvelopeType = "vector_commit"
	TypeSearchRequest            EnvelopeType = "search_request"
	TypeSearchResultReady        EnvelopeType = "search_result_ready"
	TypeSearchResultRequest      EnvelopeType = "search_result_request"
	TypeSearchResultResponse     EnvelopeType = "search_result_response"
)

// PendingProposal summarizes an in-flight voting session for leader_heartbeat.
type PendingProposal struct {
	DocID          string `json:"doc_id"`
	Filename       string `json:"filename"`
	ApproveCount   int    `json:"approve_count"`
	RequiredVotes  int    `json:"required_votes"`
}

// Envelope is the superset of every field any bus message may carry.
// Each component reads only the fields relevant to its envelope Type;
// unused fields are omitted on the wire via omitempty.
type Envelope struct {
	Type EnvelopeType `json:"type"`

	// Common / heartbeat
	PeerID    string    `json:"peer_id,omitempty"`
	State     string    `json:"state,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	LeaderID         string            `json:"leader_id,omitempty"`
	Term             uint64            `json:"term,omitempty"`
	PendingProposals []PendingProposal `json:"pending_proposals,omitempty"`
	TotalConfirmed   int               `json:"total_confirmed,omitempty"`
	TotalPeers       int               `json:"total_peers,omitempty"`

	// Election
	CandidateID string `json:"candidate_id,omitempty"`
	VoterID     string `json:"voter_id,omitempty"`
	VoteGranted bool   `json:"vote_granted,omitempty"`

	// Voting core
	DocID         string `json:"doc_id,omitempty"`
	Filename      string `json:"filename,omitempty"`
	RequiredVotes int    `json:"required_votes,omitempty"`
	FromPeer      string `json:"from_peer,omitempty"`
	Vote          string `json:"vote,omitempty"`
	CID           string `json:"cid,omitempty"`
	EmbeddingCID  string `json:"embedding_cid,omitempty"`
	Version       uint64 `json:"version,omitempty"`
	VotesApprove  int    `json:"votes_approve,omitempty"`
	VotesReject   int    `json:"votes_reject,omitempty"`

	// Commit core
	Documents []CatalogEntry `json:"documents,omitempty"`
	Hash      string         `json:"hash,omitempty"`

	// Search broker
	SearchID   string         `json:"search_id,omitempty"`
	Token      string         `json:"token,omitempty"`
	Prompt     string         `json:"prompt,omitempty"`
	TopK       int            `json:"top_k,omitempty"`
	TargetPeer string         `json:"target_peer,omitempty"`
	FromLeader string         `json:"from_leader,omitempty"`
	Results    []SearchHit    `json:"results,omitempty"`
}

// SenderID extracts the envelope's self-reported originating peer, used by
// the bus gateway to mark the Peer Registry on every inbound message. Each
// envelope type names its sender through a different field; unrecognized
// types report an empty sender.
func (e Envelope) SenderID() string {
	switch e.Type {
	case TypePeerHeartbeat:
		return e.PeerID
	case TypeLeaderHeartbeat:
		return e.LeaderID
	case TypeRequestVote:
		return e.CandidateID
	case TypeVoteResponse:
		return e.VoterID
	case TypeDocumentProposal:
		return e.FromPeer
	case TypePeerVote:
		return e.PeerID
	case TypeVectorCommit:
		return e.LeaderID
	case TypeVersionConfirmation:
		return e.PeerID
	case TypeSearchRequest:
		return e.LeaderID
	case TypeSearchResultReady, TypeSearchResultResponse:
		return e.PeerID
	case TypeSearchResultRequest:
		return e.FromLeader
	default:
		return ""
	}
}
