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

	"catalogmesh/internal/model"
)

func makeLeader(n *Node) {
	n.mu.Lock()
	n.state = model.Leader
	n.leaderID = n.peerID
	n.term = 1
	n.mu.Unlock()
	n.SetHTTPControl(func() {}, func() {})
}

func TestThreeNodeRejectMajority(t *testing.T) {
	n, captured := newTestNode(t, "leader")
	makeLeader(n)
	n.MarkPeer("peer-2")
	n.MarkPeer("peer-3")

	session, err := n.CreateUploadSession(context.Background(), "c.txt", []byte("body"))
	if err != nil {
		t.Fatalf("CreateUploadSession failed: %v", err)
	}
	if session.RequiredVotes != 2 {
		t.Fatalf("expected required votes 2 for a 3-node cluster, got %d", session.RequiredVotes)
	}

	n.applyVoteAndResolve(context.Background(), session.DocID, "peer-2", model.VoteReject)
	n.applyVoteAndResolve(context.Background(), session.DocID, "peer-3", model.VoteReject)

	n.mu.Lock()
	_, stillPending := n.sessions[session.DocID]
	n.mu.Unlock()
	if stillPending {
		t.Error("expected session removed after rejection")
	}

	foundRejected := false
	for _, env := range captured.snapshot() {
		if env.Type == model.TypeDocumentRejected && env.DocID == session.DocID {
			foundRejected = true
		}
	}
	if !foundRejected {
		t.Error("expected document_rejected to be published")
	}

	if n.CatalogSnapshot().VersionConfirmed != 0 {
		t.Error("expected version_confirmed unchanged after rejection")
	}
}

func TestIdempotentVoteMerge(t *testing.T) {
	n, _ := newTestNode(t, "leader")
	makeLeader(n)
	session, _ := n.CreateUploadSession(context.Background(), "a.txt", []byte("x"))

	for i := 0; i < 5; i++ {
		n.applyVoteAndResolve(context.Background(), session.DocID, "peer-2", model.VoteApprove)
	}

	n.mu.Lock()
	s := n.sessions[session.DocID]
	var approveCount int
	if s != nil {
		approveCount = s.ApproveCount()
	}
	n.mu.Unlock()
	if s != nil && approveCount != 1 {
		t.Errorf("expected net single vote despite 5 redeliveries, got %d", approveCount)
	}
}

func TestLastWriterWinsVoteSwitch(t *testing.T) {
	session := model.NewVotingSession("doc-1", "f.txt", nil, 3, time.Now())
	session.AddVote("peer-2", model.VoteApprove)
	session.AddVote("peer-2", model.VoteReject)

	if session.ApproveCount() != 0 {
		t.Error("expected peer-2 removed from approve set after switching vote")
	}
	if session.RejectCount() != 1 {
		t.Error("expected peer-2 present in reject set")
	}
}

func TestSoloUploadApprovalQuorumIsOne(t *testing.T) {
	n, _ := newTestNode(t, "solo")
	makeLeader(n)
	session, err := n.CreateUploadSession(context.Background(), "a.txt", []byte("hello"))
	if err != nil {
		t.Fatalf("CreateUploadSession failed: %v", err)
	}
	if session.RequiredVotes != 1 {
		t.Fatalf("expected required_votes 1 for solo cluster, got %d", session.RequiredVotes)
	}

	n.applyVoteAndResolve(context.Background(), session.DocID, n.peerID, model.VoteApprove)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n.CatalogSnapshot().VersionConfirmed == 1 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	catalog := n.CatalogSnapshot()
	if catalog.VersionConfirmed != 1 {
		t.Fatalf("expected version_confirmed=1 after solo approval, got %d", catalog.VersionConfirmed)
	}
	if len(catalog.DocumentsConfirmed) != 1 || catalog.DocumentsConfirmed[0].Filename != "a.txt" {
		t.Fatalf("unexpected documents_confirmed: %+v", catalog.DocumentsConfirmed)
	}
}
