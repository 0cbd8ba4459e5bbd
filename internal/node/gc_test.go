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

	"catalogmesh/internal/model"
)

func TestSweepExpiredRemovesStaleSession(t *testing.T) {
	n, _ := newTestNode(t, "self")
	session := model.NewVotingSession("doc-old", "old.txt", nil, 3, time.Now().Add(-(SessionTimeout + time.Second)))
	n.mu.Lock()
	n.sessions["doc-old"] = session
	n.mu.Unlock()

	n.sweepExpired()

	n.mu.Lock()
	_, exists := n.sessions["doc-old"]
	n.mu.Unlock()
	if exists {
		t.Error("expected expired pending session to be swept")
	}
}

func TestSweepExpiredKeepsFreshSession(t *testing.T) {
	n, _ := newTestNode(t, "self")
	session := model.NewVotingSession("doc-fresh", "fresh.txt", nil, 3, time.Now())
	n.mu.Lock()
	n.sessions["doc-fresh"] = session
	n.mu.Unlock()

	n.sweepExpired()

	n.mu.Lock()
	_, exists := n.sessions["doc-fresh"]
	n.mu.Unlock()
	if !exists {
		t.Error("expected a fresh pending session to survive a sweep")
	}
}

func TestSweepExpiredRemovesStaleConfirmation(t *testing.T) {
	n, _ := newTestNode(t, "self")
	n.mu.Lock()
	n.confirmations[1] = &model.ConfirmationSet{
		Hashes:    map[string]string{"self": "h"},
		CreatedAt: time.Now().Add(-(ConfirmationTimeout + time.Second)),
	}
	n.mu.Unlock()

	n.sweepExpired()

	n.mu.Lock()
	_, exists := n.confirmations[1]
	n.mu.Unlock()
	if exists {
		t.Error("expected expired confirmation set to be swept")
	}
}

func TestSweepExpiredEvictsStalePeer(t *testing.T) {
	n, _ := newTestNode(t, "self")
	n.mu.Lock()
	n.peers["stale-peer"] = time.Now().Add(-(PeerTimeout + time.Second))
	n.mu.Unlock()

	n.sweepExpired()

	if got := n.ClusterSize(); got != 1 {
		t.Errorf("expected stale peer evicted by gc sweep, cluster size 1, got %d", got)
	}
}
