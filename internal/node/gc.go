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
Garbage Collector: a background sweep that drops voting sessions that
never reached quorum within SessionTimeout (together with their
pending_uploads/ file, if any), confirmation aggregates older
than ConfirmationTimeout, and peers that have gone silent past
PeerTimeout. None of these sweeps requires cross-cluster coordination —
every node converges independently.
*/
package node

import (
	"context"
	"time"
)

const gcSweepInterval = 5 * time.Second

func (n *Node) runGC(ctx context.Context) {
	ticker := time.NewTicker(gcSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.sweepExpired()
		}
	}
}

func (n *Node) sweepExpired() {
	now := time.Now()
	var expired []string

	n.mu.Lock()
	for docID, session := range n.sessions {
		// Approved/Rejected sessions are removed synchronously by their
		// own transition handlers; this sweep only catches sessions
		// that never reached quorum within the GC horizon.
		if now.Sub(session.CreatedAt) > SessionTimeout {
			delete(n.sessions, docID)
			expired = append(expired, docID)
		}
	}
	for version, cs := range n.confirmations {
		if now.Sub(cs.CreatedAt) > ConfirmationTimeout {
			delete(n.confirmations, version)
		}
	}
	n.evictStaleLocked(now)
	n.mu.Unlock()

	for _, docID := range expired {
		n.removePendingUpload(docID)
	}
}
