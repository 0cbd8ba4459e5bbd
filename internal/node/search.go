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
Search Broker: the leader assigns a search_id + token, dispatches prompts
to a peer round-robin (or runs inline if it is the only live node), and
relays results back to the HTTP caller on a token-validated poll.
*/
package node

import (
	"context"
	"sort"
	"time"

	nodeerrors "catalogmesh/internal/errors"
	"catalogmesh/internal/idgen"
	"catalogmesh/internal/model"
)

// InitSearch is the leader-side entry point for POST /search.
func (n *Node) InitSearch(ctx context.Context, prompt string, topK int) (searchID, token string) {
	peers := n.LivePeers()
	sort.Strings(peers)

	var target string
	if len(peers) <= 1 {
		target = n.peerID
	} else {
		target = peers[n.nextCursor(len(peers))]
	}

	searchID = idgen.NewSearchID()
	token = idgen.NewToken()
	now := time.Now()

	n.mu.Lock()
	n.searchRequests[searchID] = &model.SearchRequest{
		Token: token, TargetPeer: target, Prompt: prompt, TopK: topK, CreatedAt: now,
	}
	n.mu.Unlock()

	n.bus.Publish(ctx, model.Envelope{
		Type:       model.TypeSearchRequest,
		SearchID:   searchID,
		Token:      token,
		Prompt:     prompt,
		TopK:       topK,
		TargetPeer: target,
		LeaderID:   n.peerID,
		Timestamp:  now,
	})

	if target == n.peerID {
		go n.executeSearchLocally(ctx, searchID, prompt, topK)
	}
	return searchID, token
}

// nextCursor returns cursor mod n and advances the round-robin cursor.
func (n *Node) nextCursor(cnt int) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	idx := n.searchCursor % cnt
	n.searchCursor++
	return idx
}

// onSearchRequest executes a dispatched search if this node is the
// addressed target.
func (n *Node) onSearchRequest(ctx context.Context, env model.Envelope) {
	if env.TargetPeer != n.peerID {
		return
	}
	go n.executeSearchLocally(ctx, env.SearchID, env.Prompt, env.TopK)
}

// executeSearchLocally loads the local similarity index, embeds the
// prompt, retrieves top-k nearest by L2 distance, and publishes an
// advisory search_result_ready notification.
func (n *Node) executeSearchLocally(ctx context.Context, searchID, prompt string, topK int) {
	vec := n.embedder.Embed(prompt)

	n.indexMu.RLock()
	idx := n.index
	n.indexMu.RUnlock()

	hits := idx.Search(vec, topK)
	result := &model.SearchResult{Origin: n.peerID, Results: hits}

	n.mu.Lock()
	n.searchResults[searchID] = result
	n.mu.Unlock()

	n.bus.Publish(ctx, model.Envelope{
		Type:      model.TypeSearchResultReady,
		SearchID:  searchID,
		PeerID:    n.peerID,
		Timestamp: time.Now(),
	})
}

// PollSearch implements GET /search/{id}?token=. status is "ok" when
// result is populated, "processing" when the caller should retry 202,
// and err is non-nil for an unknown id or a token mismatch.
func (n *Node) PollSearch(ctx context.Context, searchID, token string) (status string, result *model.SearchResult, err *nodeerrors.NodeError) {
	n.mu.Lock()
	req, ok := n.searchRequests[searchID]
	n.mu.Unlock()
	if !ok {
		return "", nil, nodeerrors.UnknownSearchID(searchID)
	}
	if req.Token != token {
		return "", nil, nodeerrors.BadSearchToken()
	}

	if req.TargetPeer == n.peerID {
		if res, ok := n.getSearchResult(searchID); ok {
			return "ok", res, nil
		}
		return "processing", nil, nil
	}

	n.bus.Publish(ctx, model.Envelope{
		Type:       model.TypeSearchResultRequest,
		SearchID:   searchID,
		FromLeader: n.peerID,
		TargetPeer: req.TargetPeer,
		Timestamp:  time.Now(),
	})

	deadline := time.Now().Add(SearchPollTimeout)
	ticker := time.NewTicker(SearchPollInterval)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		if res, ok := n.getSearchResult(searchID); ok {
			return "ok", res, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return "processing", nil, nil
		}
	}
	return "processing", nil, nil
}

func (n *Node) getSearchResult(searchID string) (*model.SearchResult, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	res, ok := n.searchResults[searchID]
	return res, ok
}

// onSearchResultRequest is the addressed peer's side of a leader's poll:
// it waits up to SearchPollTimeout for its own local execution to finish,
// then replies with search_result_response. If no result appears in that
// window it sends no reply.
func (n *Node) onSearchResultRequest(ctx context.Context, env model.Envelope) {
	if env.TargetPeer != n.peerID {
		return
	}
	go func() {
		deadline := time.Now().Add(SearchPollTimeout)
		ticker := time.NewTicker(SearchPollInterval)
		defer ticker.Stop()
		for time.Now().Before(deadline) {
			if res, ok := n.getSearchResult(env.SearchID); ok {
				n.bus.Publish(ctx, model.Envelope{
					Type:      model.TypeSearchResultResponse,
					SearchID:  env.SearchID,
					PeerID:    n.peerID,
					Results:   res.Results,
					Timestamp: time.Now(),
				})
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
}

// onSearchResultResponse records the authoritative result for a search on
// the leader. Duplicate deliveries are tolerated as a keyed overwrite.
func (n *Node) onSearchResultResponse(env model.Envelope) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.searchResults[env.SearchID] = &model.SearchResult{Origin: env.PeerID, Results: env.Results}
}
