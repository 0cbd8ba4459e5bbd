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

	"catalogmesh/internal/bus"
	"catalogmesh/internal/model"
)

// runDispatchLoop is the single subscription consumer: it marks the
// Peer Registry for every inbound envelope with a non-empty sender, then
// routes by type. Unknown types are ignored silently, per §6.1.
func (n *Node) runDispatchLoop(ctx context.Context, inbound <-chan bus.Inbound) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			if msg.SenderPeerID != "" {
				n.MarkPeer(msg.SenderPeerID)
			}
			n.handleEnvelope(ctx, msg.Envelope)
		}
	}
}

func (n *Node) handleEnvelope(ctx context.Context, env model.Envelope) {
	switch env.Type {
	case model.TypePeerHeartbeat:
		n.onPeerHeartbeat(env)
	case model.TypeLeaderHeartbeat:
		n.onLeaderHeartbeat(env)
	case model.TypeRequestVote:
		n.onRequestVote(ctx, env)
	case model.TypeVoteResponse:
		n.onVoteResponse(env)
	case model.TypeDocumentProposal:
		n.onDocumentProposal(ctx, env)
	case model.TypePeerVote:
		n.onPeerVote(ctx, env)
	case model.TypeDocumentRejected:
		n.onDocumentRejected(env)
	case model.TypeVersionConfirmationReq:
		n.onVersionConfirmationRequest(ctx, env)
	case model.TypeVersionConfirmation:
		n.onVersionConfirmation(ctx, env)
	case model.TypeVectorCommit:
		n.onVectorCommit(env)
	case model.TypeSearchRequest:
		n.onSearchRequest(ctx, env)
	case model.TypeSearchResultReady:
		// advisory only; the leader polls search_results directly.
	case model.TypeSearchResultRequest:
		n.onSearchResultRequest(ctx, env)
	case model.TypeSearchResultResponse:
		n.onSearchResultResponse(env)
	default:
		// unknown envelope type: ignore silently.
	}
}
