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
Commit Core: the two-phase, hash-checked version update. The leader
ingests an approved document into storage, derives its embedding, and
proposes the new catalog version; every peer (leader included, via its
own local staging rather than a bus round-trip) computes and stages a
hash of the proposed document list; once the leader observes a
hash-matching majority it broadcasts vector_commit, and every peer that
staged a matching (version, hash) pair adopts it atomically.
*/
package node

import (
	"context"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"catalogmesh/internal/audit"
	"catalogmesh/internal/embedder"
	"catalogmesh/internal/model"
	"catalogmesh/internal/vectorindex"
)

// runIngestAndCommit executes the Ingest phase for a just-approved
// document, then stages and proposes the resulting catalog version.
func (n *Node) runIngestAndCommit(ctx context.Context, session *model.VotingSession) {
	n.mu.Lock()
	delete(n.sessions, session.DocID)
	n.mu.Unlock()

	text := extractText(session.RawBytes, session.Filename)

	cid1, err := n.blob.Add(ctx, session.RawBytes, session.Filename)
	if err != nil {
		n.log.Warn("ingest: storage add failed for document bytes", "doc_id", session.DocID, "error", err.Error())
		n.removePendingUpload(session.DocID)
		return
	}

	vec := n.embedder.Embed(text)
	embeddingBytes := embedder.EncodeVector(vec)
	cid2, err := n.blob.Add(ctx, embeddingBytes, session.DocID+".vec")
	if err != nil {
		n.log.Warn("ingest: storage add failed for embedding", "doc_id", session.DocID, "error", err.Error())
		n.removePendingUpload(session.DocID)
		return
	}

	if err := n.persistPermanentEmbedding(cid1, embeddingBytes); err != nil {
		n.log.Warn("ingest: failed to persist embedding locally", "doc_id", session.DocID, "error", err.Error())
	}

	now := time.Now()
	n.mu.Lock()
	newVersion := n.catalog.VersionConfirmed + 1
	documents := append(append([]model.CatalogEntry{}, n.catalog.DocumentsConfirmed...), model.CatalogEntry{
		CID:           cid1,
		Filename:      session.Filename,
		AddedAt:       now,
		EmbeddingCID:  cid2,
		EmbeddingPath: filepath.Join(n.cfg.DataDir, "embeddings", cid1),
	})
	n.mu.Unlock()

	hash, err := canonicalHash(documents)
	if err != nil {
		n.log.Error("ingest: failed to hash document list", "doc_id", session.DocID, "error", err.Error())
		return
	}

	n.mu.Lock()
	n.staged[cid1] = &model.StagedCommit{Embedding: embeddingBytes, Version: newVersion, Hash: hash, Documents: documents}
	n.mu.Unlock()

	n.removePendingUpload(session.DocID)

	n.bus.Publish(ctx, model.Envelope{
		Type:         model.TypeDocumentApproved,
		DocID:        session.DocID,
		Filename:     session.Filename,
		CID:          cid1,
		EmbeddingCID: cid2,
		Version:      newVersion,
		VotesApprove: session.ApproveCount(),
		VotesReject:  session.RejectCount(),
		Timestamp:    now,
	})

	n.bus.Publish(ctx, model.Envelope{
		Type:         model.TypeVersionConfirmationReq,
		Version:      newVersion,
		Documents:    documents,
		CID:          cid1,
		EmbeddingCID: cid2,
		Timestamp:    now,
	})

	// The leader confirms its own staged hash immediately rather than
	// round-tripping a version_confirmation to itself over the bus.
	n.recordConfirmationAndMaybeCommit(ctx, newVersion, n.peerID, hash)
}

// extractText attempts a UTF-8 decode of raw; on failure it synthesizes a
// placeholder from filename so embedding still has something to operate on.
func extractText(raw []byte, filename string) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return "binary document: " + filename
}

// onVersionConfirmationRequest is the peer-side half of Propose: reject
// stale versions, fetch the embedding by CID, stage locally, and reply
// with this peer's own computed hash.
func (n *Node) onVersionConfirmationRequest(ctx context.Context, env model.Envelope) {
	n.mu.Lock()
	isLeader := n.state == model.Leader
	localVersion := n.catalog.VersionConfirmed
	n.mu.Unlock()
	if isLeader {
		// this is the bus echo of the leader's own broadcast; the
		// leader already staged directly in runIngestAndCommit.
		return
	}
	if env.Version <= localVersion {
		n.log.Info("dropping stale version_confirmation_request", "version", itoa(env.Version), "local_version", itoa(localVersion))
		return
	}

	embeddingBytes, err := n.blob.Cat(ctx, env.EmbeddingCID)
	if err != nil {
		n.log.Warn("failed to fetch embedding for confirmation", "cid", env.EmbeddingCID, "error", err.Error())
		return
	}
	if err := n.persistTempEmbedding(env.CID, embeddingBytes); err != nil {
		n.log.Warn("failed to persist temp embedding", "cid", env.CID, "error", err.Error())
		return
	}

	hash, err := canonicalHash(env.Documents)
	if err != nil {
		n.log.Error("failed to hash proposed document list", "error", err.Error())
		return
	}

	n.mu.Lock()
	n.staged[env.CID] = &model.StagedCommit{Embedding: embeddingBytes, Version: env.Version, Hash: hash, Documents: env.Documents}
	n.mu.Unlock()

	n.bus.Publish(ctx, model.Envelope{
		Type:      model.TypeVersionConfirmation,
		PeerID:    n.peerID,
		Version:   env.Version,
		Hash:      hash,
		Timestamp: time.Now(),
	})
}

// onVersionConfirmation is the leader-side accumulation step: Quorum.
func (n *Node) onVersionConfirmation(ctx context.Context, env model.Envelope) {
	n.recordConfirmationAndMaybeCommit(ctx, env.Version, env.PeerID, env.Hash)
}

// recordConfirmationAndMaybeCommit records one (peer, hash) pair for a
// version and, once any single hash value reaches quorum, broadcasts
// vector_commit for that (version, hash) and adopts it locally.
func (n *Node) recordConfirmationAndMaybeCommit(ctx context.Context, version uint64, peerID, hash string) {
	var commitHash string
	var shouldCommit bool

	n.mu.Lock()
	if n.state != model.Leader {
		n.mu.Unlock()
		return
	}
	cs, ok := n.confirmations[version]
	if !ok {
		cs = &model.ConfirmationSet{Hashes: make(map[string]string), CreatedAt: time.Now()}
		n.confirmations[version] = cs
	}
	cs.Hashes[peerID] = hash

	required := n.clusterSizeLocked()/2 + 1
	tally := make(map[string]int)
	for _, h := range cs.Hashes {
		tally[h]++
	}
	for h, count := range tally {
		if count >= required {
			commitHash = h
			shouldCommit = true
			break
		}
	}
	n.mu.Unlock()

	if shouldCommit {
		commit := model.Envelope{
			Type:      model.TypeVectorCommit,
			Version:   version,
			Hash:      commitHash,
			LeaderID:  n.peerID,
			Timestamp: time.Now(),
		}
		n.bus.Publish(ctx, commit)
		// The leader adopts its own commit directly; the later bus echo
		// finds no staged entry left and is dropped.
		n.onVectorCommit(commit)
	}
}

// onVectorCommit is the Adopt phase: find a staged entry matching
// (version, hash); if none, drop silently.
func (n *Node) onVectorCommit(env model.Envelope) {
	n.mu.Lock()
	var matchedCID string
	var matched *model.StagedCommit
	for cid, sc := range n.staged {
		if sc.Version == env.Version && sc.Hash == env.Hash {
			matchedCID, matched = cid, sc
			break
		}
	}
	if matched == nil {
		n.mu.Unlock()
		return
	}
	n.catalog.DocumentsConfirmed = n.localizeEmbeddingPathsLocked(matched.Documents)
	n.catalog.VersionConfirmed = matched.Version
	n.catalog.LastUpdated = time.Now()
	catalogCopy := *n.catalog
	delete(n.staged, matchedCID)
	delete(n.confirmations, env.Version)
	n.mu.Unlock()

	if err := n.persistCatalog(&catalogCopy); err != nil {
		n.log.Error("failed to persist catalog after commit", "version", itoa(env.Version), "error", err.Error())
	}
	if err := n.promoteTempEmbeddings(); err != nil {
		n.log.Error("failed to promote temp embeddings", "error", err.Error())
	}
	if err := n.rebuildVectorIndex(&catalogCopy); err != nil {
		n.log.Error("failed to rebuild vector index", "error", err.Error())
	}

	n.audit.LogEvent(audit.Event{
		Type:   audit.EventVersionCommitted,
		PeerID: n.peerID,
		CID:    matchedCID,
		Term:   env.Version,
	})
}

// localizeEmbeddingPathsLocked rewrites EmbeddingPath on every entry to
// point at this node's own embeddings directory. A document list adopted
// from vector_commit came either from this node's own proposal (already
// local) or from the leader's version_confirmation_request broadcast, in
// which case EmbeddingPath still holds the leader's DataDir. The field
// isn't part of what rebuildVectorIndex reads (it recomputes the same
// path from CID), but it is persisted, so it should describe this node's
// filesystem, not the proposer's. Must be called with mu held.
func (n *Node) localizeEmbeddingPathsLocked(docs []model.CatalogEntry) []model.CatalogEntry {
	out := make([]model.CatalogEntry, len(docs))
	for i, d := range docs {
		d.EmbeddingPath = filepath.Join(n.cfg.DataDir, "embeddings", d.CID)
		out[i] = d
	}
	return out
}

func (n *Node) persistPermanentEmbedding(cid string, data []byte) error {
	dir := filepath.Join(n.cfg.DataDir, "embeddings")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, cid), data, 0o644)
}

func (n *Node) persistTempEmbedding(cid string, data []byte) error {
	dir := filepath.Join(n.cfg.DataDir, "temp_embeddings")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, cid), data, 0o644)
}

// promoteTempEmbeddings moves every file currently in temp_embeddings/
// into embeddings/, per-node-local, invoked only during commit adoption.
func (n *Node) promoteTempEmbeddings() error {
	tempDir := filepath.Join(n.cfg.DataDir, "temp_embeddings")
	permDir := filepath.Join(n.cfg.DataDir, "embeddings")
	if err := os.MkdirAll(permDir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src := filepath.Join(tempDir, e.Name())
		dst := filepath.Join(permDir, e.Name())
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// rebuildVectorIndex reads every confirmed entry's embedding file from
// the permanent directory, decodes it, and rebuilds the brute-force L2
// index, replacing it wholesale.
func (n *Node) rebuildVectorIndex(catalog *model.Catalog) error {
	entries := make([]vectorindex.Entry, 0, len(catalog.DocumentsConfirmed))
	for _, doc := range catalog.DocumentsConfirmed {
		path := filepath.Join(n.cfg.DataDir, "embeddings", doc.CID)
		data, err := os.ReadFile(path)
		if err != nil {
			continue // this entry's embedding is missing locally; skip it
		}
		vec, err := embedder.DecodeVector(data)
		if err != nil {
			continue
		}
		entries = append(entries, vectorindex.Entry{CatalogEntry: doc, Vector: vec})
	}

	idx := vectorindex.Build(entries)
	n.indexMu.Lock()
	n.index = idx
	n.indexMu.Unlock()
	return nil
}
