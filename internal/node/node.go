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
Package node wires the bus gateway, peer registry, election core,
heartbeat loop, voting core, commit core, search broker and garbage
collector around one shared, mutex-protected NodeContext — here the Node
type. Every mutating operation on Node's fields takes node.mu exactly
once per call; nothing that holds the lock performs disk I/O, storage
calls, or bus publication (see applyVoteAndResolve for the pattern that
replaces the reentrant-mutex idiom the coordination protocol describes:
vote merge and resolution happen inside a single critical section rather
than as two nested lock acquisitions).
*/
package node

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"catalogmesh/internal/audit"
	"catalogmesh/internal/blobstore"
	"catalogmesh/internal/bus"
	"catalogmesh/internal/compression"
	"catalogmesh/internal/embedder"
	"catalogmesh/internal/logging"
	"catalogmesh/internal/model"
	"catalogmesh/internal/vectorindex"
)

const (
	PeerTimeout            = 30 * time.Second
	ElectionTimeoutMin     = 10 * time.Second
	ElectionTimeoutMax     = 15 * time.Second
	LeaderTimeout          = 15 * time.Second
	LeaderHeartbeatInterval = 5 * time.Second
	VoteWaitTimeout        = 3 * time.Second
	FollowerAutoVoteDelay  = 300 * time.Millisecond
	LeaderAutoVoteDelay    = 500 * time.Millisecond
	SessionTimeout         = 300 * time.Second
	ConfirmationTimeout    = 30 * time.Second
	SearchPollTimeout      = 5 * time.Second
	SearchPollInterval     = 200 * time.Millisecond
)

// Config configures one Node instance.
type Config struct {
	DataDir            string
	EmbeddingDims      int
	CatalogCompression compression.Algorithm // AlgorithmNone leaves CatalogCompression unset (no compression)
	// AuditLogPath enables the audit trail when non-empty; see internal/audit.
	AuditLogPath string
}

// Node is the single shared NodeContext described by the coordination
// protocol: one PeerId, one NodeState, one term, and the registry/voting/
// commit/search maps every component mutates. Everything under mu is
// in-memory only; catalog persistence, storage calls and bus publication
// always happen after releasing the lock.
type Node struct {
	mu sync.Mutex

	peerID    string
	state     model.NodeState
	term      uint64
	votedFor  string
	electionTerm uint64
	votesReceived map[string]struct{}

	leaderID            string
	lastLeaderHeartbeat time.Time
	startedAt           time.Time

	peers map[string]time.Time

	sessions map[string]*model.VotingSession

	confirmations map[uint64]*model.ConfirmationSet
	staged        map[string]*model.StagedCommit // keyed by CID1

	searchRequests map[string]*model.SearchRequest
	searchResults  map[string]*model.SearchResult
	searchCursor   int

	catalog *model.Catalog

	running bool

	// Dependencies, immutable after construction.
	cfg        Config
	bus        *bus.Gateway
	blob       *blobstore.Client
	embedder   *embedder.Embedder
	compressor *compression.Compressor
	audit      *audit.Manager
	log        *logging.Logger

	index   *vectorindex.Index
	indexMu sync.RWMutex

	// HTTP surface lifecycle, injected to avoid an import cycle with
	// internal/httpapi (which depends on Node, not the reverse).
	startHTTP func()
	stopHTTP  func()

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New constructs a Node. peerID is obtained from the storage layer at
// startup (blobstore.Client.SelfID) and never changes for the process
// lifetime; per-process term restarts at zero.
func New(peerID string, cfg Config, busGW *bus.Gateway, blob *blobstore.Client) *Node {
	return &Node{
		peerID:         peerID,
		state:          model.Follower,
		votesReceived:  make(map[string]struct{}),
		peers:          make(map[string]time.Time),
		sessions:       make(map[string]*model.VotingSession),
		confirmations:  make(map[uint64]*model.ConfirmationSet),
		staged:         make(map[string]*model.StagedCommit),
		searchRequests: make(map[string]*model.SearchRequest),
		searchResults:  make(map[string]*model.SearchResult),
		catalog:        &model.Catalog{},
		cfg:            cfg,
		bus:            busGW,
		blob:           blob,
		embedder:       embedder.New(cfg.EmbeddingDims),
		compressor:     compression.NewCompressor(compression.Config{Algorithm: cfg.CatalogCompression, MinSize: 256}),
		audit:          audit.NewManager(audit.Config{Path: cfg.AuditLogPath, QueueSize: 256}),
		log:            logging.NewLogger("node"),
		index:          vectorindex.Build(nil),
		startHTTP:      func() {},
		stopHTTP:       func() {},
	}
}

// SetHTTPControl injects the leader-only HTTP surface's start/stop hooks.
func (n *Node) SetHTTPControl(start, stop func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.startHTTP = start
	n.stopHTTP = stop
}

// PeerID returns this process's stable peer identifier.
func (n *Node) PeerID() string { return n.peerID }

// State returns the current Raft-style role.
func (n *Node) State() model.NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Term returns the current election term.
func (n *Node) Term() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.term
}

// LeaderID returns the last-observed leader identifier, or "" if unknown.
func (n *Node) LeaderID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.leaderID
}

// IsLeader reports whether this node currently believes itself the leader.
func (n *Node) IsLeader() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state == model.Leader
}

// PromoteSelfToLeaderForTest seats this node as leader of term 1 without
// running the election protocol, and starts its HTTP surface. It exists
// so callers outside this package (e.g. internal/httpapi's tests) can
// exercise leader-only behavior without waiting out real election timers.
func (n *Node) PromoteSelfToLeaderForTest() {
	n.mu.Lock()
	n.state = model.Leader
	n.term = 1
	n.leaderID = n.peerID
	n.mu.Unlock()
	n.startHTTPSurface()
}

// Start launches every background activity: the bus subscription consumer,
// the heartbeat timer, the election monitor, and the garbage collector.
// The HTTP surface is started/stopped separately, on leader transitions.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	n.startedAt = time.Now()
	n.running = true
	n.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	n.group = g

	inbound, err := n.bus.Subscribe(gctx)
	if err != nil {
		cancel()
		return err
	}

	g.Go(func() error { n.runDispatchLoop(gctx, inbound); return nil })
	g.Go(func() error { n.runHeartbeatLoop(gctx); return nil })
	g.Go(func() error { n.runElectionMonitor(gctx); return nil })
	g.Go(func() error { n.runGC(gctx); return nil })

	return nil
}

// Stop requests graceful shutdown: background goroutines exit on their
// next wakeup, and the HTTP surface (if running) is stopped.
func (n *Node) Stop() {
	n.mu.Lock()
	n.running = false
	wasLeader := n.state == model.Leader
	n.mu.Unlock()

	if wasLeader {
		n.stopHTTPSurface()
	}
	if n.cancel != nil {
		n.cancel()
	}
	if n.group != nil {
		n.group.Wait()
	}
	n.audit.Stop()
}

func (n *Node) isRunning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}
