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
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"catalogmesh/internal/blobstore"
	"catalogmesh/internal/bus"
	"catalogmesh/internal/model"
)

// testStorage is a minimal fake of the storage layer's add/cat/id HTTP API.
type testStorage struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	counter int
}

func newTestStorageServer(t *testing.T) *httptest.Server {
	ts := &testStorage{blobs: make(map[string][]byte)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/add", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		defer file.Close()
		buf := make([]byte, 0, 4096)
		tmp := make([]byte, 4096)
		for {
			n, err := file.Read(tmp)
			buf = append(buf, tmp[:n]...)
			if err != nil {
				break
			}
		}
		ts.mu.Lock()
		ts.counter++
		cid := fmt.Sprintf("cid-%d", ts.counter)
		ts.blobs[cid] = buf
		ts.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"Hash": cid})
	})
	mux.HandleFunc("/ipfs/", func(w http.ResponseWriter, r *http.Request) {
		cid := r.URL.Path[len("/ipfs/"):]
		ts.mu.Lock()
		data, ok := ts.blobs[cid]
		ts.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	})
	mux.HandleFunc("/api/v0/id", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"ID": "test-peer"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// testBus captures every published envelope for assertions, and returns
// 200 OK with an empty body for subscribe (unused in these unit tests
// since they call handlers directly rather than running the dispatch
// loop).
type testBus struct {
	mu        sync.Mutex
	published []model.Envelope
}

func newTestBusServer(t *testing.T, captured *testBus) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/pubsub/pub", func(w http.ResponseWriter, r *http.Request) {
		var env model.Envelope
		json.NewDecoder(r.Body).Decode(&env)
		captured.mu.Lock()
		captured.published = append(captured.published, env)
		captured.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v0/pubsub/sub", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (b *testBus) snapshot() []model.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Envelope, len(b.published))
	copy(out, b.published)
	return out
}

func (b *testBus) last() (model.Envelope, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.published) == 0 {
		return model.Envelope{}, false
	}
	return b.published[len(b.published)-1], true
}

func newTestNode(t *testing.T, peerID string) (*Node, *testBus) {
	t.Helper()
	storageSrv := newTestStorageServer(t)
	captured := &testBus{}
	busSrv := newTestBusServer(t, captured)

	blob := blobstore.New(storageSrv.URL)
	busGW := bus.New(busSrv.URL, "test-topic")
	n := New(peerID, Config{DataDir: t.TempDir(), EmbeddingDims: 8}, busGW, blob)
	return n, captured
}
