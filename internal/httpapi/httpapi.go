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
Package httpapi is the leader-only HTTP surface: upload, similarity
search dispatch/poll, status, document listing, and a download proxy.
Server.Start is invoked at election win and Server.Stop at demotion; both
are idempotent and race-free, and Stop joins the serving goroutine within
a bounded grace period.
*/
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"catalogmesh/internal/catalogsort"
	nodeerrors "catalogmesh/internal/errors"
	"catalogmesh/internal/logging"
	"catalogmesh/internal/model"
	"catalogmesh/internal/node"
)

const shutdownGrace = 5 * time.Second

// Server is the leader-only HTTP surface, bound to one fixed port.
type Server struct {
	mu       sync.Mutex
	addr     string
	node     *node.Node
	log      *logging.Logger
	httpSrv  *http.Server
	running  bool
	certPath string
	keyPath  string
}

// New builds a Server bound to ":port" and wired to node n. Call Start /
// Stop from n's election transitions (via node.Node.SetHTTPControl).
func New(port int, n *node.Node) *Server {
	return &Server{
		addr: ":" + strconv.Itoa(port),
		node: n,
		log:  logging.NewLogger("httpapi"),
	}
}

// WithTLS enables serving over self-signed TLS using the certificate and
// key at certPath/keyPath. Must be called before Start.
func (s *Server) WithTLS(certPath, keyPath string) *Server {
	s.certPath = certPath
	s.keyPath = keyPath
	return s
}

// Start begins serving. A second Start call while already running is a
// no-op.
func (s *Server) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/search", s.handleSearchInit)
	mux.HandleFunc("/search/", s.handleSearchPoll)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/download/", s.handleDownload)

	s.httpSrv = &http.Server{Addr: s.addr, Handler: mux}
	s.running = true

	useTLS := s.certPath != "" && s.keyPath != ""
	go func() {
		var err error
		if useTLS {
			err = s.httpSrv.ListenAndServeTLS(s.certPath, s.keyPath)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.log.Error("http surface exited unexpectedly", "error", err.Error())
		}
	}()
	s.log.Info("http surface started", "addr", s.addr, "tls", useTLS)
}

// Stop tears down the listener. A second Stop call while already stopped
// is a no-op. Shutdown is joined within shutdownGrace.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	srv := s.httpSrv
	s.running = false
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.log.Warn("http surface shutdown did not complete gracefully", "error", err.Error())
	}
	s.log.Info("http surface stopped")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeNotLeader(w http.ResponseWriter, n *node.Node) {
	writeJSON(w, http.StatusForbidden, map[string]string{
		"error":  nodeerrors.NotLeader(n.LeaderID()).Message,
		"leader": n.LeaderID(),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.node.IsLeader() {
		writeNotLeader(w, s.node)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	session, err := s.node.CreateUploadSession(r.Context(), header.Filename, raw)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "pending_approval",
		"doc_id":         session.DocID,
		"filename":       session.Filename,
		"required_votes": session.RequiredVotes,
		"total_peers":    session.ClusterSize,
	})
}

func (s *Server) handleSearchInit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.node.IsLeader() {
		writeNotLeader(w, s.node)
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
		TopK   int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}

	searchID, token := s.node.InitSearch(r.Context(), req.Prompt, req.TopK)
	writeJSON(w, http.StatusOK, map[string]string{"id": searchID, "token": token})
}

func (s *Server) handleSearchPoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	searchID := r.URL.Path[len("/search/"):]
	token := r.URL.Query().Get("token")

	status, result, nerr := s.node.PollSearch(r.Context(), searchID, token)
	if nerr != nil {
		code := http.StatusNotFound
		if nerr.Code == nodeerrors.ErrCodeBadSearchToken {
			code = http.StatusForbidden
		}
		writeJSON(w, code, map[string]string{"error": nerr.Message})
		return
	}
	if status == "processing" {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "processing"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": searchID, "results": result.Results})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.node.StatusSnapshot())
}

// handleDocuments lists confirmed documents, ordered by filename.
// ?collation=binary|nocase|unicode picks the comparison rule (default
// binary); ?locale=<BCP 47 tag> tailors unicode collation (default "en").
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	catalog := s.node.CatalogSnapshot()
	docs := append([]model.CatalogEntry(nil), catalog.DocumentsConfirmed...)

	collation := catalogsort.ParseCollation(r.URL.Query().Get("collation"))
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = "en"
	}
	catalogsort.SortByName(docs, collation, locale)

	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	cid := r.URL.Path[len("/download/"):]
	data, err := s.node.Download(r.Context(), cid)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}
