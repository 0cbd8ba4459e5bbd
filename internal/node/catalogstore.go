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
	"os"
	"path/filepath"
	"time"

	"catalogmesh/internal/audit"
	"catalogmesh/internal/model"
)

func (n *Node) catalogPath() string {
	return filepath.Join(n.cfg.DataDir, "catalog.json")
}

// persistCatalog writes the catalog to its JSON file, compressed with the
// node's configured algorithm, outside the context mutex.
func (n *Node) persistCatalog(catalog *model.Catalog) error {
	if err := os.MkdirAll(n.cfg.DataDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return err
	}
	packed, err := n.compressor.Compress(data)
	if err != nil {
		return err
	}
	return os.WriteFile(n.catalogPath(), packed, 0o644)
}

// LoadCatalog reads the persisted catalog at startup. A corrupt file
// (whether at the compression-framing or the JSON layer) is quarantined
// by renaming it with a timestamp suffix, and the node starts cleanly
// with an empty catalog instead of failing.
func (n *Node) LoadCatalog() error {
	path := n.catalogPath()
	packed, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		n.mu.Lock()
		n.catalog = &model.Catalog{}
		n.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}

	data, decErr := n.compressor.Decompress(packed, n.cfg.CatalogCompression)
	if decErr != nil {
		n.log.Warn("corrupt catalog framing, quarantining and starting empty", "error", decErr.Error())
		return n.quarantineCatalog(path)
	}

	var catalog model.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		n.log.Warn("corrupt catalog JSON, quarantining and starting empty", "error", err.Error())
		return n.quarantineCatalog(path)
	}

	n.mu.Lock()
	n.catalog = &catalog
	n.mu.Unlock()
	return n.rebuildVectorIndex(&catalog)
}

// quarantineCatalog renames a corrupt catalog file aside with a timestamp
// suffix and resets in-memory state to an empty catalog.
func (n *Node) quarantineCatalog(path string) error {
	backup := path + "." + time.Now().UTC().Format("20060102T150405Z") + ".bak"
	if renameErr := os.Rename(path, backup); renameErr != nil {
		n.log.Error("failed to quarantine corrupt catalog", "error", renameErr.Error())
	}
	n.mu.Lock()
	n.catalog = &model.Catalog{}
	n.mu.Unlock()
	n.audit.LogEvent(audit.Event{Type: audit.EventCatalogQuarantine, PeerID: n.peerID, Detail: map[string]any{"backup": backup}})
	return nil
}

// CatalogSnapshot returns a copy of the current catalog for read-only use
// (e.g. GET /documents, GET /status).
func (n *Node) CatalogSnapshot() model.Catalog {
	n.mu.Lock()
	defer n.mu.Unlock()
	return *n.catalog
}
