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
	"os"
	"path/filepath"
	"testing"

	"catalogmesh/internal/model"
)

func TestLoadCatalogMissingFileStartsEmpty(t *testing.T) {
	n, _ := newTestNode(t, "self")
	if err := n.LoadCatalog(); err != nil {
		t.Fatalf("unexpected error loading absent catalog: %v", err)
	}
	if n.CatalogSnapshot().VersionConfirmed != 0 {
		t.Error("expected version_confirmed 0 for a fresh node")
	}
}

func TestPersistAndReloadCatalogRoundTrips(t *testing.T) {
	n, _ := newTestNode(t, "self")
	catalog := &model.Catalog{
		VersionConfirmed: 2,
		DocumentsConfirmed: []model.CatalogEntry{
			{CID: "cid-1", Filename: "a.txt"},
		},
	}
	if err := n.persistCatalog(catalog); err != nil {
		t.Fatalf("persistCatalog failed: %v", err)
	}

	reloaded, _ := newTestNode(t, "self")
	reloaded.cfg.DataDir = n.cfg.DataDir
	if err := reloaded.LoadCatalog(); err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	snap := reloaded.CatalogSnapshot()
	if snap.VersionConfirmed != 2 || len(snap.DocumentsConfirmed) != 1 {
		t.Fatalf("expected persisted catalog to round-trip, got %+v", snap)
	}
}

func TestLoadCatalogQuarantinesCorruptFile(t *testing.T) {
	n, _ := newTestNode(t, "self")
	if err := os.MkdirAll(n.cfg.DataDir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(n.catalogPath(), []byte("{not valid json"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if err := n.LoadCatalog(); err != nil {
		t.Fatalf("expected corrupt catalog to be quarantined, not returned as an error: %v", err)
	}
	if n.CatalogSnapshot().VersionConfirmed != 0 {
		t.Error("expected empty catalog after quarantining corrupt json")
	}

	entries, err := os.ReadDir(n.cfg.DataDir)
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	foundBackup := false
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".bak" {
			foundBackup = true
		}
	}
	if !foundBackup {
		t.Error("expected a .bak quarantine file to be created for the corrupt catalog")
	}
}
