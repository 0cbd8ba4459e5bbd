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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HTTPPort != 5000 {
		t.Errorf("Expected default http_port 5000, got %d", cfg.HTTPPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log_level 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.LogJSON != false {
		t.Errorf("Expected default log_json false, got %v", cfg.LogJSON)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"valid default", DefaultConfig(), false},
		{"invalid port zero", &Config{HTTPPort: 0, BusTopic: "t", StorageAPIURL: "u", DataDir: "d", EmbeddingDims: 4, LogLevel: "info"}, true},
		{"invalid port too high", &Config{HTTPPort: 70000, BusTopic: "t", StorageAPIURL: "u", DataDir: "d", EmbeddingDims: 4, LogLevel: "info"}, true},
		{"empty bus topic", &Config{HTTPPort: 5000, BusTopic: "", StorageAPIURL: "u", DataDir: "d", EmbeddingDims: 4, LogLevel: "info"}, true},
		{"empty data dir", &Config{HTTPPort: 5000, BusTopic: "t", StorageAPIURL: "u", DataDir: "", EmbeddingDims: 4, LogLevel: "info"}, true},
		{"invalid dims", &Config{HTTPPort: 5000, BusTopic: "t", StorageAPIURL: "u", DataDir: "d", EmbeddingDims: 0, LogLevel: "info"}, true},
		{"invalid log level", &Config{HTTPPort: 5000, BusTopic: "t", StorageAPIURL: "u", DataDir: "d", EmbeddingDims: 4, LogLevel: "bogus"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `# test config
bus_topic = "my-cluster"
http_port = 6000
storage_api_url = "http://localhost:5001"
data_dir = "/tmp/data"
log_level = "debug"
log_json = true
`
	path := filepath.Join(tmpDir, "catalogmesh.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	cfg := mgr.Get()
	if cfg.BusTopic != "my-cluster" {
		t.Errorf("Expected bus_topic 'my-cluster', got '%s'", cfg.BusTopic)
	}
	if cfg.HTTPPort != 6000 {
		t.Errorf("Expected http_port 6000, got %d", cfg.HTTPPort)
	}
	if cfg.LogJSON != true {
		t.Errorf("Expected log_json true, got %v", cfg.LogJSON)
	}
	if cfg.ConfigFile != path {
		t.Errorf("Expected ConfigFile %s, got %s", path, cfg.ConfigFile)
	}
}

func TestLoadFromEnv(t *testing.T) {
	orig := os.Getenv(EnvHTTPPort)
	defer os.Setenv(EnvHTTPPort, orig)
	os.Setenv(EnvHTTPPort, "7777")

	mgr := NewManager()
	mgr.LoadFromEnv()
	if mgr.Get().HTTPPort != 7777 {
		t.Errorf("Expected http_port 7777 from env, got %d", mgr.Get().HTTPPort)
	}
}

func TestConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	content := "http_port = 9000\nbus_topic = \"c\"\nstorage_api_url = \"u\"\ndata_dir = \"d\"\nlog_level = \"info\"\n"
	path := filepath.Join(tmpDir, "catalogmesh.conf")
	os.WriteFile(path, []byte(content), 0o644)

	orig := os.Getenv(EnvHTTPPort)
	defer os.Setenv(EnvHTTPPort, orig)
	os.Setenv(EnvHTTPPort, "1234")

	mgr := NewManager()
	mgr.LoadFromFile(path)
	mgr.LoadFromEnv()

	if mgr.Get().HTTPPort != 1234 {
		t.Errorf("Expected env override to win, got %d", mgr.Get().HTTPPort)
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "subdir", "catalogmesh.conf")

	cfg := DefaultConfig()
	cfg.HTTPPort = 9100
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if mgr.Get().HTTPPort != 9100 {
		t.Errorf("Expected 9100, got %d", mgr.Get().HTTPPort)
	}

	reloaded := false
	mgr.OnReload(func(c *Config) { reloaded = true })

	newContent := strings.Replace(cfg.ToTOML(), "9100", "9200", 1)
	if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	if err := mgr.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if mgr.Get().HTTPPort != 9200 {
		t.Errorf("Expected reloaded port 9200, got %d", mgr.Get().HTTPPort)
	}
	if !reloaded {
		t.Error("OnReload callback was not invoked")
	}
}

func TestGlobalManager(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestConfigString(t *testing.T) {
	s := DefaultConfig().String()
	if !strings.Contains(s, "HTTPPort:") {
		t.Error("String() missing HTTPPort")
	}
}
