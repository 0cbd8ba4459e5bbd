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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalogmesh/internal/blobstore"
	"catalogmesh/internal/bus"
	"catalogmesh/internal/config"
	"catalogmesh/internal/discovery"
	"catalogmesh/internal/httpapi"
	"catalogmesh/internal/logging"
	"catalogmesh/internal/node"
	certtls "catalogmesh/internal/tls"
)

func main() {
	configPath := flag.String("config", "", "path to a catalogmesh.conf file")
	flag.Parse()

	mgr := config.Global()
	if *configPath != "" {
		if err := mgr.LoadFromFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config file: %v\n", err)
			os.Exit(1)
		}
	}
	mgr.LoadFromEnv()
	cfg := mgr.Get()

	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	logging.SetJSONMode(cfg.LogJSON)
	log := logging.NewLogger("main")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blob := blobstore.New(cfg.StorageAPIURL)

	// Fatal category: the storage layer must be reachable at startup.
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := blob.Ping(pingCtx); err != nil {
		cancel()
		log.Error("storage layer unreachable at startup, exiting", "url", cfg.StorageAPIURL, "error", err.Error())
		os.Exit(1)
	}
	cancel()

	peerID, err := blob.SelfID(ctx)
	if err != nil {
		log.Error("failed to obtain self peer id from storage layer", "error", err.Error())
		os.Exit(1)
	}
	log.Info("starting node", "peer_id", peerID, "bus_topic", cfg.BusTopic)

	busGW := bus.New(cfg.StorageAPIURL, cfg.BusTopic)
	n := node.New(peerID, node.Config{
		DataDir:            cfg.DataDir,
		EmbeddingDims:      cfg.EmbeddingDims,
		CatalogCompression: cfg.CompressionAlgorithm(),
		AuditLogPath:       cfg.AuditLogPath,
	}, busGW, blob)

	if err := n.LoadCatalog(); err != nil {
		log.Error("failed to load catalog", "error", err.Error())
		os.Exit(1)
	}

	httpSrv := httpapi.New(cfg.HTTPPort, n)
	if cfg.TLSEnabled {
		certPath, keyPath := cfg.TLSCertPath, cfg.TLSKeyPath
		if certPath == "" || keyPath == "" {
			_, certPath, keyPath = certtls.GetDefaultCertPaths()
		}
		if err := certtls.EnsureCertificates(certPath, keyPath, certtls.DefaultCertConfig()); err != nil {
			log.Error("failed to provision tls certificates", "error", err.Error())
			os.Exit(1)
		}
		httpSrv.WithTLS(certPath, keyPath)
	}
	n.SetHTTPControl(httpSrv.Start, httpSrv.Stop)

	if cfg.DiscoveryEnabled {
		adv, err := discovery.Advertise(discovery.AdvertiseConfig{
			PeerID:   peerID,
			BusTopic: cfg.BusTopic,
			HTTPPort: cfg.HTTPPort,
		})
		if err != nil {
			log.Error("failed to start mdns advertisement", "error", err.Error())
		} else {
			defer adv.Shutdown()
		}
	}

	mgr.OnReload(func(c *config.Config) {
		logging.SetGlobalLevel(logging.ParseLevel(c.LogLevel))
		logging.SetJSONMode(c.LogJSON)
	})

	if err := n.Start(ctx); err != nil {
		log.Error("failed to start node", "error", err.Error())
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("shutdown signal received, stopping")
	n.Stop()
}
