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
Package discovery advertises and finds catalogmesh peers on the local
network segment via mDNS, for operators bootstrapping a cluster without a
fixed peer list (the service name, bus topic, and HTTP port a freshly
started node should join).
*/
package discovery

import (
	"fmt"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceName = "_catalogmesh._tcp"

// AdvertiseConfig describes this process's own presence for mDNS
// advertisement.
type AdvertiseConfig struct {
	PeerID   string
	BusTopic string
	HTTPPort int
}

// Advertiser holds the running mDNS server; call Shutdown to stop
// broadcasting when the node exits.
type Advertiser struct {
	server *mdns.Server
}

// Advertise starts broadcasting this node's presence. The bus topic is
// carried as a TXT record so discoverers can filter to their own cluster.
func Advertise(cfg AdvertiseConfig) (*Advertiser, error) {
	info := []string{
		"bus_topic=" + cfg.BusTopic,
		"peer_id=" + cfg.PeerID,
	}
	svc, err := mdns.NewMDNSService(cfg.PeerID, serviceName, "", "", cfg.HTTPPort, nil, info)
	if err != nil {
		return nil, fmt.Errorf("discovery: building mdns service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: svc})
	if err != nil {
		return nil, fmt.Errorf("discovery: starting mdns server: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown stops advertising.
func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Peer is one catalogmesh node found on the network.
type Peer struct {
	PeerID   string
	BusTopic string
	Host     string
	Port     int
}

// Discover blocks for timeout, collecting every catalogmesh peer that
// answers an mDNS query, optionally filtered to a single busTopic (all
// topics are returned when busTopic is empty).
func Discover(timeout time.Duration, busTopic string) ([]Peer, error) {
	entries := make(chan *mdns.ServiceEntry, 32)
	var peers []Peer
	done := make(chan struct{})

	go func() {
		defer close(done)
		for e := range entries {
			p := parseEntry(e)
			if busTopic != "" && p.BusTopic != busTopic {
				continue
			}
			peers = append(peers, p)
		}
	}()

	err := mdns.Query(&mdns.QueryParam{
		Service: serviceName,
		Timeout: timeout,
		Entries: entries,
	})
	close(entries)
	<-done
	if err != nil {
		return nil, fmt.Errorf("discovery: mdns query: %w", err)
	}
	return peers, nil
}

func parseEntry(e *mdns.ServiceEntry) Peer {
	p := Peer{Host: e.Host, Port: e.Port}
	for _, field := range e.InfoFields {
		key, val, ok := cutKV(field)
		if !ok {
			continue
		}
		switch key {
		case "peer_id":
			p.PeerID = val
		case "bus_topic":
			p.BusTopic = val
		}
	}
	if p.PeerID == "" {
		p.PeerID = e.Name
	}
	return p
}

func cutKV(s string) (key, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
