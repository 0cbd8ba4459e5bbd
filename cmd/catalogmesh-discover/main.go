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
catalogmesh-discover finds catalogmesh nodes on the local network segment
via mDNS (Bonjour/Avahi). Useful when bootstrapping a new node without a
fixed peer list.

Usage:

	catalogmesh-discover                       # discover (5s timeout)
	catalogmesh-discover --timeout 10          # custom timeout
	catalogmesh-discover --topic my-cluster    # only peers on this bus topic
	catalogmesh-discover --json                # machine-readable output
	catalogmesh-discover --quiet               # addresses only, for scripting
*/
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"catalogmesh/internal/discovery"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

func main() {
	timeout := flag.Int("timeout", 5, "discovery timeout in seconds")
	topic := flag.String("topic", "", "only show peers on this bus topic")
	jsonOutput := flag.Bool("json", false, "output as JSON")
	quiet := flag.Bool("quiet", false, "only output host:port pairs, for scripting")
	flag.Parse()

	// the mdns library logs IPv6 lookup errors that aren't actionable here.
	log.SetOutput(io.Discard)

	if !*quiet && !*jsonOutput {
		fmt.Printf("%s%sℹ%s scanning for catalogmesh peers (timeout: %ds)...\n\n", cyan, bold, reset, *timeout)
	}

	peers, err := discovery.Discover(time.Duration(*timeout)*time.Second, *topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s%s✗%s discovery failed: %v\n", red, bold, reset, err)
		os.Exit(1)
	}

	if len(peers) == 0 {
		if !*quiet && !*jsonOutput {
			fmt.Printf("%s%s⚠%s no catalogmesh peers found.\n", yellow, bold, reset)
			fmt.Printf("%s  mDNS uses UDP port 5353; check firewalls and that peers are on this network segment.%s\n", dim, reset)
		}
		os.Exit(0)
	}

	switch {
	case *jsonOutput:
		data, _ := json.MarshalIndent(peers, "", "  ")
		fmt.Println(string(data))
	case *quiet:
		addrs := make([]string, len(peers))
		for i, p := range peers {
			addrs[i] = fmt.Sprintf("%s:%d", p.Host, p.Port)
		}
		fmt.Println(strings.Join(addrs, ","))
	default:
		fmt.Printf("%s%s✓%s found %d peer(s)\n\n", green, bold, reset, len(peers))
		for i, p := range peers {
			fmt.Printf("  %s[%d]%s %s%s%s\n", dim, i+1, reset, bold+cyan, p.PeerID, reset)
			fmt.Printf("      %saddr:%s      %s:%d\n", dim, reset, p.Host, p.Port)
			if p.BusTopic != "" {
				fmt.Printf("      %sbus_topic:%s %s\n", dim, reset, p.BusTopic)
			}
			fmt.Println()
		}
	}
}
