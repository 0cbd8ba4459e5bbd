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
Package bus is the gateway onto the storage layer's shared publish/
subscribe topic. It exposes Publish(envelope) and a Subscribe stream that
yields (sender_peer_id_or_empty, envelope) pairs, tolerating both framings
the storage layer is observed to use: an outer object with a base64 "data"
field (the HTTP pub/sub endpoint) and a raw JSON line (the CLI subscribe
stream). Malformed frames are dropped silently; publish failures are
logged and swallowed, left for the caller's own periodic timer to retry.
*/
package bus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"catalogmesh/internal/logging"
	"catalogmesh/internal/model"
)

const publishTimeout = 5 * time.Second

// Inbound is one decoded message off the bus, paired with its sender.
type Inbound struct {
	SenderPeerID string
	Envelope     model.Envelope
}

// Gateway publishes to, and subscribes from, a single fixed topic on the
// storage layer's pub/sub bus.
type Gateway struct {
	baseURL string
	topic   string
	pubHTTP *http.Client // bounded timeout, used for Publish
	subHTTP *http.Client // no timeout: Subscribe holds a long-lived stream
	log     *logging.Logger
}

// New returns a Gateway bound to topic on the storage layer at baseURL.
func New(baseURL, topic string) *Gateway {
	return &Gateway{
		baseURL: baseURL,
		topic:   topic,
		pubHTTP: &http.Client{Timeout: publishTimeout},
		subHTTP: &http.Client{},
		log:     logging.NewLogger("bus"),
	}
}

// Publish sends an envelope to the topic. Failures are logged and
// swallowed: no reliable-delivery guarantee is assumed, and the caller's
// own periodic timer (heartbeat, election) is expected to retry.
func (g *Gateway) Publish(ctx context.Context, env model.Envelope) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	payload, err := json.Marshal(env)
	if err != nil {
		g.log.Warn("failed to marshal envelope", "type", string(env.Type), "error", err.Error())
		return
	}

	url := fmt.Sprintf("%s/api/v0/pubsub/pub?arg=%s", g.baseURL, g.topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		g.log.Warn("failed to build publish request", "type", string(env.Type), "error", err.Error())
		return
	}
	resp, err := g.pubHTTP.Do(req)
	if err != nil {
		g.log.Warn("publish failed", "type", string(env.Type), "error", err.Error())
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		g.log.Warn("publish rejected", "type", string(env.Type), "status", fmt.Sprintf("%d", resp.StatusCode))
	}
}

// Subscribe opens the topic's subscribe stream and returns a channel of
// decoded Inbound messages. The channel closes when ctx is canceled or the
// stream ends. Subscribers must tolerate multiple concatenated JSON
// objects within a single transport frame; a streaming decoder handles
// that without needing newline-delimited input.
func (g *Gateway) Subscribe(ctx context.Context) (<-chan Inbound, error) {
	url := fmt.Sprintf("%s/api/v0/pubsub/sub?arg=%s", g.baseURL, g.topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.subHTTP.Do(req)
	if err != nil {
		return nil, err
	}

	out := make(chan Inbound, 64)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		dec := json.NewDecoder(resp.Body)
		for {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return
			}
			env, ok := parseFrame(raw)
			if !ok {
				continue
			}
			select {
			case out <- Inbound{SenderPeerID: env.SenderID(), Envelope: env}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
