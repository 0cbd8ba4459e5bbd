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

package bus

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catalogmesh/internal/model"
)

func TestParseFrameRawLine(t *testing.T) {
	env := model.Envelope{Type: model.TypePeerHeartbeat, PeerID: "peer-1"}
	raw, _ := json.Marshal(env)

	got, ok := parseFrame(raw)
	if !ok {
		t.Fatal("expected ok=true for raw envelope line")
	}
	if got.Type != model.TypePeerHeartbeat || got.PeerID != "peer-1" {
		t.Errorf("unexpected envelope: %+v", got)
	}
}

func TestParseFrameBase64Wrapped(t *testing.T) {
	env := model.Envelope{Type: model.TypeRequestVote, CandidateID: "peer-2", Term: 3}
	innerJSON, _ := json.Marshal(env)
	wrapped := wireWrapper{From: "peer-2", Data: base64.StdEncoding.EncodeToString(innerJSON)}
	raw, _ := json.Marshal(wrapped)

	got, ok := parseFrame(raw)
	if !ok {
		t.Fatal("expected ok=true for base64-wrapped envelope")
	}
	if got.Type != model.TypeRequestVote || got.CandidateID != "peer-2" || got.Term != 3 {
		t.Errorf("unexpected envelope: %+v", got)
	}
}

func TestParseFrameMalformedDropped(t *testing.T) {
	if _, ok := parseFrame([]byte("not json at all")); ok {
		t.Error("expected malformed frame to be dropped")
	}
	if _, ok := parseFrame([]byte("")); ok {
		t.Error("expected empty frame to be dropped")
	}
	if _, ok := parseFrame([]byte(`{"foo":"bar"}`)); ok {
		t.Error("expected frame without a type field to be dropped")
	}
}

func TestGatewayPublishSuccess(t *testing.T) {
	received := make(chan model.Envelope, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env model.Envelope
		json.NewDecoder(r.Body).Decode(&env)
		received <- env
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := New(srv.URL, "test-topic")
	g.Publish(context.Background(), model.Envelope{Type: model.TypePeerHeartbeat, PeerID: "self"})

	select {
	case env := <-received:
		if env.Type != model.TypePeerHeartbeat {
			t.Errorf("unexpected type: %s", env.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("publish never reached server")
	}
}

func TestGatewayPublishFailureIsNonFatal(t *testing.T) {
	g := New("http://127.0.0.1:1", "test-topic")
	// must not panic or block past the publish timeout
	g.Publish(context.Background(), model.Envelope{Type: model.TypePeerHeartbeat, PeerID: "self"})
}

func TestGatewaySubscribeConcatenatedFrames(t *testing.T) {
	e1 := model.Envelope{Type: model.TypePeerHeartbeat, PeerID: "a"}
	e2 := model.Envelope{Type: model.TypePeerHeartbeat, PeerID: "b"}
	b1, _ := json.Marshal(e1)
	b2, _ := json.Marshal(e2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, string(b1)+string(b2))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	g := New(srv.URL, "test-topic")
	ch, err := g.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	var got []model.Envelope
	for i := 0; i < 2; i++ {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatal("channel closed before receiving both frames")
			}
			got = append(got, msg.Envelope)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for concatenated frames")
		}
	}
	if got[0].PeerID != "a" || got[1].PeerID != "b" {
		t.Errorf("unexpected envelopes: %+v", got)
	}
}
