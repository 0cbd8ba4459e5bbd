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
Package blobstore wraps the content-addressed storage layer's HTTP gateway:
add (with pin), cat, and a self_id lookup. The storage layer itself, and
the pub/sub side of it, are explicitly out of scope (see internal/bus for
the publish/subscribe half) — this package is a thin client, not an
implementation of a CAS.
*/
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	nodeerrors "catalogmesh/internal/errors"
)

const (
	addCatTimeout  = 30 * time.Second
	maxAttempts    = 3
	backoffBetween = 1 * time.Second
)

// Client is a thin HTTP client over the storage layer's add/cat/pin/self_id API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client pointed at the storage layer's base API URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: addCatTimeout},
	}
}

// Add content-hashes and pins data under filename, returning its CID.
// Retries up to maxAttempts times with a fixed backoff between attempts.
func (c *Client) Add(ctx context.Context, data []byte, filename string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		cid, err := c.addOnce(ctx, data, filename)
		if err == nil {
			return cid, nil
		}
		lastErr = err
		if attempt < maxAttempts {
			select {
			case <-time.After(backoffBetween):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", nodeerrors.NewTransientIOError("storage add failed").WithCause(lastErr)
}

func (c *Client) addOnce(ctx context.Context, data []byte, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, addCatTimeout)
	defer cancel()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v0/add?pin=true", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("storage add: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Hash string `json:"Hash"`
	}
	if err := decodeJSON(resp.Body, &out); err != nil {
		return "", err
	}
	if out.Hash == "" {
		return "", fmt.Errorf("storage add: empty CID in response")
	}
	return out.Hash, nil
}

// Cat retrieves the bytes behind a CID, retrying like Add.
func (c *Client) Cat(ctx context.Context, cid string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		data, err := c.catOnce(ctx, cid)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if attempt < maxAttempts {
			select {
			case <-time.After(backoffBetween):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, nodeerrors.NewTransientIOError("storage cat failed").WithCause(lastErr)
}

func (c *Client) catOnce(ctx context.Context, cid string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, addCatTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ipfs/"+cid, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage cat: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SelfID asks the storage layer for this process's stable peer identifier.
func (c *Client) SelfID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v0/id", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", nodeerrors.NewFatalError("storage layer unreachable at startup").WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nodeerrors.NewFatalError("storage layer unreachable at startup").
			WithDetail(fmt.Sprintf("status %d", resp.StatusCode))
	}

	var out struct {
		ID string `json:"ID"`
	}
	if err := decodeJSON(resp.Body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Ping checks reachability without requiring a valid self_id response shape,
// used by the startup health check.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v0/id", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("storage ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}
