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

// startHTTPSurface and stopHTTPSurface invoke the injected hooks outside
// of node.mu: starting/stopping an HTTP listener is a suspension point
// and must never run while the context lock is held.
func (n *Node) startHTTPSurface() {
	n.mu.Lock()
	start := n.startHTTP
	n.mu.Unlock()
	start()
}

func (n *Node) stopHTTPSurface() {
	n.mu.Lock()
	stop := n.stopHTTP
	n.mu.Unlock()
	stop()
}
