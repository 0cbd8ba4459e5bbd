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

package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestNodeErrorBasic(t *testing.T) {
	err := NewProtocolConflictError("stale version")
	if err.Code != ErrCodeStaleVersion {
		t.Errorf("Expected code %d, got %d", ErrCodeStaleVersion, err.Code)
	}
	if err.Category != CategoryProtocolConflict {
		t.Errorf("Expected category %s, got %s", CategoryProtocolConflict, err.Category)
	}
	if !strings.Contains(err.Error(), "stale version") {
		t.Errorf("Expected error message to contain 'stale version', got: %s", err.Error())
	}
}

func TestNodeErrorWithDetail(t *testing.T) {
	err := NewPolicyFailureError("not leader").WithDetail("leader is peer-2")
	if err.Detail != "leader is peer-2" {
		t.Errorf("Expected detail 'leader is peer-2', got: %s", err.Detail)
	}
	if !strings.Contains(err.Error(), "leader is peer-2") {
		t.Errorf("Expected error to contain detail, got: %s", err.Error())
	}
}

func TestNodeErrorWithHint(t *testing.T) {
	err := NewInvariantError("corrupt catalog").WithHint("catalog quarantined, starting empty")
	msg := err.UserMessage()
	if !strings.Contains(msg, "HINT:") {
		t.Errorf("Expected user message to contain HINT, got: %s", msg)
	}
}

func TestNodeErrorWithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransientIOError("storage add failed").WithCause(cause)
	if err.Unwrap() != cause {
		t.Error("Expected Unwrap to return the cause")
	}
}

func TestNotLeader(t *testing.T) {
	err := NotLeader("peer-7")
	if err.Category != CategoryPolicyFailure {
		t.Errorf("Expected category %s, got %s", CategoryPolicyFailure, err.Category)
	}
	if !strings.Contains(err.Detail, "peer-7") {
		t.Errorf("Expected detail to contain leader id, got: %s", err.Detail)
	}
}

func TestBadSearchTokenAndUnknownSearchID(t *testing.T) {
	if BadSearchToken().Code != ErrCodeBadSearchToken {
		t.Error("unexpected code for BadSearchToken")
	}
	if UnknownSearchID("abc").Code != ErrCodeUnknownSearchID {
		t.Error("unexpected code for UnknownSearchID")
	}
}
