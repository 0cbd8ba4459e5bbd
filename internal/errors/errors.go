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
Package errors implements the node's error taxonomy.

Every fallible path in catalogmesh is classified into one of six
categories: transient I/O, protocol conflict, quorum failure, policy
failure, invariant violation, or fatal. Classifying errors this way lets
each caller decide, without string matching, whether to retry on the next
timer tick, drop silently, surface a 403 to an HTTP caller, or exit the
process.
*/
package errors

import "fmt"

// Category is the top-level error classification.
type Category string

const (
	CategoryTransientIO      Category = "transient_io"
	CategoryProtocolConflict Category = "protocol_conflict"
	CategoryQuorumFailure    Category = "quorum_failure"
	CategoryPolicyFailure    Category = "policy_failure"
	CategoryInvariant        Category = "invariant_violation"
	CategoryFatal            Category = "fatal"
)

// ErrorCode is a stable numeric identifier within a category.
type ErrorCode int

const (
	// Transient I/O (1000-1999)
	ErrCodeStorageAdd    ErrorCode = 1000
	ErrCodeStorageCat    ErrorCode = 1001
	ErrCodePublishFailed ErrorCode = 1002
	ErrCodeEmbedFailed   ErrorCode = 1003

	// Protocol conflict (2000-2999)
	ErrCodeStaleVersion   ErrorCode = 2000
	ErrCodeUnknownCommit  ErrorCode = 2001
	ErrCodeUnstagedCommit ErrorCode = 2002

	// Quorum failure (3000-3999)
	ErrCodeElectionNoMajority     ErrorCode = 3000
	ErrCodeConfirmationNoMajority ErrorCode = 3001

	// Policy failure (4000-4999)
	ErrCodeNotLeader       ErrorCode = 4000
	ErrCodeBadSearchToken  ErrorCode = 4001
	ErrCodeUnknownSearchID ErrorCode = 4002

	// Invariant violation (5000-5999)
	ErrCodeCorruptCatalog ErrorCode = 5000

	// Fatal (6000-6999)
	ErrCodeStorageUnreachable ErrorCode = 6000
)

// NodeError is the structured error type returned across catalogmesh.
type NodeError struct {
	Code     ErrorCode
	Category Category
	Message  string
	Detail   string
	Hint     string
	cause    error
}

func (e *NodeError) Error() string {
	msg := fmt.Sprintf("[%s %d] %s", e.Category, e.Code, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.cause != nil {
		msg += fmt.Sprintf(" (cause: %v)", e.cause)
	}
	return msg
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *NodeError) Unwrap() error { return e.cause }

// WithDetail attaches additional machine-oriented context.
func (e *NodeError) WithDetail(detail string) *NodeError {
	e.Detail = detail
	return e
}

// WithHint attaches a human-oriented remediation hint.
func (e *NodeError) WithHint(hint string) *NodeError {
	e.Hint = hint
	return e
}

// WithCause wraps an underlying error.
func (e *NodeError) WithCause(cause error) *NodeError {
	e.cause = cause
	return e
}

// UserMessage renders a message suitable for an HTTP error body or CLI output.
func (e *NodeError) UserMessage() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Hint != "" {
		msg += " HINT: " + e.Hint
	}
	return msg
}

func newError(code ErrorCode, category Category, message string) *NodeError {
	return &NodeError{Code: code, Category: category, Message: message}
}

func NewTransientIOError(message string) *NodeError {
	return newError(ErrCodeStorageAdd, CategoryTransientIO, message)
}

func NewProtocolConflictError(message string) *NodeError {
	return newError(ErrCodeStaleVersion, CategoryProtocolConflict, message)
}

func NewQuorumFailureError(message string) *NodeError {
	return newError(ErrCodeElectionNoMajority, CategoryQuorumFailure, message)
}

func NewPolicyFailureError(message string) *NodeError {
	return newError(ErrCodeNotLeader, CategoryPolicyFailure, message)
}

func NewInvariantError(message string) *NodeError {
	return newError(ErrCodeCorruptCatalog, CategoryInvariant, message)
}

func NewFatalError(message string) *NodeError {
	return newError(ErrCodeStorageUnreachable, CategoryFatal, message)
}

// NotLeader is returned by any leader-only HTTP handler invoked on a follower.
func NotLeader(currentLeader string) *NodeError {
	return newError(ErrCodeNotLeader, CategoryPolicyFailure, "not the leader").
		WithDetail("current leader: " + currentLeader)
}

// BadSearchToken is returned when a search poll's token does not match.
func BadSearchToken() *NodeError {
	return newError(ErrCodeBadSearchToken, CategoryPolicyFailure, "invalid search token")
}

// UnknownSearchID is returned when a search poll references an unknown id.
func UnknownSearchID(id string) *NodeError {
	return newError(ErrCodeUnknownSearchID, CategoryPolicyFailure, "unknown search id").WithDetail(id)
}
