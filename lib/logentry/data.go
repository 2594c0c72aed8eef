// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logentry

import (
	"fmt"
	"strings"
)

// Kind names the variant held by a Data value.
type Kind string

const (
	KindNone        Kind = ""
	KindStateChange Kind = "state_change"
	KindStreaming   Kind = "streaming"
	KindRetrieval   Kind = "retrieval"
	KindChatRecord  Kind = "chat_record"
	KindAPICall     Kind = "api_call"
	KindFault       Kind = "fault"
	KindStorm       Kind = "storm"
	KindOpaque      Kind = "opaque"
)

// Data is the closed union of entry payloads. At most one field is
// set. The zero Data is a valid empty payload.
type Data struct {
	StateChange *StateChange `json:"state_change,omitempty"`
	Streaming   *Streaming   `json:"streaming,omitempty"`
	Retrieval   *Retrieval   `json:"retrieval,omitempty"`
	ChatRecord  *ChatRecord  `json:"chat_record,omitempty"`
	APICall     *APICall     `json:"api_call,omitempty"`
	Fault       *Fault       `json:"fault,omitempty"`
	Storm       *StormNotice `json:"storm,omitempty"`
	Opaque      Opaque       `json:"opaque,omitempty"`
}

// Kind returns the variant held by d. If more than one variant is
// set (which Validate rejects) the first in declaration order wins.
func (d Data) Kind() Kind {
	kinds := d.setKinds()
	if len(kinds) == 0 {
		return KindNone
	}
	return kinds[0]
}

// Validate rejects a Data with more than one variant set.
func (d Data) Validate() error {
	if kinds := d.setKinds(); len(kinds) > 1 {
		return fmt.Errorf("logentry: data has %d variants set (%v), want at most one", len(kinds), kinds)
	}
	return nil
}

func (d Data) setKinds() []Kind {
	var kinds []Kind
	if d.StateChange != nil {
		kinds = append(kinds, KindStateChange)
	}
	if d.Streaming != nil {
		kinds = append(kinds, KindStreaming)
	}
	if d.Retrieval != nil {
		kinds = append(kinds, KindRetrieval)
	}
	if d.ChatRecord != nil {
		kinds = append(kinds, KindChatRecord)
	}
	if d.APICall != nil {
		kinds = append(kinds, KindAPICall)
	}
	if d.Fault != nil {
		kinds = append(kinds, KindFault)
	}
	if d.Storm != nil {
		kinds = append(kinds, KindStorm)
	}
	if len(d.Opaque) > 0 {
		kinds = append(kinds, KindOpaque)
	}
	return kinds
}

// FaultText extracts the message and location that identify an error
// payload for deduplication. Variants without a natural location
// return an empty one.
func (d Data) FaultText() (message, location string) {
	switch d.Kind() {
	case KindFault:
		location = d.Fault.Location
		if location == "" {
			location = d.Fault.Reason
		}
		return d.Fault.Message, location
	case KindAPICall:
		return d.APICall.Error, strings.TrimSpace(d.APICall.Method + " " + d.APICall.Endpoint)
	case KindStreaming:
		return d.Streaming.Error, string(d.Streaming.Phase)
	case KindRetrieval:
		return "retrieval divergence", d.Retrieval.Query
	case KindChatRecord:
		return "chat record divergence", d.ChatRecord.ConversationID
	case KindStateChange:
		return d.StateChange.Action, d.StateChange.Store
	case KindStorm:
		return string(d.Storm.Event), ""
	case KindOpaque:
		return d.Opaque.faultText()
	default:
		return "", ""
	}
}

// FieldChange records one key whose value differs between two state
// snapshots. Before is empty for added keys and After for removed ones.
type FieldChange struct {
	Key    string `json:"key"`
	Before Opaque `json:"before,omitempty"`
	After  Opaque `json:"after,omitempty"`
}

// StateChange is a shallow diff between an old and a new state
// snapshot.
type StateChange struct {
	Store          string        `json:"store"`
	Action         string        `json:"action"`
	Changes        []FieldChange `json:"changes,omitempty"`
	UnchangedCount int           `json:"unchanged_count"`
}

// StreamPhase is the lifecycle point a streaming entry reports.
type StreamPhase string

const (
	StreamStart StreamPhase = "start"
	StreamChunk StreamPhase = "chunk"
	StreamEnd   StreamPhase = "end"
	StreamError StreamPhase = "error"
)

// Streaming reports progress of a streamed response.
type Streaming struct {
	StreamID      string      `json:"stream_id"`
	Phase         StreamPhase `json:"phase"`
	ChunkIndex    int         `json:"chunk_index"`
	BytesReceived int64       `json:"bytes_received"`
	ElapsedMillis int64       `json:"elapsed_ms"`
	Error         string      `json:"error,omitempty"`
}

// Retrieval audits a retrieval result against the expected ordering.
// DivergenceIndex is the first position where the sequences differ,
// or -1 when they are identical.
type Retrieval struct {
	Query           string   `json:"query"`
	ExpectedIDs     []string `json:"expected_ids,omitempty"`
	ActualIDs       []string `json:"actual_ids,omitempty"`
	ResultCount     int      `json:"result_count"`
	DivergenceIndex int      `json:"divergence_index"`
	Mismatch        bool     `json:"mismatch"`
	ElapsedMillis   int64    `json:"elapsed_ms"`
}

// ChatRecord audits a persisted conversation against the sequence the
// client believes it holds.
type ChatRecord struct {
	RecordID         string   `json:"record_id"`
	ConversationID   string   `json:"conversation_id"`
	Role             string   `json:"role,omitempty"`
	ExpectedSequence []string `json:"expected_sequence,omitempty"`
	StoredSequence   []string `json:"stored_sequence,omitempty"`
	DivergenceIndex  int      `json:"divergence_index"`
	Mismatch         bool     `json:"mismatch"`
}

// APICall records the outcome of an outbound API request.
type APICall struct {
	Method         string `json:"method"`
	Endpoint       string `json:"endpoint"`
	StatusCode     int    `json:"status_code"`
	DurationMillis int64  `json:"duration_ms"`
	Error          string `json:"error,omitempty"`
}

// Failed reports whether the call errored or returned a 4xx/5xx.
func (a APICall) Failed() bool {
	return a.Error != "" || a.StatusCode >= 400
}

// FaultKind distinguishes the two process-wide notification sources.
type FaultKind string

const (
	FaultUncaughtError      FaultKind = "uncaught_error"
	FaultUnhandledRejection FaultKind = "unhandled_rejection"
)

// Fault describes an uncaught error or unhandled rejection captured by
// the exception bridge.
type Fault struct {
	Kind     FaultKind `json:"kind"`
	Message  string    `json:"message"`
	Location string    `json:"location,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// StormEvent names a synthetic notice emitted by the pipeline itself.
type StormEvent string

const (
	StormCircuitOpen        StormEvent = "circuit_breaker_open"
	StormCircuitClosed      StormEvent = "circuit_breaker_closed"
	StormRateLimited        StormEvent = "rate_limited"
	StormSuppressionSummary StormEvent = "suppression_summary"
)

// StormNotice is the payload of a synthetic pipeline entry. Only the
// fields relevant to Event are populated.
type StormNotice struct {
	Event            StormEvent `json:"event"`
	ErrorsThisMinute int        `json:"errors_this_minute,omitempty"`
	Threshold        int        `json:"threshold,omitempty"`
	CooldownMillis   int64      `json:"cooldown_ms,omitempty"`
	DroppedCount     int        `json:"dropped_count,omitempty"`
	LogsThisMinute   int        `json:"logs_this_minute,omitempty"`
	MaxLogsPerMinute int        `json:"max_logs_per_minute,omitempty"`
	SuppressedTotal  int        `json:"suppressed_total,omitempty"`
	Fingerprints     int        `json:"fingerprints,omitempty"`
}
