// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracer

import (
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/stormlog/lib/clock"
	"github.com/bureau-foundation/stormlog/lib/logentry"
	"github.com/bureau-foundation/stormlog/lib/storm"
)

// Module names carried by wrapper entries.
const (
	ModuleChatRecord = "chat_record"
	ModuleRetrieval  = "retrieval"
	ModuleState      = "state"
	ModuleStreaming  = "streaming"
	ModuleAPI        = "api"
)

// Gate is the part of the pipeline the wrappers use. *storm.Pipeline
// satisfies it.
type Gate interface {
	SubmitEntry(entry logentry.Entry) storm.Result
	RequestFlush()
}

// Options configures a Tracer.
type Options struct {
	// Gate receives every entry. Required.
	Gate Gate

	// Clock measures stream durations. Defaults to the real clock.
	Clock clock.Clock

	// Context is attached to entries whose call site supplies none.
	Context *logentry.Context
}

// Tracer builds typed entries and submits them to a Gate.
type Tracer struct {
	gate    Gate
	clock   clock.Clock
	context *logentry.Context
}

// New creates a Tracer.
func New(options Options) *Tracer {
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Tracer{gate: options.Gate, clock: clk, context: options.Context}
}

// submit sends one entry and requests an urgent flush when the entry
// is an ERROR or urgent is set and the gate accepted it.
func (t *Tracer) submit(level logentry.Level, module, operation string, data logentry.Data, entryContext *logentry.Context, urgent bool) storm.Result {
	if entryContext == nil {
		entryContext = t.context
	}
	result := t.gate.SubmitEntry(logentry.Entry{
		Level:     level,
		Module:    module,
		Operation: operation,
		Data:      data,
		Context:   entryContext,
	})
	if result.Outcome == storm.Accepted && (urgent || level == logentry.LevelError) {
		t.gate.RequestFlush()
	}
	return result
}

// ChatRecordInfo describes one conversation audit.
type ChatRecordInfo struct {
	RecordID       string
	ConversationID string
	Role           string

	// Expected is the message ID sequence the client holds; Stored is
	// what the store returned.
	Expected []string
	Stored   []string

	Context *logentry.Context
}

// ChatRecord audits a stored conversation. Identical sequences log at
// DEBUG; any divergence logs at ERROR.
func (t *Tracer) ChatRecord(info ChatRecordInfo) storm.Result {
	divergence := DivergenceIndex(info.Expected, info.Stored)
	record := &logentry.ChatRecord{
		RecordID:        info.RecordID,
		ConversationID:  info.ConversationID,
		Role:            info.Role,
		DivergenceIndex: divergence,
		Mismatch:        divergence >= 0,
	}
	level := logentry.LevelDebug
	if record.Mismatch {
		level = logentry.LevelError
		record.ExpectedSequence = info.Expected
		record.StoredSequence = info.Stored
	}
	return t.submit(level, ModuleChatRecord, "audit", logentry.Data{ChatRecord: record}, info.Context, record.Mismatch)
}

// RetrievalInfo describes one retrieval audit.
type RetrievalInfo struct {
	Query    string
	Expected []string
	Actual   []string
	Elapsed  time.Duration
	Context  *logentry.Context
}

// Retrieval audits a result ordering. A divergence logs at WARN and
// requests an urgent flush; a match logs at DEBUG without the ID
// lists.
func (t *Tracer) Retrieval(info RetrievalInfo) storm.Result {
	divergence := DivergenceIndex(info.Expected, info.Actual)
	retrieval := &logentry.Retrieval{
		Query:           info.Query,
		ResultCount:     len(info.Actual),
		DivergenceIndex: divergence,
		Mismatch:        divergence >= 0,
		ElapsedMillis:   info.Elapsed.Milliseconds(),
	}
	level := logentry.LevelDebug
	if retrieval.Mismatch {
		level = logentry.LevelWarn
		retrieval.ExpectedIDs = info.Expected
		retrieval.ActualIDs = info.Actual
	}
	return t.submit(level, ModuleRetrieval, "audit", logentry.Data{Retrieval: retrieval}, info.Context, retrieval.Mismatch)
}

// StateChange records the shallow diff between before and after under
// the given store and action names.
func (t *Tracer) StateChange(store, action string, before, after map[string]any, entryContext *logentry.Context) storm.Result {
	changes, unchanged := ShallowDiff(before, after)
	return t.submit(logentry.LevelDebug, ModuleState, action, logentry.Data{StateChange: &logentry.StateChange{
		Store:          store,
		Action:         action,
		Changes:        changes,
		UnchangedCount: unchanged,
	}}, entryContext, false)
}

// APICallInfo describes one outbound request.
type APICallInfo struct {
	Method     string
	Endpoint   string
	StatusCode int
	Duration   time.Duration

	// Err is the transport error, if the request did not complete.
	Err error

	Context *logentry.Context
}

// APICall records an outbound request.
func (t *Tracer) APICall(info APICallInfo) storm.Result {
	call := &logentry.APICall{
		Method:         info.Method,
		Endpoint:       info.Endpoint,
		StatusCode:     info.StatusCode,
		DurationMillis: info.Duration.Milliseconds(),
	}
	if info.Err != nil {
		call.Error = info.Err.Error()
	}

	level := logentry.LevelDebug
	switch {
	case call.Error != "" || call.StatusCode >= 500:
		level = logentry.LevelError
	case call.StatusCode >= 400:
		level = logentry.LevelWarn
	}
	return t.submit(level, ModuleAPI, info.Method+" "+info.Endpoint, logentry.Data{APICall: call}, info.Context, false)
}

// Stream reports the phases of one streamed response. Not safe for
// concurrent use; a stream belongs to the goroutine consuming it.
type Stream struct {
	tracer    *Tracer
	id        string
	operation string
	context   *logentry.Context
	startedAt time.Time
	chunks    int
	bytes     int64
	finished  bool
}

// StartStream begins tracing a stream and logs its start at DEBUG. An
// empty streamID is replaced by a random UUID. The stream ID is added
// to the entry context of every phase.
func (t *Tracer) StartStream(operation, streamID string) *Stream {
	if streamID == "" {
		streamID = uuid.NewString()
	}
	streamContext := logentry.Context{}
	if t.context != nil {
		streamContext = *t.context
	}
	streamContext.StreamID = streamID

	stream := &Stream{
		tracer:    t,
		id:        streamID,
		operation: operation,
		context:   &streamContext,
		startedAt: t.clock.Now(),
	}
	stream.report(logentry.LevelDebug, logentry.StreamStart, "")
	return stream
}

// ID returns the stream ID.
func (s *Stream) ID() string {
	return s.id
}

// Chunk records one received chunk of size bytes at TRACE.
func (s *Stream) Chunk(size int) storm.Result {
	s.bytes += int64(size)
	result := s.report(logentry.LevelTrace, logentry.StreamChunk, "")
	s.chunks++
	return result
}

// End records successful completion at INFO. Calls after End or Fail
// are ignored.
func (s *Stream) End() storm.Result {
	if s.finished {
		return storm.Result{Outcome: storm.Dropped, Reason: storm.ReasonClosed}
	}
	s.finished = true
	return s.report(logentry.LevelInfo, logentry.StreamEnd, "")
}

// Fail records a stream failure at ERROR. Calls after End or Fail are
// ignored.
func (s *Stream) Fail(err error) storm.Result {
	if s.finished {
		return storm.Result{Outcome: storm.Dropped, Reason: storm.ReasonClosed}
	}
	s.finished = true
	message := "stream failed"
	if err != nil {
		message = err.Error()
	}
	return s.report(logentry.LevelError, logentry.StreamError, message)
}

func (s *Stream) report(level logentry.Level, phase logentry.StreamPhase, errorText string) storm.Result {
	return s.tracer.submit(level, ModuleStreaming, s.operation, logentry.Data{Streaming: &logentry.Streaming{
		StreamID:      s.id,
		Phase:         phase,
		ChunkIndex:    s.chunks,
		BytesReceived: s.bytes,
		ElapsedMillis: s.tracer.clock.Now().Sub(s.startedAt).Milliseconds(),
		Error:         errorText,
	}}, s.context, false)
}
