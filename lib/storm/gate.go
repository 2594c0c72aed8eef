// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import (
	"time"

	"github.com/bureau-foundation/stormlog/lib/logentry"
)

// StormModule is the module name carried by synthetic notices.
const StormModule = "STORM_PROTECTION"

// Outcome is the gate's decision for one submission.
type Outcome uint8

const (
	Accepted Outcome = iota
	Suppressed
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Suppressed:
		return "suppressed"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Reason explains a Suppressed or Dropped outcome.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonDuplicate
	ReasonCircuitOpen
	ReasonRateLimited
	ReasonClosed
	ReasonInvalid
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonDuplicate:
		return "duplicate"
	case ReasonCircuitOpen:
		return "circuit_open"
	case ReasonRateLimited:
		return "rate_limited"
	case ReasonClosed:
		return "closed"
	case ReasonInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Result reports what the gate did with a submission. Callers that
// do not care can ignore it: submission never fails.
type Result struct {
	Outcome Outcome
	Reason  Reason
}

func (r Result) String() string {
	if r.Reason == ReasonNone {
		return r.Outcome.String()
	}
	return r.Outcome.String() + "(" + r.Reason.String() + ")"
}

var accepted = Result{Outcome: Accepted}

// admission collects worker wakeups owed by gate decisions made under
// the lock. They are sent after it is released.
type admission struct {
	wake        bool
	wakeEvicted bool
}

// Submit builds an entry stamped with the current time and passes it
// through the gate.
func (p *Pipeline) Submit(level logentry.Level, module, operation string, data logentry.Data, entryContext *logentry.Context) Result {
	return p.SubmitEntry(logentry.Entry{
		Level:     level,
		Module:    module,
		Operation: operation,
		Data:      data,
		Context:   entryContext,
	})
}

// SubmitEntry passes a fully formed entry through the gate. An entry
// with a zero Timestamp is stamped with the pipeline clock. Entries
// failing Validate are dropped with ReasonInvalid.
func (p *Pipeline) SubmitEntry(entry logentry.Entry) Result {
	if err := entry.Validate(); err != nil {
		p.logger.Warn("dropping invalid entry", "module", entry.Module, "operation", entry.Operation, "error", err)
		return Result{Outcome: Dropped, Reason: ReasonInvalid}
	}

	var effects admission
	p.mu.Lock()
	result := p.admitLocked(entry, p.clock.Now(), &effects)
	p.mu.Unlock()

	p.applyAdmission(effects)
	return result
}

// admitLocked is the ingestion gate. Caller must hold p.mu.
func (p *Pipeline) admitLocked(entry logentry.Entry, now time.Time, effects *admission) Result {
	if p.closed {
		return Result{Outcome: Dropped, Reason: ReasonClosed}
	}
	if entry.Timestamp == 0 {
		entry.Timestamp = now.UnixNano()
	}

	if p.breaker.open {
		if p.breaker.coolingDown(now, p.config.CircuitBreakerCooldown) {
			p.breaker.dropped++
			return Result{Outcome: Dropped, Reason: ReasonCircuitOpen}
		}
		dropped := p.breaker.close()
		p.emitLocked(now, logentry.LevelInfo, logentry.StormNotice{
			Event:          logentry.StormCircuitClosed,
			DroppedCount:   dropped,
			CooldownMillis: p.config.CircuitBreakerCooldown.Milliseconds(),
		}, effects)
	}

	if p.window.logs >= p.config.MaxLogsPerMinute {
		if !p.window.rateWarned {
			p.window.rateWarned = true
			p.emitLocked(now, logentry.LevelWarn, logentry.StormNotice{
				Event:            logentry.StormRateLimited,
				LogsThisMinute:   p.window.logs,
				MaxLogsPerMinute: p.config.MaxLogsPerMinute,
			}, effects)
		}
		return Result{Outcome: Dropped, Reason: ReasonRateLimited}
	}

	tripped := false
	if entry.Level == logentry.LevelError {
		suppressedBefore, duplicate := p.dedup.observe(Fingerprint(entry), now, p.config.DedupWindow)
		if duplicate {
			return Result{Outcome: Suppressed, Reason: ReasonDuplicate}
		}
		entry = entry.WithSuppressed(suppressedBefore)
		p.window.errors++
		if p.window.errors >= p.config.CircuitBreakerThreshold {
			p.breaker.trip(now)
			tripped = true
		}
	}

	p.window.logs++
	p.enqueueLocked(entry, effects)

	// The trip notice follows the entry that caused it.
	if tripped {
		p.emitLocked(now, logentry.LevelError, logentry.StormNotice{
			Event:            logentry.StormCircuitOpen,
			ErrorsThisMinute: p.window.errors,
			Threshold:        p.config.CircuitBreakerThreshold,
			CooldownMillis:   p.config.CircuitBreakerCooldown.Milliseconds(),
		}, effects)
	}
	return accepted
}

// emitLocked appends a synthetic notice to the live buffer, bypassing
// the gate and the window counters. Caller must hold p.mu.
func (p *Pipeline) emitLocked(now time.Time, level logentry.Level, notice logentry.StormNotice, effects *admission) {
	p.enqueueLocked(logentry.Entry{
		Timestamp: now.UnixNano(),
		Level:     level,
		Module:    StormModule,
		Operation: string(notice.Event),
		Data:      logentry.Data{Storm: &notice},
	}, effects)
}

// enqueueLocked appends to the live buffer and detaches it into the
// delivery queue when full. Caller must hold p.mu.
func (p *Pipeline) enqueueLocked(entry logentry.Entry, effects *admission) {
	if p.buffer.push(entry) {
		p.detachLocked(effects)
	}
}

// detachLocked moves the live buffer into the delivery queue. A batch
// evicted from a full delivery queue moves to the eviction queue for
// the mirror; if that is full too, its oldest batch is discarded.
// Caller must hold p.mu.
func (p *Pipeline) detachLocked(effects *admission) {
	batch := p.buffer.detach()
	if batch == nil {
		return
	}
	if evicted := p.pending.push(batch); evicted != nil {
		if discarded := p.evicted.push(evicted); discarded != nil {
			p.discardedEntries.Add(uint64(len(discarded)))
		}
		effects.wakeEvicted = true
	}
	effects.wake = true
}

// applyAdmission wakes the workers owed by gate decisions. It never
// performs I/O, so submitters never wait on the writer or the mirror.
// Must be called without p.mu held.
func (p *Pipeline) applyAdmission(effects admission) {
	if effects.wakeEvicted {
		p.evicted.signal()
	}
	if effects.wake {
		p.pending.signal()
	}
}
