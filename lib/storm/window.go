// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import (
	"context"
	"time"

	"github.com/bureau-foundation/stormlog/lib/clock"
	"github.com/bureau-foundation/stormlog/lib/logentry"
)

// WindowSummary describes one completed window.
type WindowSummary struct {
	StartedAt time.Time
	EndedAt   time.Time

	Logs        int
	Errors      int
	RateLimited bool

	// SuppressedTotal is the number of duplicates suppressed in the
	// window across Fingerprints distinct fingerprints.
	SuppressedTotal int
	Fingerprints    int

	// Swept is the number of stale dedup records removed.
	Swept int
}

// RollWindow runs one round of window maintenance: it emits a
// suppression summary if anything was suppressed, sweeps dedup records
// older than twice DedupWindow, and resets the per-window counters.
// The window loop calls it every WindowInterval.
func (p *Pipeline) RollWindow() WindowSummary {
	var effects admission
	p.mu.Lock()
	summary := p.rollWindowLocked(p.clock.Now(), &effects)
	p.mu.Unlock()
	p.applyAdmission(effects)
	return summary
}

func (p *Pipeline) rollWindowLocked(now time.Time, effects *admission) WindowSummary {
	summary := WindowSummary{
		StartedAt:   p.window.startedAt,
		EndedAt:     now,
		Logs:        p.window.logs,
		Errors:      p.window.errors,
		RateLimited: p.window.rateWarned,
	}

	summary.SuppressedTotal, summary.Fingerprints = p.dedup.drainSuppressed()
	if summary.SuppressedTotal > 0 && !p.closed {
		p.emitLocked(now, logentry.LevelInfo, logentry.StormNotice{
			Event:           logentry.StormSuppressionSummary,
			SuppressedTotal: summary.SuppressedTotal,
			Fingerprints:    summary.Fingerprints,
		}, effects)
	}

	summary.Swept = p.dedup.sweep(now, 2*p.config.DedupWindow)
	p.window.reset(now)
	return summary
}

func (p *Pipeline) runWindowLoop(ctx context.Context, ticker *clock.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary := p.RollWindow()
			if summary.SuppressedTotal > 0 || summary.Swept > 0 || summary.RateLimited {
				p.logger.Debug("storm window rolled",
					"logs", summary.Logs,
					"errors", summary.Errors,
					"suppressed", summary.SuppressedTotal,
					"swept", summary.Swept,
				)
			}
			if p.windowRolled != nil {
				select {
				case p.windowRolled <- summary:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
