// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storm

import (
	"context"
	"testing"
	"time"

	"github.com/bureau-foundation/stormlog/lib/logentry"
	"github.com/bureau-foundation/stormlog/lib/testutil"
)

func TestRollWindowEmitsSuppressionSummary(t *testing.T) {
	tp := newTestPipeline(t, Config{})
	for range 3 {
		tp.SubmitEntry(errorEntry("send", "refused"))
	}
	for range 2 {
		tp.SubmitEntry(errorEntry("fetch", "timeout"))
	}

	summary := tp.RollWindow()
	if summary.SuppressedTotal != 3 || summary.Fingerprints != 2 {
		t.Errorf("summary = %+v, want 3 suppressed across 2 fingerprints", summary)
	}
	if summary.Logs != 2 || summary.Errors != 2 {
		t.Errorf("summary counters = logs %d errors %d, want 2/2", summary.Logs, summary.Errors)
	}

	status := tp.Status()
	if status.LogsThisMinute != 0 || status.ErrorsThisMinute != 0 || status.SuppressedPending != 0 {
		t.Errorf("status after roll = %+v, want counters cleared", status)
	}

	tp.flush(t)
	notices := stormNotices(tp.writer.delivered())
	if len(notices) != 1 {
		t.Fatalf("got %d notices, want 1 summary", len(notices))
	}
	notice := notices[0]
	if notice.Level != logentry.LevelInfo || notice.Operation != string(logentry.StormSuppressionSummary) {
		t.Errorf("notice = %v %s, want INFO suppression_summary", notice.Level, notice.Operation)
	}
	if notice.Data.Storm.SuppressedTotal != 3 {
		t.Errorf("notice SuppressedTotal = %d, want 3", notice.Data.Storm.SuppressedTotal)
	}
}

func TestRollWindowQuietWithoutSuppression(t *testing.T) {
	tp := newTestPipeline(t, Config{})
	tp.SubmitEntry(infoEntry("a"))
	tp.RollWindow()
	tp.flush(t)
	if notices := stormNotices(tp.writer.delivered()); len(notices) != 0 {
		t.Errorf("got notices %v, want none", notices)
	}
}

func TestRollWindowSweepsStaleDedupRecords(t *testing.T) {
	tp := newTestPipeline(t, Config{DedupWindow: 5 * time.Second})
	tp.SubmitEntry(errorEntry("old", "old"))
	tp.clock.Advance(6 * time.Second)
	tp.SubmitEntry(errorEntry("recent", "recent"))
	tp.clock.Advance(5 * time.Second)

	// "old" is 11s old (beyond 2x window), "recent" is 5s old.
	summary := tp.RollWindow()
	if summary.Swept != 1 {
		t.Errorf("Swept = %d, want 1", summary.Swept)
	}
	if size := tp.Status().DedupMapSize; size != 1 {
		t.Errorf("DedupMapSize = %d, want 1", size)
	}
}

func TestRollWindowResetsRateLimit(t *testing.T) {
	tp := newTestPipeline(t, Config{MaxLogsPerMinute: 1})
	tp.SubmitEntry(infoEntry("a"))
	if got := tp.SubmitEntry(infoEntry("b")); got.Reason != ReasonRateLimited {
		t.Fatalf("second entry = %v, want rate limited", got)
	}

	tp.RollWindow()
	if got := tp.SubmitEntry(infoEntry("c")); got.Outcome != Accepted {
		t.Errorf("entry in new window = %v, want accepted", got)
	}
	if got := tp.SubmitEntry(infoEntry("d")); got.Reason != ReasonRateLimited {
		t.Errorf("entry over limit = %v, want rate limited", got)
	}

	tp.flush(t)
	if notices := stormNotices(tp.writer.delivered()); len(notices) != 2 {
		t.Errorf("got %d rate-limit warnings, want one per window", len(notices))
	}
}

func TestRollWindowLeavesBreakerAlone(t *testing.T) {
	tp := newTestPipeline(t, Config{CircuitBreakerThreshold: 1, CircuitBreakerCooldown: time.Hour})
	tp.SubmitEntry(errorEntry("send", "boom"))
	tp.RollWindow()
	if !tp.Status().CircuitBreakerOpen {
		t.Error("window roll closed the breaker")
	}
}

func TestWindowLoopRunsOnInterval(t *testing.T) {
	tp := newTestPipeline(t, Config{})
	tp.windowRolled = make(chan WindowSummary, 1)
	if err := tp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	tp.SubmitEntry(errorEntry("send", "refused"))
	tp.SubmitEntry(errorEntry("send", "refused"))
	tp.clock.Advance(tp.Config().WindowInterval)

	summary := testutil.RequireReceive(t, tp.windowRolled, testTimeout, "waiting for window roll")
	if summary.SuppressedTotal != 1 {
		t.Errorf("SuppressedTotal = %d, want 1", summary.SuppressedTotal)
	}
	if !summary.StartedAt.Equal(epoch) || !summary.EndedAt.Equal(epoch.Add(tp.Config().WindowInterval)) {
		t.Errorf("window = %v..%v", summary.StartedAt, summary.EndedAt)
	}
	if got := tp.Status().WindowStartedAt; !got.Equal(summary.EndedAt) {
		t.Errorf("WindowStartedAt = %v, want %v", got, summary.EndedAt)
	}
}
