// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"errors"

	"github.com/bureau-foundation/stormlog/lib/logentry"
)

// Group is the entries of one mirrored batch that share a level, in
// their original order.
type Group struct {
	Level logentry.Level `json:"level"`

	// Cause is the delivery error text that sent the batch here.
	Cause string `json:"cause,omitempty"`

	// MirroredAt is Unix nanoseconds. Zero for console groups.
	MirroredAt int64 `json:"mirrored_at,omitempty"`

	Entries []logentry.Entry `json:"entries"`
}

// GroupByLevel splits batch into one group per level present, most
// severe level first. Entry order within a group is preserved.
func GroupByLevel(batch []logentry.Entry, cause error) []Group {
	causeText := ""
	if cause != nil {
		causeText = cause.Error()
	}

	byLevel := make(map[logentry.Level][]logentry.Entry)
	for _, entry := range batch {
		byLevel[entry.Level] = append(byLevel[entry.Level], entry)
	}

	groups := make([]Group, 0, len(byLevel))
	for i := len(logentry.Levels) - 1; i >= 0; i-- {
		level := logentry.Levels[i]
		if entries := byLevel[level]; len(entries) > 0 {
			groups = append(groups, Group{Level: level, Cause: causeText, Entries: entries})
			delete(byLevel, level)
		}
	}
	return groups
}

// Mirror receives batches the storm pipeline could not deliver. cause
// is the delivery error or the reason the batch never reached the
// writer. Every mirror in this package implements it.
type Mirror interface {
	MirrorBatch(ctx context.Context, batch []logentry.Entry, cause error) error
}

// Multi mirrors each batch to every target, continuing past failures.
// The returned error joins all target errors.
func Multi(targets ...Mirror) Mirror {
	return multiMirror(targets)
}

type multiMirror []Mirror

func (m multiMirror) MirrorBatch(ctx context.Context, batch []logentry.Entry, cause error) error {
	var errs []error
	for _, target := range m {
		if err := target.MirrorBatch(ctx, batch, cause); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
