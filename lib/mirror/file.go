// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bureau-foundation/stormlog/lib/clock"
	"github.com/bureau-foundation/stormlog/lib/logentry"
)

// FileOptions configures a file mirror.
type FileOptions struct {
	// Compression applied to each frame. Zero is CompressionNone.
	Compression CompressionTag

	// Clock stamps MirroredAt. Defaults to the real clock.
	Clock clock.Clock
}

// File appends mirrored groups to a local file. Safe for concurrent
// use.
type File struct {
	path        string
	compression CompressionTag
	clock       clock.Clock

	mu     sync.Mutex
	file   *os.File
	closed bool
}

// OpenFile opens path for appending, creating it if needed.
func OpenFile(path string, options FileOptions) (*File, error) {
	if !options.Compression.valid() {
		return nil, fmt.Errorf("mirror: unsupported compression tag: %d", options.Compression)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("mirror: opening %s: %w", path, err)
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &File{
		path:        path,
		compression: options.Compression,
		clock:       clk,
		file:        file,
	}, nil
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// MirrorBatch appends one frame per level group. All frames of a batch
// are written with a single write call.
func (f *File) MirrorBatch(_ context.Context, batch []logentry.Entry, cause error) error {
	if len(batch) == 0 {
		return nil
	}
	now := f.clock.Now().UnixNano()

	var frames []byte
	for _, group := range GroupByLevel(batch, cause) {
		group.MirroredAt = now
		frame, err := encodeFrame(group, f.compression)
		if err != nil {
			return err
		}
		frames = append(frames, frame...)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("mirror: %s is closed", f.path)
	}
	if _, err := f.file.Write(frames); err != nil {
		return fmt.Errorf("mirror: writing %s: %w", f.path, err)
	}
	return nil
}

// Sync flushes the file to stable storage.
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	return f.file.Sync()
}

// Close closes the file. Further MirrorBatch calls fail.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.file.Close()
}

// Reader decodes frames from a mirror file stream.
type Reader struct {
	reader *bufio.Reader
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(r)}
}

// Next returns the next group, or io.EOF when the stream ends.
func (r *Reader) Next() (Group, error) {
	return readFrame(r.reader)
}

// ReadFile decodes every group in the mirror file at path. On a
// corrupt frame it returns the groups decoded so far together with
// the error.
func ReadFile(path string) ([]Group, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mirror: opening %s: %w", path, err)
	}
	defer file.Close()

	reader := NewReader(file)
	var groups []Group
	for {
		group, err := reader.Next()
		if err == io.EOF {
			return groups, nil
		}
		if err != nil {
			return groups, err
		}
		groups = append(groups, group)
	}
}
