// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/stormlog/lib/codec"
)

// ErrCorruptFrame is returned when a mirror frame cannot be decoded.
var ErrCorruptFrame = errors.New("mirror: corrupt frame")

const (
	frameHeaderSize = 9

	// maxFrameSize bounds a single frame's raw and stored lengths so a
	// corrupt header cannot trigger a huge allocation.
	maxFrameSize = 64 << 20
)

// encodeFrame serializes group as one frame. Compression that does
// not shrink the payload falls back to CompressionNone.
func encodeFrame(group Group, tag CompressionTag) ([]byte, error) {
	raw, err := codec.Marshal(group)
	if err != nil {
		return nil, fmt.Errorf("mirror: encoding group: %w", err)
	}
	if len(raw) > maxFrameSize {
		return nil, fmt.Errorf("mirror: group of %d bytes exceeds frame limit %d", len(raw), maxFrameSize)
	}

	stored, err := compress(raw, tag)
	if errors.Is(err, errIncompressible) {
		tag, stored = CompressionNone, raw
	} else if err != nil {
		return nil, fmt.Errorf("mirror: compressing group: %w", err)
	}

	frame := make([]byte, frameHeaderSize+len(stored))
	frame[0] = byte(tag)
	binary.BigEndian.PutUint32(frame[1:5], uint32(len(raw)))
	binary.BigEndian.PutUint32(frame[5:9], uint32(len(stored)))
	copy(frame[frameHeaderSize:], stored)
	return frame, nil
}

// readFrame reads and decodes the next frame from r. Returns io.EOF
// at a clean end of input; a frame cut short returns ErrCorruptFrame.
func readFrame(r io.Reader) (Group, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Group{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Group{}, fmt.Errorf("%w: truncated header", ErrCorruptFrame)
		}
		return Group{}, fmt.Errorf("mirror: reading frame header: %w", err)
	}

	tag := CompressionTag(header[0])
	rawSize := binary.BigEndian.Uint32(header[1:5])
	storedSize := binary.BigEndian.Uint32(header[5:9])
	if rawSize > maxFrameSize || storedSize > maxFrameSize {
		return Group{}, fmt.Errorf("%w: frame size %d/%d exceeds limit", ErrCorruptFrame, rawSize, storedSize)
	}

	stored := make([]byte, storedSize)
	if _, err := io.ReadFull(r, stored); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Group{}, fmt.Errorf("%w: truncated payload", ErrCorruptFrame)
		}
		return Group{}, fmt.Errorf("mirror: reading frame payload: %w", err)
	}

	raw, err := decompress(stored, tag, int(rawSize))
	if err != nil {
		return Group{}, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}
	var group Group
	if err := codec.Unmarshal(raw, &group); err != nil {
		return Group{}, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}
	return group, nil
}
