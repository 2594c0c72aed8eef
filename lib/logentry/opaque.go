// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logentry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/valyala/fastjson"
)

// MaxOpaqueBytes caps the encoded size of an Opaque payload.
const MaxOpaqueBytes = 16 << 10

var (
	// ErrOpaqueTooLarge is returned when a payload exceeds MaxOpaqueBytes.
	ErrOpaqueTooLarge = errors.New("logentry: opaque payload exceeds size cap")

	// ErrInvalidJSON is returned when raw bytes are not a JSON value.
	ErrInvalidJSON = errors.New("logentry: opaque payload is not valid JSON")
)

// Opaque is a validated JSON value of at most MaxOpaqueBytes. It is
// the escape hatch for call sites whose payload has no typed variant.
type Opaque []byte

// NewOpaque validates raw JSON and returns it as an Opaque. The bytes
// are copied.
func NewOpaque(raw []byte) (Opaque, error) {
	if len(raw) > MaxOpaqueBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrOpaqueTooLarge, len(raw))
	}
	if err := fastjson.ValidateBytes(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	copied := make([]byte, len(raw))
	copy(copied, raw)
	return Opaque(copied), nil
}

// MarshalOpaque JSON-encodes v and wraps the result.
func MarshalOpaque(v any) (Opaque, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("logentry: marshal opaque payload: %w", err)
	}
	if len(raw) > MaxOpaqueBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrOpaqueTooLarge, len(raw))
	}
	return Opaque(raw), nil
}

// TruncatedOpaque JSON-encodes v. If the encoding exceeds limit bytes
// it is replaced by a JSON string holding the truncated text, so the
// result is always valid and bounded. Used for diff values, where a
// partial view is better than an error.
func TruncatedOpaque(v any, limit int) Opaque {
	raw, err := json.Marshal(v)
	if err != nil {
		raw, _ = json.Marshal(fmt.Sprintf("%v", v))
	}
	if limit <= 0 || limit > MaxOpaqueBytes {
		limit = MaxOpaqueBytes
	}
	if len(raw) <= limit {
		return Opaque(raw)
	}
	cut := string(raw[:limit]) + "…"
	quoted, _ := json.Marshal(cut)
	if len(quoted) > MaxOpaqueBytes {
		quoted, _ = json.Marshal("(truncated)")
	}
	return Opaque(quoted)
}

// MarshalJSON writes the raw value. An empty Opaque is null.
func (o Opaque) MarshalJSON() ([]byte, error) {
	if len(o) == 0 {
		return []byte("null"), nil
	}
	return o, nil
}

// UnmarshalJSON stores a copy of the raw value. null leaves o empty.
func (o *Opaque) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = nil
		return nil
	}
	if len(data) > MaxOpaqueBytes {
		return fmt.Errorf("%w: %d bytes", ErrOpaqueTooLarge, len(data))
	}
	*o = append((*o)[:0], data...)
	return nil
}

// String returns the raw JSON text.
func (o Opaque) String() string {
	return string(o)
}

// Field looks up a top-level field. String values are returned
// unquoted, anything else in its JSON form. ok is false when the
// payload is not an object or the key is absent.
func (o Opaque) Field(key string) (value string, ok bool) {
	object, err := o.object()
	if err != nil {
		return "", false
	}
	return lookupField(object, key)
}

func (o Opaque) object() (*fastjson.Value, error) {
	if len(o) == 0 {
		return nil, ErrInvalidJSON
	}
	var parser fastjson.Parser
	parsed, err := parser.ParseBytes(o)
	if err != nil {
		return nil, err
	}
	if parsed.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("logentry: opaque payload is %s, not an object", parsed.Type())
	}
	return parsed, nil
}

func lookupField(object *fastjson.Value, key string) (string, bool) {
	field := object.Get(key)
	if field == nil {
		return "", false
	}
	if field.Type() == fastjson.TypeString {
		return string(field.GetStringBytes()), true
	}
	return field.String(), true
}

var (
	opaqueMessageKeys  = []string{"message", "error", "msg"}
	opaqueLocationKeys = []string{"location", "stack", "reason", "url"}
)

// faultText pulls a message and location out of an object payload.
// Non-object payloads fingerprint on their full text.
func (o Opaque) faultText() (message, location string) {
	object, err := o.object()
	if err != nil {
		return string(o), ""
	}
	for _, key := range opaqueMessageKeys {
		if value, ok := lookupField(object, key); ok && value != "" {
			message = value
			break
		}
	}
	for _, key := range opaqueLocationKeys {
		if value, ok := lookupField(object, key); ok && value != "" {
			location = firstLine(value)
			break
		}
	}
	if message == "" && location == "" {
		message = string(o)
	}
	return message, location
}
