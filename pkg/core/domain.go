// Package core holds the lineage domain: event variants, the lineage document
// and the ports (sink, object store, resolver, publisher) the adapters implement.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies an event variant. It is also the key under which the event
// is stored in a lineage document.
type Kind string

const (
	KindDataGeneration Kind = "generate_data"
	KindModelTraining  Kind = "model_train"
)

// Known reports whether k is one of the event kinds this module produces.
func (k Kind) Known() bool {
	switch k {
	case KindDataGeneration, KindModelTraining:
		return true
	}
	return false
}

// TimestampLayout is the second-precision UTC layout used for event timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders t in TimestampLayout after converting it to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

// Clock returns the current instant. Tests replace it to get stable timestamps.
type Clock func() time.Time

// Field is a single key/value pair of a serialized event.
type Field struct {
	Key   string
	Value any
}

// Fields is an ordered key/value document. It marshals to a JSON object whose
// keys appear in slice order.
type Fields []Field

// Get returns the value stored under key.
func (f Fields) Get(key string) (any, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f))
	for i, field := range f {
		keys[i] = field.Key
	}
	return keys
}

// MarshalJSON implements json.Marshaler.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalJSON(field.Key)
		if err != nil {
			return nil, err
		}
		val, err := marshalJSON(field.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Event is a lineage event. The set of implementations is closed: the
// unexported marker keeps other packages from adding variants, so a switch on
// *DataGenerationEvent / *ModelTrainingEvent is exhaustive.
type Event interface {
	LineageID() string
	Kind() Kind
	// Serialize returns the event as an ordered document, base fields first.
	Serialize() Fields
	lineageEvent()
}

// Header carries the fields every event shares. The kind is set by the
// variant constructor and cannot be changed afterwards.
type Header struct {
	ID   string
	kind Kind
}

// LineageID returns the lineage identifier.
func (h Header) LineageID() string { return h.ID }

// Kind returns the event kind.
func (h Header) Kind() Kind { return h.kind }

// Serialize returns the base document: lineage_id then event_type.
func (h Header) Serialize() Fields {
	return Fields{
		{Key: "lineage_id", Value: h.ID},
		{Key: "event_type", Value: string(h.kind)},
	}
}

// MarshalEvent serializes e to compact JSON. Characters such as '&' and '<'
// are written as is, not as \u escapes.
func MarshalEvent(e Event) ([]byte, error) {
	data, err := e.Serialize().MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Kind(), err)
	}
	return data, nil
}

// marshalJSON is json.Marshal without HTML escaping.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
