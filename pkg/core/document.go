package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Document is the cumulative lineage record of one lineage id: one entry per
// event kind. Entries are kept as raw JSON so that an entry that is not being
// replaced is written back exactly as it was read, and key order is preserved.
type Document struct {
	order   []Kind
	entries map[Kind]json.RawMessage
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{entries: make(map[Kind]json.RawMessage)}
}

// ParseDocument decodes a lineage file. Anything other than a single JSON
// object is reported as ErrCorruptDocument.
func ParseDocument(data []byte) (*Document, error) {
	doc := NewDocument()
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: top level is not an object", ErrCorruptDocument)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptDocument, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected token %v", ErrCorruptDocument, tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: entry %q: %w", ErrCorruptDocument, key, err)
		}
		doc.Set(Kind(key), raw)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrCorruptDocument)
	}

	return doc, nil
}

// Set stores entry under kind. An existing kind keeps its position; a new one
// is appended.
func (d *Document) Set(kind Kind, entry json.RawMessage) {
	if _, ok := d.entries[kind]; !ok {
		d.order = append(d.order, kind)
	}
	d.entries[kind] = bytes.Clone(entry)
}

// SetEvent serializes e and stores it under its kind.
func (d *Document) SetEvent(e Event) error {
	data, err := MarshalEvent(e)
	if err != nil {
		return err
	}
	d.Set(e.Kind(), data)
	return nil
}

// Entry returns the raw entry stored under kind.
func (d *Document) Entry(kind Kind) (json.RawMessage, bool) {
	raw, ok := d.entries[kind]
	return raw, ok
}

// Decode unmarshals the entry stored under kind into a generic map.
func (d *Document) Decode(kind Kind) (map[string]any, error) {
	raw, ok := d.entries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s not recorded", ErrUnknownKind, kind)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s entry: %w", kind, err)
	}
	return data, nil
}

// Kinds returns the recorded kinds in document order.
func (d *Document) Kinds() []Kind {
	return append([]Kind(nil), d.order...)
}

// Len returns the number of entries.
func (d *Document) Len() int {
	return len(d.order)
}

// Bytes encodes the document with one entry per line. Entries are written
// verbatim.
func (d *Document) Bytes() []byte {
	if len(d.order) == 0 {
		return []byte("{}\n")
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, kind := range d.order {
		key, _ := marshalJSON(string(kind))
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(d.entries[kind])
		if i < len(d.order)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	return d.Bytes(), nil
}
