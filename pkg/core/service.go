package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Recorder handles the business flow for lineage events: persist to the
// sink, then optionally republish the same entry.
type Recorder struct {
	sink      Sink
	publisher Publisher
	logger    *slog.Logger
}

// NewRecorder creates a Recorder. publisher may be nil.
func NewRecorder(sink Sink, publisher Publisher, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{sink: sink, publisher: publisher, logger: logger}
}

// Record validates e, saves it and, when a publisher is configured, publishes
// the serialized entry. The returned bool reports whether publishing happened
// and succeeded; a publishing failure never fails the record.
func (r *Recorder) Record(ctx context.Context, e Event, opts ...SaveOption) (Outcome, bool, error) {
	if e == nil {
		return Outcome{}, false, fmt.Errorf("%w: nil event", ErrUnknownKind)
	}
	if e.LineageID() == "" {
		return Outcome{}, false, ErrEmptyLineageID
	}

	out, err := r.sink.Save(ctx, e, opts...)
	if err != nil {
		return out, false, err
	}

	if r.publisher == nil {
		return out, false, nil
	}

	data, err := MarshalEvent(e)
	if err != nil {
		return out, false, err
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		return out, false, fmt.Errorf("decode %s entry: %w", e.Kind(), err)
	}

	published := r.publisher.Publish(ctx, entry)
	if !published {
		r.logger.Warn("lineage event recorded but not published",
			"lineage_id", e.LineageID(), "event_type", e.Kind())
	}
	return out, published, nil
}

// Load reads a lineage document from the sink.
func (r *Recorder) Load(ctx context.Context, target string) (*Document, error) {
	if target == "" {
		return nil, fmt.Errorf("target cannot be empty")
	}
	return r.sink.Load(ctx, target)
}
