package core

import (
	"github.com/aretw0/introspection"
)

// RecorderState exposes internal state for observability.
type RecorderState struct {
	SinkType      string `json:"sink_type"`
	PublisherType string `json:"publisher_type,omitempty"`
	Publishing    bool   `json:"publishing"`
}

// State implements introspection.Introspectable.
func (r *Recorder) State() any {
	state := RecorderState{
		SinkType:   componentType(r.sink, "sink"),
		Publishing: r.publisher != nil,
	}
	if r.publisher != nil {
		state.PublisherType = componentType(r.publisher, "publisher")
	}
	return state
}

// ComponentType implements introspection.Component.
func (r *Recorder) ComponentType() string {
	return "recorder"
}

func componentType(v any, fallback string) string {
	if comp, ok := v.(introspection.Component); ok {
		return comp.ComponentType()
	}
	return fallback
}

var _ introspection.Introspectable = (*Recorder)(nil)
var _ introspection.Component = (*Recorder)(nil)
