package fs

import (
	"github.com/aretw0/introspection"
)

// SinkState exposes internal state for observability.
type SinkState struct {
	Path          string `json:"path"`
	Mirrored      bool   `json:"mirrored"`
	Bucket        string `json:"bucket,omitempty"`
	BasePath      string `json:"base_path,omitempty"`
	StoreType     string `json:"store_type,omitempty"`
	WatcherActive bool   `json:"watcher_active"`
}

// State implements introspection.Introspectable.
func (s *Sink) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := SinkState{
		Path:          s.Path,
		Mirrored:      s.config.Store != nil,
		WatcherActive: s.watcherActive,
	}
	if s.config.Store != nil {
		state.Bucket = s.config.Bucket
		state.BasePath = s.config.BasePath
		state.StoreType = "object-store"
		if comp, ok := s.config.Store.(introspection.Component); ok {
			state.StoreType = comp.ComponentType()
		}
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Sink) ComponentType() string {
	return "fs-sink"
}

var _ introspection.Introspectable = (*Sink)(nil)
var _ introspection.Component = (*Sink)(nil)
