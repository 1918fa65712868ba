package jobstats

import (
	"github.com/aretw0/introspection"
)

// BridgeState exposes internal state for observability.
type BridgeState struct {
	Status      string `json:"status"`
	Environment string `json:"environment,omitempty"`
	Table       string `json:"table"`
	ClientType  string `json:"client_type,omitempty"`
	Error       string `json:"error,omitempty"`
}

// State implements introspection.Introspectable.
func (b *Bridge) State() any {
	b.mu.RLock()
	defer b.mu.RUnlock()

	state := BridgeState{
		Status:      b.state.String(),
		Environment: b.settings.Environment,
		Table:       b.settings.Table,
	}
	if b.client != nil {
		state.ClientType = "client"
		if comp, ok := b.client.(introspection.Component); ok {
			state.ClientType = comp.ComponentType()
		}
	}
	if b.err != nil {
		state.Error = b.err.Error()
	}
	return state
}

// ComponentType implements introspection.Component.
func (b *Bridge) ComponentType() string {
	return "jobstats-bridge"
}

var _ introspection.Introspectable = (*Bridge)(nil)
var _ introspection.Component = (*Bridge)(nil)
