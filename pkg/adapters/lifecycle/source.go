package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"
)

// DocumentChanged reports that a lineage document was created or rewritten.
type DocumentChanged struct {
	Target string
}

// String implements lifecycle.Event.
func (e DocumentChanged) String() string {
	return "lineage document changed: " + e.Target
}

type documentSource struct {
	targets <-chan string
	out     chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits a DocumentChanged for every
// target name received from a sink watcher.
func NewSource(targets <-chan string) lifecycle.Source {
	return &documentSource{
		targets: targets,
		out:     make(chan lifecycle.Event),
	}
}

func (s *documentSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *documentSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case target, ok := <-s.targets:
				if !ok {
					return nil
				}
				select {
				case s.out <- DocumentChanged{Target: target}:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
