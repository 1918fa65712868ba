package platform

import (
	"context"
	"fmt"

	lifecycleadapter "github.com/aretw0/lineage/pkg/adapters/lifecycle"
	"github.com/aretw0/lineage/pkg/core"
	"github.com/aretw0/lineage/pkg/jobstats"
)

// RecordGeneration builds a data-generation event and records it.
func (c *Client) RecordGeneration(ctx context.Context, in core.DataGeneration, opts ...core.SaveOption) (core.Outcome, bool, error) {
	e := core.NewDataGenerationEvent(ctx, in, c.EventOptions()...)
	return c.Recorder.Record(ctx, e, opts...)
}

// RecordTraining builds a model-training event and records it.
func (c *Client) RecordTraining(ctx context.Context, in core.ModelTraining, opts ...core.SaveOption) (core.Outcome, bool, error) {
	e := core.NewModelTrainingEvent(in, c.EventOptions()...)
	return c.Recorder.Record(ctx, e, opts...)
}

// Load reads a document by target name.
func (c *Client) Load(ctx context.Context, target string) (*core.Document, error) {
	return c.Recorder.Load(ctx, target)
}

// Republish publishes every entry of a stored document and returns how many
// were accepted.
func (c *Client) Republish(ctx context.Context, target string) (int, error) {
	if c.Bridge == nil {
		return 0, jobstats.ErrNoClient
	}
	doc, err := c.Load(ctx, target)
	if err != nil {
		return 0, err
	}
	return c.Bridge.PublishDocument(ctx, doc), nil
}

// Query returns published job statistics. Without a bridge it returns nil.
func (c *Client) Query(ctx context.Context, lineageID, jobNamePattern string) []jobstats.Row {
	if c.Bridge == nil {
		c.logger.Warn("cannot query job statistics", "error", jobstats.ErrNoClient)
		return nil
	}
	return c.Bridge.Query(ctx, lineageID, jobNamePattern)
}

// WatchAndPublish republishes every document matching pattern whenever it is
// written, until ctx is done or the watcher stops. onPublish, when non-nil,
// is called after each document with the number of entries accepted.
func (c *Client) WatchAndPublish(ctx context.Context, pattern string, onPublish func(target string, published int)) error {
	if c.Bridge == nil {
		return jobstats.ErrNoClient
	}
	targets, err := c.Sink.Watch(ctx, pattern)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	source := lifecycleadapter.NewSource(targets)
	if err := source.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event source: %w", err)
	}

	for ev := range source.Events() {
		changed, ok := ev.(lifecycleadapter.DocumentChanged)
		if !ok {
			continue
		}
		published, err := c.Republish(ctx, changed.Target)
		if err != nil {
			c.logger.Warn("could not republish lineage document", "file", changed.Target, "error", err)
			continue
		}
		c.logger.Info("republished lineage document", "file", changed.Target, "entries", published)
		if onPublish != nil {
			onPublish(changed.Target, published)
		}
	}
	return nil
}
