package core

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/lineage/pkg/digest"
)

// eventConfig holds the collaborators used while constructing an event.
type eventConfig struct {
	clock    Clock
	resolver RemoteResolver
	logger   *slog.Logger
}

// EventOption configures event construction.
type EventOption func(*eventConfig)

// WithClock overrides the clock used to stamp the event.
func WithClock(clock Clock) EventOption {
	return func(c *eventConfig) {
		c.clock = clock
	}
}

// WithRemoteResolver sets the resolver used to find the taxonomy repository URL.
// Without one, the URL is left unset.
func WithRemoteResolver(r RemoteResolver) EventOption {
	return func(c *eventConfig) {
		c.resolver = r
	}
}

// WithEventLogger sets the logger used to report resolution failures.
func WithEventLogger(logger *slog.Logger) EventOption {
	return func(c *eventConfig) {
		c.logger = logger
	}
}

func newEventConfig(opts []EventOption) *eventConfig {
	c := &eventConfig{clock: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// DataGeneration holds the inputs of a synthetic data generation step.
type DataGeneration struct {
	LineageID                 string
	GeneratorName             string
	TaxonomyPath              string
	TaxonomyTreePath          string
	GeneratorEndpoint         string
	GeneratedFiles            []digest.Record
	RequestedInstructionCount int
}

// DataGenerationEvent records a synthetic data generation step.
type DataGenerationEvent struct {
	Header

	// SourceRepoURL is the remote of the taxonomy repository, empty when it
	// could not be resolved.
	SourceRepoURL             string
	GeneratorName             string
	TaxonomyPath              string
	TaxonomyTreePath          string
	GeneratorEndpoint         string
	GeneratedFiles            []digest.Record
	RequestedInstructionCount int
	Timestamp                 time.Time
}

// NewDataGenerationEvent builds the event and stamps it with the current UTC
// second. The taxonomy repository URL is looked up through the configured
// resolver; a lookup failure is logged and leaves the URL empty.
func NewDataGenerationEvent(ctx context.Context, in DataGeneration, opts ...EventOption) *DataGenerationEvent {
	cfg := newEventConfig(opts)

	e := &DataGenerationEvent{
		Header:                    Header{ID: in.LineageID, kind: KindDataGeneration},
		GeneratorName:             in.GeneratorName,
		TaxonomyPath:              in.TaxonomyPath,
		TaxonomyTreePath:          in.TaxonomyTreePath,
		GeneratorEndpoint:         in.GeneratorEndpoint,
		GeneratedFiles:            slices.Clone(in.GeneratedFiles),
		RequestedInstructionCount: in.RequestedInstructionCount,
		Timestamp:                 cfg.clock().UTC().Truncate(time.Second),
	}

	if cfg.resolver != nil && in.TaxonomyPath != "" {
		url, err := cfg.resolver.RemoteURL(ctx, in.TaxonomyPath)
		if err != nil {
			cfg.logger.Warn("could not resolve taxonomy repository",
				"path", in.TaxonomyPath, "error", err)
		} else {
			e.SourceRepoURL = url
		}
	}

	return e
}

func (*DataGenerationEvent) lineageEvent() {}

// Serialize returns the base fields followed by the generation fields.
func (e *DataGenerationEvent) Serialize() Fields {
	var repo any
	if e.SourceRepoURL != "" {
		repo = e.SourceRepoURL
	}
	files := e.GeneratedFiles
	if files == nil {
		files = []digest.Record{}
	}

	return append(e.Header.Serialize(),
		Field{Key: "taxonomy_repo", Value: repo},
		Field{Key: "synthetic_data_generator", Value: e.GeneratorName},
		Field{Key: "taxonomy_path", Value: e.TaxonomyPath},
		Field{Key: "taxonomy_tree_path", Value: e.TaxonomyTreePath},
		Field{Key: "generator_server", Value: e.GeneratorEndpoint},
		Field{Key: "num_instructions_to_generate", Value: e.RequestedInstructionCount},
		Field{Key: "files_generated", Value: files},
		Field{Key: "time_stamp", Value: FormatTimestamp(e.Timestamp)},
	)
}

// ModelTraining holds the inputs of a model training step.
type ModelTraining struct {
	LineageID         string
	EpochCount        int
	TrainDataRef      string
	TestDataRef       string
	Statistics        map[string]any
	BaseModelRef      string
	TrainedModelRef   string
	TrainedModelFiles []string
}

// ModelTrainingEvent records a model training step.
type ModelTrainingEvent struct {
	Header

	EpochCount        int
	TrainDataRef      string
	TestDataRef       string
	Statistics        map[string]any
	BaseModelRef      string
	TrainedModelRef   string
	TrainedModelFiles []string
	Timestamp         time.Time
}

// NewModelTrainingEvent builds the event and stamps it with the current UTC second.
func NewModelTrainingEvent(in ModelTraining, opts ...EventOption) *ModelTrainingEvent {
	cfg := newEventConfig(opts)

	stats := make(map[string]any, len(in.Statistics))
	for k, v := range in.Statistics {
		stats[k] = v
	}

	return &ModelTrainingEvent{
		Header:            Header{ID: in.LineageID, kind: KindModelTraining},
		EpochCount:        in.EpochCount,
		TrainDataRef:      in.TrainDataRef,
		TestDataRef:       in.TestDataRef,
		Statistics:        stats,
		BaseModelRef:      in.BaseModelRef,
		TrainedModelRef:   in.TrainedModelRef,
		TrainedModelFiles: slices.Clone(in.TrainedModelFiles),
		Timestamp:         cfg.clock().UTC().Truncate(time.Second),
	}
}

func (*ModelTrainingEvent) lineageEvent() {}

// Serialize returns the base fields followed by the training fields.
func (e *ModelTrainingEvent) Serialize() Fields {
	files := e.TrainedModelFiles
	if files == nil {
		files = []string{}
	}
	stats := e.Statistics
	if stats == nil {
		stats = map[string]any{}
	}

	return append(e.Header.Serialize(),
		Field{Key: "num_epochs", Value: e.EpochCount},
		Field{Key: "train_data", Value: e.TrainDataRef},
		Field{Key: "test_data", Value: e.TestDataRef},
		Field{Key: "base_model", Value: e.BaseModelRef},
		Field{Key: "statistics", Value: stats},
		Field{Key: "trained_model", Value: e.TrainedModelRef},
		Field{Key: "trained_model_files", Value: files},
		Field{Key: "time_stamp", Value: FormatTimestamp(e.Timestamp)},
	)
}

var (
	_ Event = (*DataGenerationEvent)(nil)
	_ Event = (*ModelTrainingEvent)(nil)
)
