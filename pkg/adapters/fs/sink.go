package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/lineage/internal/telemetry"
	"github.com/aretw0/lineage/pkg/core"
)

const instrumentationScope = "github.com/aretw0/lineage/pkg/adapters/fs"

// Sink implements core.Sink on the local filesystem, optionally mirroring
// every document to an object store.
type Sink struct {
	Path   string
	config Config

	tracer         trace.Tracer
	saves          metric.Int64Counter
	fetchFailures  metric.Int64Counter
	mirrorFailures metric.Int64Counter

	mu            sync.RWMutex
	watcherActive bool
}

// Config holds the configuration for the filesystem sink.
type Config struct {
	Path     string           // directory holding lineage documents
	Store    core.ObjectStore // remote mirror; nil disables fetch and upload
	Bucket   string
	BasePath string // object key prefix, e.g. "exp1"
	FileMode os.FileMode
	Logger   *slog.Logger

	// ErrorHandler receives the error that stops a Watch loop.
	ErrorHandler func(error)
}

// NewSink creates a new filesystem-backed sink.
func NewSink(config Config) *Sink {
	if config.Path == "" {
		config.Path = "."
	}
	if config.FileMode == 0 {
		config.FileMode = 0644
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	meter := telemetry.Meter(instrumentationScope)
	return &Sink{
		Path:           config.Path,
		config:         config,
		tracer:         telemetry.Tracer(instrumentationScope),
		saves:          telemetry.Counter(meter, "lineage.sink.saves", "Lineage events merged into a local document"),
		fetchFailures:  telemetry.Counter(meter, "lineage.sink.fetch_failures", "Remote documents that could not be fetched before a merge"),
		mirrorFailures: telemetry.Counter(meter, "lineage.sink.mirror_failures", "Local documents that could not be uploaded to the mirror"),
	}
}

// RemoteKey returns the object key a target is mirrored under.
func (s *Sink) RemoteKey(target string) string {
	target = filepath.ToSlash(target)
	base := strings.TrimSuffix(s.config.BasePath, "/")
	if base == "" {
		return target
	}
	return base + "/" + target
}

// LocalPath returns the local file a target is stored in.
func (s *Sink) LocalPath(target string) string {
	return filepath.Join(s.Path, target)
}

// Save merges an event into its lineage document.
//
// Workflow:
//  1. Resolve the target name (default "<lineage_id>_lineage.json") and
//     serialize the event.
//  2. If the target was named explicitly, refresh the local copy from the
//     mirror. Failure is logged; the document may not exist remotely yet.
//  3. Load the local document, or start an empty one if there is none.
//     A document that does not parse aborts the save.
//  4. Replace the entry for the event's kind. Other entries are untouched.
//  5. Write the document atomically.
//  6. Upload it to the mirror. Failure is logged and reported in the Outcome;
//     the local write stands.
func (s *Sink) Save(ctx context.Context, e core.Event, opts ...core.SaveOption) (core.Outcome, error) {
	if e == nil {
		return core.Outcome{}, fmt.Errorf("%w: nil event", core.ErrUnknownKind)
	}
	if e.LineageID() == "" {
		return core.Outcome{}, core.ErrEmptyLineageID
	}

	o := core.ApplySaveOptions(opts...)
	explicit := o.Target != ""
	target := o.Target
	if !explicit {
		target = core.DefaultTarget(e.LineageID())
	}
	if !filepath.IsLocal(target) {
		return core.Outcome{}, fmt.Errorf("invalid target %q: must be a relative path inside the sink", target)
	}

	ctx, span := s.tracer.Start(ctx, "lineage.sink.save", trace.WithAttributes(
		attribute.String("lineage.id", e.LineageID()),
		attribute.String("lineage.event_type", string(e.Kind())),
		attribute.String("lineage.target", target),
	))
	defer span.End()

	path := s.LocalPath(target)
	out := core.Outcome{Target: target, Path: path}
	if s.config.Store != nil {
		out.RemoteKey = s.RemoteKey(target)
	}

	s.config.Logger.Info("saving lineage event",
		"lineage_id", e.LineageID(), "event_type", e.Kind(), "target", target)

	// Serialized before the fetch so a bad event leaves the local document alone.
	entry, err := core.MarshalEvent(e)
	if err != nil {
		span.RecordError(err)
		return out, fmt.Errorf("failed to serialize event: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return out, fmt.Errorf("failed to create directories: %w", err)
	}

	if explicit && s.config.Store != nil {
		if err := s.fetch(ctx, out.RemoteKey, path); err != nil {
			s.fetchFailures.Add(ctx, 1)
			s.config.Logger.Warn("could not fetch lineage document from remote store",
				"file", target, "key", out.RemoteKey, "error", err)
		} else {
			out.Fetched = true
		}
	}

	doc, existed, err := s.read(path)
	if err != nil {
		span.RecordError(err)
		return out, err
	}
	out.Created = !existed

	doc.Set(e.Kind(), entry)

	if err := writeFileAtomic(path, doc.Bytes(), s.config.FileMode); err != nil {
		span.RecordError(err)
		return out, fmt.Errorf("failed to write file: %w", err)
	}
	s.saves.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", string(e.Kind()))))

	if s.config.Store != nil {
		if err := s.config.Store.Upload(ctx, path, s.config.Bucket, out.RemoteKey); err != nil {
			s.mirrorFailures.Add(ctx, 1)
			s.config.Logger.Warn("could not save lineage document in remote store",
				"file", target, "key", out.RemoteKey, "error", err)
			out.MirrorErr = err
		} else {
			out.Mirrored = true
		}
	}

	return out, nil
}

// Load reads a lineage document by target name.
func (s *Sink) Load(ctx context.Context, target string) (*core.Document, error) {
	if !filepath.IsLocal(target) {
		return nil, fmt.Errorf("invalid target %q: must be a relative path inside the sink", target)
	}
	doc, existed, err := s.read(s.LocalPath(target))
	if err != nil {
		return nil, err
	}
	if !existed {
		return nil, fmt.Errorf("%w: %s", core.ErrDocumentNotFound, target)
	}
	return doc, nil
}

// read loads the document at path. A missing file is an empty document.
func (s *Sink) read(path string) (*core.Document, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return core.NewDocument(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := core.ParseDocument(data)
	if err != nil {
		return nil, true, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, true, nil
}

// fetch downloads the remote copy next to path and renames it into place, so
// a failed or partial download never replaces the local document.
func (s *Sink) fetch(ctx context.Context, key, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), TempFilePrefix+"fetch-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpName)

	if err := s.config.Store.Download(ctx, s.config.Bucket, key, tmpName); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename fetched document to %s: %w", path, err)
	}
	return nil
}

var _ core.Sink = (*Sink)(nil)
