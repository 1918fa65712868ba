package jobstats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aretw0/lineage/internal/telemetry"
	"github.com/aretw0/lineage/pkg/core"
)

const instrumentationScope = "github.com/aretw0/lineage/pkg/jobstats"

// ErrNoClient is reported when a bridge has no analytics client.
var ErrNoClient = errors.New("jobstats: no analytics client")

// State is the lifecycle state of a Bridge.
type State int

const (
	StateUninitialized State = iota
	StateClientReady
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateClientReady:
		return "client-ready"
	case StateDegraded:
		return "degraded-no-client"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Settings configures a Bridge.
type Settings struct {
	Environment string // tag stored on every record
	Credential  string // passed to the Connector
	Table       string // table queried by Query; defaults to DefaultTable
	Clock       core.Clock
}

// Bridge publishes lineage entries to an analytics client. A bridge whose
// client could not be set up stays usable: every call fails and is logged.
type Bridge struct {
	settings Settings
	logger   *slog.Logger

	mu     sync.RWMutex
	state  State
	client Client
	err    error

	published     metric.Int64Counter
	publishFailed metric.Int64Counter
	queryFailed   metric.Int64Counter
}

func newBridge(settings Settings, logger *slog.Logger) *Bridge {
	if settings.Table == "" {
		settings.Table = DefaultTable
	}
	if settings.Clock == nil {
		settings.Clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	meter := telemetry.Meter(instrumentationScope)
	return &Bridge{
		settings:      settings,
		logger:        logger,
		state:         StateUninitialized,
		published:     telemetry.Counter(meter, "lineage.jobstats.published", "Job-statistics records pushed"),
		publishFailed: telemetry.Counter(meter, "lineage.jobstats.publish_failures", "Entries that could not be published"),
		queryFailed:   telemetry.Counter(meter, "lineage.jobstats.query_failures", "Queries that returned no results due to an error"),
	}
}

// New connects through connector. A connection failure (or panic) leaves the
// bridge degraded and is logged as a warning; New itself never fails.
func New(ctx context.Context, connector Connector, settings Settings, logger *slog.Logger) *Bridge {
	b := newBridge(settings, logger)
	if connector == nil {
		b.degrade(ErrNoClient)
		return b
	}

	client, err := connect(ctx, connector, settings)
	if err == nil && client == nil {
		err = ErrNoClient
	}
	if err != nil {
		b.degrade(err)
		return b
	}
	b.ready(client)
	return b
}

// NewWithClient wraps an existing client. A nil client yields a degraded
// bridge.
func NewWithClient(client Client, settings Settings, logger *slog.Logger) *Bridge {
	b := newBridge(settings, logger)
	if client == nil {
		b.degrade(ErrNoClient)
		return b
	}
	b.ready(client)
	return b
}

func connect(ctx context.Context, connector Connector, settings Settings) (client Client, err error) {
	defer func() {
		if r := recover(); r != nil {
			client, err = nil, fmt.Errorf("jobstats: connector panic: %v", r)
		}
	}()
	return connector.Connect(ctx, settings.Environment, settings.Credential)
}

func (b *Bridge) ready(client Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client = client
	b.state = StateClientReady
	b.err = nil
}

func (b *Bridge) degrade(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client = nil
	b.state = StateDegraded
	b.err = err
	b.logger.Warn("analytics client unavailable, job statistics disabled", "error", err)
}

// Status returns the current lifecycle state.
func (b *Bridge) Status() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Bridge) currentClient() (Client, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.client == nil {
		return nil, ErrNoClient
	}
	return b.client, nil
}

// Publish validates a serialized lineage entry against the required fields
// of its kind, builds a record and pushes it. Every failure is logged and
// reported as false.
func (b *Bridge) Publish(ctx context.Context, data map[string]any) (ok bool) {
	kind := core.Kind(str(data["event_type"]))
	attrs := metric.WithAttributes(attribute.String("event_type", string(kind)))
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("analytics client panicked during publish", "event_type", kind, "panic", r)
			ok = false
		}
		if ok {
			b.published.Add(ctx, 1, attrs)
		} else {
			b.publishFailed.Add(ctx, 1, attrs)
		}
	}()

	client, err := b.currentClient()
	if err != nil {
		b.logger.Warn("cannot publish job statistics", "event_type", kind, "error", err)
		return false
	}

	required := RequiredFields(kind)
	if required == nil {
		b.logger.Warn("cannot publish job statistics", "event_type", kind, "error", core.ErrUnknownKind)
		return false
	}
	if !Validate(required, data) {
		b.logger.Warn("lineage entry is missing required fields, not publishing",
			"event_type", kind, "required", required)
		return false
	}

	record, err := BuildRecord(data, b.settings.Environment, b.settings.Clock())
	if err != nil {
		b.logger.Warn("cannot build job statistics record", "event_type", kind, "error", err)
		return false
	}

	if err := client.Push(ctx, record); err != nil {
		b.logger.Warn("failed to push job statistics", "job_name", record.JobName, "error", err)
		return false
	}
	b.logger.Debug("published job statistics",
		"job_id", record.JobID, "job_name", record.JobName, "lineage_id", record.LineageID)
	return true
}

// PublishDocument publishes every entry of doc and returns how many
// succeeded.
func (b *Bridge) PublishDocument(ctx context.Context, doc *core.Document) int {
	published := 0
	for _, kind := range doc.Kinds() {
		data, err := doc.Decode(kind)
		if err != nil {
			b.logger.Warn("skipping undecodable lineage entry", "event_type", kind, "error", err)
			continue
		}
		if b.Publish(ctx, data) {
			published++
		}
	}
	return published
}

// Query returns the published records of lineageID whose job name contains
// jobNamePattern. Failures are logged and yield nil.
func (b *Bridge) Query(ctx context.Context, lineageID, jobNamePattern string) (rows []Row) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("analytics client panicked during query", "panic", r)
			b.queryFailed.Add(ctx, 1)
			rows = nil
		}
	}()

	client, err := b.currentClient()
	if err != nil {
		b.logger.Warn("cannot query job statistics", "lineage_id", lineageID, "error", err)
		b.queryFailed.Add(ctx, 1)
		return nil
	}

	table, err := client.LoadTable(ctx, b.settings.Table)
	if err != nil {
		b.logger.Warn("failed to load analytics table", "table", b.settings.Table, "error", err)
		b.queryFailed.Add(ctx, 1)
		return nil
	}

	rows, err = table.Scan(ctx, Filter{LineageID: lineageID, JobNamePattern: jobNamePattern})
	if err != nil {
		b.logger.Warn("failed to query job statistics",
			"table", b.settings.Table, "lineage_id", lineageID, "pattern", jobNamePattern, "error", err)
		b.queryFailed.Add(ctx, 1)
		return nil
	}
	return rows
}

// Close releases the client, if any. A closed bridge is degraded.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	b.state = StateDegraded
	b.err = ErrNoClient
	return err
}

var _ core.Publisher = (*Bridge)(nil)
