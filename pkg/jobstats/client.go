// Package jobstats republishes lineage entries as job-statistics records in
// an analytics table and queries them back.
//
// The analytics backend is reached through the Connector, Client and Table
// interfaces; pkg/adapters/sqltable provides a SQL implementation.
package jobstats

import (
	"context"
	"time"
)

// DefaultTable is the analytics table records are pushed to.
const DefaultTable = "job_stats"

// Record is one job-statistics row.
type Record struct {
	JobID       string
	LineageID   string
	JobName     string
	JobType     string
	Environment string
	Status      string
	Sources     []string
	Targets     []string
	Details     map[string]any
	RecordedAt  time.Time
	PublishedAt time.Time
}

// Row is a record read back from a table, keyed by column name.
type Row map[string]any

// Filter selects rows in a Scan.
type Filter struct {
	// LineageID must match exactly.
	LineageID string
	// JobNamePattern is matched as a substring of the job name. Empty matches
	// every job.
	JobNamePattern string
}

// Client is a connection to the analytics backend.
type Client interface {
	Push(ctx context.Context, r Record) error
	LoadTable(ctx context.Context, name string) (Table, error)
	Close() error
}

// Table is a handle on an analytics table.
type Table interface {
	Scan(ctx context.Context, f Filter) ([]Row, error)
}

// Connector creates Clients.
type Connector interface {
	Connect(ctx context.Context, environment, credential string) (Client, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, environment, credential string) (Client, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context, environment, credential string) (Client, error) {
	return f(ctx, environment, credential)
}
