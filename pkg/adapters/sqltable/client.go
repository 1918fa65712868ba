// Package sqltable implements the jobstats analytics client on a SQL
// database. A postgres:// credential connects through pgx; anything else is
// treated as a SQLite database file.
package sqltable

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/introspection"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/aretw0/lineage/pkg/core"
	"github.com/aretw0/lineage/pkg/jobstats"
)

// ErrInvalidTableName is returned for table names that are not plain
// identifiers.
var ErrInvalidTableName = errors.New("sqltable: invalid table name")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Columns of a job-statistics table, in storage order.
var Columns = []string{
	"job_id", "lineage_id", "job_name", "job_type", "environment", "status",
	"sources", "targets", "details", "recorded_at", "published_at",
}

// jsonColumns hold JSON-encoded values and are decoded on Scan.
var jsonColumns = map[string]bool{"sources": true, "targets": true, "details": true}

type dialect struct {
	driver string
	name   string
}

var (
	postgres = dialect{driver: "pgx", name: "postgres"}
	sqlite   = dialect{driver: "sqlite", name: "sqlite"}
)

// placeholder returns the bind parameter for the n-th (1-based) argument.
func (d dialect) placeholder(n int) string {
	if d == postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func dialectFor(dsn string) dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres
	}
	return sqlite
}

// Connector opens Clients. The zero value is usable.
type Connector struct {
	// Table receives pushed records; defaults to jobstats.DefaultTable.
	Table  string
	Logger *slog.Logger
}

// Connect opens the database named by credential (a DSN) and makes sure the
// records table exists.
func (c Connector) Connect(ctx context.Context, environment, credential string) (jobstats.Client, error) {
	return Open(ctx, credential, c.Table, environment, c.Logger)
}

var _ jobstats.Connector = Connector{}

// Client is a jobstats.Client on a SQL database.
type Client struct {
	db          *sql.DB
	dialect     dialect
	table       string
	environment string
	logger      *slog.Logger
}

// Open connects to dsn and creates table if it does not exist.
func Open(ctx context.Context, dsn, table, environment string, logger *slog.Logger) (*Client, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqltable: empty credential")
	}
	if table == "" {
		table = jobstats.DefaultTable
	}
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := dialectFor(dsn)
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqltable: open %s: %w", d.name, err)
	}
	if d == sqlite {
		// SQLite only supports one writer at a time.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqltable: ping %s: %w", d.name, err)
	}

	c := &Client{db: db, dialect: d, table: table, environment: environment, logger: logger}
	if err := c.ensureTable(ctx, table); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("analytics table ready", "dialect", d.name, "table", table)
	return c, nil
}

func (c *Client) ensureTable(ctx context.Context, table string) error {
	defs := make([]string, len(Columns))
	for i, col := range Columns {
		defs[i] = col + " TEXT"
	}
	defs[0] += " PRIMARY KEY"

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqltable: create table %s: %w", table, err)
	}
	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_lineage_idx ON %s (lineage_id)", table, table)
	if _, err := c.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("sqltable: create index on %s: %w", table, err)
	}
	return nil
}

// Push inserts r.
func (c *Client) Push(ctx context.Context, r jobstats.Record) error {
	sources, err := json.Marshal(nonNil(r.Sources))
	if err != nil {
		return fmt.Errorf("sqltable: encode sources: %w", err)
	}
	targets, err := json.Marshal(nonNil(r.Targets))
	if err != nil {
		return fmt.Errorf("sqltable: encode targets: %w", err)
	}
	details := r.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("sqltable: encode details: %w", err)
	}

	marks := make([]string, len(Columns))
	for i := range Columns {
		marks[i] = c.dialect.placeholder(i + 1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.table, strings.Join(Columns, ", "), strings.Join(marks, ", "))

	_, err = c.db.ExecContext(ctx, stmt,
		r.JobID, r.LineageID, r.JobName, r.JobType, r.Environment, r.Status,
		string(sources), string(targets), string(detailsJSON),
		core.FormatTimestamp(r.RecordedAt), core.FormatTimestamp(r.PublishedAt),
	)
	if err != nil {
		return fmt.Errorf("sqltable: insert into %s: %w", c.table, err)
	}
	return nil
}

// LoadTable returns a handle on an existing table.
func (c *Client) LoadTable(ctx context.Context, name string) (jobstats.Table, error) {
	if !identifier.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	check := fmt.Sprintf("SELECT %s FROM %s WHERE 1 = 0", strings.Join(Columns, ", "), name)
	rows, err := c.db.QueryContext(ctx, check)
	if err != nil {
		return nil, fmt.Errorf("sqltable: load table %s: %w", name, err)
	}
	rows.Close()
	return &Table{client: c, name: name}, nil
}

// Close closes the database.
func (c *Client) Close() error {
	return c.db.Close()
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	return map[string]string{
		"dialect":     c.dialect.name,
		"table":       c.table,
		"environment": c.environment,
	}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "sqltable"
}

var (
	_ jobstats.Client              = (*Client)(nil)
	_ introspection.Introspectable = (*Client)(nil)
	_ introspection.Component      = (*Client)(nil)
)

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
