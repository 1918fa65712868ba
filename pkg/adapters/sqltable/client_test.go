package sqltable_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lineage/pkg/adapters/sqltable"
	"github.com/aretw0/lineage/pkg/jobstats"
)

func openTemp(t *testing.T) *sqltable.Client {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "analytics.db")
	c, err := sqltable.Open(context.Background(), dsn, "", "test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func record(id, lineageID, jobName string, recordedAt time.Time) jobstats.Record {
	return jobstats.Record{
		JobID:       id,
		LineageID:   lineageID,
		JobName:     jobName,
		JobType:     "model_train",
		Environment: "test",
		Status:      jobstats.StatusCompleted,
		Sources:     []string{"ibm/granite-7b-base"},
		Targets:     []string{"/tmp/models/run1"},
		Details:     map[string]any{"num_epochs": 10},
		RecordedAt:  recordedAt,
		PublishedAt: recordedAt.Add(time.Minute),
	}
}

func TestClient_PushAndScan(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Push(ctx, record("j2", "run1", "model_train:ibm/granite-7b-base", base.Add(time.Hour))))
	require.NoError(t, c.Push(ctx, record("j1", "run1", "generate_data:sdg", base)))
	require.NoError(t, c.Push(ctx, record("j3", "run2", "generate_data:sdg", base)))

	table, err := c.LoadTable(ctx, jobstats.DefaultTable)
	require.NoError(t, err)

	rows, err := table.Scan(ctx, jobstats.Filter{LineageID: "run1"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "j1", rows[0]["job_id"])
	assert.Equal(t, "j2", rows[1]["job_id"])

	row := rows[1]
	assert.Equal(t, "run1", row["lineage_id"])
	assert.Equal(t, "model_train", row["job_type"])
	assert.Equal(t, "test", row["environment"])
	assert.Equal(t, "completed", row["status"])
	assert.Equal(t, []any{"ibm/granite-7b-base"}, row["sources"])
	assert.Equal(t, []any{"/tmp/models/run1"}, row["targets"])
	assert.Equal(t, map[string]any{"num_epochs": float64(10)}, row["details"])
	assert.Equal(t, "2026-03-01 13:00:00", row["recorded_at"])
	assert.Equal(t, "2026-03-01 13:01:00", row["published_at"])

	rows, err = table.Scan(ctx, jobstats.Filter{LineageID: "run1", JobNamePattern: "granite"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "j2", rows[0]["job_id"])

	rows, err = table.Scan(ctx, jobstats.Filter{LineageID: "run1", JobNamePattern: "%"})
	require.NoError(t, err)
	assert.Empty(t, rows, "wildcards in the pattern are matched literally")

	rows, err = table.Scan(ctx, jobstats.Filter{LineageID: "missing"})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestClient_DuplicateJobID(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)
	r := record("j1", "run1", "generate_data:sdg", time.Now())

	require.NoError(t, c.Push(ctx, r))
	assert.Error(t, c.Push(ctx, r))
}

func TestClient_LoadTable(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)

	_, err := c.LoadTable(ctx, "job_stats; DROP TABLE job_stats")
	assert.ErrorIs(t, err, sqltable.ErrInvalidTableName)

	_, err = c.LoadTable(ctx, "missing_table")
	assert.Error(t, err)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := sqltable.Open(ctx, "", "", "test", nil)
	assert.Error(t, err)

	_, err = sqltable.Open(ctx, filepath.Join(t.TempDir(), "a.db"), "bad-name", "test", nil)
	assert.ErrorIs(t, err, sqltable.ErrInvalidTableName)
}

func TestConnector_ThroughBridge(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "analytics.db")

	bridge := jobstats.New(ctx, sqltable.Connector{}, jobstats.Settings{
		Environment: "ci",
		Credential:  dsn,
	}, nil)
	t.Cleanup(func() { bridge.Close() })
	require.Equal(t, jobstats.StateClientReady, bridge.Status())

	ok := bridge.Publish(ctx, map[string]any{
		"lineage_id":          "run1",
		"event_type":          "model_train",
		"num_epochs":          float64(3),
		"train_data":          "/tmp/out/train.jsonl",
		"test_data":           "/tmp/out/test.jsonl",
		"base_model":          "ibm/granite-7b-base",
		"statistics":          map[string]any{},
		"trained_model":       "/tmp/models/run1",
		"trained_model_files": []any{},
		"time_stamp":          "2026-03-01 13:00:00",
	})
	require.True(t, ok)

	rows := bridge.Query(ctx, "run1", "model_train")
	require.Len(t, rows, 1)
	assert.Equal(t, "ci", rows[0]["environment"])
	assert.Equal(t, []any{"ibm/granite-7b-base", "/tmp/out/train.jsonl", "/tmp/out/test.jsonl"}, rows[0]["sources"])

	state := bridge.State().(jobstats.BridgeState)
	assert.Equal(t, "sqltable", state.ClientType)
}

func TestConnector_Degraded(t *testing.T) {
	bridge := jobstats.New(context.Background(), sqltable.Connector{}, jobstats.Settings{}, nil)
	assert.Equal(t, jobstats.StateDegraded, bridge.Status())
}
