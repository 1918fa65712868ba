package sqltable

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/lineage/pkg/jobstats"
)

// Table is a job-statistics table.
type Table struct {
	client *Client
	name   string
}

// likeEscaper escapes LIKE wildcards so the pattern is matched literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Scan returns the rows of f.LineageID whose job name contains
// f.JobNamePattern, oldest first.
func (t *Table) Scan(ctx context.Context, f jobstats.Filter) ([]jobstats.Row, error) {
	d := t.client.dialect
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE lineage_id = %s AND job_name LIKE %s ESCAPE '\' ORDER BY recorded_at, job_id`,
		strings.Join(Columns, ", "), t.name, d.placeholder(1), d.placeholder(2))

	rows, err := t.client.db.QueryContext(ctx, query, f.LineageID, "%"+likeEscaper.Replace(f.JobNamePattern)+"%")
	if err != nil {
		return nil, fmt.Errorf("sqltable: scan %s: %w", t.name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqltable: columns of %s: %w", t.name, err)
	}

	out := []jobstats.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqltable: read row of %s: %w", t.name, err)
		}

		row := make(jobstats.Row, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if s, ok := v.(string); ok && jsonColumns[col] {
				var decoded any
				if err := json.Unmarshal([]byte(s), &decoded); err == nil {
					v = decoded
				}
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqltable: scan %s: %w", t.name, err)
	}
	return out, nil
}

var _ jobstats.Table = (*Table)(nil)
