package jobstats

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/lineage/pkg/core"
)

// StatusCompleted is the status of records built from recorded events.
const StatusCompleted = "completed"

var requiredFields = map[core.Kind][]string{
	core.KindDataGeneration: {
		"lineage_id", "event_type", "synthetic_data_generator",
		"taxonomy_path", "files_generated", "time_stamp",
	},
	core.KindModelTraining: {
		"lineage_id", "event_type", "base_model",
		"trained_model", "train_data", "time_stamp",
	},
}

// RequiredFields returns the keys an entry of kind must carry to be
// published, or nil for an unknown kind.
func RequiredFields(kind core.Kind) []string {
	return append([]string(nil), requiredFields[kind]...)
}

// Validate reports whether every required key is present in data.
func Validate(required []string, data map[string]any) bool {
	for _, key := range required {
		if _, ok := data[key]; !ok {
			return false
		}
	}
	return true
}

// baseKeys are mapped onto Record columns and left out of Details.
var baseKeys = map[string]bool{
	"lineage_id": true,
	"event_type": true,
	"time_stamp": true,
}

// BuildRecord turns a serialized lineage entry into a job-statistics record.
// The entry must already have passed Validate for its kind.
func BuildRecord(data map[string]any, environment string, now time.Time) (Record, error) {
	kind := core.Kind(str(data["event_type"]))
	if !kind.Known() {
		return Record{}, fmt.Errorf("%w: %q", core.ErrUnknownKind, kind)
	}

	recordedAt, err := core.ParseTimestamp(str(data["time_stamp"]))
	if err != nil {
		return Record{}, fmt.Errorf("invalid time_stamp: %w", err)
	}

	r := Record{
		JobID:       uuid.NewString(),
		LineageID:   str(data["lineage_id"]),
		JobType:     string(kind),
		Environment: environment,
		Status:      StatusCompleted,
		Details:     make(map[string]any),
		RecordedAt:  recordedAt,
		PublishedAt: now.UTC().Truncate(time.Second),
	}
	for k, v := range data {
		if !baseKeys[k] {
			r.Details[k] = v
		}
	}

	switch kind {
	case core.KindDataGeneration:
		r.JobName = "generate_data:" + str(data["synthetic_data_generator"])
		source := str(data["taxonomy_repo"])
		if source == "" {
			source = str(data["taxonomy_path"])
		}
		r.Sources = []string{source}
		r.Targets = generatedFiles(data["files_generated"])
	case core.KindModelTraining:
		r.JobName = "model_train:" + str(data["base_model"])
		r.Sources = nonEmpty(str(data["base_model"]), str(data["train_data"]), str(data["test_data"]))
		r.Targets = append(nonEmpty(str(data["trained_model"])), stringList(data["trained_model_files"])...)
	}
	return r, nil
}

// str returns v as a string, or "" when it is not one (including null).
func str(v any) string {
	s, _ := v.(string)
	return s
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return nonEmpty(list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s := str(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

// generatedFiles extracts the paths of a files_generated list.
func generatedFiles(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if path := str(entry["file"]); path != "" {
			out = append(out, path)
		}
	}
	return out
}
