// Package lineage is the Composition Root for recording ML pipeline provenance.
//
// It connects the core domain (lineage events, documents, the recorder) with
// the infrastructure adapters (filesystem sink, object-store mirrors, git
// remote lookup, analytics tables) using the Hexagonal Architecture pattern.
//
// Every pipeline run is identified by a lineage id. Each step of the run
// (data generation, model training) records one event; events of the same id
// are merged into a single JSON document, "<id>_lineage.json", keyed by event
// type. Recording a step never disturbs the entries of other steps.
//
// Features:
//
//   - **Atomic Documents**: documents are rewritten through temp file, fsync and rename.
//   - **Remote Mirror**: optional S3-compatible or directory mirror, best effort.
//   - **File Digests**: streaming SHA-256 of generated artifacts.
//   - **Job Statistics**: optional republishing of events to a SQL analytics table.
//   - **Reactivity**: watch a lineage directory and republish changed documents.
//
// Usage:
//
//	client, err := lineage.New(ctx, "./lineage",
//		lineage.WithAutoInit(true),
//		lineage.WithLogger(logger),
//	)
//
//	files, _ := lineage.ScanDir("./generated")
//	_, _, err = client.RecordGeneration(ctx, lineage.DataGeneration{
//		LineageID:      "run1",
//		GeneratorName:  "sdg",
//		TaxonomyPath:   "./taxonomy",
//		GeneratedFiles: files,
//	})
package lineage
