package core

import "context"

// Sink persists events into lineage documents.
// Adhering to this interface keeps the core independent of where documents
// live (local filesystem, object store mirror, etc).
type Sink interface {
	// Save merges e into the document named by the options (or the default
	// name for its lineage id) and persists it.
	Save(ctx context.Context, e Event, opts ...SaveOption) (Outcome, error)

	// Load reads a document by target name.
	Load(ctx context.Context, target string) (*Document, error)
}

// SaveOption configures a single Save call.
type SaveOption func(*SaveOptions)

// SaveOptions is the resolved form of the SaveOption list.
type SaveOptions struct {
	// Target is the document file name. Empty means DefaultTarget(lineageID).
	Target string
}

// WithTarget saves into an explicitly named document. An explicit name also
// makes the sink refresh its local copy from the remote store first.
func WithTarget(name string) SaveOption {
	return func(o *SaveOptions) {
		o.Target = name
	}
}

// ApplySaveOptions resolves opts.
func ApplySaveOptions(opts ...SaveOption) SaveOptions {
	var o SaveOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DefaultTarget returns the document name used when none is given.
func DefaultTarget(lineageID string) string {
	return lineageID + "_lineage.json"
}

// Outcome describes what a Save did.
type Outcome struct {
	Target    string // document name
	Path      string // local file written
	RemoteKey string // object key of the mirror, empty when no store is configured
	Fetched   bool   // remote copy was downloaded before merging
	Created   bool   // no local document existed before this save
	Mirrored  bool   // upload succeeded
	MirrorErr error  // upload failure, if any; the local write still stands
}

// ObjectStore is the remote mirror of lineage documents.
type ObjectStore interface {
	// Download copies bucket/key into localPath.
	Download(ctx context.Context, bucket, key, localPath string) error
	// Upload copies localPath to bucket/key.
	Upload(ctx context.Context, localPath, bucket, key string) error
}

// RemoteResolver finds the remote URL of a version-controlled directory.
type RemoteResolver interface {
	// RemoteURL returns the repository's remote URL, or "" with a nil error
	// when path is not a repository or has no remote.
	RemoteURL(ctx context.Context, path string) (string, error)
}

// Publisher republishes a serialized event entry elsewhere (e.g. an
// analytics table). It reports success instead of returning errors because
// publishing never blocks the local record.
type Publisher interface {
	Publish(ctx context.Context, data map[string]any) bool
}
