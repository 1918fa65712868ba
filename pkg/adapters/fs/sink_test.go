package fs_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lineage/pkg/adapters/fs"
	"github.com/aretw0/lineage/pkg/adapters/mirror"
	"github.com/aretw0/lineage/pkg/core"
	"github.com/aretw0/lineage/pkg/digest"
)

var fixedNow = time.Date(2026, 3, 1, 12, 34, 56, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// fakeStore records calls and can be told to fail.
type fakeStore struct {
	mu          sync.Mutex
	remote      map[string][]byte
	downloadErr error
	uploadErr   error
	downloads   []string
	uploads     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{remote: make(map[string][]byte)}
}

func (f *fakeStore) Download(ctx context.Context, bucket, key, localPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, bucket+"/"+key)
	if f.downloadErr != nil {
		return f.downloadErr
	}
	data, ok := f.remote[bucket+"/"+key]
	if !ok {
		return errors.New("no such key")
	}
	return os.WriteFile(localPath, data, 0644)
}

func (f *fakeStore) Upload(ctx context.Context, localPath, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, bucket+"/"+key)
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.remote[bucket+"/"+key] = data
	return nil
}

func generationEvent(id string) core.Event {
	sha := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	return core.NewDataGenerationEvent(context.Background(), core.DataGeneration{
		LineageID:                 id,
		GeneratorName:             "sdg",
		TaxonomyPath:              "/tmp/tax",
		GeneratorEndpoint:         "http://localhost:8000/v1",
		RequestedInstructionCount: 100,
		GeneratedFiles: []digest.Record{
			{Path: "/tmp/out/train.jsonl", Digest: &sha},
		},
	}, core.WithClock(fixedClock))
}

func trainingEvent(id string, epochs int) core.Event {
	return core.NewModelTrainingEvent(core.ModelTraining{
		LineageID:       id,
		EpochCount:      epochs,
		TrainDataRef:    "/tmp/out/train.jsonl",
		BaseModelRef:    "ibm/granite-7b-base",
		TrainedModelRef: "/tmp/models/" + id,
	}, core.WithClock(fixedClock))
}

func newSink(t *testing.T, store core.ObjectStore) *fs.Sink {
	t.Helper()
	return fs.NewSink(fs.Config{
		Path:     t.TempDir(),
		Store:    store,
		Bucket:   "lh-test",
		BasePath: "exp1",
	})
}

func TestSink_DefaultTarget(t *testing.T) {
	ctx := context.Background()
	sink := newSink(t, nil)

	out, err := sink.Save(ctx, generationEvent("abc123"))
	require.NoError(t, err)

	assert.Equal(t, "abc123_lineage.json", out.Target)
	assert.Equal(t, filepath.Join(sink.Path, "abc123_lineage.json"), out.Path)
	assert.True(t, out.Created)
	assert.False(t, out.Fetched)
	assert.False(t, out.Mirrored)
	assert.Empty(t, out.RemoteKey)
	assert.FileExists(t, out.Path)

	doc, err := sink.Load(ctx, "abc123_lineage.json")
	require.NoError(t, err)
	assert.Equal(t, []core.Kind{core.KindDataGeneration}, doc.Kinds())
}

func TestSink_MergePreservesOtherEntries(t *testing.T) {
	ctx := context.Background()
	sink := newSink(t, nil)

	_, err := sink.Save(ctx, generationEvent("run1"))
	require.NoError(t, err)
	before, err := sink.Load(ctx, "run1_lineage.json")
	require.NoError(t, err)
	genBefore, ok := before.Entry(core.KindDataGeneration)
	require.True(t, ok)

	out, err := sink.Save(ctx, trainingEvent("run1", 10))
	require.NoError(t, err)
	assert.False(t, out.Created)

	after, err := sink.Load(ctx, "run1_lineage.json")
	require.NoError(t, err)
	assert.Equal(t, []core.Kind{core.KindDataGeneration, core.KindModelTraining}, after.Kinds())

	genAfter, ok := after.Entry(core.KindDataGeneration)
	require.True(t, ok)
	assert.Equal(t, string(genBefore), string(genAfter))

	train, err := after.Decode(core.KindModelTraining)
	require.NoError(t, err)
	assert.Equal(t, "run1", train["lineage_id"])
	assert.Equal(t, float64(10), train["num_epochs"])
}

func TestSink_PreservesUnknownKinds(t *testing.T) {
	ctx := context.Background()
	sink := newSink(t, nil)

	existing := "{\n  \"evaluate\": {\"score\":  0.9}\n}\n"
	path := sink.LocalPath("run1_lineage.json")
	require.NoError(t, os.WriteFile(path, []byte(existing), 0644))

	_, err := sink.Save(ctx, generationEvent("run1"))
	require.NoError(t, err)

	doc, err := sink.Load(ctx, "run1_lineage.json")
	require.NoError(t, err)
	raw, ok := doc.Entry("evaluate")
	require.True(t, ok)
	assert.Equal(t, `{"score":  0.9}`, string(raw))
}

func TestSink_IdempotentResave(t *testing.T) {
	ctx := context.Background()
	sink := newSink(t, nil)

	out, err := sink.Save(ctx, generationEvent("run1"))
	require.NoError(t, err)
	first, err := os.ReadFile(out.Path)
	require.NoError(t, err)

	_, err = sink.Save(ctx, generationEvent("run1"))
	require.NoError(t, err)
	second, err := os.ReadFile(out.Path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestSink_ReplacesSameKind(t *testing.T) {
	ctx := context.Background()
	sink := newSink(t, nil)

	_, err := sink.Save(ctx, trainingEvent("run1", 5))
	require.NoError(t, err)
	_, err = sink.Save(ctx, trainingEvent("run1", 20))
	require.NoError(t, err)

	doc, err := sink.Load(ctx, "run1_lineage.json")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())
	train, err := doc.Decode(core.KindModelTraining)
	require.NoError(t, err)
	assert.Equal(t, float64(20), train["num_epochs"])
}

func TestSink_CorruptDocumentIsFatal(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	sink := newSink(t, store)

	path := sink.LocalPath("run1_lineage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := sink.Save(ctx, generationEvent("run1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCorruptDocument)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "{not json", string(data))
	assert.Empty(t, store.uploads)
}

func TestSink_FetchOnlyWithExplicitTarget(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	sink := newSink(t, store)

	_, err := sink.Save(ctx, generationEvent("run1"))
	require.NoError(t, err)
	assert.Empty(t, store.downloads)
	assert.Equal(t, []string{"lh-test/exp1/run1_lineage.json"}, store.uploads)

	// Another machine recorded the training step under a shared name.
	store.remote["lh-test/exp1/shared.json"] = []byte("{\n  \"model_train\": {\"lineage_id\": \"run1\"}\n}\n")

	out, err := sink.Save(ctx, generationEvent("run1"), core.WithTarget("shared.json"))
	require.NoError(t, err)
	assert.True(t, out.Fetched)
	assert.False(t, out.Created)
	assert.Equal(t, "exp1/shared.json", out.RemoteKey)
	assert.Equal(t, []string{"lh-test/exp1/shared.json"}, store.downloads)

	doc, err := sink.Load(ctx, "shared.json")
	require.NoError(t, err)
	assert.Equal(t, []core.Kind{core.KindModelTraining, core.KindDataGeneration}, doc.Kinds())
}

func TestSink_UnserializableEventLeavesDocumentAlone(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	sink := newSink(t, store)

	_, err := sink.Save(ctx, generationEvent("run1"), core.WithTarget("shared.json"))
	require.NoError(t, err)
	before, err := os.ReadFile(sink.LocalPath("shared.json"))
	require.NoError(t, err)

	store.remote["lh-test/exp1/shared.json"] = []byte("{\n  \"evaluate\": {}\n}\n")
	store.downloads = nil

	bad := core.NewModelTrainingEvent(core.ModelTraining{
		LineageID:  "run1",
		Statistics: map[string]any{"callback": func() {}},
	}, core.WithClock(fixedClock))
	_, err = sink.Save(ctx, bad, core.WithTarget("shared.json"))
	require.Error(t, err)

	assert.Empty(t, store.downloads)
	after, err := os.ReadFile(sink.LocalPath("shared.json"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestSink_FetchFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.downloadErr = errors.New("network down")
	sink := newSink(t, store)

	out, err := sink.Save(ctx, generationEvent("run1"), core.WithTarget("custom.json"))
	require.NoError(t, err)
	assert.False(t, out.Fetched)
	assert.True(t, out.Mirrored)
	assert.FileExists(t, sink.LocalPath("custom.json"))

	entries, err := os.ReadDir(sink.Path)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "fetch temp file must be cleaned up")
}

func TestSink_UploadFailureKeepsLocalWrite(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.uploadErr = errors.New("access denied")
	sink := newSink(t, store)

	out, err := sink.Save(ctx, generationEvent("run1"))
	require.NoError(t, err)
	assert.False(t, out.Mirrored)
	assert.EqualError(t, out.MirrorErr, "access denied")

	doc, err := sink.Load(ctx, "run1_lineage.json")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())
}

func TestSink_InvalidTarget(t *testing.T) {
	sink := newSink(t, nil)

	_, err := sink.Save(context.Background(), generationEvent("run1"), core.WithTarget("../escape.json"))
	assert.Error(t, err)

	_, err = sink.Save(context.Background(), trainingEvent("", 1))
	assert.ErrorIs(t, err, core.ErrEmptyLineageID)
}

func TestSink_LoadNotFound(t *testing.T) {
	sink := newSink(t, nil)
	_, err := sink.Load(context.Background(), "missing_lineage.json")
	assert.ErrorIs(t, err, core.ErrDocumentNotFound)
}

func TestSink_MirrorStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	remoteRoot := t.TempDir()
	store := mirror.New(remoteRoot)

	// Machine A records data generation.
	a := fs.NewSink(fs.Config{Path: t.TempDir(), Store: store, Bucket: "lh-test", BasePath: "exp1"})
	outA, err := a.Save(ctx, generationEvent("run1"))
	require.NoError(t, err)
	require.True(t, outA.Mirrored)

	// Machine B records training against the same document.
	b := fs.NewSink(fs.Config{Path: t.TempDir(), Store: store, Bucket: "lh-test", BasePath: "exp1"})
	outB, err := b.Save(ctx, trainingEvent("run1", 3), core.WithTarget("run1_lineage.json"))
	require.NoError(t, err)
	assert.True(t, outB.Fetched)
	assert.True(t, outB.Mirrored)

	remote, err := os.ReadFile(filepath.Join(remoteRoot, "lh-test", "exp1", "run1_lineage.json"))
	require.NoError(t, err)
	doc, err := core.ParseDocument(remote)
	require.NoError(t, err)
	assert.Equal(t, []core.Kind{core.KindDataGeneration, core.KindModelTraining}, doc.Kinds())
}

func TestSink_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := newSink(t, nil)

	events, err := sink.Watch(ctx, "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(sink.Path, "notes.txt"), []byte("x"), 0644))
	_, err = sink.Save(ctx, generationEvent("run7"))
	require.NoError(t, err)

	select {
	case target := <-events:
		assert.Equal(t, "run7_lineage.json", target)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}

	state := sink.State().(fs.SinkState)
	assert.True(t, state.WatcherActive)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSink_WatchInvalidPattern(t *testing.T) {
	sink := newSink(t, nil)
	_, err := sink.Watch(context.Background(), "[")
	assert.Error(t, err)
}

func TestSink_State(t *testing.T) {
	sink := newSink(t, mirror.New(t.TempDir()))
	state, ok := sink.State().(fs.SinkState)
	require.True(t, ok)

	assert.True(t, state.Mirrored)
	assert.Equal(t, "lh-test", state.Bucket)
	assert.Equal(t, "exp1", state.BasePath)
	assert.Equal(t, "mirror", state.StoreType)
	assert.False(t, state.WatcherActive)
	assert.Equal(t, "fs-sink", sink.ComponentType())

	plain := newSink(t, nil).State().(fs.SinkState)
	assert.False(t, plain.Mirrored)
	assert.Empty(t, plain.StoreType)
}

// TestSink_ConcurrentRuns saves several runs in parallel while another writer
// churns unrelated files in the same directory.
func TestSink_ConcurrentRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	ctx := context.Background()
	sink := newSink(t, nil)

	noiseCtx, stopNoise := context.WithCancel(ctx)
	var noise sync.WaitGroup
	noise.Add(1)
	go func() {
		defer noise.Done()
		for i := 0; ; i++ {
			select {
			case <-noiseCtx.Done():
				return
			default:
				path := filepath.Join(sink.Path, fmt.Sprintf("noise-%d.txt", i%5))
				_ = os.WriteFile(path, []byte(fmt.Sprint(i)), 0644)
				time.Sleep(time.Millisecond)
			}
		}
	}()

	const runs = 8
	var wg sync.WaitGroup
	errs := make(chan error, runs*2)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := sink.Save(ctx, generationEvent(id)); err != nil {
				errs <- err
				return
			}
			if _, err := sink.Save(ctx, trainingEvent(id, 3)); err != nil {
				errs <- err
			}
		}(fmt.Sprintf("run%d", i))
	}
	wg.Wait()
	stopNoise()
	noise.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for i := 0; i < runs; i++ {
		doc, err := sink.Load(ctx, core.DefaultTarget(fmt.Sprintf("run%d", i)))
		require.NoError(t, err)
		assert.Equal(t, []core.Kind{core.KindDataGeneration, core.KindModelTraining}, doc.Kinds())
	}
}
