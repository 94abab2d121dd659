package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/abiforge/internal/dag"
	"github.com/vk/abiforge/internal/events"
	"github.com/vk/abiforge/internal/fingerprint"
	"github.com/vk/abiforge/internal/nodeid"
	"github.com/vk/abiforge/internal/taskstore"
)

// traceRunner records start and end of every task.
type traceRunner struct {
	mu    sync.Mutex
	trace []string
	fail  map[string]bool
	delay time.Duration
}

func (r *traceRunner) Run(ctx context.Context, task *dag.Task) (Outcome, error) {
	id := task.ID.String()
	r.record("start:" + id)
	time.Sleep(r.delay)
	r.record("end:" + id)
	if r.fail[id] {
		return Outcome{}, fmt.Errorf("task %s exploded", id)
	}
	return Outcome{}, nil
}

func (r *traceRunner) record(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = append(r.trace, s)
}

func (r *traceRunner) index(s string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.trace {
		if v == s {
			return i
		}
	}
	return -1
}

func diamond(t *testing.T) (*dag.Graph, []nodeid.Address) {
	t.Helper()
	g := dag.New()
	arm := nodeid.NewWithVariant("compile", "core", "arm64")
	x86 := nodeid.NewWithVariant("compile", "core", "x86_64")
	merge := nodeid.New("merge_native_libs", "debug")
	pkg := nodeid.New("package", "apk")
	for _, tc := range []struct {
		id   nodeid.Address
		kind dag.Kind
	}{{arm, dag.KindCompile}, {x86, dag.KindCompile}, {merge, dag.KindMergeNativeLibs}, {pkg, dag.KindPackage}} {
		_, _, err := g.AddTask(tc.id, tc.kind, "", "")
		require.NoError(t, err)
	}
	require.NoError(t, g.AddEdge(arm, merge))
	require.NoError(t, g.AddEdge(x86, merge))
	require.NoError(t, g.AddEdge(merge, pkg))
	return g, []nodeid.Address{arm, x86, merge, pkg}
}

func TestExecute_Ordering(t *testing.T) {
	// --- Arrange ---
	g, ids := diamond(t)
	runner := &traceRunner{delay: 5 * time.Millisecond}
	store := taskstore.NewInMemory()
	rec := &events.Recorder{}
	e := New(g, store, 4, WithFallback(runner), WithPublisher(rec))

	// --- Act ---
	summary, err := e.Execute(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Zero(t, summary.Failed)

	arm, x86, merge, pkg := ids[0].String(), ids[1].String(), ids[2].String(), ids[3].String()
	assert.Less(t, runner.index("end:"+arm), runner.index("start:"+merge))
	assert.Less(t, runner.index("end:"+x86), runner.index("start:"+merge))
	assert.Less(t, runner.index("end:"+merge), runner.index("start:"+pkg))

	assert.Equal(t, []string{"running", "succeeded"}, rec.ForTask(merge))
	for _, id := range ids {
		status, err := store.GetStatus(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, taskstore.StatusSucceeded, status)
	}
}

func TestExecute_FailureSkipsDependentsOnly(t *testing.T) {
	// --- Arrange ---
	g, ids := diamond(t)
	arm, x86, merge, pkg := ids[0], ids[1], ids[2], ids[3]
	runner := &traceRunner{fail: map[string]bool{arm.String(): true}, delay: time.Millisecond}
	store := taskstore.NewInMemory()
	e := New(g, store, 2, WithFallback(runner))

	// --- Act ---
	summary, err := e.Execute(context.Background())

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), arm.String())
	assert.Contains(t, err.Error(), "exploded")
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, summary.Succeeded)

	ctx := context.Background()
	status, _ := store.GetStatus(ctx, x86)
	assert.Equal(t, taskstore.StatusSucceeded, status, "sibling architecture is not cancelled")
	for _, id := range []nodeid.Address{merge, pkg} {
		status, _ := store.GetStatus(ctx, id)
		assert.Equal(t, taskstore.StatusSkipped, status)
		skipErr, _ := store.GetError(ctx, id)
		assert.ErrorIs(t, skipErr, ErrSkipped)
		assert.Equal(t, -1, runner.index("start:"+id.String()), "dependent must never start")
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	g, _ := diamond(t)
	runner := &traceRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := New(g, taskstore.NewInMemory(), 2, WithFallback(runner)).Execute(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 4, summary.Skipped)
	assert.Empty(t, runner.trace)
}

func TestExecute_RunnerPerKind(t *testing.T) {
	g, ids := diamond(t)
	var compiled sync.Map
	compile := RunnerFunc(func(ctx context.Context, task *dag.Task) (Outcome, error) {
		compiled.Store(task.ID.String(), true)
		return Outcome{CacheHit: strings.Contains(task.ID.String(), "x86_64")}, nil
	})

	summary, err := New(g, taskstore.NewInMemory(), 0, WithRunner(dag.KindCompile, compile)).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CacheHits)
	_, ok := compiled.Load(ids[0].String())
	assert.True(t, ok)
	_, ok = compiled.Load(ids[2].String())
	assert.False(t, ok, "merge task uses the fallback runner")
}

func TestExecute_EmptyGraph(t *testing.T) {
	summary, err := New(dag.New(), taskstore.NewInMemory(), 1).Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Succeeded)
}

func TestMergeDir(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in", "arm64-v8a")
	require.NoError(t, os.MkdirAll(in, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "libcore.so"), []byte("elf"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("x"), 0o644))
	out := filepath.Join(root, "merged")

	require.NoError(t, mergeDir(in, out))

	data, err := os.ReadFile(filepath.Join(out, "arm64-v8a", "libcore.so"))
	require.NoError(t, err)
	assert.Equal(t, "elf", string(data))
	_, err = os.Stat(filepath.Join(out, "arm64-v8a", "notes.txt"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, mergeDir(filepath.Join(root, "missing"), out))
}

// lagStore delays writes of terminal statuses to widen ordering windows.
type lagStore struct {
	*taskstore.InMemory
	lag time.Duration
}

func (s *lagStore) SetStatus(ctx context.Context, id nodeid.Address, status taskstore.Status) error {
	if status.IsTerminal() {
		time.Sleep(s.lag)
	}
	return s.InMemory.SetStatus(ctx, id, status)
}

func TestExecute_PrerequisitesTerminalBeforeDependentStarts(t *testing.T) {
	// --- Arrange ---
	g, ids := diamond(t)
	arm, x86, merge := ids[0], ids[1], ids[2]
	store := &lagStore{InMemory: taskstore.NewInMemory(), lag: 2 * time.Millisecond}

	var mu sync.Mutex
	var seen []taskstore.Status
	observe := RunnerFunc(func(ctx context.Context, task *dag.Task) (Outcome, error) {
		for _, dep := range []nodeid.Address{arm, x86} {
			status, err := store.GetStatus(ctx, dep)
			if err != nil {
				return Outcome{}, err
			}
			mu.Lock()
			seen = append(seen, status)
			mu.Unlock()
		}
		return Outcome{}, nil
	})

	// --- Act ---
	_, err := New(g, store, 4, WithRunner(dag.KindMergeNativeLibs, observe)).Execute(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []taskstore.Status{taskstore.StatusSucceeded, taskstore.StatusSucceeded}, seen)
	status, _ := store.GetStatus(context.Background(), merge)
	assert.Equal(t, taskstore.StatusSucceeded, status)
}

func TestMergeRunner_DropsRemovedArchitecture(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	libs := filepath.Join(root, "rustJniLibs")
	for _, folder := range []string{"arm64-v8a", "x86_64"} {
		require.NoError(t, os.MkdirAll(filepath.Join(libs, folder), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(libs, folder, "libcore.so"), []byte(folder), 0o644))
	}
	out := filepath.Join(root, "merged")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "assets"), 0o755))
	tracker := fingerprint.NewTracker(fingerprint.NewHasher(1), fingerprint.NewMemoryLedger())
	id := nodeid.New(string(dag.KindMergeNativeLibs), "debug")

	merge := func(folders ...string) {
		t.Helper()
		g := dag.New()
		task, _, err := g.AddTask(id, dag.KindMergeNativeLibs, "", out)
		require.NoError(t, err)
		for _, f := range folders {
			_, err := g.DeclareInput(id, filepath.Join(libs, f))
			require.NoError(t, err)
		}
		_, err = NewMergeRunner(g, tracker).Run(context.Background(), task)
		require.NoError(t, err)
	}
	merge("arm64-v8a", "x86_64")
	require.FileExists(t, filepath.Join(out, "x86_64", "libcore.so"))

	// --- Act ---
	merge("arm64-v8a")

	// --- Assert ---
	assert.FileExists(t, filepath.Join(out, "arm64-v8a", "libcore.so"))
	assert.NoDirExists(t, filepath.Join(out, "x86_64"), "libraries of a dropped architecture must not be packaged")
	assert.DirExists(t, filepath.Join(out, "assets"), "non-ABI folders are left alone")
}

func TestPruneStale_RemovesRenamedLibrary(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in", "arm64-v8a")
	require.NoError(t, os.MkdirAll(in, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "libnew.so"), []byte("new"), 0o644))
	out := filepath.Join(root, "merged")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "arm64-v8a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "arm64-v8a", "libold.so"), []byte("old"), 0o644))
	require.NoError(t, mergeDir(in, out))

	require.NoError(t, pruneStale(out, []string{in}))

	assert.FileExists(t, filepath.Join(out, "arm64-v8a", "libnew.so"))
	assert.NoFileExists(t, filepath.Join(out, "arm64-v8a", "libold.so"))
}
