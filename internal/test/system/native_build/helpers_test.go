package system

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/abiforge/internal/app"
	"github.com/vk/abiforge/internal/hcl_adapter"
)

// fakeCargo stands in for `cargo build`: it appends the target triple to
// $FAKE_LOG, fails when the triple is listed in $FAKE_FAIL_TRIPLES and
// otherwise writes the crate's src/lib.rs as the "library".
const fakeCargo = `#!/bin/sh
triple=""
while [ $# -gt 0 ]; do
  case "$1" in
    --target) triple="$2"; shift ;;
  esac
  shift
done
echo "$triple" >> "$FAKE_LOG"
case " $FAKE_FAIL_TRIPLES " in
  *" $triple "*) echo "error: linking with cc failed for $triple" >&2; exit 101 ;;
esac
mkdir -p "target/$triple/debug"
cat src/lib.rs > "target/$triple/debug/lib${FAKE_LIB}.so"
`

type workspace struct {
	dir   string
	log   string
	cargo string
}

// newWorkspace creates a project with a crate under rust/ and a fake cargo.
func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake toolchain is a POSIX shell script")
	}
	dir := t.TempDir()
	ws := &workspace{
		dir:   dir,
		log:   filepath.Join(dir, "cargo.log"),
		cargo: filepath.Join(dir, "bin", "cargo"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(ws.cargo), 0o755))
	require.NoError(t, os.WriteFile(ws.cargo, []byte(fakeCargo), 0o755))
	ws.writeSource(t, "rust", "pub fn render() {}")
	return ws
}

func (w *workspace) writeSource(t *testing.T, crate, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(w.dir, crate, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(w.dir, crate, "src", "lib.rs"), []byte(content), 0o644))
}

// toolchainHCL renders the toolchain block pointing at the fake cargo.
func (w *workspace) toolchainHCL(failTriples ...string) string {
	return `
toolchain {
  command         = "` + w.cargo + `"
  version_command = ["sh", "-c", "echo rustc 1.79.0"]
  env = {
    FAKE_LOG           = "` + w.log + `"
    FAKE_LIB           = "android_vulkan_interop"
    FAKE_FAIL_TRIPLES  = "` + strings.Join(failTriples, " ") + `"
  }
}
`
}

func (w *workspace) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(w.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// invocations returns the target triples cargo was run for, in order.
func (w *workspace) invocations(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(w.log)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Fields(string(data))
}

func (w *workspace) resetLog(t *testing.T) {
	t.Helper()
	require.NoError(t, os.RemoveAll(w.log))
}

func (w *workspace) path(parts ...string) string {
	return filepath.Join(append([]string{w.dir}, parts...)...)
}

// build runs the whole application once over the given paths.
func (w *workspace) build(t *testing.T, paths ...string) (*app.App, string, error) {
	t.Helper()
	cfg, err := app.NewConfig(app.Config{
		ConfigPaths: paths,
		StateFile:   w.path(".abiforge", "state.yaml"),
		LogLevel:    "debug",
		LogFormat:   "text",
		WorkerCount: 4,
	})
	require.NoError(t, err)

	logs := &app.SafeBuffer{}
	a := app.NewApp(logs, cfg, hcl_adapter.NewLoaderWithEnv(nil))
	runErr := a.Run(context.Background())
	if os.Getenv("ABIFORGE_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
	}
	return a, logs.String(), runErr
}
