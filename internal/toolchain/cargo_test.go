package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/abiforge/internal/arch"
)

// fakeCargo mimics `cargo build`: it records its arguments and relevant
// environment, then writes target/<triple>/<profile>/lib$FAKE_LIB.so.
const fakeCargo = `#!/bin/sh
echo "$@" >> "$FAKE_LOG"
env | grep -E '^(CARGO_TARGET_|CC_|AR_)' | sort >> "$FAKE_LOG"
if [ -n "$FAKE_FAIL" ]; then
  echo "error[E0425]: cannot find value in this scope" >&2
  exit 101
fi
triple=""
profile=debug
while [ $# -gt 0 ]; do
  case "$1" in
    --target) triple="$2"; shift ;;
    --release) profile=release ;;
  esac
  shift
done
if [ -n "$FAKE_NO_ARTIFACT" ]; then exit 0; fi
mkdir -p "target/$triple/$profile"
printf 'elf-%s' "$triple" > "target/$triple/$profile/lib${FAKE_LIB}.so"
`

func writeFakeCargo(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake toolchain is a POSIX shell script")
	}
	p := filepath.Join(t.TempDir(), "cargo")
	require.NoError(t, os.WriteFile(p, []byte(fakeCargo), 0o755))
	return p
}

func newRequest(t *testing.T, a arch.Architecture) Request {
	t.Helper()
	return Request{
		Module:    "core",
		Arch:      a,
		SourceDir: t.TempDir(),
		OutputDir: filepath.Join(t.TempDir(), a.Folder()),
		LibName:   "core",
		Profile:   "debug",
		MinSDK:    28,
		Features:  []string{"api-level-28"},
	}
}

func TestCargo_Args(t *testing.T) {
	c := NewCargo("cargo", "", nil)
	req := Request{Arch: arch.Arm64, Profile: "debug"}
	assert.Equal(t, []string{"build", "--lib", "--target", "aarch64-linux-android"}, c.Args(req))

	req.Profile = "release"
	req.Features = []string{"api-level-28", "vulkan"}
	assert.Equal(t, []string{"build", "--lib", "--target", "aarch64-linux-android", "--release", "--features", "api-level-28,vulkan"}, c.Args(req))
}

func TestCargo_Environ(t *testing.T) {
	t.Run("without NDK", func(t *testing.T) {
		c := NewCargo("cargo", "", map[string]string{"RUSTFLAGS": "-Cdebuginfo=0"})
		assert.Equal(t, []string{"RUSTFLAGS=-Cdebuginfo=0"}, c.Environ(Request{Arch: arch.Arm64}))
	})

	t.Run("with NDK", func(t *testing.T) {
		c := NewCargo("cargo", "/ndk", map[string]string{"CC_aarch64_linux_android": "/custom/cc"})
		env := c.Environ(Request{Arch: arch.Arm64, MinSDK: 28})

		bin := filepath.Join("/ndk", "toolchains", "llvm", "prebuilt", runtime.GOOS+"-x86_64", "bin")
		assert.Contains(t, env, "CARGO_TARGET_AARCH64_LINUX_ANDROID_LINKER="+filepath.Join(bin, "aarch64-linux-android28-clang"))
		assert.Contains(t, env, "AR_aarch64_linux_android="+filepath.Join(bin, "llvm-ar"))
		assert.Contains(t, env, "CC_aarch64_linux_android=/custom/cc", "explicit env wins")
	})

	t.Run("armv7 uses the armv7a clang prefix", func(t *testing.T) {
		env := NewCargo("cargo", "/ndk", nil).Environ(Request{Arch: arch.Arm, MinSDK: 21})
		joined := strings.Join(env, "\n")
		assert.Contains(t, joined, "CARGO_TARGET_ARMV7_LINUX_ANDROIDEABI_LINKER=")
		assert.Contains(t, joined, "armv7a-linux-androideabi21-clang")
	})
}

func TestCargo_Invoke(t *testing.T) {
	t.Run("success copies the artifact", func(t *testing.T) {
		// --- Arrange ---
		bin := writeFakeCargo(t)
		log := filepath.Join(t.TempDir(), "log")
		c := NewCargo(bin, "/ndk", map[string]string{"FAKE_LOG": log, "FAKE_LIB": "core"})
		req := newRequest(t, arch.Arm64)

		// --- Act ---
		res, err := c.Invoke(context.Background(), req)

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(req.OutputDir, "libcore.so"), res.ArtifactPath)
		data, err := os.ReadFile(res.ArtifactPath)
		require.NoError(t, err)
		assert.Equal(t, "elf-aarch64-linux-android", string(data))

		logged, err := os.ReadFile(log)
		require.NoError(t, err)
		assert.Contains(t, string(logged), "build --lib --target aarch64-linux-android --features api-level-28")
		assert.Contains(t, string(logged), "CARGO_TARGET_AARCH64_LINUX_ANDROID_LINKER=")
	})

	t.Run("release profile", func(t *testing.T) {
		bin := writeFakeCargo(t)
		c := NewCargo(bin, "", map[string]string{"FAKE_LOG": filepath.Join(t.TempDir(), "log"), "FAKE_LIB": "core"})
		req := newRequest(t, arch.X86_64)
		req.Profile = "release"

		res, err := c.Invoke(context.Background(), req)
		require.NoError(t, err)
		data, err := os.ReadFile(res.ArtifactPath)
		require.NoError(t, err)
		assert.Equal(t, "elf-x86_64-linux-android", string(data))
	})

	t.Run("toolchain failure carries arch and output", func(t *testing.T) {
		bin := writeFakeCargo(t)
		c := NewCargo(bin, "", map[string]string{"FAKE_LOG": filepath.Join(t.TempDir(), "log"), "FAKE_FAIL": "1"})
		req := newRequest(t, arch.Arm64)

		_, err := c.Invoke(context.Background(), req)

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvocationFailed))
		var ie *InvocationError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, arch.Arm64, ie.Arch)
		assert.Contains(t, ie.Output, "cannot find value in this scope")
		assert.Contains(t, err.Error(), "[arm64]")
		_, statErr := os.Stat(filepath.Join(req.OutputDir, "libcore.so"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("missing artifact is a failure", func(t *testing.T) {
		bin := writeFakeCargo(t)
		c := NewCargo(bin, "", map[string]string{"FAKE_LOG": filepath.Join(t.TempDir(), "log"), "FAKE_NO_ARTIFACT": "1"})
		_, err := c.Invoke(context.Background(), newRequest(t, arch.X86))
		assert.ErrorIs(t, err, ErrInvocationFailed)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("missing executable", func(t *testing.T) {
		c := NewCargo(filepath.Join(t.TempDir(), "no-cargo"), "", nil)
		_, err := c.Invoke(context.Background(), newRequest(t, arch.X86))
		assert.ErrorIs(t, err, ErrInvocationFailed)
	})
}

func TestTargetDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/src", "target"), targetDir("/src", nil))
	assert.Equal(t, "/abs/t", targetDir("/src", []string{"CARGO_TARGET_DIR=/abs/t"}))
	assert.Equal(t, filepath.Join("/src", "out"), targetDir("/src", []string{"X=1", "CARGO_TARGET_DIR=out"}))
}

func TestProbeVersion(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell")
	}
	v, err := ProbeVersion(context.Background(), []string{"sh", "-c", "printf 'rustc 1.79.0 (abc 2024-06-10)\\nextra\\n'"})
	require.NoError(t, err)
	assert.Equal(t, "rustc 1.79.0 (abc 2024-06-10)", v)

	_, err = ProbeVersion(context.Background(), nil)
	assert.Error(t, err)

	_, err = ProbeVersion(context.Background(), []string{"sh", "-c", "exit 3"})
	assert.Error(t, err)

	_, err = ProbeVersion(context.Background(), []string{"sh", "-c", "true"})
	assert.Error(t, err)
}
