package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/abiforge/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoader_Load(t *testing.T) {
	t.Run("full build description", func(t *testing.T) {
		// --- Arrange ---
		dir := t.TempDir()
		writeFile(t, dir, "build.hcl", `
toolchain {
  command = "cargo"
  ndk_dir = env.ANDROID_NDK_HOME
  env = {
    RUSTFLAGS = "-C debuginfo=0"
  }
}

native_module "core" {
  source_dir  = "native/core"
  targets     = ["arm64", "x86_64"]
  min_sdk     = 28
  features    = ["api-level-28"]
  profile     = "release"
  output_root = "build/rustJniLibs/android"

  target "x86_64" {
    source_dir = "native/core-x86"
  }
}

consumer "merge_native_libs" "debug" {
  input_pattern = "build/rustJniLibs/android/{abi}"
  output_dir    = "build/merged/debug"
}
`)
		loader := NewLoaderWithEnv([]string{"ANDROID_NDK_HOME=/opt/ndk"})

		// --- Act ---
		model, err := loader.Load(context.Background(), dir)

		// --- Assert ---
		require.NoError(t, err)
		require.NotNil(t, model.Toolchain)
		assert.Equal(t, "/opt/ndk", model.Toolchain.NDKDir)
		assert.Equal(t, []string{"rustc", "--version"}, model.Toolchain.VersionCommand, "default applied")
		assert.Equal(t, "-C debuginfo=0", model.Toolchain.Env["RUSTFLAGS"])

		require.Len(t, model.Modules, 1)
		mod := model.Modules[0]
		absDir, _ := filepath.Abs(dir)
		assert.Equal(t, "core", mod.Name)
		assert.Equal(t, "core", mod.LibName, "lib name defaults to module name")
		assert.Equal(t, filepath.Join(absDir, "native/core"), mod.SourceDir)
		assert.Equal(t, filepath.Join(absDir, "build/rustJniLibs/android"), mod.OutputRoot)
		assert.Equal(t, []string{"arm64", "x86_64"}, mod.Targets)
		assert.Equal(t, 28, mod.MinSDK)
		assert.Equal(t, "release", mod.Profile)
		assert.Equal(t, filepath.Join(absDir, "native/core-x86"), mod.TargetSources["x86_64"])

		require.Len(t, model.Consumers, 1)
		c := model.Consumers[0]
		assert.Equal(t, "merge_native_libs", c.Kind)
		assert.Equal(t, "debug", c.Name)
		assert.Equal(t, filepath.Join(absDir, "build/rustJniLibs/android/{abi}"), c.InputPattern)
	})

	t.Run("env_or falls back when the variable is unset", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "build.hcl", `
toolchain {
  ndk_dir = env_or("ANDROID_NDK_HOME", "/fallback/ndk")
}
native_module "core" {
  source_dir  = "/src"
  targets     = ["arm64"]
  output_root = "/out"
}
`)
		model, err := NewLoaderWithEnv(nil).Load(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, "/fallback/ndk", model.Toolchain.NDKDir)
		assert.Equal(t, config.DefaultCommand, model.Toolchain.Command)
		assert.Equal(t, config.DefaultProfile, model.Modules[0].Profile)
	})

	t.Run("blocks may be split across files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a_module.hcl", `
native_module "core" {
  source_dir  = "/src"
  targets     = ["arm64"]
  output_root = "/out"
}
`)
		writeFile(t, dir, "sub/b_consumers.hcl", `
consumer "strip_native_libs" "release" {
  input_pattern = "/out/{abi}"
}
`)
		model, err := NewLoaderWithEnv(nil).Load(context.Background(), dir)
		require.NoError(t, err)
		assert.Len(t, model.Modules, 1)
		assert.Len(t, model.Consumers, 1)
	})

	t.Run("error cases", func(t *testing.T) {
		testCases := []struct {
			name    string
			content string
		}{
			{name: "syntax error", content: `native_module "core" {`},
			{name: "missing required attribute", content: `native_module "core" { targets = ["arm64"] }`},
			{name: "no modules", content: `toolchain {}`},
			{name: "bad profile", content: `
native_module "core" {
  source_dir  = "/src"
  targets     = ["arm64"]
  output_root = "/out"
  profile     = "fast"
}`},
			{name: "duplicate toolchain", content: `
toolchain {}
toolchain {}
native_module "core" {
  source_dir  = "/src"
  targets     = ["arm64"]
  output_root = "/out"
}`},
			{name: "unknown env variable", content: `
toolchain { ndk_dir = env.NOT_SET }
native_module "core" {
  source_dir  = "/src"
  targets     = ["arm64"]
  output_root = "/out"
}`},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				dir := t.TempDir()
				writeFile(t, dir, "build.hcl", tc.content)
				_, err := NewLoaderWithEnv([]string{"HOME=/root"}).Load(context.Background(), dir)
				assert.Error(t, err)
			})
		}
	})

	t.Run("no files found", func(t *testing.T) {
		_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
		assert.Error(t, err)
	})
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "", resolvePath("/base", ""))
	assert.Equal(t, "/abs/path", resolvePath("/base", "/abs/path"))
	assert.Equal(t, "/base/rel/path", resolvePath("/base", "rel/path"))
}

func TestLoader_ExampleBuildDescription(t *testing.T) {
	// --- Arrange ---
	loader := NewLoaderWithEnv([]string{"ANDROID_NDK_HOME=/opt/ndk/26.1"})
	example := filepath.Join("..", "..", "examples", "android", "build.hcl")

	// --- Act ---
	model, err := loader.Load(context.Background(), example)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "/opt/ndk/26.1", model.Toolchain.NDKDir)
	require.Len(t, model.Modules, 1)
	assert.Equal(t, []string{"arm64"}, model.Modules[0].Targets)
	assert.Equal(t, 28, model.Modules[0].MinSDK)
	require.Len(t, model.Consumers, 3)
	assert.Equal(t, []string{"merge_native_libs.mergeDebugNativeLibs"}, model.Consumers[2].DependsOn)
}
