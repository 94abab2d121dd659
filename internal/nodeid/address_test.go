package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress_String(t *testing.T) {
	assert.Equal(t, "compile.native_core[arm64]", NewWithVariant("compile", "native_core", "arm64").String())
	assert.Equal(t, "package.app", New("package", "app").String())
}

func TestAddress_RoundTrip(t *testing.T) {
	testIDs := []string{
		"compile.native_core[arm64]",
		"merge_native_libs.mergeDebugNativeLibs",
		"compile.android-vulkan[x86]",
	}

	for _, id := range testIDs {
		t.Run(id, func(t *testing.T) {
			addr, err := Parse(id)
			require.NoError(t, err)
			assert.Equal(t, id, addr.String())

			again, err := Parse(addr.String())
			require.NoError(t, err)
			assert.True(t, addr.Equal(again))
		})
	}
}

func TestAddress_Equal(t *testing.T) {
	a := MustParse("compile.core[arm64]")
	assert.True(t, a.Equal(MustParse("compile.core[arm64]")))
	assert.False(t, a.Equal(MustParse("compile.core[x86]")))
	assert.False(t, a.Equal(MustParse("compile.other[arm64]")))
	assert.False(t, a.Equal(MustParse("compile.core")))
}
