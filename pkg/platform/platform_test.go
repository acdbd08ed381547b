package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()
	assert.Equal(t, runtime.GOOS, p.OS)
	assert.Equal(t, runtime.GOARCH, p.Architecture)
}

func TestParse(t *testing.T) {
	p, err := Parse("linux/arm64")
	require.NoError(t, err)
	assert.Equal(t, "linux", p.OS)
	assert.Equal(t, "arm64", p.Architecture)
	assert.Equal(t, "linux/arm64", String(p))

	empty, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, Default(), empty)

	_, err = Parse("not a platform/!!")
	assert.Error(t, err)
}

func TestHostMemory(t *testing.T) {
	mem, err := HostMemory()
	if err != nil {
		t.Skipf("host memory not available: %v", err)
	}
	assert.NotZero(t, mem.Total)
	assert.LessOrEqual(t, mem.Available, mem.Total)
}
