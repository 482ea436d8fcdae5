package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault 默认值来自default标签
func TestDefault(t *testing.T) {
	conf := Default()
	assert.Equal(t, 64, conf.MaxDepth)
	assert.Equal(t, uint64(1048576), conf.LazyRawThreshold)
	assert.False(t, conf.StrictContext)
	assert.Equal(t, "info", conf.LogLevel)
}

func TestLoad(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		conf, err := Load(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, Default(), conf)
	})
	t.Run("overlay", func(t *testing.T) {
		conf, err := Load(strings.NewReader("maxdepth: 8\nstrictcontext: true\n"))
		require.NoError(t, err)
		assert.Equal(t, 8, conf.MaxDepth)
		assert.True(t, conf.StrictContext)
		assert.Equal(t, "info", conf.LogLevel)
	})
	t.Run("unknown key", func(t *testing.T) {
		_, err := Load(strings.NewReader("maxdeep: 8\n"))
		assert.Error(t, err)
	})
	t.Run("env", func(t *testing.T) {
		t.Setenv("BMFF_LOGLEVEL", "debug")
		t.Setenv("BMFF_LAZYRAWTHRESHOLD", "0")
		conf, err := Load(nil)
		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Zero(t, conf.LazyRawThreshold)
	})
}
