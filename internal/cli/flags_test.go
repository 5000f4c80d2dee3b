package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlags_ToConfigFlags(t *testing.T) {
	f := Flags{
		Workers:           8,
		CasesPath:         "smoke",
		NameFilter:        "*mail*",
		Browser:           "http",
		Headless:          false,
		NavigationTimeout: 10 * time.Second,
		FailFast:          true,
		MetricsFile:       "navcheck.prom",
	}

	t.Run("headless untouched", func(t *testing.T) {
		cf := f.ToConfigFlags(func(string) bool { return false })
		assert.Nil(t, cf.Headless)
		assert.Equal(t, 8, cf.Workers)
		assert.Equal(t, "smoke", cf.CasesPath)
		assert.Equal(t, "*mail*", cf.NameFilter)
		assert.Equal(t, "http", cf.Browser)
		assert.Equal(t, 10*time.Second, cf.NavigationTimeout)
		assert.True(t, cf.FailFast)
		assert.Equal(t, "navcheck.prom", cf.MetricsFile)
	})

	t.Run("headless given", func(t *testing.T) {
		cf := f.ToConfigFlags(func(name string) bool { return name == "headless" })
		require.NotNil(t, cf.Headless)
		assert.False(t, *cf.Headless)
	})

	t.Run("nil changed", func(t *testing.T) {
		assert.Nil(t, f.ToConfigFlags(nil).Headless)
	})
}
