package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduportal/eduportal-search/pkg/types"
)

func TestParseFilterFlags(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		filters, err := parseFilterFlags(nil)
		require.NoError(t, err)
		assert.Nil(t, filters)
	})

	t.Run("pairs", func(t *testing.T) {
		filters, err := parseFilterFlags([]string{"source=AICTE", " priority = 1 "})
		require.NoError(t, err)
		assert.Equal(t, types.Filters{
			types.FilterSource:   "AICTE",
			types.FilterPriority: "1",
		}, filters)
	})

	t.Run("value may contain equals", func(t *testing.T) {
		filters, err := parseFilterFlags([]string{"url=https://example.org/?a=b"})
		require.NoError(t, err)
		assert.Equal(t, "https://example.org/?a=b", filters[types.FilterURL])
	})

	t.Run("invalid", func(t *testing.T) {
		for _, pair := range []string{"source", "colour=blue", "name="} {
			_, err := parseFilterFlags([]string{pair})
			assert.ErrorIs(t, err, types.ErrInvalidFilter, pair)
		}
	})
}

func TestCommandsRegistered(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "search", "import", "version"})
}
