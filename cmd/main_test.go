package main

import (
	"testing"

	"github.com/aukilabs/globe/coverage"
	"github.com/aukilabs/globe/cubequadtree"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	valid := config{
		PublicEndpoint:       "http://localhost:4000",
		MaxCoverageDepth:     10,
		DefaultCoverageDepth: 6,
		TileIndexLevels:      8,
		StreamBatchSize:      256,
	}
	require.NoError(t, validateConfig(valid))

	tests := []struct {
		name   string
		update func(*config)
	}{
		{
			name:   "invalid endpoint",
			update: func(c *config) { c.PublicEndpoint = "localhost" },
		},
		{
			name:   "max depth too deep",
			update: func(c *config) { c.MaxCoverageDepth = coverage.MaxDepth + 1 },
		},
		{
			name:   "default depth above max depth",
			update: func(c *config) { c.DefaultCoverageDepth = 11 },
		},
		{
			name:   "no tile levels",
			update: func(c *config) { c.TileIndexLevels = 0 },
		},
		{
			name:   "too many tile levels",
			update: func(c *config) { c.TileIndexLevels = cubequadtree.MaxNumLevels + 1 },
		},
		{
			name:   "negative epsilon",
			update: func(c *config) { c.ExpandEpsilon = -1e-6 },
		},
		{
			name:   "empty batches",
			update: func(c *config) { c.StreamBatchSize = 0 },
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conf := valid
			test.update(&conf)
			require.Error(t, validateConfig(conf))
		})
	}
}
