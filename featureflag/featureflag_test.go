package featureflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeatureFlag(t *testing.T) {
	f := New([]string{string(FlagDisableTileIndex), " disable_protobuf_mesh ", ""})

	t.Run("run if enabled", func(t *testing.T) {
		var runTileIndex bool
		f.IfSet(FlagDisableTileIndex, func() {
			runTileIndex = true
		})
		require.True(t, runTileIndex)

		var runStreaming bool
		f.IfSet(FlagDisableCoverageStreaming, func() {
			runStreaming = true
		})
		require.False(t, runStreaming)
	})

	t.Run("run if disabled", func(t *testing.T) {
		var runTileIndex bool
		f.IfNotSet(FlagDisableTileIndex, func() {
			runTileIndex = true
		})
		require.False(t, runTileIndex)

		var runStreaming bool
		f.IfNotSet(FlagDisableCoverageStreaming, func() {
			runStreaming = true
		})
		require.True(t, runStreaming)
	})

	t.Run("normalized names", func(t *testing.T) {
		require.True(t, f.IsSet(FlagDisableProtobufMesh))
		require.Len(t, f, 2)
		require.ElementsMatch(t, []string{"DISABLE_TILE_INDEX", "DISABLE_PROTOBUF_MESH"}, f.Strings())
	})
}
