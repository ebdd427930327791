package featureflag

type Flag string

const (
	FlagDisableCoverageStreaming Flag = "DISABLE_COVERAGE_STREAMING"
	FlagDisableTileIndex         Flag = "DISABLE_TILE_INDEX"
	FlagDisableProtobufMesh      Flag = "DISABLE_PROTOBUF_MESH"
	FlagDisableParallelBounds    Flag = "DISABLE_PARALLEL_BOUNDS"
)
