package models

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globe/bounds"
	"github.com/aukilabs/globe/cubequadtree"
	"github.com/aukilabs/globe/maths"
)

const (
	ErrTypeInvalidTileLevel = "invalid_tile_level"
)

// TileIndex is a cube quad tree whose nodes carry the bounding small circle of
// their tile.
type TileIndex struct {
	tree *cubequadtree.CubeQuadTree[bounds.BoundingSmallCircle]
}

// NewTileIndex builds a tile index with the given number of levels.
func NewTileIndex(numLevels int) (*TileIndex, error) {
	tree, err := cubequadtree.NewWithElements(numLevels, func(key cubequadtree.NodeKey) bounds.BoundingSmallCircle {
		return cubequadtree.NodeBoundingSmallCircle(key, bounds.DefaultExpandEpsilon)
	})
	if err != nil {
		return nil, err
	}
	return &TileIndex{tree: tree}, nil
}

func (ti *TileIndex) NumLevels() int {
	return ti.tree.NumLevels()
}

// TileBound returns the bounding small circle of a tile.
func (ti *TileIndex) TileBound(key cubequadtree.NodeKey) (bounds.BoundingSmallCircle, error) {
	if !ti.tree.Contains(key) {
		return bounds.BoundingSmallCircle{}, errors.New("tile not found").
			WithType(ErrTypeInvalidTileLevel).
			WithTag("tile", key)
	}
	return ti.tree.Node(key).Element, nil
}

// IntersectingTiles returns the keys of the tiles at the given level whose
// bounds intersect b. Subtrees are skipped as soon as a tile misses b.
func (ti *TileIndex) IntersectingTiles(b bounds.BoundingSmallCircle, level int) ([]cubequadtree.NodeKey, error) {
	if err := ti.checkLevel(level); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		instrumentTileQuery(level, time.Since(start))
	}()

	var keys []cubequadtree.NodeKey
	for _, face := range cubequadtree.Faces {
		keys = ti.appendIntersectingTiles(keys, cubequadtree.NodeKey{Face: face}, b, level)
	}
	return keys, nil
}

func (ti *TileIndex) appendIntersectingTiles(keys []cubequadtree.NodeKey, key cubequadtree.NodeKey, b bounds.BoundingSmallCircle, level int) []cubequadtree.NodeKey {
	if !bounds.Intersect(ti.tree.Node(key).Element, b) {
		return keys
	}

	if key.Level == level {
		return append(keys, key)
	}

	for _, child := range key.Children() {
		keys = ti.appendIntersectingTiles(keys, child, b, level)
	}
	return keys
}

// Locate returns the key of the tile at the given level containing p.
func (ti *TileIndex) Locate(p maths.UnitVector3D, level int) (cubequadtree.NodeKey, error) {
	if err := ti.checkLevel(level); err != nil {
		return cubequadtree.NodeKey{}, err
	}
	return cubequadtree.LocateNode(p, level), nil
}

func (ti *TileIndex) checkLevel(level int) error {
	if level < 0 || level >= ti.tree.NumLevels() {
		return errors.New("invalid tile level").
			WithType(ErrTypeInvalidTileLevel).
			WithTag("level", level).
			WithTag("num_levels", ti.tree.NumLevels())
	}
	return nil
}
