package models

import (
	"sort"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/globe/bounds"
	"github.com/aukilabs/globe/maths"
	"github.com/google/uuid"
)

const (
	ErrTypeRegionNotFound = "region_not_found"
)

// RegionStore represents a store that contains regions.
type RegionStore struct {
	// The epsilon region bounds are expanded by. Nil means
	// bounds.DefaultExpandEpsilon, zero gives tight bounds.
	ExpandEpsilon *float64

	// The epsilon inner bounds are shrunk by. Nil means
	// bounds.DefaultExpandEpsilon.
	InnerEpsilon *float64

	// Build the bounds of large geometries in parallel.
	ParallelBounds bool

	once    sync.Once
	mutex   sync.RWMutex
	regions map[uint32]*Region
	ids     SequentialIDGenerator
}

func (s *RegionStore) init() {
	s.once.Do(func() {
		s.regions = make(map[uint32]*Region)
	})
}

// BoundsOptions returns the options the bounds of new regions are built with.
func (s *RegionStore) BoundsOptions() BoundsOptions {
	return BoundsOptions{
		ExpandEpsilon: epsilonOrDefault(s.ExpandEpsilon),
		InnerEpsilon:  epsilonOrDefault(s.InnerEpsilon),
		Parallel:      s.ParallelBounds,
	}
}

func epsilonOrDefault(epsilon *float64) float64 {
	if epsilon == nil {
		return bounds.DefaultExpandEpsilon
	}
	return *epsilon
}

// Add bounds the given geometry and stores it as a new region.
func (s *RegionStore) Add(name string, g maths.GeometryOnSphere) *Region {
	s.init()

	start := time.Now()
	centre, bound, innerOuter := buildBounds(g, s.BoundsOptions())
	instrumentBoundsBuild(g.Type(), time.Since(start))

	r := &Region{
		ID:              s.ids.New(),
		UUID:            uuid.NewString(),
		Name:            name,
		Geometry:        g,
		Centre:          centre,
		Bound:           bound,
		InnerOuterBound: innerOuter,
		CreatedAt:       time.Now(),
	}

	s.mutex.Lock()
	s.regions[r.ID] = r
	s.mutex.Unlock()

	instrumentIncreaseRegionGauge(r.Kind())
	instrumentCountRegion(r.Kind())

	logs.WithTag("region_id", r.ID).
		WithTag("region_uuid", r.UUID).
		WithTag("kind", r.Kind()).
		WithTag("radius", r.Bound.AngularRadius()).
		Debug("region added")
	return r
}

// Get returns the region with the given id.
func (s *RegionStore) Get(id uint32) (*Region, bool) {
	s.init()

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	r, ok := s.regions[id]
	return r, ok
}

// Remove removes the region with the given id. Its id is reused by the next
// added region.
func (s *RegionStore) Remove(id uint32) error {
	s.init()

	s.mutex.Lock()
	r, ok := s.regions[id]
	if ok {
		delete(s.regions, id)
	}
	s.mutex.Unlock()

	if !ok {
		return regionNotFound(id)
	}

	s.ids.Reuse(id)
	instrumentDecreaseRegionGauge(r.Kind())

	logs.WithTag("region_id", id).
		WithTag("region_uuid", r.UUID).
		Debug("region removed")
	return nil
}

// List returns the stored regions ordered by id.
func (s *RegionStore) List() []*Region {
	s.init()

	s.mutex.RLock()
	regions := make([]*Region, 0, len(s.regions))
	for _, r := range s.regions {
		regions = append(regions, r)
	}
	s.mutex.RUnlock()

	sort.Slice(regions, func(i, j int) bool {
		return regions[i].ID < regions[j].ID
	})
	return regions
}

// Count returns the number of stored regions.
func (s *RegionStore) Count() int {
	s.init()

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.regions)
}

// Rotate replaces the region with the given id by its rotation. Regions
// previously returned by the store are left unchanged.
func (s *RegionStore) Rotate(id uint32, rot maths.FiniteRotation) (*Region, error) {
	s.init()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	r, ok := s.regions[id]
	if !ok {
		return nil, regionNotFound(id)
	}

	rotated := r.rotated(rot)
	s.regions[id] = rotated
	return rotated, nil
}

func regionNotFound(id uint32) error {
	return errors.New("region not found").
		WithType(ErrTypeRegionNotFound).
		WithTag("region_id", id)
}
