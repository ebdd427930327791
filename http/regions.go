package http

import (
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/globe/bounds"
	"github.com/aukilabs/globe/coverage"
	"github.com/aukilabs/globe/cubequadtree"
	"github.com/aukilabs/globe/featureflag"
	"github.com/aukilabs/globe/geocodec"
	"github.com/aukilabs/globe/maths"
	"github.com/aukilabs/globe/models"
	"github.com/segmentio/encoding/json"
	"github.com/twpayne/go-geom/encoding/geojson"
)

const (
	maxBodySize = 8 << 20

	contentTypeProtobuf = "application/x-protobuf"
	contentTypeGeoJSON  = "application/geo+json"
	contentTypeWKT      = "text/plain; charset=utf-8"
	contentTypeWKB      = "application/octet-stream"
)

// RegionHandler serves the region API.
type RegionHandler struct {
	Regions *models.RegionStore

	// The tile index. Tile queries are disabled when nil.
	Tiles *models.TileIndex

	// The depth of coverage meshes when the request does not specify one.
	DefaultCoverageDepth int

	// The deepest coverage mesh a request can ask for.
	MaxCoverageDepth int

	FeatureFlags featureflag.FeatureFlag
}

// Register registers the region routes on mux.
func (h *RegionHandler) Register(mux *http.ServeMux) {
	mux.Handle("POST /regions", HandleWithCORS(http.HandlerFunc(h.HandleAdd)))
	mux.Handle("GET /regions", HandleWithCORS(http.HandlerFunc(h.HandleList)))
	mux.Handle("GET /regions/{id}", HandleWithCORS(http.HandlerFunc(h.HandleGet)))
	mux.Handle("DELETE /regions/{id}", HandleWithCORS(http.HandlerFunc(h.HandleRemove)))
	mux.Handle("POST /regions/{id}/test", HandleWithCORS(http.HandlerFunc(h.HandleTest)))
	mux.Handle("POST /regions/{id}/rotate", HandleWithCORS(http.HandlerFunc(h.HandleRotate)))
	mux.Handle("GET /regions/{id}/coverage", HandleWithCORS(http.HandlerFunc(h.HandleCoverage)))
	mux.Handle("GET /regions/{id}/tiles", HandleWithCORS(http.HandlerFunc(h.HandleTiles)))
	mux.Handle("GET /regions/{id}/intersects/{other}", HandleWithCORS(http.HandlerFunc(h.HandleIntersects)))
	mux.Handle("GET /tiles/locate", HandleWithCORS(http.HandlerFunc(h.HandleLocateTile)))
	mux.Handle("OPTIONS /regions", HandleWithCORS(http.NotFoundHandler()))
	mux.Handle("OPTIONS /regions/", HandleWithCORS(http.NotFoundHandler()))
	mux.Handle("OPTIONS /tiles/", HandleWithCORS(http.NotFoundHandler()))
}

type latLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func newLatLon(u maths.UnitVector3D) latLon {
	lat, lon := u.LatLon()
	return latLon{Lat: lat, Lon: lon}
}

func (l latLon) unitVector() (maths.UnitVector3D, error) {
	if math.IsNaN(l.Lat) || l.Lat < -90 || l.Lat > 90 || math.IsNaN(l.Lon) || math.IsInf(l.Lon, 0) {
		return maths.UnitVector3D{}, errors.New("invalid coordinate").
			WithType(ErrTypeBadRequest).
			WithTag("lat", l.Lat).
			WithTag("lon", l.Lon)
	}
	return maths.UnitVectorFromLatLon(l.Lat, l.Lon), nil
}

type boundResponse struct {
	Centre        latLon  `json:"centre"`
	CosRadius     float64 `json:"cos_radius"`
	RadiusDegrees float64 `json:"radius_degrees"`
}

func newBoundResponse(b bounds.BoundingSmallCircle) boundResponse {
	return boundResponse{
		Centre:        newLatLon(b.Centre()),
		CosRadius:     b.SmallCircleBoundaryCosine(),
		RadiusDegrees: b.AngularRadius() * 180 / math.Pi,
	}
}

type innerOuterBoundResponse struct {
	Centre             latLon  `json:"centre"`
	CosOuterRadius     float64 `json:"cos_outer_radius"`
	CosInnerRadius     float64 `json:"cos_inner_radius"`
	OuterRadiusDegrees float64 `json:"outer_radius_degrees"`
	InnerRadiusDegrees float64 `json:"inner_radius_degrees"`
}

type regionResponse struct {
	ID              uint32                   `json:"id"`
	UUID            string                   `json:"uuid"`
	Name            string                   `json:"name,omitempty"`
	Kind            maths.GeometryType       `json:"kind"`
	Centre          latLon                   `json:"centre"`
	Bound           boundResponse            `json:"bound"`
	InnerOuterBound *innerOuterBoundResponse `json:"inner_outer_bound,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

func newRegionResponse(r *models.Region) regionResponse {
	res := regionResponse{
		ID:        r.ID,
		UUID:      r.UUID,
		Name:      r.Name,
		Kind:      r.Kind(),
		Centre:    newLatLon(r.Centre),
		Bound:     newBoundResponse(r.Bound),
		CreatedAt: r.CreatedAt,
	}

	if annulus := r.InnerOuterBound; annulus != nil {
		res.InnerOuterBound = &innerOuterBoundResponse{
			Centre:             newLatLon(annulus.Centre()),
			CosOuterRadius:     annulus.CosOuterRadius(),
			CosInnerRadius:     annulus.CosInnerRadius(),
			OuterRadiusDegrees: math.Acos(annulus.CosOuterRadius()) * 180 / math.Pi,
			InnerRadiusDegrees: math.Acos(annulus.CosInnerRadius()) * 180 / math.Pi,
		}
	}
	return res
}

// HandleAdd creates a region from the geometry in the request body. The
// format comes from the format query parameter, or from the content type.
func (h *RegionHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	g, err := decodeGeometry(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	region := h.Regions.Add(r.URL.Query().Get("name"), g)
	logs.WithTag("region_id", region.ID).
		WithTag("region_uuid", region.UUID).
		WithTag("kind", region.Kind()).
		Info("region created")

	writeJSON(w, http.StatusCreated, newRegionResponse(region))
}

func (h *RegionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	regions := h.Regions.List()

	res := make([]regionResponse, len(regions))
	for i, region := range regions {
		res[i] = newRegionResponse(region)
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGet returns a region. The json format describes the region and its
// bounds, geojson returns its geometry and bound polygons as features, wkt
// and wkb return its geometry.
func (h *RegionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	region, err := h.region(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, newRegionResponse(region))

	case string(geocodec.FormatGeoJSON):
		fc, err := regionFeatureCollection(region)
		if err != nil {
			writeError(w, err)
			return
		}

		b, err := json.Marshal(fc)
		if err != nil {
			writeError(w, errors.New("encoding geojson region failed").Wrap(err))
			return
		}
		writeBody(w, contentTypeGeoJSON, b)

	case string(geocodec.FormatWKT), string(geocodec.FormatWKB):
		b, err := geocodec.Encode(geocodec.Format(format), region.Geometry)
		if err != nil {
			writeError(w, err)
			return
		}

		contentType := contentTypeWKT
		if format == string(geocodec.FormatWKB) {
			contentType = contentTypeWKB
		}
		writeBody(w, contentType, b)

	default:
		writeError(w, errors.New("unsupported region format").
			WithType(ErrTypeBadRequest).
			WithTag("format", format))
	}
}

func regionFeatureCollection(region *models.Region) (*geojson.FeatureCollection, error) {
	properties := func(role string) map[string]interface{} {
		return map[string]interface{}{
			"region_id":   region.ID,
			"region_uuid": region.UUID,
			"name":        region.Name,
			"kind":        region.Kind(),
			"role":        role,
		}
	}

	geometry, err := geocodec.GeometryFeature(region.Geometry, properties("geometry"))
	if err != nil {
		return nil, err
	}

	features := []*geojson.Feature{
		geometry,
		geocodec.BoundFeature(region.Bound, 0, properties("bound")),
	}
	if annulus := region.InnerOuterBound; annulus != nil {
		features = append(features, geocodec.BoundFeature(annulus.InnerBoundingSmallCircle(), 0, properties("inner_bound")))
	}
	return &geojson.FeatureCollection{Features: features}, nil
}

func (h *RegionHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := parseRegionID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.Regions.Remove(id); err != nil {
		writeError(w, err)
		return
	}

	logs.WithTag("region_id", id).Info("region removed")
	w.WriteHeader(http.StatusNoContent)
}

type testResponse struct {
	Bound         string `json:"bound"`
	InnerOuter    string `json:"inner_outer,omitempty"`
	FilledPolygon string `json:"filled_polygon,omitempty"`
}

// HandleTest classifies the geometry in the request body against a region.
func (h *RegionHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	region, err := h.region(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	g, err := decodeGeometry(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	res := region.Test(g)
	body := testResponse{
		Bound: res.Bound.String(),
	}
	if res.InnerOuter != nil {
		body.InnerOuter = res.InnerOuter.String()
	}
	if res.FilledPolygon != nil {
		body.FilledPolygon = res.FilledPolygon.String()
	}
	writeJSON(w, http.StatusOK, body)
}

type rotateRequest struct {
	// Rotation about an axis.
	Axis         *latLon `json:"axis"`
	AngleDegrees float64 `json:"angle_degrees"`

	// Rotation taking a point to another.
	From *latLon `json:"from"`
	To   *latLon `json:"to"`
}

func (req rotateRequest) rotation() (maths.FiniteRotation, error) {
	switch {
	case req.Axis != nil:
		axis, err := req.Axis.unitVector()
		if err != nil {
			return maths.FiniteRotation{}, err
		}
		return maths.NewFiniteRotation(axis, req.AngleDegrees*math.Pi/180), nil

	case req.From != nil && req.To != nil:
		from, err := req.From.unitVector()
		if err != nil {
			return maths.FiniteRotation{}, err
		}
		to, err := req.To.unitVector()
		if err != nil {
			return maths.FiniteRotation{}, err
		}
		return maths.NewFiniteRotationBetween(from, to), nil

	default:
		return maths.FiniteRotation{}, errors.New("rotation needs an axis or a from and to point").
			WithType(ErrTypeBadRequest)
	}
}

// HandleRotate rotates a region by the rotation in the request body.
func (h *RegionHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	id, err := parseRegionID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req rotateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	rot, err := req.rotation()
	if err != nil {
		writeError(w, err)
		return
	}

	region, err := h.Regions.Rotate(id, rot)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRegionResponse(region))
}

type meshResponse struct {
	RegionID  uint32          `json:"region_id"`
	Depth     int             `json:"depth"`
	Triangles [][3][3]float64 `json:"triangles"`
}

func newMeshResponse(regionID uint32, m *coverage.Mesh) meshResponse {
	triangles := make([][3][3]float64, len(m.Triangles))
	for i, t := range m.Triangles {
		triangles[i] = t.Coordinates()
	}
	return meshResponse{
		RegionID:  regionID,
		Depth:     m.Depth,
		Triangles: triangles,
	}
}

// HandleCoverage returns the coverage mesh of a region bound as JSON, GeoJSON
// or protobuf.
func (h *RegionHandler) HandleCoverage(w http.ResponseWriter, r *http.Request) {
	region, err := h.region(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()
	depth, err := h.coverageDepth(query.Get("depth"))
	if err != nil {
		writeError(w, err)
		return
	}

	format := query.Get("format")
	if format == "protobuf" && h.FeatureFlags.IsSet(featureflag.FlagDisableProtobufMesh) {
		writeError(w, errors.New("protobuf meshes are disabled").
			WithType(ErrTypeDisabled).
			WithTag("flag", featureflag.FlagDisableProtobufMesh))
		return
	}

	mesh, err := region.Coverage(depth)
	if err != nil {
		writeError(w, err)
		return
	}

	switch format {
	case "", "json":
		writeJSON(w, http.StatusOK, newMeshResponse(region.ID, mesh))

	case "geojson":
		b, err := json.Marshal(geocodec.MeshFeatureCollection(mesh))
		if err != nil {
			writeError(w, errors.New("encoding geojson mesh failed").Wrap(err))
			return
		}
		writeBody(w, contentTypeGeoJSON, b)

	case "protobuf":
		b, err := coverage.MarshalProto(mesh, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeBody(w, contentTypeProtobuf, b)

	default:
		writeError(w, errors.New("unsupported mesh format").
			WithType(ErrTypeBadRequest).
			WithTag("format", format))
	}
}

func (h *RegionHandler) coverageDepth(s string) (int, error) {
	if s == "" {
		return h.DefaultCoverageDepth, nil
	}

	depth, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid depth").
			WithType(ErrTypeBadRequest).
			WithTag("depth", s).
			Wrap(err)
	}

	if depth < 0 || depth > h.MaxCoverageDepth {
		return 0, errors.New("depth out of range").
			WithType(coverage.ErrTypeInvalidDepth).
			WithTag("depth", depth).
			WithTag("max_depth", h.MaxCoverageDepth)
	}
	return depth, nil
}

type tileResponse struct {
	Key   string `json:"key"`
	Face  string `json:"face"`
	Level int    `json:"level"`
	U     int    `json:"u"`
	V     int    `json:"v"`
}

func newTileResponse(k cubequadtree.NodeKey) tileResponse {
	return tileResponse{
		Key:   k.String(),
		Face:  k.Face.String(),
		Level: k.Level,
		U:     k.U,
		V:     k.V,
	}
}

type tilesResponse struct {
	RegionID uint32         `json:"region_id"`
	Level    int            `json:"level"`
	Tiles    []tileResponse `json:"tiles"`
}

// HandleTiles returns the tiles at a level of the tile index intersecting a
// region bound.
func (h *RegionHandler) HandleTiles(w http.ResponseWriter, r *http.Request) {
	if h.Tiles == nil {
		writeError(w, errors.New("tile index is disabled").
			WithType(ErrTypeDisabled).
			WithTag("flag", featureflag.FlagDisableTileIndex))
		return
	}

	region, err := h.region(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	level := h.Tiles.NumLevels() - 1
	if s := r.URL.Query().Get("level"); s != "" {
		if level, err = strconv.Atoi(s); err != nil {
			writeError(w, errors.New("invalid level").
				WithType(ErrTypeBadRequest).
				WithTag("level", s).
				Wrap(err))
			return
		}
	}

	keys, err := h.Tiles.IntersectingTiles(region.Bound, level)
	if err != nil {
		writeError(w, err)
		return
	}

	tiles := make([]tileResponse, len(keys))
	for i, k := range keys {
		tiles[i] = newTileResponse(k)
	}

	writeJSON(w, http.StatusOK, tilesResponse{
		RegionID: region.ID,
		Level:    level,
		Tiles:    tiles,
	})
}

type locateTileResponse struct {
	Point latLon        `json:"point"`
	Tile  tileResponse  `json:"tile"`
	Bound boundResponse `json:"bound"`
}

// HandleLocateTile returns the tile of the tile index containing a lat/lon
// point, with the tile bound.
func (h *RegionHandler) HandleLocateTile(w http.ResponseWriter, r *http.Request) {
	if h.Tiles == nil {
		writeError(w, errors.New("tile index is disabled").
			WithType(ErrTypeDisabled).
			WithTag("flag", featureflag.FlagDisableTileIndex))
		return
	}

	query := r.URL.Query()
	lat, err := floatParam(query, "lat")
	if err != nil {
		writeError(w, err)
		return
	}
	lon, err := floatParam(query, "lon")
	if err != nil {
		writeError(w, err)
		return
	}

	point := latLon{Lat: lat, Lon: lon}
	p, err := point.unitVector()
	if err != nil {
		writeError(w, err)
		return
	}

	level := h.Tiles.NumLevels() - 1
	if s := query.Get("level"); s != "" {
		if level, err = strconv.Atoi(s); err != nil {
			writeError(w, errors.New("invalid level").
				WithType(ErrTypeBadRequest).
				WithTag("level", s).
				Wrap(err))
			return
		}
	}

	key, err := h.Tiles.Locate(p, level)
	if err != nil {
		writeError(w, err)
		return
	}

	bound, err := h.Tiles.TileBound(key)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, locateTileResponse{
		Point: point,
		Tile:  newTileResponse(key),
		Bound: newBoundResponse(bound),
	})
}

func floatParam(query url.Values, name string) (float64, error) {
	v, err := strconv.ParseFloat(query.Get(name), 64)
	if err != nil {
		return 0, errors.Newf("invalid %s", name).
			WithType(ErrTypeBadRequest).
			WithTag(name, query.Get(name)).
			Wrap(err)
	}
	return v, nil
}

type intersectsResponse struct {
	RegionID      uint32 `json:"region_id"`
	OtherRegionID uint32 `json:"other_region_id"`
	Intersects    bool   `json:"intersects"`
}

// HandleIntersects reports whether the bounds of two regions overlap.
func (h *RegionHandler) HandleIntersects(w http.ResponseWriter, r *http.Request) {
	region, err := h.region(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	other, err := h.region(r, "other")
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, intersectsResponse{
		RegionID:      region.ID,
		OtherRegionID: other.ID,
		Intersects:    region.Intersects(other),
	})
}

func (h *RegionHandler) region(r *http.Request, name string) (*models.Region, error) {
	id, err := parseRegionID(r, name)
	if err != nil {
		return nil, err
	}

	region, ok := h.Regions.Get(id)
	if !ok {
		return nil, errors.New("region not found").
			WithType(models.ErrTypeRegionNotFound).
			WithTag("region_id", id)
	}
	return region, nil
}

func parseRegionID(r *http.Request, name string) (uint32, error) {
	s := r.PathValue(name)
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.New("invalid region id").
			WithType(ErrTypeBadRequest).
			WithTag("region_id", s).
			Wrap(err)
	}
	return uint32(id), nil
}

func decodeGeometry(w http.ResponseWriter, r *http.Request) (maths.GeometryOnSphere, error) {
	format := geocodec.FormatFromContentType(r.Header.Get("Content-Type"))
	if s := r.URL.Query().Get("format"); s != "" {
		f, err := geocodec.ParseFormat(s)
		if err != nil {
			return nil, err
		}
		format = f
	}

	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, errors.New("reading body failed").
			WithType(ErrTypeBadRequest).
			Wrap(err)
	}
	return geocodec.Decode(format, b)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return errors.New("reading body failed").
			WithType(ErrTypeBadRequest).
			Wrap(err)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return errors.New("decoding body failed").
			WithType(ErrTypeBadRequest).
			Wrap(err)
	}
	return nil
}
