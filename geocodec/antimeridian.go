package geocodec

import (
	"math"

	"github.com/aukilabs/globe/maths"
	"github.com/twpayne/go-geom"
)

// Vertices closer than this to a pole have no meaningful longitude.
const poleEpsilon = 1e-12

// sphericalPolygons returns the lon/lat polygons covering the spherical
// polygon bounded by vertices. Rings crossing the antimeridian are split at
// ±180, rings winding around a pole are closed along the pole's latitude and
// a region holding both poles becomes the world minus the ring. Shells are
// counter clockwise and holes clockwise. Rings are closed.
func sphericalPolygons(vertices []maths.UnitVector3D, containsNorth, containsSouth bool) [][][]geom.Coord {
	ring, winding := planarRing(vertices)
	if len(ring) < 3 {
		return nil
	}

	switch {
	case winding != 0:
		poleLat := 90.0
		switch {
		case containsSouth && !containsNorth:
			poleLat = -90
		case containsNorth && !containsSouth:
		case winding < 0:
			poleLat = -90
		}

		first := ring[0]
		end := first[0] + winding
		ring = append(ring,
			geom.Coord{end, first[1]},
			geom.Coord{end, poleLat},
			geom.Coord{first[0], poleLat},
		)

	case containsNorth && containsSouth:
		return [][][]geom.Coord{worldWithout(ring)}
	}

	var polygons [][][]geom.Coord
	for _, piece := range splitAntimeridian(ring) {
		polygons = append(polygons, [][]geom.Coord{closeRing(orient(piece, true))})
	}
	return polygons
}

// planarRing returns the open ring of vertices in lon/lat degrees with
// longitudes unwrapped, so consecutive vertices are never more than 180
// degrees apart, and the longitude the ring winds by when closed: 0 or ±360.
// A vertex on a pole becomes two vertices at the pole's latitude, one at the
// longitude of each neighbour.
func planarRing(vertices []maths.UnitVector3D) ([]geom.Coord, float64) {
	n := len(vertices)
	start := -1
	for i, v := range vertices {
		if !isPole(v) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, 0
	}

	lat, lon := vertices[start].LatLon()
	ring := []geom.Coord{{lon, lat}}
	prevLon := lon

	poleLat, pendingPole := 0.0, false
	for k := 1; k <= n; k++ {
		v := vertices[(start+k)%n]
		if isPole(v) {
			poleLat = math.Copysign(90, v.Z())
			pendingPole = true
			ring = append(ring, geom.Coord{prevLon, poleLat})
			continue
		}

		lat, lon := v.LatLon()
		lon = prevLon + wrapLongitude(lon-prevLon)
		if pendingPole {
			ring = append(ring, geom.Coord{lon, poleLat})
			pendingPole = false
		}
		if k < n {
			ring = append(ring, geom.Coord{lon, lat})
		}
		prevLon = lon
	}

	ring = dedupe(ring)
	winding := math.Round((prevLon-ring[0][0])/360) * 360
	return ring, winding
}

func isPole(v maths.UnitVector3D) bool {
	return math.Hypot(v.X(), v.Y()) < poleEpsilon
}

// wrapLongitude returns d wrapped into [-180, 180).
func wrapLongitude(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

// splitAntimeridian shifts ring so its westernmost longitude lies in
// [-180, 180) and cuts the part east of 180 back to the western hemisphere.
// The ring must span at most 360 degrees of longitude.
func splitAntimeridian(ring []geom.Coord) [][]geom.Coord {
	ring = shiftIntoRange(ring)
	if _, maxLon := longitudeRange(ring); maxLon <= 180 {
		return [][]geom.Coord{ring}
	}

	var pieces [][]geom.Coord
	if west := clipLongitude(ring, 180, true); len(west) >= 3 {
		pieces = append(pieces, west)
	}
	if east := clipLongitude(ring, 180, false); len(east) >= 3 {
		pieces = append(pieces, shiftLongitude(east, -360))
	}
	return pieces
}

// worldWithout returns the polygon covering the whole lon/lat plane except the
// inside of ring. A ring crossing the antimeridian is carved out of the
// eastern and western edges of the world.
func worldWithout(ring []geom.Coord) [][]geom.Coord {
	ring = shiftIntoRange(ring)
	if _, maxLon := longitudeRange(ring); maxLon <= 180 {
		shell := []geom.Coord{{-180, -90}, {180, -90}, {180, 90}, {-180, 90}}
		return [][]geom.Coord{closeRing(shell), closeRing(orient(ring, false))}
	}

	// Going north along 180, the notch runs west from the lower crossing to
	// the upper one. Going south along -180 it runs east, upper to lower.
	eastNotch := notch(clipLongitude(ring, 180, true), 180, true)
	westNotch := notch(shiftLongitude(clipLongitude(ring, 180, false), -360), -180, false)

	shell := []geom.Coord{{-180, -90}, {180, -90}}
	shell = append(shell, eastNotch...)
	shell = append(shell, geom.Coord{180, 90}, geom.Coord{-180, 90})
	shell = append(shell, westNotch...)
	return [][]geom.Coord{closeRing(dedupe(shell))}
}

// notch returns the part of a clipped ring that leaves the line at lon and
// comes back to it, ordered by increasing latitude when northward is set and
// by decreasing latitude otherwise.
func notch(piece []geom.Coord, lon float64, northward bool) []geom.Coord {
	n := len(piece)
	if n < 3 {
		return nil
	}

	onLine := func(i int) bool {
		return piece[((i%n)+n)%n][0] == lon
	}

	// The longest cyclic run of vertices off the line.
	bestStart, bestLen := -1, 0
	for i := 0; i < n; i++ {
		if onLine(i) || !onLine(i-1) {
			continue
		}
		l := 0
		for l < n && !onLine(i+l) {
			l++
		}
		if l > bestLen {
			bestStart, bestLen = i, l
		}
	}
	if bestStart < 0 {
		return nil
	}

	chain := make([]geom.Coord, 0, bestLen+2)
	for i := bestStart - 1; i <= bestStart+bestLen; i++ {
		chain = append(chain, piece[((i%n)+n)%n])
	}

	first, last := chain[0], chain[len(chain)-1]
	if (first[1] > last[1]) == northward {
		reverse(chain)
	}
	return chain
}

// clipLongitude returns the part of ring west of lon, or east of it when west
// is not set.
func clipLongitude(ring []geom.Coord, lon float64, west bool) []geom.Coord {
	inside := func(c geom.Coord) bool {
		if west {
			return c[0] <= lon
		}
		return c[0] >= lon
	}

	var clipped []geom.Coord
	for i, cur := range ring {
		next := ring[(i+1)%len(ring)]
		if inside(cur) {
			clipped = append(clipped, cur)
		}
		if inside(cur) != inside(next) {
			t := (lon - cur[0]) / (next[0] - cur[0])
			clipped = append(clipped, geom.Coord{lon, cur[1] + t*(next[1]-cur[1])})
		}
	}
	return dedupe(clipped)
}

func shiftIntoRange(ring []geom.Coord) []geom.Coord {
	minLon, _ := longitudeRange(ring)
	return shiftLongitude(ring, -360*math.Floor((minLon+180)/360))
}

func shiftLongitude(ring []geom.Coord, d float64) []geom.Coord {
	shifted := make([]geom.Coord, len(ring))
	for i, c := range ring {
		shifted[i] = geom.Coord{c[0] + d, c[1]}
	}
	return shifted
}

func longitudeRange(ring []geom.Coord) (float64, float64) {
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	for _, c := range ring {
		minLon = math.Min(minLon, c[0])
		maxLon = math.Max(maxLon, c[0])
	}
	return minLon, maxLon
}

// dedupe drops consecutive duplicates, including a closing vertex.
func dedupe(ring []geom.Coord) []geom.Coord {
	deduped := make([]geom.Coord, 0, len(ring))
	for _, c := range ring {
		if len(deduped) != 0 && equalCoord(deduped[len(deduped)-1], c) {
			continue
		}
		deduped = append(deduped, c)
	}
	for len(deduped) > 1 && equalCoord(deduped[0], deduped[len(deduped)-1]) {
		deduped = deduped[:len(deduped)-1]
	}
	return deduped
}

func equalCoord(a, b geom.Coord) bool {
	return a[0] == b[0] && a[1] == b[1]
}

// orient returns ring counter clockwise, or clockwise when ccw is not set.
func orient(ring []geom.Coord, ccw bool) []geom.Coord {
	if (signedArea(ring) > 0) != ccw {
		reversed := append([]geom.Coord(nil), ring...)
		reverse(reversed)
		return reversed
	}
	return ring
}

func signedArea(ring []geom.Coord) float64 {
	var area float64
	for i, cur := range ring {
		next := ring[(i+1)%len(ring)]
		area += cur[0]*next[1] - next[0]*cur[1]
	}
	return area / 2
}

func reverse(ring []geom.Coord) {
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
}

func closeRing(ring []geom.Coord) []geom.Coord {
	if len(ring) == 0 {
		return ring
	}
	return append(ring, ring[0])
}

// polygonsGeometry returns polygons as a Polygon, a MultiPolygon when there
// are several, or nil when there are none.
func polygonsGeometry(polygons [][][]geom.Coord) geom.T {
	switch len(polygons) {
	case 0:
		return nil
	case 1:
		return geom.NewPolygon(geom.XY).MustSetCoords(polygons[0])
	default:
		return geom.NewMultiPolygon(geom.XY).MustSetCoords(polygons)
	}
}
