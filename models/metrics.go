package models

import (
	"strconv"
	"time"

	"github.com/aukilabs/globe/bounds"
	"github.com/aukilabs/globe/maths"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindLabel     = "kind"
	testKindLabel = "test_kind"
	resultLabel   = "result"
	depthLabel    = "depth"
	levelLabel    = "level"
)

var (
	regionCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "region_count",
		Help: "The number of regions.",
	}, []string{kindLabel})

	regionCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "region_count_total",
		Help: "The total number of regions.",
	}, []string{kindLabel})

	boundsBuildLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "bounds_build_latency",
		Help: "The time to build the bounds of a region.",
	}, []string{kindLabel})

	boundTests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bound_tests",
		Help: "The number of geometries tested against region bounds.",
	}, []string{
		kindLabel,
		testKindLabel,
		resultLabel,
	})

	coverageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "coverage_latency",
		Help: "The time to generate a coverage mesh.",
	}, []string{depthLabel})

	coverageTriangles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_triangles",
		Help: "The number of generated coverage triangles.",
	}, []string{depthLabel})

	tileQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "tile_query_latency",
		Help: "The time to find the tiles intersecting a bound.",
	}, []string{levelLabel})
)

func instrumentIncreaseRegionGauge(kind maths.GeometryType) {
	regionCount.
		With(prometheus.Labels{kindLabel: string(kind)}).
		Inc()
}

func instrumentDecreaseRegionGauge(kind maths.GeometryType) {
	regionCount.
		With(prometheus.Labels{kindLabel: string(kind)}).
		Dec()
}

func instrumentCountRegion(kind maths.GeometryType) {
	regionCountTotal.
		With(prometheus.Labels{kindLabel: string(kind)}).
		Inc()
}

func instrumentBoundsBuild(kind maths.GeometryType, d time.Duration) {
	boundsBuildLatency.
		With(prometheus.Labels{kindLabel: string(kind)}).
		Observe(d.Seconds())
}

func instrumentBoundTest(kind, testKind maths.GeometryType, res bounds.Result) {
	boundTests.
		With(prometheus.Labels{
			kindLabel:     string(kind),
			testKindLabel: string(testKind),
			resultLabel:   res.String(),
		}).
		Inc()
}

func instrumentCoverage(depth, triangles int, d time.Duration) {
	labels := prometheus.Labels{depthLabel: strconv.Itoa(depth)}
	coverageLatency.With(labels).Observe(d.Seconds())
	coverageTriangles.With(labels).Add(float64(triangles))
}

func instrumentTileQuery(level int, d time.Duration) {
	tileQueryLatency.
		With(prometheus.Labels{levelLabel: strconv.Itoa(level)}).
		Observe(d.Seconds())
}
