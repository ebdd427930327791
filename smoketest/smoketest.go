// Package smoketest runs a self check of the bounding and coverage pipeline.
package smoketest

import (
	"context"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/globe/bounds"
	"github.com/aukilabs/globe/coverage"
	"github.com/aukilabs/globe/geocodec"
	"github.com/aukilabs/globe/maths"
	"github.com/segmentio/encoding/json"
)

const (
	DefaultNumPoints       = 100
	DefaultSpreadDegrees   = 10
	DefaultDepth           = 6
	DefaultBoundarySamples = 256
	DefaultTimeout         = 10 * time.Second

	maxNumPoints       = 100000
	maxBoundarySamples = 100000
	maxRequestSize     = 1 << 20
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

type Options struct {
	// The public endpoint of the server, reported in results.
	Endpoint string

	// The deepest coverage mesh a request can ask for.
	MaxDepth int

	// Receives the report of every run. Optional.
	SendResult func(context.Context, Report) error
}

// Request configures a smoke test run. Zero values are replaced by defaults,
// except Depth where only a missing depth is.
type Request struct {
	NumPoints       int           `json:"num_points"`
	SpreadDegrees   float64       `json:"spread_degrees"`
	Depth           *int          `json:"depth,omitempty"`
	BoundarySamples int           `json:"boundary_samples"`
	Seed            int64         `json:"seed"`
	Timeout         time.Duration `json:"timeout"`
}

func (r *Request) setDefaults(maxDepth int) error {
	if r.NumPoints == 0 {
		r.NumPoints = DefaultNumPoints
	}
	if r.SpreadDegrees == 0 {
		r.SpreadDegrees = DefaultSpreadDegrees
	}
	if r.Depth == nil {
		depth := DefaultDepth
		r.Depth = &depth
	}
	if r.BoundarySamples == 0 {
		r.BoundarySamples = DefaultBoundarySamples
	}
	if r.Seed == 0 {
		r.Seed = time.Now().UnixNano()
	}
	if r.Timeout == 0 {
		r.Timeout = DefaultTimeout
	}

	switch {
	case r.NumPoints < 2 || r.NumPoints > maxNumPoints:
		return errors.New("invalid number of points").WithTag("num_points", r.NumPoints)

	case r.SpreadDegrees < 0 || r.SpreadDegrees > 80:
		return errors.New("invalid spread").WithTag("spread_degrees", r.SpreadDegrees)

	case *r.Depth < 0 || *r.Depth > maxDepth:
		return errors.New("invalid depth").WithTag("depth", *r.Depth).WithTag("max_depth", maxDepth)

	case r.BoundarySamples < 3 || r.BoundarySamples > maxBoundarySamples:
		return errors.New("invalid number of boundary samples").WithTag("boundary_samples", r.BoundarySamples)
	}
	return nil
}

// Check is the outcome of a single step of a run.
type Check struct {
	Name       string  `json:"name"`
	Passed     bool    `json:"passed"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// Report is the outcome of a run.
type Report struct {
	Endpoint      string     `json:"endpoint"`
	Status        Status     `json:"status"`
	Seed          int64      `json:"seed"`
	Centre        [2]float64 `json:"centre"`
	RadiusDegrees float64    `json:"radius_degrees"`
	Triangles     int        `json:"triangles"`
	Checks        []Check    `json:"checks"`
	DurationMS    float64    `json:"duration_ms"`
}

// HandleSmokeTest runs a smoke test with the request in the body and responds
// with its report.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("reading body failed").Wrap(err))
			return
		}

		var req Request
		if len(b) != 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				writeError(w, http.StatusBadRequest, errors.New("decoding body failed").Wrap(err))
				return
			}
		}
		if err := req.setDefaults(opts.MaxDepth); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		runCtx, cancel := context.WithTimeout(ctx, req.Timeout)
		defer cancel()

		report := Run(runCtx, req)
		report.Endpoint = opts.Endpoint

		if opts.SendResult != nil {
			if err := opts.SendResult(ctx, report); err != nil {
				logs.WithTag("endpoint", opts.Endpoint).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}

		statusCode := http.StatusOK
		if report.Status != StatusSuccess {
			statusCode = http.StatusInternalServerError
		}
		writeJSON(w, statusCode, report)
	}
}

// Run bounds random points around a random centre and checks the bound, its
// expansion epsilon, the annulus around a polyline through the points and the
// coverage mesh of the bound. Checks stop at the first failure.
func Run(ctx context.Context, req Request) Report {
	start := time.Now()
	rnd := rand.New(rand.NewSource(req.Seed))

	centre := randomUnitVector(rnd)
	points := randomPoints(rnd, centre, req.SpreadDegrees, req.NumPoints)

	builder := bounds.NewBoundingSmallCircleBuilder(centre)
	for _, p := range points {
		builder.AddPoint(p)
	}
	bound := builder.BoundingSmallCircle(bounds.DefaultExpandEpsilon)
	tight := builder.BoundingSmallCircle(0)

	lat, lon := centre.LatLon()
	report := Report{
		Status:        StatusSuccess,
		Seed:          req.Seed,
		Centre:        [2]float64{lat, lon},
		RadiusDegrees: bound.AngularRadius() * 180 / math.Pi,
	}

	var mesh *coverage.Mesh
	steps := []struct {
		name string
		run  func() error
	}{
		{
			name: "bound",
			run: func() error {
				for i, p := range points {
					if res := bound.Test(p); res != bounds.InsideBounds {
						return errors.New("point is not inside the bound").
							WithTag("index", i).
							WithTag("result", res)
					}
				}
				return nil
			},
		},
		{
			name: "epsilon",
			run: func() error {
				if bound.SmallCircleBoundaryCosine() >= tight.SmallCircleBoundaryCosine() {
					return errors.New("expanded bound is not larger than the tight bound").
						WithTag("cos_radius", bound.SmallCircleBoundaryCosine()).
						WithTag("tight_cos_radius", tight.SmallCircleBoundaryCosine())
				}

				for i, p := range points {
					if maths.Dot(p, centre) < tight.SmallCircleBoundaryCosine()-1e-12 {
						return errors.New("point is outside the tight bound").WithTag("index", i)
					}
				}
				return nil
			},
		},
		{
			name: "inner_outer",
			run: func() error {
				pl, err := maths.NewPolylineOnSphere(points)
				if err != nil {
					return err
				}

				builder := bounds.NewInnerOuterBoundingSmallCircleBuilder(centre)
				builder.AddPolyline(pl)
				annulus := builder.InnerOuterBoundingSmallCircle(bounds.DefaultExpandEpsilon, bounds.DefaultExpandEpsilon)

				if res := annulus.TestPolyline(pl); res != bounds.InsideInnerOuterBounds {
					return errors.New("polyline is not inside its annulus").WithTag("result", res)
				}
				return nil
			},
		},
		{
			name: "coverage",
			run: func() error {
				m, err := coverage.Generate(bound, *req.Depth)
				if err != nil {
					return err
				}
				mesh = m
				report.Triangles = m.Len()

				if !m.Contains(centre) {
					return errors.New("mesh does not contain the centre")
				}
				for i, p := range points {
					if !m.Contains(p) {
						return errors.New("mesh does not contain a bounded point").WithTag("index", i)
					}
				}
				return nil
			},
		},
		{
			name: "boundary_gaps",
			run: func() error {
				for i, p := range geocodec.SmallCircleVertices(bound, req.BoundarySamples) {
					if !mesh.Contains(p) {
						return errors.New("gap on the bound boundary").
							WithTag("index", i).
							WithTag("point", p.String())
					}
				}
				return nil
			},
		},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			report.Status = StatusFailure
			report.Checks = append(report.Checks, Check{
				Name:  step.name,
				Error: err.Error(),
			})
			break
		}

		stepStart := time.Now()
		err := step.run()

		check := Check{
			Name:       step.name,
			Passed:     err == nil,
			DurationMS: milliseconds(time.Since(stepStart)),
		}
		if err != nil {
			check.Error = err.Error()
			report.Status = StatusFailure
		}
		report.Checks = append(report.Checks, check)

		if err != nil {
			break
		}
	}

	report.DurationMS = milliseconds(time.Since(start))
	return report
}

func randomUnitVector(rnd *rand.Rand) maths.UnitVector3D {
	for {
		u, err := maths.NewVector3D(rnd.NormFloat64(), rnd.NormFloat64(), rnd.NormFloat64()).Normalize()
		if err == nil {
			return u
		}
	}
}

// randomPoints returns n points within spreadDegrees of centre.
func randomPoints(rnd *rand.Rand, centre maths.UnitVector3D, spreadDegrees float64, n int) []maths.UnitVector3D {
	spread := spreadDegrees * math.Pi / 180
	perp := centre.Perpendicular()

	points := make([]maths.UnitVector3D, n)
	for i := range points {
		tilt := maths.NewFiniteRotation(perp, rnd.Float64()*spread)
		spin := maths.NewFiniteRotation(centre, rnd.Float64()*2*math.Pi)
		points[i] = spin.RotateVector(tilt.RotateVector(centre))
	}
	return points
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.New("encoding report failed").Wrap(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(b)
}

func writeError(w http.ResponseWriter, statusCode int, err error) {
	if statusCode >= http.StatusInternalServerError {
		logs.Error(err)
	} else {
		logs.Debug(err)
	}

	http.Error(w, http.StatusText(statusCode), statusCode)
}
