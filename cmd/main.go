package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/globe/bounds"
	"github.com/aukilabs/globe/coverage"
	"github.com/aukilabs/globe/cubequadtree"
	"github.com/aukilabs/globe/featureflag"
	globehttp "github.com/aukilabs/globe/http"
	"github.com/aukilabs/globe/models"
	"github.com/aukilabs/globe/smoketest"
	gwebsocket "github.com/aukilabs/globe/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The Globe version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "globe_info",
		Help:        "Globe information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr                 string        `cli:""        env:"GLOBE_ADDR"                   help:"Listening address for client connections."`
	AdminAddr            string        `cli:""        env:"GLOBE_ADMIN_ADDR"             help:"Admin listening address."`
	PublicEndpoint       string        `cli:""        env:"GLOBE_PUBLIC_ENDPOINT"        help:"The public endpoint where this Globe server is reachable."`
	LogLevel             string        `cli:""        env:"GLOBE_LOG_LEVEL"              help:"Log level (debug|info|warning|error)."`
	LogIndent            bool          `cli:""        env:"GLOBE_LOG_INDENT"             help:"Indent logs."`
	ExpandEpsilon        float64       `cli:",hidden" env:"GLOBE_EXPAND_EPSILON"         help:"The epsilon region bounds are expanded by."`
	InnerEpsilon         float64       `cli:",hidden" env:"GLOBE_INNER_EPSILON"          help:"The epsilon inner region bounds are shrunk by."`
	MaxCoverageDepth     int           `cli:""        env:"GLOBE_MAX_COVERAGE_DEPTH"     help:"The deepest coverage mesh a client can ask for."`
	DefaultCoverageDepth int           `cli:""        env:"GLOBE_DEFAULT_COVERAGE_DEPTH" help:"The coverage mesh depth used when a request does not specify one."`
	TileIndexLevels      int           `cli:""        env:"GLOBE_TILE_INDEX_LEVELS"      help:"The number of levels of the cube tile index."`
	ClientIdleTimeout    time.Duration `cli:",hidden" env:"GLOBE_CLIENT_IDLE_TIMEOUT"    help:"Time until an idle client will be disconnected"`
	StreamBatchSize      int           `cli:",hidden" env:"GLOBE_STREAM_BATCH_SIZE"      help:"The maximum number of triangles in a streamed coverage batch."`
	LogSummaryInterval   time.Duration `cli:",hidden" env:"GLOBE_LOG_SUMMARY_INTERVAL"   help:"The duration between each log summary by connection."`
	Events               eventsConfig  `cli:",hidden" env:"-"                            help:"Event pusher configuration."`
	FeatureFlags         []string      `cli:",hidden" env:"GLOBE_FEATURE_FLAGS"          help:"Comma separated feature flags"`
	Version              bool          `cli:""        env:"-"                            help:"Show version."`
	Help                 bool          `cli:""        env:"-"                            help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"GLOBE_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"GLOBE_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"GLOBE_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"GLOBE_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:                 ":4000",
		AdminAddr:            ":18190",
		PublicEndpoint:       "http://localhost:4000",
		LogLevel:             logs.InfoLevel.String(),
		ExpandEpsilon:        bounds.DefaultExpandEpsilon,
		InnerEpsilon:         bounds.DefaultExpandEpsilon,
		MaxCoverageDepth:     10,
		DefaultCoverageDepth: 6,
		TileIndexLevels:      8,
		ClientIdleTimeout:    time.Minute * 5,
		StreamBatchSize:      gwebsocket.DefaultBatchSize,
		LogSummaryInterval:   time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts Globe server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "globe",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	featureFlags := featureflag.New(conf.FeatureFlags)

	regions := models.RegionStore{
		ExpandEpsilon:  &conf.ExpandEpsilon,
		InnerEpsilon:   &conf.InnerEpsilon,
		ParallelBounds: !featureFlags.IsSet(featureflag.FlagDisableParallelBounds),
	}

	regionHandler := globehttp.RegionHandler{
		Regions:              &regions,
		DefaultCoverageDepth: conf.DefaultCoverageDepth,
		MaxCoverageDepth:     conf.MaxCoverageDepth,
		FeatureFlags:         featureFlags,
	}

	featureFlags.IfNotSet(featureflag.FlagDisableTileIndex, func() {
		start := time.Now()
		tiles, err := models.NewTileIndex(conf.TileIndexLevels)
		if err != nil {
			logs.Fatal(errors.New("building tile index failed").Wrap(err))
		}
		regionHandler.Tiles = tiles

		logs.WithTag("levels", conf.TileIndexLevels).
			WithTag("duration", time.Since(start)).
			Info("tile index built")
	})

	var ready atomic.Bool
	readinessCheck := func() bool {
		return ready.Load() && ctx.Err() == nil
	}

	var service http.ServeMux
	regionHandler.Register(&service)

	service.Handle("/health", globehttp.HandleWithCORS(http.HandlerFunc(globehttp.HandleHealthCheck)))
	service.Handle("/version", globehttp.HandleWithCORS(http.HandlerFunc(globehttp.HandleVersion(version))))
	service.Handle("/ready", globehttp.HandleWithCORS(http.HandlerFunc(globehttp.HandleReadyCheck(readinessCheck))))

	service.Handle("POST /smoke-test", globehttp.HandleWithCORS(smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint: conf.PublicEndpoint,
		MaxDepth: conf.MaxCoverageDepth,
		SendResult: func(ctx context.Context, res smoketest.Report) error {
			logs.WithTag("endpoint", res.Endpoint).
				WithTag("status", res.Status).
				WithTag("seed", res.Seed).
				WithTag("triangles", res.Triangles).
				WithTag("duration_ms", res.DurationMS).
				Info("smoke test completed")
			return nil
		},
	})))

	featureFlags.IfNotSet(featureflag.FlagDisableCoverageStreaming, func() {
		service.Handle("/coverage/stream", globehttp.HandleWithCORS(websocket.Server{
			Handler: func(conn *websocket.Conn) {
				defer conn.Close()

				var h gwebsocket.Handler = &gwebsocket.CoverageHandler{
					ClientIdleTimeout: conf.ClientIdleTimeout,
					Regions:           &regions,
					DefaultDepth:      conf.DefaultCoverageDepth,
					MaxDepth:          conf.MaxCoverageDepth,
					BatchSize:         conf.StreamBatchSize,
				}
				h = gwebsocket.HandlerWithLogs(h, conf.LogSummaryInterval)
				h = gwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
				defer h.Close()

				gwebsocket.Handle(ctx, conn, h)
			},
		}))
	})

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", globehttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", globehttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("feature_flags", featureFlags.Strings()).
		Info("starting globe server")

	ready.Store(true)
	globehttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			globehttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if conf.MaxCoverageDepth < 0 || conf.MaxCoverageDepth > coverage.MaxDepth {
		return errors.Newf("max coverage depth must be in [0, %d]", coverage.MaxDepth).
			WithTag("max_coverage_depth", conf.MaxCoverageDepth)
	}

	if conf.DefaultCoverageDepth < 0 || conf.DefaultCoverageDepth > conf.MaxCoverageDepth {
		return errors.New("default coverage depth must be in [0, max coverage depth]").
			WithTag("default_coverage_depth", conf.DefaultCoverageDepth).
			WithTag("max_coverage_depth", conf.MaxCoverageDepth)
	}

	if conf.TileIndexLevels < 1 || conf.TileIndexLevels > cubequadtree.MaxNumLevels {
		return errors.Newf("tile index levels must be in [1, %d]", cubequadtree.MaxNumLevels).
			WithTag("tile_index_levels", conf.TileIndexLevels)
	}

	if conf.ExpandEpsilon < 0 || conf.InnerEpsilon < 0 {
		return errors.New("epsilons must not be negative").
			WithTag("expand_epsilon", conf.ExpandEpsilon).
			WithTag("inner_epsilon", conf.InnerEpsilon)
	}

	if conf.StreamBatchSize < 1 {
		return errors.New("stream batch size must be positive").
			WithTag("stream_batch_size", conf.StreamBatchSize)
	}

	return nil
}
