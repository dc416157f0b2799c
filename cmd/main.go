package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/fjall/dem"
	"github.com/aukilabs/fjall/featureflag"
	fjallhttp "github.com/aukilabs/fjall/http"
	"github.com/aukilabs/fjall/smoketest"
	"github.com/aukilabs/fjall/source"
	"github.com/aukilabs/fjall/terrain"
	fjallws "github.com/aukilabs/fjall/websocket"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The Fjall version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "fjall_info",
		Help:        "Fjall information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr         string       `cli:""        env:"FJALL_ADDR"          help:"Listening address for query connections."`
	AdminAddr    string       `cli:""        env:"FJALL_ADMIN_ADDR"    help:"Admin listening address."`
	DEMDir       string       `cli:""        env:"FJALL_DEM_DIR"       help:"Directory with DEM tiles laid out as z/x/y.png or z/x/y.bin.gz."`
	DEMEncoding  string       `cli:""        env:"FJALL_DEM_ENCODING"  help:"Raster DEM encoding (mapbox|terrarium)."`
	DEMMaxZoom   int          `cli:""        env:"FJALL_DEM_MAX_ZOOM"  help:"The zoom of the most detailed DEM tiles. 0 derives it from the loaded tiles."`
	CacheSize    int          `cli:""        env:"FJALL_CACHE_SIZE"    help:"The maximum number of DEM tiles kept resident."`
	Exaggeration float64      `cli:""        env:"FJALL_EXAGGERATION"  help:"The multiplier applied to every returned elevation."`
	LogLevel     string       `cli:""        env:"FJALL_LOG_LEVEL"     help:"Log level (debug|info|warning|error)."`
	LogIndent    bool         `cli:""        env:"FJALL_LOG_INDENT"    help:"Indent logs."`
	Events       eventsConfig `cli:",hidden" env:"-"                   help:"Event pusher configuration."`
	FeatureFlags []string     `cli:",hidden" env:"FJALL_FEATURE_FLAGS" help:"Comma separated feature flags"`
	Version      bool         `cli:""        env:"-"                   help:"Show version."`
	Help         bool         `cli:""        env:"-"                   help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"FJALL_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"FJALL_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"FJALL_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"FJALL_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:         ":4000",
		AdminAddr:    ":18190",
		DEMEncoding:  dem.EncodingMapboxRGB.String(),
		CacheSize:    source.DefaultCapacity,
		Exaggeration: 1,
		LogLevel:     logs.InfoLevel.String(),
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
		Help("Starts Fjall elevation server.").
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
			SDKType:          "fjall",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	encoding, err := dem.ParseEncoding(conf.DEMEncoding)
	if err != nil {
		logs.Fatal(errors.New("parsing dem encoding failed").Wrap(err))
	}

	cache, err := source.NewCache(uint32(conf.DEMMaxZoom), conf.CacheSize)
	if err != nil {
		logs.Fatal(errors.New("creating dem tile cache failed").Wrap(err))
	}

	flags := featureflag.New(conf.FeatureFlags)
	t := terrain.New(cache, conf.Exaggeration, flags)
	elevation := terrain.NewElevation(t)

	var demLoaded atomic.Bool
	readinessCheck := demLoaded.Load

	var service http.ServeMux

	service.Handle("/elevation", fjallhttp.HandleWithCORS(fjallhttp.HandleElevation(elevation)))
	service.Handle("/raycast", fjallhttp.HandleWithCORS(fjallhttp.HandleRaycast(elevation)))
	service.Handle("/tiles", fjallhttp.HandleWithCORS(fjallhttp.HandleTiles(cache)))
	service.Handle("/tiles/{z}/{x}/{y}/grid", fjallhttp.HandleWithCORS(fjallhttp.HandleTileGrid(elevation, flags)))
	service.Handle("/smoke-test", fjallhttp.HandleWithCORS(smoketest.HandleSmokeTest(smoketest.Options{
		Exaggeration: conf.Exaggeration,
	})))
	service.Handle("/health", fjallhttp.HandleWithCORS(http.HandlerFunc(fjallhttp.HandleHealthCheck)))
	service.Handle("/ready", fjallhttp.HandleWithCORS(fjallhttp.HandleReadyCheck(readinessCheck)))
	service.Handle("/version", fjallhttp.HandleWithCORS(fjallhttp.HandleVersion(version)))

	flags.IfNotSet(featureflag.FlagDisableProbe, func() {
		service.Handle("/probe", fjallhttp.HandleWithCORS(websocket.Server{
			Handler: func(conn *websocket.Conn) {
				defer conn.Close()

				var h fjallws.Handler = &fjallws.ProbeHandler{
					Elevation: elevation,
				}
				h = fjallws.HandlerWithLogs(h)
				h = fjallws.HandlerWithMetrics(h)
				defer h.Close()

				fjallws.Handle(ctx, conn, h)
			},
		}))
	})

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if conf.DEMDir != "" {
			count, err := source.LoadDirectory(ctx, conf.DEMDir, encoding, cache)
			if err != nil {
				if ctx.Err() == nil {
					logs.Fatal(errors.New("loading dem tiles failed").Wrap(err))
				}
				return
			}
			logs.WithTag("dir", conf.DEMDir).
				WithTag("count", count).
				Info("dem tiles loaded")
		}
		demLoaded.Store(true)
	}()

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", fjallhttp.HandleHealthCheck)
	admin.HandleFunc("/exaggeration", fjallhttp.HandleExaggeration(t))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", fjallhttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("dem_dir", conf.DEMDir).
		WithTag("dem_encoding", conf.DEMEncoding).
		WithTag("exaggeration", conf.Exaggeration).
		Info("starting fjall server")

	fjallhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			fjallhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)

	wg.Wait()
}

func validateConfig(conf config) error {
	if conf.DEMMaxZoom < 0 || conf.DEMMaxZoom > 30 {
		return errors.New("dem max zoom is outside the tile pyramid").
			WithTag("dem_max_zoom", conf.DEMMaxZoom)
	}

	if conf.Exaggeration < 0 {
		return errors.New("exaggeration cannot be negative").
			WithTag("exaggeration", conf.Exaggeration)
	}

	return nil
}
