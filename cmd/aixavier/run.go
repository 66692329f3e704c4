package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/Dv04/aixavier/internal/config"
	"github.com/Dv04/aixavier/internal/db"
	"github.com/Dv04/aixavier/internal/events"
	"github.com/Dv04/aixavier/internal/monitoring"
	"github.com/Dv04/aixavier/internal/pipeline"
	"github.com/Dv04/aixavier/internal/posemon"
	"github.com/Dv04/aixavier/internal/rules"
	"github.com/Dv04/aixavier/internal/security"
	"github.com/Dv04/aixavier/internal/tracking"
	"github.com/Dv04/aixavier/internal/vision/detector"
)

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*s = append(*s, p)
		}
	}
	return nil
}

type runOptions struct {
	tuningPath    string
	detectors     stringList
	usecaseDir    string
	framesPath    string
	eventsPath    string
	dbPath        string
	streamAddr    string
	telemetryPath string
	frameRoots    stringList
}

func parseRunFlags(args []string) (runOptions, error) {
	var o runOptions
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.StringVar(&o.tuningPath, "tuning", "", "Tuning JSON (defaults apply when empty)")
	fs.Var(&o.detectors, "detector", "Detector YAML config (repeatable or comma separated)")
	fs.StringVar(&o.usecaseDir, "usecases", "", "Directory of use-case YAML files")
	fs.StringVar(&o.framesPath, "frames", "", "Frames log to follow (required)")
	fs.StringVar(&o.eventsPath, "events", "events.log", "Event log to append to")
	fs.StringVar(&o.dbPath, "db", "", "SQLite event store (disabled when empty)")
	fs.StringVar(&o.streamAddr, "stream", "", "gRPC event stream listen address (disabled when empty)")
	fs.StringVar(&o.telemetryPath, "telemetry", "", "Telemetry log of JSON lines to follow")
	fs.Var(&o.frameRoots, "frames-root", "Only read frame images under this directory (repeatable)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.framesPath == "" {
		return o, fmt.Errorf("-frames is required")
	}
	if len(o.detectors) == 0 {
		return o, fmt.Errorf("at least one -detector is required")
	}
	return o, nil
}

func handleRun(args []string) error {
	opts, err := parseRunFlags(args)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runPipeline(ctx, opts)
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func loadUseCases(dir string) ([]rules.UseCase, error) {
	if dir == "" {
		return nil, nil
	}
	return rules.LoadUseCases(dir)
}

// outputs are the sinks every camera publishes to.
type outputs struct {
	sink    events.Sink
	closers []func() error
}

func (o *outputs) Close() error {
	var errs []error
	for i := len(o.closers) - 1; i >= 0; i-- {
		if err := o.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openOutputs(eventsPath, dbPath, streamAddr string) (*outputs, error) {
	out := &outputs{}
	var fan events.Fanout

	if eventsPath != "" {
		bus, err := events.OpenFileBus(eventsPath)
		if err != nil {
			return nil, err
		}
		fan = append(fan, bus)
		out.closers = append(out.closers, bus.Close)
	}
	if dbPath != "" {
		store, err := db.NewDB(dbPath)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("open event store: %w", err)
		}
		fan = append(fan, store)
		out.closers = append(out.closers, store.Close)
	}
	if streamAddr != "" {
		cfg := events.DefaultStreamConfig()
		cfg.ListenAddr = streamAddr
		pub := events.NewStreamPublisher(cfg)
		if err := pub.Start(); err != nil {
			out.Close()
			return nil, fmt.Errorf("start event stream: %w", err)
		}
		fan = append(fan, pub)
		out.closers = append(out.closers, func() error { pub.Stop(); return nil })
	}
	out.sink = fan
	return out, nil
}

// cameraFactory builds cameras that share the object tracker manager,
// rule engine, telemetry and sinks. Detectors and collapse scorers are
// built per camera.
type cameraFactory struct {
	tuning    *config.TuningConfig
	detectors []*config.DetectorConfig
	objects   *tracking.Manager
	engine    *rules.Engine
	telemetry *posemon.Telemetry
	sink      events.Sink
	open      detector.Opener

	mu      sync.Mutex
	scorers []io.Closer
}

func (f *cameraFactory) New(id string) (*pipeline.Camera, error) {
	var dets []detector.Detector
	for _, cfg := range f.detectors {
		d, err := detector.New(cfg, detector.WithOpener(f.open))
		if err != nil {
			for _, built := range dets {
				built.Close()
			}
			return nil, err
		}
		dets = append(dets, d)
	}

	scorer := posemon.NewCollapseScorer(f.tuning.GetCollapseModelPath(), "", f.open)
	if c, ok := scorer.(io.Closer); ok {
		f.mu.Lock()
		f.scorers = append(f.scorers, c)
		f.mu.Unlock()
	}
	monitor := posemon.NewMonitor(posemon.ConfigFromTuning(f.tuning),
		posemon.WithCollapseScorer(scorer),
		posemon.WithTelemetry(f.telemetry),
	)
	return pipeline.NewCamera(pipeline.CameraConfig{
		ID:        id,
		Detectors: dets,
		Objects:   f.objects,
		Monitor:   monitor,
		Rules:     f.engine,
		Sink:      f.sink,
		Tuning:    f.tuning,
	})
}

func (f *cameraFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for _, c := range f.scorers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	f.scorers = nil
	return errors.Join(errs...)
}

// guardedLoader rejects frame paths outside the guard's roots before
// decoding them.
func guardedLoader(g *security.PathGuard) pipeline.ImageLoader {
	return func(path string) (image.Image, error) {
		if err := g.Check(path); err != nil {
			return nil, fmt.Errorf("%w: %v", pipeline.ErrFrameUnreadable, err)
		}
		return pipeline.LoadImage(path)
	}
}

// followTelemetry applies every line of the telemetry log until ctx ends.
func followTelemetry(ctx context.Context, tail *events.Tailer, t *posemon.Telemetry) error {
	return tail.Follow(ctx, func(line []byte) error {
		if err := t.UpdateJSON(line); err != nil {
			monitoring.Logf("telemetry: %v", err)
		}
		return nil
	})
}

func runPipeline(ctx context.Context, opts runOptions) error {
	tuning, err := loadTuning(opts.tuningPath)
	if err != nil {
		return err
	}
	var detCfgs []*config.DetectorConfig
	for _, path := range opts.detectors {
		cfg, err := config.LoadDetectorConfig(path)
		if err != nil {
			return err
		}
		detCfgs = append(detCfgs, cfg)
	}
	usecases, err := loadUseCases(opts.usecaseDir)
	if err != nil {
		return err
	}

	out, err := openOutputs(opts.eventsPath, opts.dbPath, opts.streamAddr)
	if err != nil {
		return err
	}
	defer out.Close()

	telemetry := &posemon.Telemetry{}
	var wg sync.WaitGroup
	if opts.telemetryPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tail := events.NewTailer(opts.telemetryPath, tuning.GetPollInterval())
			if err := followTelemetry(ctx, tail, telemetry); err != nil && !errors.Is(err, context.Canceled) {
				monitoring.Logf("telemetry follower stopped: %v", err)
			}
		}()
	}

	factory := &cameraFactory{
		tuning:    tuning,
		detectors: detCfgs,
		objects:   tracking.NewManager(tracking.ConfigFromTuning(tuning)),
		engine:    rules.NewEngine(usecases),
		telemetry: telemetry,
		sink:      out.sink,
	}
	defer factory.Close()

	runner := pipeline.NewRunner(factory.New, pipeline.RunnerConfig{
		QueueSize: tuning.GetQueueSize(),
		Loader:    guardedLoader(security.NewPathGuard(opts.frameRoots...)),
	})
	monitoring.Logf("following %s with %d detectors and %d use cases", opts.framesPath, len(detCfgs), len(usecases))

	err = runner.Run(ctx, events.NewTailer(opts.framesPath, tuning.GetPollInterval()))
	closeErr := runner.Close()
	wg.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return errors.Join(err, closeErr)
}
