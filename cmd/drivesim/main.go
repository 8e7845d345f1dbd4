// cmd/drivesim/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/go-drivesim/pkg/config"
	"github.com/opd-ai/go-drivesim/pkg/engine"
	"github.com/opd-ai/go-drivesim/pkg/event"
	"github.com/opd-ai/go-drivesim/pkg/health"
	"github.com/opd-ai/go-drivesim/pkg/input"
	"github.com/opd-ai/go-drivesim/pkg/logging"
	"github.com/opd-ai/go-drivesim/pkg/render"
	engorender "github.com/opd-ai/go-drivesim/pkg/render/engo"
	"github.com/opd-ai/go-drivesim/pkg/track"
)

// memoryLimitMB is the heap ceiling reported by the readiness probe.
const memoryLimitMB = 500

type options struct {
	configPath    string
	createDefault bool
	renderer      string
	trackID       string
	script        string
	duration      time.Duration
	refresh       time.Duration
	healthAddr    string
	width         int
	height        int
	scale         float64
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("drivesim", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file (JSON or YAML)")
	fs.BoolVar(&opts.createDefault, "default", false, "Write the default configuration to -config and exit")
	fs.StringVar(&opts.renderer, "renderer", "engo", "Renderer type: 'engo', 'terminal' or 'null'")
	fs.StringVar(&opts.trackID, "track", "", "Track to load (overrides config)")
	fs.StringVar(&opts.script, "script", "", "Scripted input, e.g. forward:2s,forward+left:1s")
	fs.DurationVar(&opts.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	fs.DurationVar(&opts.refresh, "refresh", 100*time.Millisecond, "Terminal redraw interval")
	fs.StringVar(&opts.healthAddr, "health", "", "Serve health probes on this address, e.g. :8080")
	fs.IntVar(&opts.width, "width", 0, "Window or terminal width (overrides config)")
	fs.IntVar(&opts.height, "height", 0, "Window or terminal height (overrides config)")
	fs.Float64Var(&opts.scale, "scale", 0, "Pixels or cells per metre (overrides config)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch opts.renderer {
	case "engo", "terminal", "null":
	default:
		return nil, fmt.Errorf("unknown renderer %q", opts.renderer)
	}
	return opts, nil
}

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID())

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error(ctx, "Invalid arguments", err)
		os.Exit(2)
	}

	if opts.createDefault {
		path := opts.configPath
		if path == "" {
			path = "drivesim.yaml"
		}
		if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err, "config_path", path)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file", "config_path", path)
		return
	}

	if err := run(ctx, opts, logger); err != nil {
		logger.Error(ctx, "Simulation failed", err)
		os.Exit(1)
	}
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.width > 0 {
		cfg.Window.Width = opts.width
	}
	if opts.height > 0 {
		cfg.Window.Height = opts.height
	}
	if opts.scale > 0 {
		cfg.Window.Scale = opts.scale
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, opts *options, logger *logging.Logger) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	var script input.Script
	if opts.script != "" {
		if script, err = input.ParseScript(opts.script); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	sampler := input.NewSampler(nil)

	sim, err := engine.NewSimulation(ctx, engine.Options{
		Config:  cfg,
		Catalog: track.BuiltIn(),
		Input:   sampler,
		Bus:     event.NewEventBus(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	if opts.trackID != "" {
		if _, err := sim.SelectTrack(ctx, opts.trackID); err != nil {
			return err
		}
	}

	logger.Info(ctx, "Starting simulation",
		"session_id", sim.SessionID(),
		"renderer", opts.renderer,
		"track_id", sim.CurrentTrack().ID,
	)

	g, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()

	if len(script) > 0 {
		g.Go(func() error {
			err := script.Play(gctx, sampler)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if err == nil && opts.duration == 0 {
				logger.Info(gctx, "Input script finished", "length", script.Total())
				cancel()
			}
			return err
		})
	}

	if opts.healthAddr != "" {
		checker := health.NewChecker()
		checker.Add(health.NewSimulationCheck(sim))
		checker.Add(health.NewProgressCheck(sim.Tick))
		checker.Add(health.NewMemoryCheck(memoryLimitMB, nil))
		g.Go(func() error {
			return health.Serve(gctx, opts.healthAddr, checker, logger)
		})
	}

	if opts.renderer == "engo" {
		// The window must own the main goroutine.
		engorender.Run(gctx, engorender.NewScene(gctx, sim, sampler, cfg, logger))
		cancel()
		return g.Wait()
	}

	g.Go(func() error {
		r := newTextRenderer(opts.renderer, os.Stdout, cfg, logger)
		return sim.Run(gctx, frameHandler(r, opts.refresh))
	})
	return g.Wait()
}

// newTextRenderer builds the renderer for a headless or terminal run.
func newTextRenderer(name string, out io.Writer, cfg *config.Config, logger *logging.Logger) render.Renderer {
	if name != "terminal" {
		return render.NewNullRenderer(logger)
	}
	tr := render.NewTerminalRenderer(out, cfg.Window.Width/10, cfg.Window.Height/20, cfg.Window.Scale/8)
	tr.SetFollow(true)
	return tr
}

// frameHandler draws frames with r at most once per refresh interval.
func frameHandler(r render.Renderer, refresh time.Duration) engine.FrameHandler {
	var last time.Time
	return func(ctx context.Context, frame engine.Frame) error {
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < refresh {
			return nil
		}
		last = now
		return render.Draw(r, frame)
	}
}
