package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/cli"
	"github.com/doridoridoriand/regionwatch/internal/config"
	"github.com/doridoridoriand/regionwatch/internal/eventlog"
	"github.com/doridoridoriand/regionwatch/internal/log"
	"github.com/doridoridoriand/regionwatch/internal/metrics"
	"github.com/doridoridoriand/regionwatch/internal/notify"
	"github.com/doridoridoriand/regionwatch/internal/ping"
	"github.com/doridoridoriand/regionwatch/internal/report"
	"github.com/doridoridoriand/regionwatch/internal/scheduler"
	"github.com/doridoridoriand/regionwatch/internal/server"
	"github.com/doridoridoriand/regionwatch/internal/state"
	"github.com/doridoridoriand/regionwatch/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var flags cli.Flags
	fs := pflag.NewFlagSet("regionwatch", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	flags.Register(fs)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: regionwatch [options] [config-file]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.Version {
		fmt.Fprintf(stdout, "regionwatch version %s\n", version)
		return 0
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}

	logger := log.NewLogger(log.LevelInfo)
	logger.SetOutput(stderr)

	configPath := fs.Arg(0)
	cfg, err := config.ConfParser{}.LoadConfig(configPath, flags.Overrides())
	logger.LogConfigLoad(err == nil, configPath, err)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger.SetLevel(log.ParseLevel(cfg.Global.LogLevel))

	prober, err := ping.New(ping.Kind(cfg.Global.Prober), cfg.Global.TCPPort)
	if err != nil {
		fmt.Fprintf(stderr, "failed to create prober: %v\n", err)
		return 1
	}

	a, err := newApp(cfg, prober, logger)
	if err != nil {
		fmt.Fprintf(stderr, "failed to build registry: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	if flags.Report != "" {
		if err := a.writeReport(ctx, flags.Report, stdout); err != nil {
			fmt.Fprintf(stderr, "failed to write report: %v\n", err)
			return 1
		}
		return 0
	}

	useUI := !cfg.Global.UIDisable && isatty.IsTerminal(os.Stdout.Fd())
	if err := a.run(ctx, useUI); err != nil {
		fmt.Fprintf(stderr, "regionwatch: %v\n", err)
		return 1
	}
	return 0
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// app holds the wired components of one monitor process.
type app struct {
	cfg       *config.Config
	store     *state.StoreImpl
	events    *eventlog.Log
	scheduler *scheduler.Impl
	collector *metrics.Collector
	server    *server.Server
	webhook   *notify.Webhook
	logger    *log.Logger
}

func newApp(cfg *config.Config, prober ping.Prober, logger *log.Logger) (*app, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	store := state.NewStore(reg, state.DefaultHistorySize)
	events := eventlog.New()
	sched := scheduler.NewScheduler(reg, prober, store, events, logger, scheduler.Options{
		Period:         cfg.Global.Interval,
		Timeout:        cfg.Global.Timeout,
		MaxConcurrency: cfg.Global.MaxConcurrency,
	})
	collector := metrics.NewCollector(store, sched.InProgress)
	sched.OnCycle(collector.ObserveCycle)

	a := &app{
		cfg:       cfg,
		store:     store,
		events:    events,
		scheduler: sched,
		collector: collector,
		logger:    logger,
	}

	if cfg.Global.Listen != "" {
		a.server = server.New(store, sched, events, server.Options{
			Addr:    cfg.Global.Listen,
			Period:  cfg.Global.Interval,
			Metrics: metrics.Handler(metrics.NewRegistry(collector)),
			Logger:  logger,
		})
		sched.OnCycleStart(func(time.Time) { a.server.NotifyChanged() })
		sched.OnCycle(func(scheduler.CycleStats) { a.server.NotifyChanged() })
	}
	if cfg.Global.Webhook != "" {
		a.webhook = notify.NewWebhook(cfg.Global.Webhook, logger)
	}
	return a, nil
}

// run starts every configured component and blocks until ctx is done or
// one of them stops. The first component error is returned.
func (a *app) run(ctx context.Context, useUI bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries, unsubscribe := a.events.Subscribe(64)
	defer unsubscribe()
	go func() {
		for e := range entries {
			a.collector.ObserveEntry(e)
		}
	}()

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		first error
	)
	start := func(component string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			err := fn(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			a.logger.LogError(component, err, nil)
			errMu.Lock()
			if first == nil {
				first = err
			}
			errMu.Unlock()
		}()
	}

	if useUI {
		a.logger.SetOutput(io.Discard)
	}

	start("scheduler", a.scheduler.Run)
	if a.server != nil {
		start("server", a.server.Run)
	}
	if a.webhook != nil {
		start("notify", func(ctx context.Context) error {
			a.webhook.Run(ctx, a.events)
			return ctx.Err()
		})
	}
	if useUI {
		dashboard := ui.New(a.store, a.scheduler, a.events, ui.Options{
			Period:  a.cfg.Global.Interval,
			Timeout: a.cfg.Global.Timeout,
			Prober:  string(a.cfg.Global.Prober),
		})
		start("ui", dashboard.Run)
	}

	wg.Wait()
	return first
}

// writeReport runs a single cycle and writes the report to path. The format
// follows the extension: .xlsx, .csv, anything else is text. "-" is stdout.
func (a *app) writeReport(ctx context.Context, path string, stdout io.Writer) error {
	a.scheduler.RunCycle(ctx)
	r := report.Build(a.store.GroupStatuses(), a.store.Snapshot(), time.Now())

	render := report.WriteText
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		render = report.WriteXLSX
	case ".csv":
		render = report.WriteCSV
	}
	if path == "-" {
		return render(stdout, r)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
