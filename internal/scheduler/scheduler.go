package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/eventlog"
	"github.com/doridoridoriand/regionwatch/internal/log"
	"github.com/doridoridoriand/regionwatch/internal/ping"
	"github.com/doridoridoriand/regionwatch/internal/registry"
	"github.com/doridoridoriand/regionwatch/internal/state"
	"github.com/robfig/cron/v3"
)

const (
	DefaultPeriod  = 60 * time.Second
	DefaultTimeout = 5 * time.Second
)

// Scheduler drives poll cycles.
type Scheduler interface {
	Run(ctx context.Context) error
	RunCycle(ctx context.Context) bool
	TriggerCycle() bool
	InProgress() bool
	LastCycle() CycleStats
}

// CycleStats summarises one completed poll cycle.
type CycleStats struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Probed     int       `json:"probed"`
	Failed     int       `json:"failed"`
}

// Options configures the scheduler. Zero values fall back to defaults.
type Options struct {
	Period         time.Duration
	Timeout        time.Duration
	MaxConcurrency int
	Now            func() time.Time
}

// Impl fans out one probe per endpoint each cycle and joins on all of them
// before the cycle is complete. At most one cycle runs at a time.
type Impl struct {
	registry  *registry.Registry
	prober    ping.Prober
	store     state.Store
	events    *eventlog.Log
	logger    *log.Logger
	period    time.Duration
	timeout   time.Duration
	semaphore chan struct{}
	now       func() time.Time

	running atomic.Bool
	wg      sync.WaitGroup

	mu         sync.RWMutex
	last       CycleStats
	hooks      []func(CycleStats)
	startHooks []func(time.Time)
	baseCtx    context.Context
}

// NewScheduler constructs a scheduler instance.
func NewScheduler(reg *registry.Registry, prober ping.Prober, store state.Store, events *eventlog.Log, logger *log.Logger, opts Options) *Impl {
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Impl{
		registry:  reg,
		prober:    prober,
		store:     store,
		events:    events,
		logger:    logger,
		period:    opts.Period,
		timeout:   opts.Timeout,
		semaphore: make(chan struct{}, maxConcurrency(opts.MaxConcurrency)),
		now:       opts.Now,
		baseCtx:   context.Background(),
	}
}

// OnCycle registers fn to be called after every completed cycle.
func (s *Impl) OnCycle(fn func(CycleStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// OnCycleStart registers fn to be called when a cycle begins, after
// InProgress has turned true and before any probe is sent.
func (s *Impl) OnCycleStart(fn func(startedAt time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startHooks = append(s.startHooks, fn)
}

// Period returns the configured cycle period.
func (s *Impl) Period() time.Duration {
	return s.period
}

// Run fires a cycle immediately and then every period until ctx is done.
// Ticks that land while a cycle is still running are skipped.
func (s *Impl) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.logger.Info("scheduler started", map[string]interface{}{
		"period_ms":  s.period.Milliseconds(),
		"timeout_ms": s.timeout.Milliseconds(),
		"endpoints":  s.registry.Len(),
	})

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})))
	c.Schedule(cron.Every(s.period), cron.FuncJob(func() {
		s.RunCycle(ctx)
	}))

	s.RunCycle(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.wg.Wait()

	s.logger.Info("scheduler stopped", nil)
	return ctx.Err()
}

// RunCycle runs one cycle and blocks until every probe has been applied.
// It returns false without doing anything when a cycle is already running.
func (s *Impl) RunCycle(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug("cycle skipped, previous still running", nil)
		return false
	}
	s.runCycle(ctx)
	return true
}

// TriggerCycle starts a cycle in the background. It returns false when a
// cycle is already running.
func (s *Impl) TriggerCycle() bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	s.mu.RLock()
	ctx := s.baseCtx
	s.mu.RUnlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runCycle(ctx)
	}()
	return true
}

// InProgress reports whether a cycle is running.
func (s *Impl) InProgress() bool {
	return s.running.Load()
}

// LastCycle returns stats of the most recent completed cycle.
func (s *Impl) LastCycle() CycleStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// runCycle assumes the running flag is held and clears it when done.
func (s *Impl) runCycle(ctx context.Context) {
	stats := CycleStats{StartedAt: s.now()}
	var failed atomic.Int32

	s.mu.RLock()
	startHooks := append([]func(time.Time){}, s.startHooks...)
	s.mu.RUnlock()
	for _, fn := range startHooks {
		fn(stats.StartedAt)
	}

	var wg sync.WaitGroup
	for _, g := range s.registry.Groups() {
		for _, ep := range g.Endpoints {
			sem, err := s.acquire(ctx)
			if err != nil {
				break
			}
			stats.Probed++
			wg.Add(1)
			go func(ep registry.Endpoint, group string) {
				defer wg.Done()
				defer s.release(sem)
				if !s.probeAndApply(ctx, ep, group) {
					failed.Add(1)
				}
			}(ep, g.Name)
		}
	}
	wg.Wait()

	stats.Failed = int(failed.Load())
	stats.FinishedAt = s.now()

	s.mu.Lock()
	s.last = stats
	hooks := append([]func(CycleStats){}, s.hooks...)
	s.mu.Unlock()
	s.running.Store(false)

	s.logger.LogCycle(stats.Probed, stats.Failed, stats.FinishedAt.Sub(stats.StartedAt))
	for _, fn := range hooks {
		fn(stats)
	}
}

func (s *Impl) probeAndApply(ctx context.Context, ep registry.Endpoint, group string) bool {
	result := s.probe(ctx, ep)
	s.logger.LogProbeResult(ep.Address, group, result.Reachable, result.Latency, result.Error)

	_, notice, err := s.store.Apply(ep.Address, result, s.now())
	if err != nil {
		s.logger.LogError("scheduler", err, map[string]interface{}{"address": ep.Address})
		return false
	}
	if notice != nil && s.events != nil {
		s.events.Append(notice.Severity, notice.Message, s.now())
	}
	return result.Reachable
}

// probe never panics; a panicking prober counts as a failed probe.
func (s *Impl) probe(ctx context.Context, ep registry.Endpoint) (result ping.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = ping.Failure(fmt.Errorf("%w: prober panic: %v", ping.ErrProbeInfrastructure, r))
		}
	}()

	addr, err := registry.ProbeAddress(ep)
	if err != nil {
		return ping.Failure(fmt.Errorf("%w: %w", ping.ErrProbeInfrastructure, err))
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result = s.prober.Probe(probeCtx, addr, s.timeout)
	if !result.Reachable && result.Error == nil && probeCtx.Err() != nil {
		result.Error = ping.Classify(probeCtx.Err())
	}
	return result
}

func (s *Impl) acquire(ctx context.Context) (chan struct{}, error) {
	select {
	case s.semaphore <- struct{}{}:
		return s.semaphore, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Impl) release(sem chan struct{}) {
	select {
	case <-sem:
	default:
	}
}

func maxConcurrency(value int) int {
	if value <= 0 {
		return 1
	}
	return value
}

// cronLogger routes cron's own messages to the process logger.
type cronLogger struct {
	logger *log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kvFields(keysAndValues)
	fields["error"] = err.Error()
	l.logger.Error("cron: "+msg, fields)
}

func kvFields(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
