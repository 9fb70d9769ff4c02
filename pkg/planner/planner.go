package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "glassbot/pkg/logx"
)

// DefaultTick is used when New is given a non-positive tick.
const DefaultTick = time.Second

// Observer is notified after every job run. Used for metrics.
type Observer interface {
	JobRan(name string, took time.Duration, err error)
}

type Option func(*Planner)

func WithLogger(log logx.Logger) Option { return func(p *Planner) { p.log = log } }

// WithClock replaces the time source of the planner and of every job added to it.
func WithClock(now func() time.Time) Option { return func(p *Planner) { p.now = now } }

func WithObserver(o Observer) Option { return func(p *Planner) { p.obs = o } }

// Planner owns one recurring tick and a set of jobs. Every tick runs each due
// job once, in registration order, on the tick goroutine. Ticks never overlap:
// a tick that fires while the previous one is still running is skipped.
type Planner struct {
	mu   sync.Mutex
	tick time.Duration
	log  logx.Logger
	now  func() time.Time
	obs  Observer
	jobs []*Job

	c         *cron.Cron
	ctx       context.Context
	startedAt time.Time
}

// New creates a stopped planner. Cron can't tick faster than once a second,
// so shorter ticks are raised to one second.
func New(tick time.Duration, opts ...Option) *Planner {
	if tick <= 0 {
		tick = DefaultTick
	}
	if tick < time.Second {
		tick = time.Second
	}
	p := &Planner{tick: tick}
	for _, o := range opts {
		o(p)
	}
	if p.log.IsZero() {
		p.log = logx.Nop()
	}
	return p
}

// Add registers jobs. Jobs are not started; call Job.Go.
func (p *Planner) Add(jobs ...*Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, j := range jobs {
		if j == nil {
			continue
		}
		if p.now != nil {
			j.WithClock(p.now)
		}
		p.jobs = append(p.jobs, j)
	}
}

// Jobs returns a snapshot of the registered jobs.
func (p *Planner) Jobs() []*Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Job(nil), p.jobs...)
}

// Start begins ticking. It is a no-op while already running.
// ctx is handed to duties; it is not cancelled by Stop.
func (p *Planner) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.c != nil {
		return
	}
	cl := logx.CronLogger{L: p.log.With(logx.String("comp", "planner.cron"))}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(cron.Every(p.tick), cron.FuncJob(func() { p.Tick(p.context()) }))
	p.c = c
	p.ctx = ctx
	p.startedAt = p.clock()
	c.Start()
	p.log.Info("planner started", logx.Duration("tick", p.tick), logx.Int("jobs", len(p.jobs)))
}

// Stop cancels future ticks. The returned context is done once an in-flight
// tick (if any) has finished.
func (p *Planner) Stop() context.Context {
	p.mu.Lock()
	c := p.c
	p.c = nil
	up := p.clock().Sub(p.startedAt)
	p.mu.Unlock()
	if c == nil {
		done, cancel := context.WithCancel(context.Background())
		cancel()
		return done
	}
	p.log.Info("planner stopped", logx.Duration("uptime", up))
	return c.Stop()
}

func (p *Planner) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.c != nil
}

// Tick runs one due-check pass and returns how many jobs ran. A failing or
// panicking job is logged and does not affect the others.
func (p *Planner) Tick(ctx context.Context) int {
	ran := 0
	for _, j := range p.Jobs() {
		if !j.ShouldRun() {
			continue
		}
		ran++
		p.runJob(ctx, j)
	}
	return ran
}

func (p *Planner) runJob(ctx context.Context, j *Job) {
	start := time.Now()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job %s: %v", j.Name(), r)
			}
		}()
		err = j.Do(ctx)
	}()
	took := time.Since(start)
	if err != nil {
		p.log.Warn("job failed", logx.String("job", j.Name()), logx.Duration("took", took), logx.Err(err))
	} else {
		p.log.Debug("job done", logx.String("job", j.Name()), logx.Duration("took", took))
	}
	if p.obs != nil {
		p.obs.JobRan(j.Name(), took, err)
	}
}

// Uptime is the wall-clock time since Start; zero when not running.
func (p *Planner) Uptime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.c == nil {
		return 0
	}
	return p.clock().Sub(p.startedAt)
}

// MinutesRunning is Uptime in fractional minutes.
func (p *Planner) MinutesRunning() float64 {
	return p.Uptime().Minutes()
}

func (p *Planner) context() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return context.Background()
	}
	return p.ctx
}

func (p *Planner) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}
