package planner

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// Duty is the work a Job performs. args are the values bound at NewJob.
type Duty func(ctx context.Context, args ...any) (any, error)

// Job runs a duty every interval once started with Go.
//
// Time is measured in whole seconds (Unix time truncated), or in milliseconds
// after Precise. ShouldRun is true iff the job is running and at least one
// interval has elapsed since the last run (or since Go).
type Job struct {
	name string
	duty Duty
	args []any

	mu       sync.Mutex
	every    time.Duration
	precise  bool
	now      func() time.Time
	running  bool
	lastRun  int64 // in the job's time unit
	lastRes  any
	lastErr  error
	lastTook time.Duration
	runs     uint64
}

// NewJob creates a stopped job. Call Go to arm it.
func NewJob(name string, every time.Duration, duty Duty, args ...any) *Job {
	return &Job{
		name:  name,
		every: every,
		duty:  duty,
		args:  append([]any(nil), args...),
		now:   time.Now,
	}
}

// WithClock replaces the job's time source.
func (j *Job) WithClock(now func() time.Time) *Job {
	j.mu.Lock()
	if now != nil {
		j.now = now
	}
	j.mu.Unlock()
	return j
}

// Precise switches the job's time unit from seconds to milliseconds.
func (j *Job) Precise() *Job {
	j.mu.Lock()
	if !j.precise {
		j.precise = true
		// keep the armed window consistent with the new unit
		if j.lastRun != 0 {
			j.lastRun *= 1000
		}
	}
	j.mu.Unlock()
	return j
}

// Go (re)starts the job. The first run is due one interval from now.
func (j *Job) Go() *Job {
	j.mu.Lock()
	j.lastRun = j.stampLocked()
	j.running = true
	j.mu.Unlock()
	return j
}

// Stop disarms the job. An in-flight Do still completes.
func (j *Job) Stop() {
	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// ShouldRun reports whether the job is running and due.
func (j *Job) ShouldRun() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running && j.stampLocked()-j.lastRun >= j.intervalLocked()
}

// Do runs the duty synchronously and records result, error and time.
// A panicking duty is reported as an error. The run time is recorded whether
// or not the duty failed, so a failing job waits a full interval before retrying.
func (j *Job) Do(ctx context.Context) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	j.mu.Lock()
	duty, args, now := j.duty, j.args, j.now
	j.mu.Unlock()

	start := now()
	var res any
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job %s panicked: %v\n%s", j.name, r, debug.Stack())
			}
		}()
		if duty == nil {
			err = fmt.Errorf("job %s has no duty", j.name)
			return
		}
		res, err = duty(ctx, args...)
	}()

	j.mu.Lock()
	j.lastRes = res
	j.lastErr = err
	j.lastRun = j.stampLocked()
	j.lastTook = now().Sub(start)
	j.runs++
	j.mu.Unlock()
	return err
}

func (j *Job) Name() string { return j.name }

// Interval returns the interval in the job's unit (seconds, or milliseconds after Precise).
func (j *Job) Interval() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.intervalLocked()
}

// Every returns the configured interval.
func (j *Job) Every() time.Duration { return j.every }

func (j *Job) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// LastRun returns the last run (or Go) time in the job's unit.
func (j *Job) LastRun() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun
}

// LastResult returns the value returned by the latest Do.
func (j *Job) LastResult() any {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRes
}

func (j *Job) LastError() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastErr
}

// Stats is a point-in-time view of a job.
type Stats struct {
	Name     string
	Every    time.Duration
	Running  bool
	Runs     uint64
	LastRun  int64
	LastTook time.Duration
	LastErr  string
}

func (j *Job) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := Stats{Name: j.name, Every: j.every, Running: j.running, Runs: j.runs, LastRun: j.lastRun, LastTook: j.lastTook}
	if j.lastErr != nil {
		st.LastErr = j.lastErr.Error()
	}
	return st
}

func (j *Job) stampLocked() int64 {
	t := j.now()
	if j.precise {
		return t.UnixMilli()
	}
	return t.Unix()
}

func (j *Job) intervalLocked() int64 {
	if j.precise {
		return j.every.Milliseconds()
	}
	return int64(j.every / time.Second)
}
