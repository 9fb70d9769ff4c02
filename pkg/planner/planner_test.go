package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestJobShouldRunAfterInterval(t *testing.T) {
	clk := newFakeClock()
	calls := 0
	j := NewJob("ping", 90*time.Second, func(ctx context.Context, args ...any) (any, error) {
		calls++
		return args[0], nil
	}, "pong").WithClock(clk.Now)

	assert.False(t, j.ShouldRun(), "stopped job must not run")
	j.Go()
	assert.EqualValues(t, 90, j.Interval())

	clk.Advance(89 * time.Second)
	assert.False(t, j.ShouldRun())
	clk.Advance(time.Second)
	assert.True(t, j.ShouldRun())

	require.NoError(t, j.Do(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "pong", j.LastResult())
	assert.False(t, j.ShouldRun())

	clk.Advance(89 * time.Second)
	assert.False(t, j.ShouldRun())
	clk.Advance(time.Second)
	assert.True(t, j.ShouldRun())

	j.Stop()
	assert.False(t, j.ShouldRun())
	assert.False(t, j.Running())
}

func TestJobPrecise(t *testing.T) {
	clk := newFakeClock()
	j := NewJob("fast", 1500*time.Millisecond, func(context.Context, ...any) (any, error) { return nil, nil }).
		WithClock(clk.Now).Precise().Go()
	assert.EqualValues(t, 1500, j.Interval())

	clk.Advance(1499 * time.Millisecond)
	assert.False(t, j.ShouldRun())
	clk.Advance(time.Millisecond)
	assert.True(t, j.ShouldRun())
}

func TestJobDoRecordsErrorsAndPanics(t *testing.T) {
	clk := newFakeClock()
	boom := errors.New("boom")
	j := NewJob("bad", time.Second, func(context.Context, ...any) (any, error) { return nil, boom }).WithClock(clk.Now).Go()
	clk.Advance(time.Second)
	require.ErrorIs(t, j.Do(context.Background()), boom)
	assert.ErrorIs(t, j.LastError(), boom)
	assert.False(t, j.ShouldRun(), "failed run still resets the window")

	p := NewJob("panic", time.Second, func(context.Context, ...any) (any, error) { panic("oops") }).WithClock(clk.Now).Go()
	err := p.Do(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
	assert.EqualValues(t, 1, p.Stats().Runs)
}

type recordingObserver struct {
	mu   sync.Mutex
	runs map[string]int
	errs int
}

func (o *recordingObserver) JobRan(name string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runs == nil {
		o.runs = map[string]int{}
	}
	o.runs[name]++
	if err != nil {
		o.errs++
	}
}

func TestTickIsolatesJobs(t *testing.T) {
	clk := newFakeClock()
	obs := &recordingObserver{}
	p := New(time.Second, WithClock(clk.Now), WithObserver(obs))

	var order []string
	mk := func(name string, every time.Duration, fail bool) *Job {
		return NewJob(name, every, func(context.Context, ...any) (any, error) {
			order = append(order, name)
			if fail {
				panic(name)
			}
			return nil, nil
		})
	}
	a := mk("a", 10*time.Second, true)
	b := mk("b", 10*time.Second, false)
	c := mk("c", 60*time.Second, false)
	p.Add(a, b, c)
	for _, j := range p.Jobs() {
		j.Go()
	}

	assert.Equal(t, 0, p.Tick(context.Background()))
	clk.Advance(10 * time.Second)
	assert.Equal(t, 2, p.Tick(context.Background()))
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, obs.errs)
	assert.Equal(t, 1, obs.runs["b"])
	assert.Error(t, a.LastError())
	assert.NoError(t, b.LastError())
}

func TestPlannerStartStopIdempotent(t *testing.T) {
	clk := newFakeClock()
	p := New(0, WithClock(clk.Now))
	assert.False(t, p.Running())
	assert.Zero(t, p.Uptime())

	p.Start(context.Background())
	p.Start(context.Background())
	assert.True(t, p.Running())

	clk.Advance(90 * time.Minute)
	assert.Equal(t, 90*time.Minute, p.Uptime())
	assert.InDelta(t, 90.0, p.MinutesRunning(), 0.001)

	<-p.Stop().Done()
	assert.False(t, p.Running())
	<-p.Stop().Done()
}

func TestParseInterval(t *testing.T) {
	cases := map[string]time.Duration{
		"90":           90 * time.Second,
		"90s":          90 * time.Second,
		"2h30m":        150 * time.Minute,
		"00:50":        50 * time.Minute,
		"every: 02:30": 150 * time.Minute,
		"interval:1m":  time.Minute,
	}
	for in, want := range cases {
		got, err := ParseInterval(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "0", "-5s", "00:75", "soon"} {
		_, err := ParseInterval(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0 Minute", FormatUptime(0))
	assert.Equal(t, "5 Minutes", FormatUptime(5))
	assert.Equal(t, "1 Hour And 1 Minute", FormatUptime(61))
	assert.Equal(t, "2 Days, 3 Hours And 5 Minutes", FormatUptime(2*24*60+3*60+5))
}
