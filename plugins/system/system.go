// Package system answers health and runtime questions and runs a heartbeat job.
package system

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"glassbot/internal/bot"
	"glassbot/internal/plugin"
	logx "glassbot/pkg/logx"
	"glassbot/pkg/planner"
)

// HeartbeatEvery is how often the heartbeat job logs runtime stats.
const HeartbeatEvery = time.Minute

type Plugin struct {
	planner *planner.Planner
	log     logx.Logger
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "system" }

func (p *Plugin) Register(d plugin.Deps) error {
	p.planner = d.Planner
	p.log = d.Log
	cmds := []struct {
		name string
		h    bot.HandlerFunc
	}{
		{"ping", p.ping},
		{"uptime", p.uptime},
		{"sysinfo", p.sysinfo},
		{"jobs", p.jobs},
	}
	for _, c := range cmds {
		if err := d.Bot.AddCommand(c.name, c.h); err != nil {
			return err
		}
	}
	d.Planner.Add(planner.NewJob("system.heartbeat", HeartbeatEvery, p.heartbeat).Go())
	return nil
}

func (p *Plugin) ping(_ context.Context, req *bot.Request) (bot.Response, error) {
	return bot.Respond(req.Reply("pong"), nil), nil
}

func (p *Plugin) uptime(_ context.Context, req *bot.Request) (bot.Response, error) {
	up := planner.FormatUptime(int(p.planner.MinutesRunning()))
	return bot.Respond(req.Reply("uptime: "+up), nil), nil
}

func (p *Plugin) sysinfo(_ context.Context, req *bot.Request) (bot.Response, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	msg := strings.Join([]string{
		"sysinfo",
		"- go: " + runtime.Version(),
		fmt.Sprintf("- goroutines: %d", runtime.NumGoroutine()),
		"- mem_alloc: " + fmtBytes(m.Alloc),
		"- mem_sys: " + fmtBytes(m.Sys),
	}, "\n")
	return bot.Respond(req.Reply(msg), nil), nil
}

func (p *Plugin) jobs(_ context.Context, req *bot.Request) (bot.Response, error) {
	jobs := p.planner.Jobs()
	if len(jobs) == 0 {
		return bot.Respond(req.Reply("no jobs"), nil), nil
	}
	stats := make([]planner.Stats, 0, len(jobs))
	for _, j := range jobs {
		stats = append(stats, j.Stats())
	}
	sort.Slice(stats, func(i, k int) bool { return stats[i].Name < stats[k].Name })

	lines := []string{"jobs:"}
	for _, s := range stats {
		line := fmt.Sprintf("- %s: every=%s runs=%d running=%t", s.Name, s.Every, s.Runs, s.Running)
		if s.LastErr != "" {
			line += " last_err=" + s.LastErr
		}
		lines = append(lines, line)
	}
	return bot.Respond(req.Reply(strings.Join(lines, "\n")), nil), nil
}

func (p *Plugin) heartbeat(context.Context, ...any) (any, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	n := runtime.NumGoroutine()
	p.log.Debug("heartbeat",
		logx.Int("goroutines", n),
		logx.String("mem_alloc", fmtBytes(m.Alloc)),
		logx.Duration("uptime", p.planner.Uptime()),
	)
	return n, nil
}

func fmtBytes(n uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case n >= GB:
		return fmt.Sprintf("%.1fGB", float64(n)/GB)
	case n >= MB:
		return fmt.Sprintf("%.1fMB", float64(n)/MB)
	case n >= KB:
		return fmt.Sprintf("%.1fKB", float64(n)/KB)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
