/*
Demo application for the lavoro job scheduler: loads the TOML config,
builds a scheduler, and runs font glyph generation batches through it while
pumping Update from the main goroutine.
*/
package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spaghettifunk/lavoro/engine/config"
	"github.com/spaghettifunk/lavoro/engine/core"
	"github.com/spaghettifunk/lavoro/engine/fontgen"
	"github.com/spaghettifunk/lavoro/engine/jobs"
)

const prewarmText = "the quick brown fox jumps over the lazy dog 0123456789"

func findFont(dir string) string {
	for _, pattern := range []string{"*.ttf", "*.otf"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err == nil && len(matches) > 0 {
			return matches[0]
		}
	}
	return ""
}

func main() {
	cfg, err := config.Load("lavoro.toml")
	if err != nil {
		core.LogFatal("loading config: %v", err)
	}
	core.SetLogLevel(cfg.Level())
	core.MetricsInitialize()

	sched := jobs.NewContext(cfg.Jobs.WorkerCount, cfg.Jobs.WorkerNamePrefix)

	pending := 0
	generator := fontgen.New(sched, &cfg.FontGen)
	onGlyphs := func(glyphs []*fontgen.Glyph, canceled int, status jobs.JobStatus) {
		core.LogInfo("glyph batch done: %d glyphs, %d canceled (%s)", len(glyphs), canceled, status)
		pending--
	}

	var watcher *fontgen.Watcher
	if fontPath := findFont(cfg.FontGen.AssetsDir); fontPath != "" {
		if err := generator.LoadFont(fontPath); err != nil {
			core.LogFatal("loading font: %v", err)
		}
		if _, err := generator.GenerateGlyphs(prewarmText, onGlyphs); err != nil {
			core.LogFatal("queueing glyphs: %v", err)
		}
		pending++

		if cfg.Jobs.WorkerCount > 0 {
			watcher, err = fontgen.NewWatcher(generator, cfg.FontGen.AssetsDir, prewarmText, onGlyphs)
			if err != nil {
				core.LogWarn("font watcher unavailable: %v", err)
			}
		}
	} else {
		core.LogWarn("no font in %s, running a synthetic workload", cfg.FontGen.AssetsDir)
		for i := 0; i < 100; i++ {
			h := sched.CreateJob(&jobs.Job{
				Process: func(_ *jobs.Context, _ jobs.JobHandle, _, _ interface{}) int32 {
					acc := uint32(2166136261)
					for j := 0; j < 1<<16; j++ {
						acc = (acc ^ uint32(j)) * 16777619
					}
					return int32(acc & 0x7FFFFFFF)
				},
				Callback: func(_ *jobs.Context, _ jobs.JobHandle, status jobs.JobStatus, _, _ interface{}, _ int32) {
					pending--
				},
			})
			if res := sched.PushJob(h); res != jobs.JOB_RESULT_OK {
				core.LogError("push: %s", res)
				continue
			}
			pending++
		}
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	clock := core.NewClock()
	running := true
	for running {
		select {
		case <-sigCh:
			running = false
		default:
		}

		clock.Start()
		sched.Update(cfg.Jobs.UpdateBudgetUS)
		clock.Update()
		core.MetricsUpdate(clock.Elapsed() / 1e9)

		// With a watcher we keep serving until a signal arrives; otherwise
		// quit once the workload has drained.
		if pending == 0 && watcher == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	ups, avg := core.MetricsCycle()
	core.LogInfo("update cycles/s: %.1f, avg cycle: %.3f ms", ups, avg)

	if watcher != nil {
		_ = watcher.Close()
	}
	sched.Destroy()
	sched.Update(0) // flush the cancellations from teardown
}
