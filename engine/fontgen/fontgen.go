package fontgen

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/spaghettifunk/lavoro/engine/config"
	"github.com/spaghettifunk/lavoro/engine/core"
	"github.com/spaghettifunk/lavoro/engine/jobs"
)

/**
 * @brief One generated glyph: an 8-bit distance-field bitmap plus the
 * placement metrics needed to lay the glyph out.
 */
type Glyph struct {
	Rune     rune
	Width    int
	Height   int
	BearingX int
	BearingY int
	Advance  int
	Pixels   []byte
}

// GlyphSetCallback receives the finished batch on the Update goroutine.
// canceled counts the glyph jobs that did not run.
type GlyphSetCallback func(glyphs []*Glyph, canceled int, status jobs.JobStatus)

/**
 * @brief Generates glyph bitmaps on the job scheduler. Each batch is a
 * sentinel parent job with one child job per glyph: the children rasterize
 * on worker goroutines and the sentinel runs last, flushing the whole batch
 * to the caller.
 */
type Generator struct {
	jobs    *jobs.Context
	padding int
	edge    uint8
	size    int

	fontMu sync.RWMutex
	font   *sfnt.Font

	// Swapped out in tests.
	raster func(r rune) (*Glyph, error)
}

func New(jobsCtx *jobs.Context, cfg *config.FontGenConfig) *Generator {
	g := &Generator{
		jobs:    jobsCtx,
		padding: cfg.SDFBasePadding,
		edge:    uint8(cfg.SDFEdgeValue),
		size:    cfg.PixelSize,
	}
	g.raster = g.rasterizeGlyph
	return g
}

// LoadFont parses a TTF/OTF file and makes it the active font. Safe to call
// while glyph jobs are in flight; jobs pick up the font at rasterize time.
func (g *Generator) LoadFont(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("fontgen: parsing %s: %w", path, err)
	}

	g.fontMu.Lock()
	g.font = f
	g.fontMu.Unlock()

	core.LogInfo("fontgen: loaded font %s", path)
	return nil
}

func (g *Generator) activeFont() *sfnt.Font {
	g.fontMu.RLock()
	defer g.fontMu.RUnlock()
	return g.font
}

// Per-batch bookkeeping. Child callbacks and the sentinel callback all run
// on the Update goroutine, so no locking is needed here.
type glyphBatch struct {
	glyphs   []*Glyph
	canceled int
	failed   int
	callback GlyphSetCallback
}

// Per-child payload. The glyph field is written by the process function on
// a worker and read by the callback after the scheduler has published the
// terminal state.
type glyphJob struct {
	r        rune
	sentinel jobs.JobHandle
	glyph    *Glyph
}

/**
 * @brief Queues one batch of glyph jobs and returns the sentinel handle.
 * The children are pushed first, the sentinel last; the scheduler holds the
 * sentinel back until every child is terminal. Cancel the sentinel to
 * cancel the whole batch.
 */
func (g *Generator) GenerateGlyphs(text string, callback GlyphSetCallback) (jobs.JobHandle, error) {
	if g.activeFont() == nil {
		return jobs.InvalidJob, core.ErrNotInitialized
	}

	batch := &glyphBatch{callback: callback}

	sentinel := g.jobs.CreateJob(&jobs.Job{
		Process:  processSentinel,
		Callback: sentinelDone,
		Context:  g,
		Data:     batch,
	})

	seen := map[rune]bool{}
	for _, r := range text {
		if seen[r] {
			continue
		}
		seen[r] = true

		child := g.jobs.CreateJob(&jobs.Job{
			Process:  processGlyph,
			Callback: glyphDone,
			Context:  g,
			Data:     &glyphJob{r: r, sentinel: sentinel},
		})
		if res := g.jobs.SetParent(child, sentinel); res != jobs.JOB_RESULT_OK {
			core.LogError("fontgen: SetParent for glyph %q: %s", r, res)
			continue
		}
		if res := g.jobs.PushJob(child); res != jobs.JOB_RESULT_OK {
			core.LogWarn("fontgen: push for glyph %q: %s", r, res)
		}
	}

	if res := g.jobs.PushJob(sentinel); res != jobs.JOB_RESULT_OK {
		return jobs.InvalidJob, fmt.Errorf("fontgen: pushing sentinel: %s", res)
	}
	return sentinel, nil
}

// Runs on a worker goroutine.
func processGlyph(_ *jobs.Context, _ jobs.JobHandle, userContext, userData interface{}) int32 {
	g := userContext.(*Generator)
	gj := userData.(*glyphJob)

	glyph, err := g.raster(gj.r)
	if err != nil {
		core.LogWarn("fontgen: rasterizing %q: %v", gj.r, err)
		return 0
	}
	gj.glyph = glyph
	return 1
}

// Runs on the Update goroutine once the child is terminal. The batch lives
// in the sentinel's job data; a stale sentinel handle means there is nobody
// left to report to.
func glyphDone(ctx *jobs.Context, _ jobs.JobHandle, status jobs.JobStatus, _, userData interface{}, result int32) {
	gj := userData.(*glyphJob)

	data := ctx.GetData(gj.sentinel)
	if data == nil {
		return
	}
	batch, ok := data.(*glyphBatch)
	if !ok {
		return
	}

	switch {
	case status == jobs.JOB_STATUS_CANCELED:
		batch.canceled++
	case result == 0 || gj.glyph == nil:
		batch.failed++
	default:
		batch.glyphs = append(batch.glyphs, gj.glyph)
	}
}

// The sentinel does no work of its own; it exists to run after the batch.
func processSentinel(_ *jobs.Context, _ jobs.JobHandle, _, _ interface{}) int32 {
	return 1
}

func sentinelDone(_ *jobs.Context, _ jobs.JobHandle, status jobs.JobStatus, _, userData interface{}, _ int32) {
	batch := userData.(*glyphBatch)
	if batch.failed > 0 {
		core.LogWarn("fontgen: %d glyphs failed to rasterize", batch.failed)
	}
	if batch.callback != nil {
		batch.callback(batch.glyphs, batch.canceled, status)
	}
}

/**
 * @brief Cancels a batch by its sentinel handle, retrying with exponential
 * backoff while any glyph job is still mid-flight on a worker. Pumps the
 * scheduler between attempts so in-flight children can settle. maxElapsed
 * bounds the whole retry loop.
 */
func (g *Generator) CancelGeneration(ctx context.Context, sentinel jobs.JobHandle, maxElapsed time.Duration) (jobs.JobResult, error) {
	operation := func() (jobs.JobResult, error) {
		res := g.jobs.CancelJob(sentinel)
		if res == jobs.JOB_RESULT_PENDING {
			// Flush so the in-flight child can settle before the retry.
			g.jobs.Update(0)
			return res, fmt.Errorf("fontgen: batch still in flight")
		}
		return res, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Millisecond

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(maxElapsed),
	)
	if err != nil {
		return jobs.JOB_RESULT_PENDING, err
	}
	return res, nil
}
