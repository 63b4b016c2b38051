package fontgen

import (
	"fmt"
	"image"
	_ "image/png" // atlas pages are png
	"os"
	"path/filepath"

	"github.com/fzipp/bmfont"

	"github.com/spaghettifunk/lavoro/engine/core"
	"github.com/spaghettifunk/lavoro/engine/jobs"
)

// A glyph cut from a pre-rendered bitmap font atlas, as opposed to one
// rasterized from outlines.
type BitmapGlyph struct {
	Rune     rune
	Width    int
	Height   int
	XOffset  int
	YOffset  int
	XAdvance int
	Page     int
	Pixels   []byte // 8-bit luminance
}

type bitmapBatch struct {
	glyphs   []*BitmapGlyph
	canceled int
	failed   int
	callback BitmapSetCallback
}

type BitmapSetCallback func(glyphs []*BitmapGlyph, canceled int, status jobs.JobStatus)

type bitmapGlyphJob struct {
	char     bmfont.Char
	page     *image.Gray
	sentinel jobs.JobHandle
	glyph    *BitmapGlyph
}

/**
 * @brief Loads a .fnt bitmap font and queues one job per character to cut
 * and convert its region of the atlas, under a sentinel parent that
 * delivers the complete set. The page images are decoded up front on the
 * calling goroutine; only the per-glyph copy work is parallelized.
 */
func (g *Generator) GenerateBitmapGlyphs(fntPath string, callback BitmapSetCallback) (jobs.JobHandle, error) {
	font, err := bmfont.Load(fntPath)
	if err != nil {
		return jobs.InvalidJob, fmt.Errorf("fontgen: loading %s: %w", fntPath, err)
	}

	pages := make(map[int]*image.Gray, len(font.Descriptor.Pages))
	for _, p := range font.Descriptor.Pages {
		img, err := loadPageImage(filepath.Join(filepath.Dir(fntPath), p.File))
		if err != nil {
			return jobs.InvalidJob, err
		}
		pages[p.ID] = img
	}

	batch := &bitmapBatch{callback: callback}
	sentinel := g.jobs.CreateJob(&jobs.Job{
		Process:  processSentinel,
		Callback: bitmapSentinelDone,
		Context:  g,
		Data:     batch,
	})

	for _, c := range font.Descriptor.Chars {
		page, ok := pages[c.Page]
		if !ok {
			core.LogWarn("fontgen: char %q references missing page %d", c.ID, c.Page)
			continue
		}

		child := g.jobs.CreateJob(&jobs.Job{
			Process:  processBitmapGlyph,
			Callback: bitmapGlyphDone,
			Context:  g,
			Data:     &bitmapGlyphJob{char: c, page: page, sentinel: sentinel},
		})
		if res := g.jobs.SetParent(child, sentinel); res != jobs.JOB_RESULT_OK {
			core.LogError("fontgen: SetParent for char %q: %s", c.ID, res)
			continue
		}
		if res := g.jobs.PushJob(child); res != jobs.JOB_RESULT_OK {
			core.LogWarn("fontgen: push for char %q: %s", c.ID, res)
		}
	}

	if res := g.jobs.PushJob(sentinel); res != jobs.JOB_RESULT_OK {
		return jobs.InvalidJob, fmt.Errorf("fontgen: pushing sentinel: %s", res)
	}
	return sentinel, nil
}

func loadPageImage(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("fontgen: decoding page %s: %w", path, err)
	}

	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray, nil
}

// Runs on a worker goroutine. Reads from the shared page image, which is
// immutable once the batch has been queued.
func processBitmapGlyph(_ *jobs.Context, _ jobs.JobHandle, _, userData interface{}) int32 {
	bj := userData.(*bitmapGlyphJob)
	c := bj.char

	pixels := make([]byte, c.Width*c.Height)
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			pixels[y*c.Width+x] = bj.page.GrayAt(c.X+x, c.Y+y).Y
		}
	}

	bj.glyph = &BitmapGlyph{
		Rune:     c.ID,
		Width:    c.Width,
		Height:   c.Height,
		XOffset:  c.XOffset,
		YOffset:  c.YOffset,
		XAdvance: c.XAdvance,
		Page:     c.Page,
		Pixels:   pixels,
	}
	return 1
}

func bitmapGlyphDone(ctx *jobs.Context, _ jobs.JobHandle, status jobs.JobStatus, _, userData interface{}, result int32) {
	bj := userData.(*bitmapGlyphJob)

	data := ctx.GetData(bj.sentinel)
	if data == nil {
		return
	}
	batch, ok := data.(*bitmapBatch)
	if !ok {
		return
	}

	switch {
	case status == jobs.JOB_STATUS_CANCELED:
		batch.canceled++
	case result == 0 || bj.glyph == nil:
		batch.failed++
	default:
		batch.glyphs = append(batch.glyphs, bj.glyph)
	}
}

func bitmapSentinelDone(_ *jobs.Context, _ jobs.JobHandle, status jobs.JobStatus, _, userData interface{}, _ int32) {
	batch := userData.(*bitmapBatch)
	if batch.failed > 0 {
		core.LogWarn("fontgen: %d bitmap glyphs failed", batch.failed)
	}
	if batch.callback != nil {
		batch.callback(batch.glyphs, batch.canceled, status)
	}
}
