package fontgen

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/image/font/sfnt"

	"github.com/spaghettifunk/lavoro/engine/config"
	"github.com/spaghettifunk/lavoro/engine/jobs"
)

func newTestGenerator(workers uint32) (*Generator, *jobs.Context) {
	ctx := jobs.NewContext(workers, "fontgen-test")
	g := New(ctx, &config.Default().FontGen)
	// A fake rasterizer; the tests exercise the job wiring, not outlines.
	g.font = &sfnt.Font{}
	g.raster = func(r rune) (*Glyph, error) {
		return &Glyph{Rune: r, Width: 1, Height: 1, Pixels: []byte{255}}, nil
	}
	return g, ctx
}

func pump(t *testing.T, ctx *jobs.Context, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for glyph batch")
		}
		ctx.Update(1000)
		time.Sleep(time.Millisecond)
	}
}

func TestGenerateGlyphsDeliversBatch(t *testing.T) {
	g, ctx := newTestGenerator(0)
	defer ctx.Destroy()

	var got []*Glyph
	var gotStatus jobs.JobStatus
	fired := 0
	_, err := g.GenerateGlyphs("abca", func(glyphs []*Glyph, canceled int, status jobs.JobStatus) {
		got = glyphs
		gotStatus = status
		fired++
		if canceled != 0 {
			t.Errorf("canceled = %d, want 0", canceled)
		}
	})
	if err != nil {
		t.Fatalf("GenerateGlyphs: %v", err)
	}

	pump(t, ctx, func() bool { return fired > 0 })

	if fired != 1 {
		t.Fatalf("sentinel callback fired %d times", fired)
	}
	if gotStatus != jobs.JOB_STATUS_FINISHED {
		t.Errorf("status = %s, want FINISHED", gotStatus)
	}
	// "abca" holds three distinct runes; duplicates are not re-queued.
	if len(got) != 3 {
		t.Fatalf("got %d glyphs, want 3", len(got))
	}
	seen := map[rune]bool{}
	for _, gl := range got {
		seen[gl.Rune] = true
	}
	for _, r := range "abc" {
		if !seen[r] {
			t.Errorf("missing glyph %q", r)
		}
	}
}

func TestGenerateGlyphsWithoutFont(t *testing.T) {
	ctx := jobs.NewContext(0, "fontgen-test")
	defer ctx.Destroy()
	g := New(ctx, &config.Default().FontGen)

	if _, err := g.GenerateGlyphs("x", nil); err == nil {
		t.Fatal("expected an error with no font loaded")
	}
}

func TestGenerateGlyphsRasterFailure(t *testing.T) {
	g, ctx := newTestGenerator(0)
	defer ctx.Destroy()
	g.raster = func(r rune) (*Glyph, error) {
		if r == 'b' {
			return nil, fmt.Errorf("boom")
		}
		return &Glyph{Rune: r}, nil
	}

	var got []*Glyph
	fired := 0
	if _, err := g.GenerateGlyphs("ab", func(glyphs []*Glyph, _ int, _ jobs.JobStatus) {
		got = glyphs
		fired++
	}); err != nil {
		t.Fatalf("GenerateGlyphs: %v", err)
	}

	pump(t, ctx, func() bool { return fired > 0 })

	// The failed glyph is dropped; the batch still completes.
	if len(got) != 1 || got[0].Rune != 'a' {
		t.Fatalf("got %v, want just 'a'", got)
	}
}

func TestCancelGeneration(t *testing.T) {
	g, ctx := newTestGenerator(0)
	defer ctx.Destroy()

	var canceled int
	var gotStatus jobs.JobStatus
	fired := 0
	sentinel, err := g.GenerateGlyphs("xyz", func(glyphs []*Glyph, c int, status jobs.JobStatus) {
		canceled = c
		gotStatus = status
		fired++
		if len(glyphs) != 0 {
			t.Errorf("got %d glyphs from a canceled batch", len(glyphs))
		}
	})
	if err != nil {
		t.Fatalf("GenerateGlyphs: %v", err)
	}

	// Nothing has run yet in the zero-worker mode, so this resolves on the
	// first attempt.
	res, err := g.CancelGeneration(context.Background(), sentinel, time.Second)
	if err != nil {
		t.Fatalf("CancelGeneration: %v", err)
	}
	if res != jobs.JOB_RESULT_CANCELED {
		t.Fatalf("CancelGeneration = %s, want CANCELED", res)
	}

	pump(t, ctx, func() bool { return fired > 0 })

	if gotStatus != jobs.JOB_STATUS_CANCELED {
		t.Errorf("status = %s, want CANCELED", gotStatus)
	}
	if canceled != 3 {
		t.Errorf("canceled = %d, want 3", canceled)
	}
}

func TestDistanceField(t *testing.T) {
	// A 7x7 mask with a solid 3x3 core.
	cov := image.NewGray(image.Rect(0, 0, 7, 7))
	for y := 2; y <= 4; y++ {
		for x := 2; x <= 4; x++ {
			cov.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	const edge = 191
	out := distanceField(cov, 2, edge)
	if len(out) != 49 {
		t.Fatalf("len = %d, want 49", len(out))
	}

	center := out[3*7+3]
	inner := out[2*7+2]   // inside, on the outline
	outside := out[0]     // far corner
	nearOut := out[1*7+3] // just outside the core

	if center <= edge {
		t.Errorf("center = %d, want > edge %d", center, edge)
	}
	if inner < edge {
		t.Errorf("outline pixel = %d, want >= edge %d", inner, edge)
	}
	if outside >= edge {
		t.Errorf("far corner = %d, want < edge %d", outside, edge)
	}
	if nearOut >= edge || nearOut <= outside {
		t.Errorf("near-outside = %d, want between %d and %d", nearOut, outside, edge)
	}
}

func writeBitmapFont(t *testing.T, dir string) string {
	t.Helper()

	page := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			page.Pix[y*page.Stride+x] = 200  // glyph 'A' region
			page.Pix[y*page.Stride+x+4] = 90 // glyph 'B' region
		}
	}
	pf, err := os.Create(filepath.Join(dir, "page0.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(pf, page); err != nil {
		t.Fatal(err)
	}
	pf.Close()

	fnt := `info face="test" size=8 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=8 base=7 scaleW=16 scaleH=16 pages=1 packed=0 alphaChnl=0 redChnl=0 greenChnl=0 blueChnl=0
page id=0 file="page0.png"
chars count=2
char id=65 x=0 y=0 width=4 height=4 xoffset=0 yoffset=0 xadvance=5 page=0 chnl=15
char id=66 x=4 y=0 width=4 height=4 xoffset=1 yoffset=1 xadvance=5 page=0 chnl=15
`
	path := filepath.Join(dir, "test.fnt")
	if err := os.WriteFile(path, []byte(fnt), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGenerateBitmapGlyphs(t *testing.T) {
	g, ctx := newTestGenerator(0)
	defer ctx.Destroy()

	fntPath := writeBitmapFont(t, t.TempDir())

	var got []*BitmapGlyph
	fired := 0
	if _, err := g.GenerateBitmapGlyphs(fntPath, func(glyphs []*BitmapGlyph, canceled int, status jobs.JobStatus) {
		got = glyphs
		fired++
		if status != jobs.JOB_STATUS_FINISHED {
			t.Errorf("status = %s, want FINISHED", status)
		}
	}); err != nil {
		t.Fatalf("GenerateBitmapGlyphs: %v", err)
	}

	pump(t, ctx, func() bool { return fired > 0 })

	if len(got) != 2 {
		t.Fatalf("got %d glyphs, want 2", len(got))
	}
	byRune := map[rune]*BitmapGlyph{}
	for _, gl := range got {
		byRune[gl.Rune] = gl
	}
	a, b := byRune['A'], byRune['B']
	if a == nil || b == nil {
		t.Fatalf("missing glyphs, got %v", byRune)
	}
	if a.Width != 4 || a.Height != 4 || a.XAdvance != 5 {
		t.Errorf("glyph A metrics = %dx%d adv %d", a.Width, a.Height, a.XAdvance)
	}
	if a.Pixels[0] != 200 {
		t.Errorf("glyph A pixel = %d, want 200", a.Pixels[0])
	}
	if b.Pixels[0] != 90 {
		t.Errorf("glyph B pixel = %d, want 90", b.Pixels[0])
	}
	if b.XOffset != 1 || b.YOffset != 1 {
		t.Errorf("glyph B offsets = %d,%d, want 1,1", b.XOffset, b.YOffset)
	}
}
