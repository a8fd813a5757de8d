package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"time"

	"github.com/KingTheFifth/ray-tracer/renderer"
	"github.com/KingTheFifth/ray-tracer/scene"
	"github.com/KingTheFifth/ray-tracer/scene/reader"
	"github.com/KingTheFifth/ray-tracer/tracer"
	"github.com/KingTheFifth/ray-tracer/tracer/cpu"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	opts, err := renderOptions(ctx)
	if err != nil {
		return err
	}
	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	// Create renderer
	r, err := renderer.NewDefault(sc, tracer.PerfectScheduler(), cpu.DefaultPipeline(opts.Exposure), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	numFrames := opts.NumFrames
	if numFrames == 0 {
		numFrames = 1
	}

	// Accumulation can be stopped between frames; the partial result is
	// still written out.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)

	logger.Noticef("rendering %dx%d frame (%d frames x %d spp)", opts.FrameW, opts.FrameH, numFrames, opts.SamplesPerPixel)
	start := time.Now()
	var (
		frame       *image.RGBA
		interrupted bool
	)
	for i := uint32(0); i < numFrames && !interrupted; i++ {
		if frame, err = r.RenderFrame(); err != nil {
			return err
		}
		logger.Infof("accumulated frame %d/%d", r.FrameIndex(), numFrames)

		select {
		case <-sigChan:
			logger.Warningf("interrupted after %d frames", r.FrameIndex())
			interrupted = true
		default:
		}
	}
	logger.Noticef("rendered frame in %d ms", time.Since(start).Milliseconds())

	// Display stats
	displayFrameStats(r.Stats())

	if err = writePNG(ctx.String("out"), frame); err != nil {
		return err
	}
	if interrupted {
		return renderer.ErrInterrupted
	}
	return nil
}

// Use opengl to render a continuously updating view of the scene.
func RenderInteractive(ctx *cli.Context) error {
	setupLogging(ctx)

	opts, err := renderOptions(ctx)
	if err != nil {
		return err
	}
	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	r, err := renderer.NewInteractive(sc, tracer.PerfectScheduler(), cpu.DefaultPipeline(opts.Exposure), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.Render()
}

// Flags that are cast to unsigned renderer options.
var unsignedRenderFlags = []string{"width", "height", "spp", "bounces", "rr-bounces", "seed", "frames"}

// Build renderer options from the command flags. Negative values are
// rejected instead of wrapping around when converted to unsigned fields.
func renderOptions(ctx *cli.Context) (renderer.Options, error) {
	for _, name := range unsignedRenderFlags {
		if v := ctx.Int(name); v < 0 {
			return renderer.Options{}, fmt.Errorf("%w: --%s must be >= 0; got %d", renderer.ErrInvalidOptions, name, v)
		}
	}

	opts := renderer.Options{
		FrameW:           uint32(ctx.Int("width")),
		FrameH:           uint32(ctx.Int("height")),
		SamplesPerPixel:  uint32(ctx.Int("spp")),
		Exposure:         float32(ctx.Float64("exposure")),
		NumBounces:       uint32(ctx.Int("bounces")),
		MinBouncesForRR:  uint32(ctx.Int("rr-bounces")),
		Seed:             uint32(ctx.Int("seed")),
		NumFrames:        uint32(ctx.Int("frames")),
		NumTracers:       ctx.Int("tracers"),
		WorkersPerTracer: ctx.Int("workers"),
	}

	if opts.MinBouncesForRR == 0 || opts.MinBouncesForRR >= opts.NumBounces {
		logger.Notice("disabling RR for path elimination")
		opts.MinBouncesForRR = 0
	}

	return opts, nil
}

// Load the scene named by the first command argument.
func loadScene(ctx *cli.Context) (*scene.Scene, error) {
	if ctx.NArg() != 1 {
		return nil, errors.New("missing scene file argument")
	}

	return reader.ReadScene(ctx.Args().First())
}

// Export the frame buffer as a PNG image.
func writePNG(imgFile string, frame *image.RGBA) error {
	start := time.Now()
	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	if err = png.Encode(f, frame); err != nil {
		return fmt.Errorf("error encoding png file: %w", err)
	}
	logger.Noticef("wrote frame to %s in %d ms", imgFile, time.Since(start).Milliseconds())
	return nil
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Block height", "% of frame", "Render time"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			stat.RenderTime.String(),
		})
	}
	table.SetFooter([]string{"", fmt.Sprintf("frame %d", stats.FrameIndex), "TOTAL", stats.RenderTime.String()})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}
