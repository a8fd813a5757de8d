package cmd

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"

	"github.com/KingTheFifth/ray-tracer/scene"
	"github.com/KingTheFifth/ray-tracer/tracer/cpu"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List the cpu devices that would be attached with the current flags.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	devices := cpu.SelectDevices(ctx.Int("tracers"), ctx.Int("workers"))

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Device", "Workers", "Speed"})
	var workers int
	for _, dev := range devices {
		workers += dev.Workers
		table.Append([]string{
			dev.Name,
			fmt.Sprintf("%d", dev.Workers),
			fmt.Sprintf("%d", dev.Speed()),
		})
	}
	table.SetFooter([]string{fmt.Sprintf("%d CPUs", runtime.NumCPU()), fmt.Sprintf("%d", workers), ""})
	table.Render()

	logger.Noticef("system provides %d cpu device(s):\n%s", len(devices), buf.String())
	return nil
}

// List the built-in scene presets.
func ListPresets(ctx *cli.Context) error {
	setupLogging(ctx)

	logger.Noticef("available presets: %s", strings.Join(scene.PresetNames(), ", "))
	return nil
}
