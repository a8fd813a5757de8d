package main

import (
	"fmt"
	"os"

	"github.com/KingTheFifth/ray-tracer/cmd"
	"github.com/urfave/cli"
)

// Flags shared by the device listing and render commands.
var tracerFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "tracers",
		Value: 1,
		Usage: "number of cpu tracers that split each frame",
	},
	cli.IntFlag{
		Name:   "workers",
		Value:  0,
		Usage:  "worker goroutines per tracer; 0 splits the available CPUs between tracers",
		EnvVar: "RAYTRACER_WORKERS",
	},
}

func renderFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 800,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 450,
			Usage: "frame height",
		},
		cli.IntFlag{
			Name:  "spp",
			Value: 20,
			Usage: "samples per pixel per frame",
		},
		cli.IntFlag{
			Name:  "bounces",
			Value: 20,
			Usage: "max path segments traced per sample",
		},
		cli.IntFlag{
			Name:  "rr-bounces",
			Value: 0,
			Usage: "min bounces before russian roulette path elimination; 0 disables it",
		},
		cli.Float64Flag{
			Name:  "exposure",
			Value: 0,
			Usage: "exposure for tone-mapping; 0 uses the scene camera exposure",
		},
		cli.IntFlag{
			Name:  "seed",
			Value: 0,
			Usage: "seed mixed into every random stream",
		},
	}
	flags = append(flags, tracerFlags...)
	return append(flags, extra...)
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "ray-tracer"
	app.Usage = "render sphere scenes using progressive path tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile json scene definitions into the packed binary format",
			Description: `
Parse a scene definition from a json file or a built-in preset, validate it and
package the spheres using the byte-exact kernel layout.

The packed scene data is written to a zip archive which can be supplied
as an argument to the render command.`,
			ArgsUsage: "scene1.json preset:default ...",
			Action:    cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "print scene information",
			ArgsUsage: "scene.json|scene.zip|preset:name",
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:   "list-devices",
			Usage:  "list the cpu devices used for rendering",
			Flags:  tracerFlags,
			Action: cmd.ListDevices,
		},
		{
			Name:   "list-presets",
			Usage:  "list the built-in scene presets",
			Action: cmd.ListPresets,
		},
		{
			Name:  "render",
			Usage: "render scene",
			Subcommands: []cli.Command{
				{
					Name:        "frame",
					Usage:       "render single frame",
					Description: `Accumulate one or more frames and write the result to a PNG image.`,
					ArgsUsage:   "scene.json|scene.zip|preset:name",
					Flags: renderFlags(
						cli.IntFlag{
							Name:  "frames",
							Value: 1,
							Usage: "number of frames to accumulate",
						},
						cli.StringFlag{
							Name:  "out, o",
							Value: "frame.png",
							Usage: "image filename for the rendered frame",
						},
					),
					Action: cmd.RenderFrame,
				},
				{
					Name:  "interactive",
					Usage: "render interactive view of the scene",
					Description: `
Display a continuously refining view of the scene. Arrow keys and page up/down
move the camera, dragging with the left mouse button orbits it and tab toggles
the block assignment overlay. Every camera change restarts accumulation.`,
					ArgsUsage: "scene.json|scene.zip|preset:name",
					Flags: renderFlags(
						cli.IntFlag{
							Name:  "frames",
							Value: 0,
							Usage: "stop refining after this many frames; 0 refines forever",
						},
					),
					Action: cmd.RenderInteractive,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
