package cmd

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/KingTheFifth/ray-tracer/scene/reader"
	"github.com/KingTheFifth/ray-tracer/scene/writer"
	"github.com/urfave/cli"
)

// Compile scene definitions into the packed zip format.
func CompileScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("missing scene file argument")
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)

		var zipFile string
		switch {
		case strings.HasPrefix(sceneFile, reader.PresetPrefix):
			zipFile = strings.TrimPrefix(sceneFile, reader.PresetPrefix) + ".zip"
		case strings.HasSuffix(sceneFile, ".json"):
			zipFile = strings.TrimSuffix(filepath.Base(sceneFile), ".json") + ".zip"
			zipFile = filepath.Join(filepath.Dir(sceneFile), zipFile)
		default:
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		sc, err := reader.ReadScene(sceneFile)
		if err != nil {
			return err
		}

		// Display compiled scene info
		logger.Noticef("scene information:\n%s", sc.Stats())

		if err = writer.WriteScene(sc, zipFile); err != nil {
			return err
		}
	}

	return nil
}

// Display scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	sc, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	logger.Noticef("scene information:\n%s", sc.Stats())
	return nil
}
