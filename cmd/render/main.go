// Command render paints a scene file to a PNG without a browser.
//
//	render scene.json -o scene.png --width 800 --height 600
//
// A scene file is either a JSON list of object records or a record with
// "objects", and optionally "width", "height", "defaults" and "chunks".
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/inamate/canvasflow/internal/asset"
	"github.com/inamate/canvasflow/internal/config"
	"github.com/inamate/canvasflow/internal/document"
	"github.com/inamate/canvasflow/internal/engine"
	"github.com/inamate/canvasflow/internal/surface"
)

type options struct {
	out          string
	width        int
	height       int
	defaultsFile string
	fontsDir     string
	assetDir     string
	timeout      time.Duration
	verbose      bool
}

type sceneFile struct {
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Defaults json.RawMessage `json:"defaults"`
	Objects  json.RawMessage `json:"objects"`
	Chunks   []engine.Chunk  `json:"chunks"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "render <scene.json>",
		Short:        "Render a scene file to PNG",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read scene: %w", err)
			}
			if opts.assetDir == "" {
				opts.assetDir = filepath.Dir(args[0])
			}
			if opts.out == "" {
				opts.out = trimExt(args[0]) + ".png"
			}

			var buf bytes.Buffer
			if err := render(cmd.Context(), opts, data, &buf); err != nil {
				return err
			}
			if err := os.WriteFile(opts.out, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("write png: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), opts.out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "", "output file (default: scene name with .png)")
	f.IntVar(&opts.width, "width", 0, "canvas width, overrides the scene file")
	f.IntVar(&opts.height, "height", 0, "canvas height, overrides the scene file")
	f.StringVar(&opts.defaultsFile, "defaults", "", "defaults file (.json, .yaml or .toml), overrides the scene file")
	f.StringVar(&opts.fontsDir, "fonts", "", "directory of .ttf/.otf fonts")
	f.StringVar(&opts.assetDir, "assets", "", "directory relative image urls resolve against (default: scene file dir)")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "remote image fetch timeout")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func render(ctx context.Context, opts options, data []byte, w io.Writer) error {
	sf, err := parseSceneFile(data)
	if err != nil {
		return err
	}

	width, height := sf.Width, sf.Height
	if opts.width > 0 {
		width = opts.width
	}
	if opts.height > 0 {
		height = opts.height
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", width, height)
	}

	var defaults document.Defaults
	if opts.defaultsFile != "" {
		defaults, err = config.LoadDefaults(opts.defaultsFile)
	} else {
		defaults, err = document.DecodeDefaults(sf.Defaults)
	}
	if err != nil {
		return err
	}

	fonts, err := surface.NewFonts()
	if err != nil {
		return err
	}
	if opts.fontsDir != "" {
		if _, err := fonts.LoadDir(opts.fontsDir); err != nil {
			return err
		}
	}

	raster := surface.NewRaster(surface.Canvas{Key: "render", Width: width, Height: height}, fonts)
	scene, err := engine.New(raster,
		engine.WithDefaults(defaults),
		engine.WithLoader(asset.NewLoader(opts.assetDir, opts.timeout)),
		engine.WithLogger(slog.Default()),
	)
	if err != nil {
		return fmt.Errorf("create scene: %w", err)
	}

	for _, c := range sf.Chunks {
		if err := scene.SetChunk(c); err != nil {
			return fmt.Errorf("set chunk %s: %w", c.ID, err)
		}
	}

	if len(sf.Objects) > 0 {
		objs, err := document.DecodeObjects(sf.Objects)
		if err != nil {
			return err
		}
		if _, err := scene.SetObjects(ctx, objs); err != nil {
			return fmt.Errorf("paint scene: %w", err)
		}
	} else if err := scene.Render(); err != nil {
		return fmt.Errorf("paint scene: %w", err)
	}

	return raster.EncodePNG(w)
}

func parseSceneFile(data []byte) (*sceneFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return &sceneFile{Objects: data}, nil
	}
	var sf sceneFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse scene file: %w", err)
	}
	return &sf, nil
}

func trimExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}
