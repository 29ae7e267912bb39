package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/vearutop/ijstack"
)

type convertFlags struct {
	input         string
	series        string
	channels      string
	zMin, zMax    int
	tMin, tMax    int
	outputPattern string
	outputDir     string
	output        string
	compression   int
	dtype         string
	stack         bool
	byteOrder     string
	autoRange     bool
	luts          string
	info          bool
}

func (f *convertFlags) flags() []cli.Flag {
	flags := inputFlags(&f.input, &f.series)
	flags = append(flags,
		&cli.StringFlag{Name: "c", Usage: "comma-separated channels to process (default all)", Destination: &f.channels},
		&cli.IntFlag{Name: "z-min", Usage: "first z plane", Destination: &f.zMin},
		&cli.IntFlag{Name: "z-max", Usage: "non-inclusive last z plane", Destination: &f.zMax},
		&cli.IntFlag{Name: "t-min", Usage: "first time frame", Destination: &f.tMin},
		&cli.IntFlag{Name: "t-max", Usage: "non-inclusive last time frame", Destination: &f.tMax},
		&cli.StringFlag{
			Name:        "output-pattern",
			Usage:       "per-plane file pattern with {c}, {z} and {t} fields",
			Value:       ijstack.DefaultOutputPattern,
			Destination: &f.outputPattern,
		},
		&cli.StringFlag{Name: "out-dir", Usage: "directory for per-plane series folders", Value: ".", Destination: &f.outputDir},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "hyperstack file pattern with {srs} and {name} fields",
			Value:       ijstack.DefaultStackOutput,
			Destination: &f.output,
		},
		&cli.IntFlag{Name: "compression", Usage: "zlib level 1-9, 0 disables compression", Value: 3, Destination: &f.compression},
		&cli.StringFlag{Name: "dtype", Usage: "output pixel type (uint8, uint16, float32, ...)", Destination: &f.dtype},
		&cli.BoolFlag{Name: "stack", Usage: "write one ImageJ hyperstack per series", Destination: &f.stack},
		&cli.StringFlag{Name: "byte-order", Usage: "byte order of written files (big, little)", Destination: &f.byteOrder},
		&cli.BoolFlag{Name: "auto-range", Usage: "store per-channel display ranges computed from the data", Destination: &f.autoRange},
		&cli.StringFlag{Name: "luts", Usage: "comma-separated channel colors (blue, red, green, yellow, cyan, magenta, gray)", Destination: &f.luts},
		&cli.BoolFlag{Name: "info", Usage: "only print series metadata", Destination: &f.info},
	)
	return flags
}

func convertCmd() *cli.Command {
	var f convertFlags

	return &cli.Command{
		Name:  "convert",
		Usage: "Convert dataset series to TIFF planes or ImageJ hyperstacks",
		Flags: f.flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyConvertConfig(c, cfg, &f)

			if f.info {
				return printSeries(ctx, f.input, f.series, false)
			}

			opts, err := f.options(c)
			if err != nil {
				return err
			}

			ds, err := ijstack.OpenDataset(f.input)
			if err != nil {
				return err
			}
			defer func() {
				_ = ds.Close()
			}()

			log := ijstack.Logger()
			opts.OnPlane = newPlaneProgress(log).OnPlane

			start := time.Now()
			res, err := ijstack.Convert(ctx, ds, opts)
			if err != nil {
				return err
			}

			files := 0
			for _, sr := range res.Series {
				files += len(sr.Files)
			}
			log.Info("conversion done",
				zap.Int("series", len(res.Series)),
				zap.Int("files", files),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		},
	}
}

func (f *convertFlags) options(c *cli.Command) (ijstack.ConvertOptions, error) {
	opts := ijstack.ConvertOptions{
		Series:        f.series,
		Stack:         f.stack,
		OutputDir:     f.outputDir,
		OutputPattern: f.outputPattern,
		Output:        f.output,
		Compression:   f.compression,
		AutoRange:     f.autoRange,
	}

	if f.compression < 0 || f.compression > 9 {
		return opts, fmt.Errorf("compression level %d out of range 0-9", f.compression)
	}

	channels, err := ijstack.ParseIndices(f.channels)
	if err != nil {
		return opts, fmt.Errorf("--c: %w", err)
	}
	opts.Channels = channels

	bound := func(name string, v int) *int {
		if !c.IsSet(name) {
			return nil
		}
		return &v
	}
	opts.Z = ijstack.Span{Min: bound("z-min", f.zMin), Max: bound("z-max", f.zMax)}
	opts.T = ijstack.Span{Min: bound("t-min", f.tMin), Max: bound("t-max", f.tMax)}

	if f.dtype != "" {
		if opts.PixelType, err = ijstack.ParsePixelType(f.dtype); err != nil {
			return opts, err
		}
	}
	if f.byteOrder != "" {
		if opts.ByteOrder, err = ijstack.ParseByteOrder(f.byteOrder); err != nil {
			return opts, err
		}
	}
	if opts.LUTs, err = ijstack.ParseLUTs(f.luts); err != nil {
		return opts, err
	}

	return opts, nil
}
