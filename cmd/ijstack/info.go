package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/vearutop/ijstack"
)

func infoCmd() *cli.Command {
	var (
		input, series string
		asJSON        bool
	)

	flags := inputFlags(&input, &series)
	flags = append(flags, &cli.BoolFlag{Name: "json", Usage: "print series as JSON", Destination: &asJSON})

	return &cli.Command{
		Name:  "info",
		Usage: "Print metadata of dataset series",
		Flags: flags,
		Action: func(ctx context.Context, _ *cli.Command) error {
			return printSeries(ctx, input, series, asJSON)
		},
	}
}

func printSeries(ctx context.Context, input, spec string, asJSON bool) error {
	ds, err := ijstack.OpenDataset(input)
	if err != nil {
		return err
	}
	defer func() {
		_ = ds.Close()
	}()

	series, err := ijstack.SelectSeries(ctx, ds, spec)
	if err != nil {
		return err
	}

	if asJSON {
		return renderJSON(os.Stdout, series)
	}

	for _, s := range series {
		renderBlock(os.Stdout, fmt.Sprintf("Series %d", s.Index), []field{
			{"Image name", s.Name},
			{"Dimensions", fmt.Sprintf("%s, %dx%dx%dx%dx%d", s.DimensionOrder, s.SizeX, s.SizeY, s.SizeC, s.SizeZ, s.SizeT)},
			{"Physical size X", s.PhysicalSizeX},
			{"Physical size Y", s.PhysicalSizeY},
			{"Physical size Z", s.PhysicalSizeZ},
			{"Physical size unit", s.Unit},
			{"Pixel type", s.PixelType},
			{"Channels", strings.Join(s.ChannelNames, ", ")},
		})
	}
	return nil
}
