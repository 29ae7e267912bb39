package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/vearutop/ijstack"
)

func inspectCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the ImageJ header and metadata tags of a TIFF file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print as JSON", Destination: &asJSON},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			path := c.Args().First()
			if path == "" {
				return errors.New("missing FILE argument")
			}

			info, err := ijstack.Inspect(path)
			if err != nil {
				return err
			}
			if asJSON {
				return renderJSON(os.Stdout, info)
			}

			hyperstack, err := isHyperstack(path)
			if err != nil {
				return err
			}

			fields := []field{
				{"Byte order", info.ByteOrder},
				{"Pages", info.Pages},
				{"Size", fmt.Sprintf("%dx%d", info.Width, info.Height)},
				{"Bits per sample", info.BitsPerSample},
				{"Compression", info.Compression},
				{"Hyperstack", hyperstack},
			}
			keys := make([]string, 0, len(info.Description))
			for k := range info.Description {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fields = append(fields, field{"ImageJ " + k, info.Description[k]})
			}
			if info.Metadata != nil {
				for _, f := range info.Metadata.Fields {
					fields = append(fields, field{"Field " + strings.TrimSpace(f.Code), fmt.Sprintf("%d item(s)", f.Count)})
				}
			}
			if info.Info != "" {
				fields = append(fields, field{"Info", info.Info})
			}
			if len(info.Labels) > 0 {
				fields = append(fields, field{"Labels", strings.Join(info.Labels, ", ")})
			}
			if len(info.Ranges) > 0 {
				fields = append(fields, field{"Ranges", info.Ranges})
			}

			renderBlock(os.Stdout, path, fields)
			return nil
		},
	}
}

func isHyperstack(path string) (bool, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path.
	if err != nil {
		return false, err
	}
	defer func() {
		_ = f.Close()
	}()

	st, err := f.Stat()
	if err != nil {
		return false, err
	}
	return ijstack.IsHyperstack(f, st.Size())
}
