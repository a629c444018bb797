package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	xdraw "golang.org/x/image/draw"

	"github.com/serftools/spadata/pkg/archive"
	"github.com/serftools/spadata/pkg/data"
	"github.com/serftools/spadata/pkg/sprite"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}
}

func newLogger(c *cli.Context) zerolog.Logger {
	level := zerolog.WarnLevel
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()
}

func loadSource(c *cli.Context) (*data.Source, error) {
	s := data.New(data.WithLogger(newLogger(c)))
	if err := s.Load(c.String("file")); err != nil {
		return nil, err
	}
	return s, nil
}

func parseKindArg(c *cli.Context, pos int) (data.Kind, error) {
	kind, ok := data.ParseKind(c.Args().Get(pos))
	if !ok {
		return data.KindNone, fmt.Errorf("unknown kind %q", c.Args().Get(pos))
	}
	return kind, nil
}

func parseIndexArg(c *cli.Context, pos int) (uint32, error) {
	n, err := strconv.ParseUint(c.Args().Get(pos), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad index %q", c.Args().Get(pos))
	}
	return uint32(n), nil
}

// kindSpan bounds the number of indices a kind can hold: the gap to the
// next catalog region, or the remaining table for the last one.
func kindSpan(s *data.Source, kind data.Kind) uint32 {
	first := kind.Describe().FirstIndex
	span := uint32(s.EntryCount())
	if first < span {
		span -= first
	}
	for _, k := range data.Kinds() {
		next := k.Describe().FirstIndex
		if next > first && next-first < span {
			span = next - first
		}
	}
	return span
}

// pickPart selects the drawable part of a decoded sprite pair.
func pickPart(mask, img *sprite.Sprite) *sprite.Sprite {
	if img != nil {
		return img
	}
	return mask
}

func scaleImage(src *image.NRGBA, factor int) image.Image {
	if factor <= 1 {
		return src
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// palettedFrame quantizes an RGBA frame for the GIF encoder.
func palettedFrame(src *image.NRGBA) *image.Paletted {
	q := quantize.MedianCutQuantizer{}
	p := q.Quantize(make(color.Palette, 0, 256), src)
	pm := image.NewPaletted(src.Bounds(), p)
	draw.Draw(pm, src.Bounds(), src, src.Bounds().Min, draw.Src)
	return pm
}

func main() {
	app := cli.NewApp()

	app.Name = "spadata"
	app.Usage = "Serf City DOS data file extraction utility"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			EnvVars: []string{"SPADATA_FILE"},
			Value:   "SPAE.PA",
			Usage:   "path to the data file",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "info",
			Usage: "Print an archive summary and the resource catalog",
			Action: func(c *cli.Context) error {
				s, err := loadSource(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				fmt.Printf("entries:         %d\n", s.EntryCount())
				fmt.Printf("animation table: %d bytes\n\n", len(s.AnimationTable()))
				fmt.Printf("%-14s %6s %8s %s\n", "KIND", "FIRST", "PALETTE", "ENCODING")
				for _, k := range data.Kinds() {
					d := k.Describe()
					if d.FirstIndex == 0 {
						continue
					}
					fmt.Printf("%-14s %6d %8d %s\n", k, d.FirstIndex, d.PaletteIndex, d.Encoding)
				}
				return nil
			},
		},
		{
			Name:      "sprite",
			Usage:     "Decode one sprite to a PNG",
			ArgsUsage: "KIND INDEX",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path"},
				&cli.IntFlag{Name: "scale", Value: 1, Usage: "integer upscale factor"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				kind, err := parseKindArg(c, 0)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				idx, err := parseIndexArg(c, 1)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				s, err := loadSource(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				mask, img, err := s.GetSpriteParts(kind, idx)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				out := c.String("out")
				if out == "" {
					out = fmt.Sprintf("%s-%d.png", kind, idx)
				}
				part := pickPart(mask, img)
				if err := writePNG(out, scaleImage(part.Image(), c.Int("scale"))); err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
		{
			Name:      "extract",
			Usage:     "Decode every sprite of a kind into a directory",
			ArgsUsage: "KIND",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Value: ".", Usage: "output directory"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				kind, err := parseKindArg(c, 0)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				s, err := loadSource(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if err := os.MkdirAll(c.String("dir"), 0o755); err != nil {
					return cli.NewExitError(err, 1)
				}

				logger := newLogger(c)
				written := 0
				for idx := uint32(0); idx < kindSpan(s, kind); idx++ {
					mask, img, err := s.GetSpriteParts(kind, idx)
					if err != nil {
						logger.Debug().Err(err).Uint32("index", idx).Msg("skipped")
						continue
					}
					out := filepath.Join(c.String("dir"), fmt.Sprintf("%s-%d.png", kind, idx))
					if err := writePNG(out, pickPart(mask, img).Image()); err != nil {
						return cli.NewExitError(err, 1)
					}
					written++
				}
				logger.Info().Int("sprites", written).Str("kind", kind.String()).Msg("extracted")
				return nil
			},
		},
		{
			Name:      "gif",
			Usage:     "Export an index range as an animated GIF",
			ArgsUsage: "KIND FIRST LAST",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path"},
				&cli.IntFlag{Name: "delay", Value: 10, Usage: "frame delay in 1/100s"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 3 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				kind, err := parseKindArg(c, 0)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				first, err := parseIndexArg(c, 1)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				last, err := parseIndexArg(c, 2)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				if last < first {
					return cli.NewExitError(fmt.Errorf("empty range %d..%d", first, last), 1)
				}

				s, err := loadSource(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				var out gif.GIF
				for idx := first; idx <= last; idx++ {
					mask, img, err := s.GetSpriteParts(kind, idx)
					if err != nil {
						return cli.NewExitError(err, 1)
					}
					out.Image = append(out.Image, palettedFrame(pickPart(mask, img).Image()))
					out.Delay = append(out.Delay, c.Int("delay"))
				}

				path := c.String("out")
				if path == "" {
					path = fmt.Sprintf("%s-%d-%d.gif", kind, first, last)
				}
				f, err := os.Create(path)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer f.Close()
				if err := gif.EncodeAll(f, &out); err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
		{
			Name:      "sound",
			Usage:     "Export a sound effect as WAV",
			ArgsUsage: "INDEX",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				idx, err := parseIndexArg(c, 0)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				s, err := loadSource(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				wav, err := s.GetSound(idx)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				out := c.String("out")
				if out == "" {
					out = fmt.Sprintf("sfx-%d.wav", idx)
				}
				if err := os.WriteFile(out, wav, 0o644); err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
		{
			Name:      "music",
			Usage:     "Export a music track as MIDI",
			ArgsUsage: "INDEX",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				idx, err := parseIndexArg(c, 0)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				s, err := loadSource(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				mid, err := s.GetMusic(idx)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				out := c.String("out")
				if out == "" {
					out = fmt.Sprintf("track-%d.mid", idx)
				}
				if err := os.WriteFile(out, mid, 0o644); err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
		{
			Name:      "palette",
			Usage:     "Dump a palette resource as hex swatches",
			ArgsUsage: "INDEX",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				idx, err := parseIndexArg(c, 0)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				s, err := loadSource(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				pal, err := s.Palette(idx)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				for i, col := range pal {
					fmt.Printf("%s ", col.Hex())
					if i%16 == 15 {
						fmt.Println()
					}
				}
				return nil
			},
		},
		{
			Name:      "repack",
			Usage:     "Wrap a data file in the compressed container",
			ArgsUsage: "INPUT OUTPUT",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "level", Value: archive.DefaultCompressionLevel, Usage: "compression level"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				// Open through the archive layer so TPWM-wrapped inputs
				// are unpacked before compression.
				arch, err := archive.Open(c.Args().Get(0))
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				f, err := os.Create(c.Args().Get(1))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer f.Close()

				if err := archive.Encode(f, arch.Bytes(), archive.WithCompressionLevel(c.Int("level"))); err != nil {
					return cli.NewExitError(err, 1)
				}
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
		logger.Fatal().Err(err).Msg("command failed")
	}
}
