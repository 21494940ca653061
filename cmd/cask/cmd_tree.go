package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/odvcencio/cask/pkg/cask"
)

var kindColors = map[cask.Kind]color.Attribute{
	cask.KindXform:    color.FgBlue,
	cask.KindPolyMesh: color.FgGreen,
	cask.KindSubD:     color.FgGreen,
	cask.KindPoints:   color.FgGreen,
	cask.KindCurve:    color.FgGreen,
	cask.KindNuPatch:  color.FgGreen,
	cask.KindFaceSet:  color.FgCyan,
	cask.KindCamera:   color.FgMagenta,
	cask.KindLight:    color.FgYellow,
	cask.KindMaterial: color.FgRed,
}

// useColor resolves a color mode against the output stream.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok || color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type painter bool

func (p painter) paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	if p {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (p painter) kind(k cask.Kind) string {
	attr, ok := kindColors[k]
	if !ok {
		return k.String()
	}
	return p.paint(attr, k.String())
}

func newTreeCmd() *cobra.Command {
	var colorMode string
	var depth int

	cmd := &cobra.Command{
		Use:   "tree <archive> [path]",
		Short: "Print the object hierarchy",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commandConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("color") {
				cfg.Color = colorMode
			}
			a, err := openArchive(cmd, cfg, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			path := "/"
			if len(args) == 2 {
				path = args[1]
			}
			root, err := a.Find(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			p := painter(useColor(cfg.Color, out))
			return printTree(out, p, root, 0, depth)
		},
	}
	cmd.Flags().StringVar(&colorMode, "color", "auto", "colorize kinds: auto, always or never")
	cmd.Flags().IntVar(&depth, "depth", 0, "limit the printed depth (0 for no limit)")
	return cmd
}

func printTree(w io.Writer, p painter, o *cask.Object, level, depth int) error {
	fmt.Fprintf(w, "%s%s [%s]\n", strings.Repeat("  ", level), o.Name(), p.kind(o.Kind()))
	if depth > 0 && level+1 >= depth {
		return nil
	}
	kids, err := o.Children()
	if err != nil {
		return err
	}
	for _, c := range kids.Values() {
		if err := printTree(w, p, c, level+1, depth); err != nil {
			return err
		}
	}
	return nil
}
