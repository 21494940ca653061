package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

// dumpText renders the full YAML dump of the archive at path.
func dumpText(cmd *cobra.Command, cfg Config, path string, values bool) (string, error) {
	a, err := openArchive(cmd, cfg, path)
	if err != nil {
		return "", err
	}
	defer a.Close()

	objects, err := dumpArchive(a, "/", values)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := encodeDump(&buf, "yaml", objects); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// lineDiff writes the changed lines between from and to, prefixed with
// "-" and "+". It reports whether anything differed.
func lineDiff(w io.Writer, p painter, from, to string) bool {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	changed := false
	for _, d := range diffs {
		var prefix string
		var attr color.Attribute
		switch d.Type {
		case diffpatch.DiffDelete:
			prefix, attr = "-", color.FgRed
		case diffpatch.DiffInsert:
			prefix, attr = "+", color.FgGreen
		default:
			continue
		}
		changed = true
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprint(w, p.paint(attr, prefix+strings.TrimSuffix(line, "\n")), "\n")
		}
	}
	return changed
}

func newDiffCmd() *cobra.Command {
	var values bool
	var colorMode string

	cmd := &cobra.Command{
		Use:   "diff <a> <b>",
		Short: "Show the lines that differ between two archive dumps",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commandConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("color") {
				cfg.Color = colorMode
			}
			from, err := dumpText(cmd, cfg, args[0], values)
			if err != nil {
				return err
			}
			to, err := dumpText(cmd, cfg, args[1], values)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !lineDiff(out, painter(useColor(cfg.Color, out)), from, to) {
				fmt.Fprintln(out, "archives match")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&values, "values", true, "compare sample values")
	cmd.Flags().StringVar(&colorMode, "color", "auto", "colorize output: auto, always or never")
	return cmd
}
