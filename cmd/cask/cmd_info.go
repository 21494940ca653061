package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/cask/pkg/cask"
	"github.com/odvcencio/cask/pkg/native"
)

// archiveStats summarizes one full walk.
type archiveStats struct {
	objects  int
	animated int
	kinds    map[cask.Kind]int
}

func collectStats(a *cask.Archive) (archiveStats, error) {
	st := archiveStats{kinds: make(map[cask.Kind]int)}
	err := a.Walk(func(o *cask.Object) error {
		if o.Kind() == cask.KindTop {
			return nil
		}
		st.objects++
		st.kinds[o.Kind()]++
		animated, err := o.IsAnimated()
		if err != nil {
			return err
		}
		if animated {
			st.animated++
		}
		return nil
	})
	return st, err
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <archive>",
		Short: "Summarize frame rate, time samplings and contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commandConfig(cmd)
			if err != nil {
				return err
			}
			a, err := openArchive(cmd, cfg, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := collectStats(a)
			if err != nil {
				return err
			}
			start, end := a.TimeRange()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:       %s\n", a.Path())
			fmt.Fprintf(out, "fps:        %g\n", a.FPS())
			fmt.Fprintf(out, "time range: %g - %g\n", start, end)
			fmt.Fprintf(out, "frames:     %d - %d\n", a.StartFrame(), a.EndFrame())
			fmt.Fprintf(out, "objects:    %d\n", st.objects)
			fmt.Fprintf(out, "animated:   %d\n", st.animated)
			fmt.Fprintln(out, "samplings:")
			for i, ts := range a.TimeSamplings() {
				if i == native.IdentityIndex {
					fmt.Fprintf(out, "  %d  identity\n", i)
					continue
				}
				fmt.Fprintf(out, "  %d  %s\n", i, ts)
			}
			fmt.Fprintln(out, "kinds:")
			for k := cask.KindObject; k <= cask.KindPoints; k++ {
				if n := st.kinds[k]; n > 0 {
					fmt.Fprintf(out, "  %-10s %d\n", k, n)
				}
			}
			return nil
		},
	}
}
