package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRetimeCmd() *cobra.Command {
	var startFrame int
	var fps float64
	var strict bool

	cmd := &cobra.Command{
		Use:   "retime <in> <out>",
		Short: "Rewrite an archive so its animation starts at a given frame",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commandConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strict") {
				cfg.StrictSave = strict
			}
			if cmd.Flags().Changed("fps") {
				cfg.FPS = fps
				if err := cfg.validate(); err != nil {
					return err
				}
			}
			a, err := openArchive(cmd, cfg, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			from := a.StartFrame()
			a.SetStartFrame(startFrame)
			if err := a.WriteToFile(args[1]); err != nil {
				return err
			}
			for _, e := range a.SaveErrors() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: start frame %d -> %d\n", args[1], from, startFrame)
			return nil
		},
	}
	cmd.Flags().IntVar(&startFrame, "start-frame", 0, "new first frame")
	cmd.Flags().Float64Var(&fps, "fps", 0, "frame rate (overrides the config)")
	cmd.Flags().BoolVar(&strict, "strict", false, "abort on the first save failure")
	cmd.MarkFlagRequired("start-frame")
	return cmd
}
