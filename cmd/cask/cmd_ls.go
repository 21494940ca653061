package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <archive> [path]",
		Short: "List the children of an object",
		Args:  cobra.RangeArgs(1, 2),
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

			path := "/"
			if len(args) == 2 {
				path = args[1]
			}
			o, err := a.Find(path)
			if err != nil {
				return err
			}
			kids, err := o.Children()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range kids.Values() {
				fmt.Fprintf(out, "%s\t%s\n", c.Name(), c.Type())
			}
			return nil
		},
	}
}
