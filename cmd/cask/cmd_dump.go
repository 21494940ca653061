package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/odvcencio/cask/pkg/cask"
)

type dumpObject struct {
	Path       string            `yaml:"path" json:"path"`
	Type       string            `yaml:"type" json:"type"`
	MetaData   map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Properties []dumpProperty    `yaml:"properties,omitempty" json:"properties,omitempty"`
}

type dumpProperty struct {
	Name       string         `yaml:"name" json:"name"`
	Class      string         `yaml:"class,omitempty" json:"class,omitempty"`
	Sampling   int            `yaml:"sampling,omitempty" json:"sampling,omitempty"`
	Samples    int            `yaml:"samples,omitempty" json:"samples,omitempty"`
	Values     []any          `yaml:"values,omitempty" json:"values,omitempty"`
	Properties []dumpProperty `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// dumpArchive flattens the subtree at path into objects in walk order.
func dumpArchive(a *cask.Archive, path string, values bool) ([]dumpObject, error) {
	root, err := a.Find(path)
	if err != nil {
		return nil, err
	}
	var objects []dumpObject
	err = dumpWalk(root, func(o *cask.Object) error {
		props, err := o.Properties()
		if err != nil {
			return err
		}
		d := dumpObject{Path: o.Path(), Type: o.Type(), MetaData: o.MetaData()}
		for _, p := range props.Values() {
			dp, err := dumpProp(p, values)
			if err != nil {
				return err
			}
			d.Properties = append(d.Properties, dp)
		}
		objects = append(objects, d)
		return nil
	})
	return objects, err
}

func dumpWalk(o *cask.Object, fn func(*cask.Object) error) error {
	if err := fn(o); err != nil {
		return err
	}
	kids, err := o.Children()
	if err != nil {
		return err
	}
	for _, c := range kids.Values() {
		if err := dumpWalk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

func dumpProp(p *cask.Property, values bool) (dumpProperty, error) {
	d := dumpProperty{Name: p.Name()}
	if p.IsCompound() {
		subs, err := p.Properties()
		if err != nil {
			return d, err
		}
		for _, sub := range subs.Values() {
			ds, err := dumpProp(sub, values)
			if err != nil {
				return d, err
			}
			d.Properties = append(d.Properties, ds)
		}
		return d, nil
	}
	class, err := p.Class()
	if err != nil && !errors.Is(err, cask.ErrUnknownPropertyType) {
		return d, err
	}
	if class != nil {
		d.Class = class.Name
	}
	d.Sampling = p.TimeSamplingIndex()
	d.Samples = p.NumSamples()
	if !values || class == nil {
		return d, nil
	}
	vals, err := p.Values()
	if err != nil {
		return d, err
	}
	for _, v := range vals {
		if se, ok := v.(*cask.SampleError); ok {
			v = se.String()
		}
		d.Values = append(d.Values, v)
	}
	return d, nil
}

func encodeDump(w io.Writer, format string, objects []dumpObject) error {
	switch format {
	case "yaml":
		data, err := yaml.Marshal(objects)
		if err != nil {
			return fmt.Errorf("dump: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(objects)
	default:
		return fmt.Errorf("dump: unknown format %q (want yaml or json)", format)
	}
}

func newDumpCmd() *cobra.Command {
	var format string
	var values bool

	cmd := &cobra.Command{
		Use:   "dump <archive> [path]",
		Short: "Print objects and their properties",
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
			objects, err := dumpArchive(a, path, values)
			if err != nil {
				return err
			}
			return encodeDump(cmd.OutOrStdout(), format, objects)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	cmd.Flags().BoolVar(&values, "values", false, "include sample values")
	return cmd
}
