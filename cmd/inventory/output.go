package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// render writes v in the --output format. rows is only called for table output.
func (c *cli) render(v any, headers []string, rows func() [][]string) error {
	format, _ := c.flags.GetString("output")
	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.Wrapf(err, "encode json")
		}
		_, err = fmt.Fprintln(c.out, string(data))
		return err
	case outputYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, "encode yaml")
		}
		_, err = c.out.Write(data)
		return err
	case outputTable, "":
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
		for _, row := range rows() {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	default:
		return &errors.ValidationError{Field: "output", Message: fmt.Sprintf("unknown format %q", format)}
	}
}

// renderData renders a free-form document. Tables show one row per top-level key.
func (c *cli) renderData(data map[string]any) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return c.render(data, []string{"KEY", "VALUE"}, func() [][]string {
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			encoded, err := json.Marshal(data[k])
			if err != nil {
				encoded = []byte(fmt.Sprint(data[k]))
			}
			rows = append(rows, []string{k, string(encoded)})
		}
		return rows
	})
}
