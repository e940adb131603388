// Command tzinfo prints compiled zone artifacts, zone info maps and rule expansions.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ngrash/go-zoneinfo/internal/tzexpand"
	"github.com/ngrash/go-zoneinfo/internal/unixtime"
	"github.com/ngrash/go-zoneinfo/tzdata"
	"github.com/ngrash/go-zoneinfo/zoneinfo"
)

const timeFormat = "2006-01-02T15:04:05.000Z"

func main() {
	cobra.CheckErr(NewCmd().ExecuteContext(context.Background()))
}

func NewCmd() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "tzinfo [command] [flags] [args]",
		Short:         "tzinfo prints compiled zones and rule expansions",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}
	rootCmd.PersistentFlags().String("style", "default", "table `<style>`: default, light, round or double")

	showCmd := &cobra.Command{
		Use:   "show [flags] <artifact>",
		Short: "Print the transitions and tail of a compiled zone",
		Args:  cobra.ExactArgs(1),
		RunE:  doShow,
	}

	atCmd := &cobra.Command{
		Use:   "at [flags] <artifact> <RFC 3339 time>",
		Short: "Print the regime at an instant and its neighboring transitions",
		Args:  cobra.ExactArgs(2),
		RunE:  doAt,
	}

	mapCmd := &cobra.Command{
		Use:   "map [flags] <ZoneInfoMap>",
		Short: "Print the ids and aliases of a zone info map",
		Args:  cobra.ExactArgs(1),
		RunE:  doMap,
	}

	rulesCmd := &cobra.Command{
		Use:   "rules [flags] <tzdata file> <rule name> <from year> <to year>",
		Short: "Print the transitions a set of rules produces in a range of years",
		Args:  cobra.ExactArgs(4),
		RunE:  doRules,
	}
	rulesCmd.Flags().Duration("std", 0, "standard `<offset>` of the zone line")
	rulesCmd.Flags().String("format", "%s", "`<format>` of the zone line")

	rootCmd.AddCommand(
		showCmd,
		atCmd,
		mapCmd,
		rulesCmd,
	)
	return rootCmd
}

func readZone(path string) (*zoneinfo.Zone, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	z, err := zoneinfo.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return z, nil
}

func newTable(cmd *cobra.Command, out io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)

	style := table.StyleDefault
	name, _ := cmd.Flags().GetString("style")
	switch name {
	case "light":
		style = table.StyleLight
	case "round":
		style = table.StyleRounded
	case "double":
		style = table.StyleDouble
	}
	tw.SetStyle(style)
	return tw
}

func formatInstant(ms int64) string {
	switch ms {
	case math.MinInt64:
		return "-inf"
	case math.MaxInt64:
		return "+inf"
	}
	return time.UnixMilli(ms).UTC().Format(timeFormat)
}

func formatType(t zoneinfo.Type) table.Row {
	return table.Row{t.Name, t.Offset, t.Std, t.Save()}
}

func doShow(cmd *cobra.Command, args []string) error {
	z, err := readZone(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Zone", z.ID)
	if z.IsFixed() {
		fmt.Fprintln(out, "  fixed offset")
	}

	tw := newTable(cmd, out)
	tw.AppendHeader(table.Row{"#", "At (UTC)", "Name", "Offset", "Std", "Save"})
	tw.AppendRow(append(table.Row{"", "initial"}, formatType(z.Initial)...))
	for i, t := range z.Transitions {
		tw.AppendRow(append(table.Row{i + 1, formatInstant(t.At)}, formatType(t.Type)...))
	}
	tw.Render()

	if z.Tail != nil {
		fmt.Fprintln(out, "Tail")
		tw := newTable(cmd, out)
		tw.AppendHeader(table.Row{"", "Name", "Save", "Month", "Day", "Time"})
		for _, r := range []struct {
			label string
			rec   zoneinfo.Recurrence
		}{{"start", z.Tail.Start}, {"end", z.Tail.End}} {
			d := r.rec.Date
			tw.AppendRow(table.Row{r.label, r.rec.Name, r.rec.Save, d.Month, formatDay(d.Day), fmt.Sprintf("%v %v", d.Time.Duration, d.Time.Form)})
		}
		tw.AppendFooter(table.Row{"std", z.Tail.Std})
		tw.Render()
	}
	return nil
}

func formatDay(d tzdata.Day) string {
	switch d.Form {
	case tzdata.DayFormLast:
		return "last" + d.Day.String()[:3]
	case tzdata.DayFormAfter:
		return d.Day.String()[:3] + ">=" + strconv.Itoa(d.Num)
	case tzdata.DayFormBefore:
		return d.Day.String()[:3] + "<=" + strconv.Itoa(d.Num)
	}
	return strconv.Itoa(d.Num)
}

func doAt(cmd *cobra.Command, args []string) error {
	z, err := readZone(args[0])
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, args[1])
	if err != nil {
		return err
	}
	at := t.UnixMilli()

	tw := newTable(cmd, cmd.OutOrStdout())
	tw.AppendHeader(table.Row{"Zone", "Instant", "Name", "Offset", "Std", "Save", "Previous", "Next"})
	row := append(table.Row{z.ID, formatInstant(at)}, formatType(z.Regime(at))...)
	tw.AppendRow(append(row, formatInstant(z.PreviousTransition(at)), formatInstant(z.NextTransition(at))))
	tw.Render()
	return nil
}

func doMap(cmd *cobra.Command, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	m, err := zoneinfo.DecodeMap(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}
	tw := newTable(cmd, cmd.OutOrStdout())
	tw.AppendHeader(table.Row{"Id", "Zone"})
	for _, id := range m.IDs() {
		target, _ := m.Lookup(id)
		if target == id {
			target = ""
		}
		tw.AppendRow(table.Row{id, target})
	}
	tw.AppendFooter(table.Row{"pool", len(m.Pool)})
	tw.Render()
	return nil
}

func doRules(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := tzdata.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	set, ok := tzexpand.Group(data.RuleLines)[args[1]]
	if !ok {
		return fmt.Errorf("no rules named %q in %s", args[1], args[0])
	}
	from, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("from year: %w", err)
	}
	to, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("to year: %w", err)
	}
	std, _ := cmd.Flags().GetDuration("std")
	format, _ := cmd.Flags().GetString("format")

	e := set.Expand(std, format, tzexpand.Options{})
	tw := newTable(cmd, cmd.OutOrStdout())
	tw.AppendHeader(table.Row{"At (UTC)", "Name", "Offset", "Save"})
	for _, t := range e.Materialize(unixtime.StartOfYear(from), unixtime.StartOfYear(to+1)) {
		tw.AppendRow(table.Row{formatInstant(t.At), t.Name, t.Offset, t.Save()})
	}
	tw.Render()
	return nil
}
