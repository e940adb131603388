// Command tzdiff compares two compiled zone artifacts or two zone info maps.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/cobra"

	"github.com/ngrash/go-zoneinfo/zoneinfo"
)

func main() {
	cobra.CheckErr(NewCmd().ExecuteContext(context.Background()))
}

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tzdiff [flags] <file A> <file B>",
		Short:         "tzdiff compares two compiled zones or, with --map, two zone info maps",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().Bool("map", false, "compare zone info maps instead of zones")
	return cmd
}

func decode(path string, isMap bool) (any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v any
	if isMap {
		v, err = zoneinfo.DecodeMap(bytes.NewReader(b))
	} else {
		v, err = zoneinfo.Decode(bytes.NewReader(b))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, nil
}

func run(cmd *cobra.Command, args []string) error {
	isMap, _ := cmd.Flags().GetBool("map")

	a, err := decode(args[0], isMap)
	if err != nil {
		return err
	}
	b, err := decode(args[1], isMap)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if diff := cmp.Diff(a, b, cmpopts.IgnoreUnexported(zoneinfo.Map{})); diff != "" {
		fmt.Fprintln(out, "files are different: -A +B")
		fmt.Fprintln(out, diff)
	} else {
		fmt.Fprintln(out, "files are identical")
	}
	return nil
}
