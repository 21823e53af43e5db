package main

import (
	"fmt"
	"strings"

	"github.com/dgallion1/payrecon/internal/schema"
	"github.com/spf13/cobra"
)

func newFieldsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the canonical fields and their patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmp, _, err := root.comparer()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, f := range cmp.Engine().Schema().Fields() {
				mark := " "
				if f.Blocking {
					mark = blockingMark.Sprint("*")
				}
				fmt.Fprintf(w, "%s %s %s (%s)\n", mark, titleColor.Sprint(padRight(f.Name, 24)), f.Label, f.Type)
				if f.IsLeave() {
					fmt.Fprintf(w, "    bloc congés %s, %s\n", f.Leave.Period, f.Leave.Item)
					continue
				}
				for _, src := range schema.Sources {
					if patterns := f.Sources[src]; len(patterns) > 0 {
						fmt.Fprintf(w, "    %s: %s\n", src, strings.Join(patterns, " | "))
					}
				}
			}
			return nil
		},
	}
}
