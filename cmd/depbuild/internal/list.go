package internal

import (
	"fmt"
	"text/tabwriter"

	"github.com/goplus/depbuild/internal/build"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known libraries and their install state",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	table, err := libraryTable()
	if err != nil {
		return err
	}
	tc, err := newToolchain()
	if err != nil {
		return err
	}
	builder, err := build.NewBuilder(build.Options{Toolchain: tc})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tKIND\tSTATUS")
	for _, lib := range table.Libs() {
		st, err := builder.Status(lib)
		if err != nil {
			return err
		}
		status := "-"
		switch {
		case st.Installed && !st.BuildTime.IsZero():
			status = "installed " + st.BuildTime.Local().Format("2006-01-02 15:04")
		case st.Installed:
			status = "installed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", lib.Name, lib.Version, lib.Kind, status)
	}
	return w.Flush()
}
