package internal

import (
	"fmt"

	"github.com/goplus/depbuild/internal/fetch"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [lib...]",
	Short: "Download and verify library tarballs",
	Long:  `Fetch downloads the tarballs of the named libraries (or all) and verifies their checksums without building anything.`,
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	libs, err := selectLibs(args)
	if err != nil {
		return err
	}
	tc, err := newToolchain()
	if err != nil {
		return err
	}
	fetcher := fetch.New(tc.TarballPath)
	fetcher.Progress = cfg.Progress

	srcs := make([]fetch.Source, len(libs))
	for i, lib := range libs {
		srcs[i] = fetch.Source{URL: lib.URL, Checksum: lib.Checksum}
	}
	paths, err := fetcher.FetchAll(cmd.Context(), srcs)
	if err != nil {
		return err
	}
	for i, p := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", libs[i].Name, p)
	}
	return nil
}
