package internal

import (
	"fmt"

	"github.com/goplus/depbuild/internal/build"
	"github.com/goplus/depbuild/internal/fetch"
	"github.com/spf13/cobra"
)

var buildForce bool

var buildCmd = &cobra.Command{
	Use:   "build [lib...]",
	Short: "Build libraries into the install prefix",
	Long: `Build fetches, unpacks, configures, compiles and installs the named
libraries in table order, or all of them when none are named. Libraries
whose install marker is newer than their tarball are skipped.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVarP(&buildForce, "force", "f", false, "rebuild libraries that are already installed")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
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

	builder, err := build.NewBuilder(build.Options{
		Toolchain: tc,
		Fetcher:   fetcher,
		Force:     buildForce,
	})
	if err != nil {
		return err
	}
	results, err := builder.Build(cmd.Context(), libs)
	for _, r := range results {
		state := "built"
		if r.Skipped {
			state = "up to date"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-12s %s\n", r.Lib.Name, r.Lib.Version, state)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "installed into %s\n", tc.InstallPrefix)
	return nil
}
