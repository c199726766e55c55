package internal

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cleanAll bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove unpacked sources and build trees",
	Long:  `Clean removes the src and build work directories. Downloaded tarballs are kept unless --all is given. The install prefix is never touched.`,
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "also remove downloaded tarballs")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, _ []string) error {
	tc, err := newToolchain()
	if err != nil {
		return err
	}
	dirs := []string{tc.SrcPath, tc.BuildPath}
	if cleanAll {
		dirs = append(dirs, tc.TarballPath)
	}
	for _, dir := range dirs {
		logrus.WithField("dir", dir).Debug("removing")
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}
