package internal

import (
	"context"
	"os"
	"os/signal"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/project"
	"github.com/goplus/depbuild/internal/toolchain"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "depbuild",
	Short: "depbuild builds third-party C/C++ libraries into one prefix",
	Long: `depbuild downloads, verifies and builds a fixed set of third-party
C/C++ libraries (autotools, CMake and a few special cases) into a single
install prefix, skipping the ones already installed.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./depbuild.yaml or ~/.config/depbuild/depbuild.yaml)")
	flags.String("prefix", "", "install prefix (default: <work-dir>/root)")
	flags.String("work-dir", "", "directory for tarballs, sources and build trees")
	flags.IntP("jobs", "j", 0, "parallel make jobs (default 12)")
	flags.String("host", "", "configure triplet to cross-compile for")
	flags.String("libs-file", "", "YAML file with extra or replacement library descriptors")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.Bool("progress", false, "show a spinner while downloading")
}

func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg = c

	logrus.SetOutput(cmd.ErrOrStderr())
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if cfg.File != "" {
		logrus.WithField("file", cfg.File).Debug("loaded config")
	}
	return nil
}

// libraryTable returns the built-in table with the configured libs file
// merged in.
func libraryTable() (*project.Table, error) {
	table := project.Default()
	if cfg.LibsFile == "" {
		return table, nil
	}
	extra, err := project.LoadFile(cfg.LibsFile)
	if err != nil {
		return nil, err
	}
	table.Merge(extra...)
	return table, nil
}

func selectLibs(names []string) ([]*project.Descriptor, error) {
	table, err := libraryTable()
	if err != nil {
		return nil, err
	}
	return table.Select(names...)
}

func newToolchain() (*toolchain.Toolchain, error) {
	return toolchain.New(cfg.ToolchainOptions())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.Fatal(err)
	}
}
