// Package config loads depbuild settings from depbuild.yaml, DEPBUILD_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/goplus/depbuild/internal/env"
	"github.com/goplus/depbuild/internal/toolchain"
	"github.com/goplus/depbuild/pkgs/buildsys"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.trai.ch/zerr"
)

const (
	// FileName is the config file name looked up without extension.
	FileName  = "depbuild"
	EnvPrefix = "DEPBUILD"
)

// Config is the resolved depbuild configuration.
type Config struct {
	WorkDir  string `mapstructure:"work_dir"`
	Prefix   string `mapstructure:"prefix"`
	Jobs     int    `mapstructure:"jobs"`
	Host     string `mapstructure:"host"`
	CC       string `mapstructure:"cc"`
	CXX      string `mapstructure:"cxx"`
	CFLAGS   string `mapstructure:"cflags"`
	CPPFLAGS string `mapstructure:"cppflags"`
	LDFLAGS  string `mapstructure:"ldflags"`
	// LibsFile is a YAML file of extra or replacement descriptors.
	LibsFile string `mapstructure:"libs_file"`
	Progress bool   `mapstructure:"progress"`
	Verbose  bool   `mapstructure:"verbose"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

var keys = []string{
	"work_dir", "prefix", "jobs", "host",
	"cc", "cxx", "cflags", "cppflags", "ldflags",
	"libs_file", "progress", "verbose",
}

// Load reads the configuration. file names an explicit config file; when
// empty, depbuild.yaml is looked up in the working directory and then in
// ~/.config/depbuild. flags, if non-nil, are bound by key with dashes in
// place of underscores (work-dir binds work_dir).
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, key := range keys {
		switch key {
		case "jobs":
			v.SetDefault(key, buildsys.DefaultJobs)
		case "progress", "verbose":
			v.SetDefault(key, false)
		default:
			v.SetDefault(key, "")
		}
	}

	if flags != nil {
		for _, key := range keys {
			if f := flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := env.ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, zerr.With(zerr.Wrap(err, "read config"), "file", file)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, zerr.Wrap(err, "decode config")
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve fills defaults that depend on other settings and expands paths.
func (c *Config) resolve() error {
	var err error
	if c.WorkDir == "" {
		if c.WorkDir, err = env.WorkDir(); err != nil {
			return zerr.Wrap(err, "locate work dir")
		}
	}
	if c.WorkDir, err = env.ExpandPath(c.WorkDir); err != nil {
		return err
	}
	if c.Prefix == "" {
		c.Prefix = filepath.Join(c.WorkDir, "root")
	}
	if c.Prefix, err = env.ExpandPath(c.Prefix); err != nil {
		return err
	}
	if c.LibsFile, err = env.ExpandPath(c.LibsFile); err != nil {
		return err
	}
	if c.Jobs <= 0 {
		c.Jobs = buildsys.DefaultJobs
	}
	return nil
}

// ToolchainOptions returns the toolchain settings of c.
func (c *Config) ToolchainOptions() toolchain.Options {
	return toolchain.Options{
		InstallPrefix: c.Prefix,
		WorkDir:       c.WorkDir,
		Host:          c.Host,
		CC:            c.CC,
		CXX:           c.CXX,
		CFLAGS:        c.CFLAGS,
		CPPFLAGS:      c.CPPFLAGS,
		LDFLAGS:       c.LDFLAGS,
		Jobs:          c.Jobs,
	}
}
