package buildsys

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"go.trai.ch/zerr"
)

// ErrCommandFailed is returned (wrapped) when an external tool exits non-zero.
var ErrCommandFailed = errors.New("command failed")

// Command describes one external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// String returns the command line as a shell would show it.
func (c *Command) String() string {
	parts := make([]string, 0, 1+len(c.Args))
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Runner runs external commands.
//
//go:generate go run go.uber.org/mock/mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type Runner interface {
	// Run executes cmd and waits for it to finish. A non-zero exit is an error.
	Run(ctx context.Context, cmd *Command) error
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	Log    logrus.FieldLogger
}

var _ Runner = (*ExecRunner)(nil)

// NewExecRunner returns a runner streaming tool output to os.Stdout/os.Stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Log:    logrus.StandardLogger(),
	}
}

func (r *ExecRunner) Run(ctx context.Context, c *Command) error {
	if r.Log != nil {
		r.Log.WithField("dir", c.Dir).Debug(c.String())
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		err = zerr.Wrap(errors.Join(ErrCommandFailed, err), c.Name)
		return zerr.With(zerr.With(err, "exit_code", exitCode), "cmd", c.String())
	}
	return nil
}

// MergeEnv returns base with every key in override replaced or appended.
// The result is sorted by key.
func MergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// LookupEnv returns the value of key in env, a "KEY=VALUE" list.
func LookupEnv(env []string, key string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(env[i], "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}
