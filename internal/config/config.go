// Package config loads gitviz settings from defaults, a YAML file, GITVIZ_
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/thiagokokada/gitviz-go/internal/git"
	"github.com/thiagokokada/gitviz-go/internal/goal"
	"github.com/thiagokokada/gitviz-go/internal/graph"
	"github.com/thiagokokada/gitviz-go/internal/provider"
	"github.com/thiagokokada/gitviz-go/internal/server"
)

const (
	FileName  = ".gitviz.yaml"
	EnvPrefix = "GITVIZ_"

	CompletionPositional = "positional"
	CompletionMultiset   = "multiset"
)

type Config struct {
	Addr       string        `koanf:"addr"`
	Interval   time.Duration `koanf:"interval"`
	GoalDir    string        `koanf:"goal_dir"`
	Goal       bool          `koanf:"goal"`
	Backend    string        `koanf:"backend"`
	Watch      bool          `koanf:"watch"`
	Completion string        `koanf:"completion"`
	Verbose    bool          `koanf:"verbose"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

func defaults() map[string]any {
	return map[string]any{
		"addr":       server.DefaultAddr,
		"interval":   provider.DefaultInterval.String(),
		"goal_dir":   goal.DefaultDir,
		"goal":       true,
		"backend":    string(git.BackendNative),
		"watch":      true,
		"completion": CompletionPositional,
		"verbose":    false,
	}
}

// Load reads the configuration. explicit names a config file that must
// exist; otherwise FileName in workspace is used when present. Only flags
// that were set on the command line override other sources.
func Load(explicit, workspace string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	cfgFile := explicit
	if cfgFile == "" && workspace != "" {
		candidate := filepath.Join(workspace, FileName)
		if _, err := os.Stat(candidate); err == nil {
			cfgFile = candidate
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// GITVIZ_GOAL_DIR -> goal_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" || f.Name == "output" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = cfgFile
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if c.GoalDir == "" || c.GoalDir == ".git" || strings.ContainsRune(c.GoalDir, filepath.Separator) {
		errs = append(errs, fmt.Errorf("goal_dir must be a directory name next to .git, got %q", c.GoalDir))
	}
	if _, err := git.OpenerFor(git.BackendKind(c.Backend)); err != nil || c.Backend == "" {
		errs = append(errs, fmt.Errorf("backend must be %q or %q, got %q", git.BackendNative, git.BackendCLI, c.Backend))
	}
	if _, err := evaluator(c.Completion); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Evaluator returns the completion check selected by the completion key.
func (c *Config) Evaluator() graph.Evaluator {
	eval, err := evaluator(c.Completion)
	if err != nil {
		return graph.IsComplete
	}
	return eval
}

func evaluator(name string) (graph.Evaluator, error) {
	switch name {
	case CompletionPositional:
		return graph.IsComplete, nil
	case CompletionMultiset:
		return graph.IsCompleteMultiset, nil
	}
	return nil, fmt.Errorf("completion must be %q or %q, got %q", CompletionPositional, CompletionMultiset, name)
}

// Reader returns a repository reader for the configured backend.
func (c *Config) Reader() (*git.Reader, error) {
	open, err := git.OpenerFor(git.BackendKind(c.Backend))
	if err != nil {
		return nil, err
	}
	return git.NewReader(open), nil
}
