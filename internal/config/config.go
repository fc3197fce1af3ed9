package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/freqkflag/agentrunner/internal/branding"
	"github.com/freqkflag/agentrunner/internal/logging"
	"github.com/freqkflag/agentrunner/internal/registry"
	"github.com/freqkflag/agentrunner/internal/runtime"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys understood in the config file, as AGENTRUNNER_<KEY> environment
// variables and as persistent flags.
const (
	KeyRepoRoot = "repo_root"
	KeyRegistry = "registry"
	KeyLogLevel = "log_level"
)

// flagNames maps config keys to the persistent flags that override them.
var flagNames = map[string]string{
	KeyRepoRoot: "repo-root",
	KeyRegistry: "registry",
	KeyLogLevel: "log-level",
}

// Keys returns the supported config keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(flagNames))
	for k := range flagNames {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dir returns the path to the config directory (~/.agentrunner/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.agentrunner/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()
	viper.SetDefault(KeyLogLevel, logging.DefaultLevel)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// BindFlags makes the persistent flags in fs take precedence over the
// environment and the config file.
func BindFlags(fs *pflag.FlagSet) error {
	for key, name := range flagNames {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set validates key, writes the key-value pair and saves the config file.
func Set(key, value string) error {
	if _, ok := flagNames[key]; !ok {
		return fmt.Errorf("unknown config key %q (supported: %s)", key, strings.Join(Keys(), ", "))
	}
	if key == KeyLogLevel {
		if _, err := logging.ParseLevel(value); err != nil {
			return err
		}
	}

	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// RepoRoot returns the configured repository root, or discovers one from
// the working directory.
func RepoRoot(ctx context.Context) (string, error) {
	if v := viper.GetString(KeyRepoRoot); v != "" {
		abs, err := filepath.Abs(v)
		if err != nil {
			return "", fmt.Errorf("resolving repo root %s: %w", v, err)
		}
		return abs, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return Discover(ctx, wd, runtime.OSExecutor{}), nil
}

// Discover walks up from start to the first directory containing a registry
// document. Failing that it asks git for the work tree root, and finally
// returns start itself.
func Discover(ctx context.Context, start string, exec runtime.Executor) string {
	for dir := start; ; {
		if _, err := registry.Locate(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	var stdout bytes.Buffer
	out, err := exec.Run(ctx, &runtime.Command{
		Path:   "git",
		Args:   []string{"rev-parse", "--show-toplevel"},
		Dir:    start,
		Stdout: &stdout,
		Stderr: io.Discard,
	})
	if err == nil && out.ExitCode == 0 {
		if top := strings.TrimSpace(out.Stdout); top != "" {
			return filepath.FromSlash(top)
		}
	}
	return start
}

// RegistryPath returns the configured registry document, resolved against
// the working directory, or the default location under repoRoot.
func RegistryPath(repoRoot string) (string, error) {
	if v := viper.GetString(KeyRegistry); v != "" {
		abs, err := filepath.Abs(v)
		if err != nil {
			return "", fmt.Errorf("resolving registry path %s: %w", v, err)
		}
		return abs, nil
	}
	return registry.Locate(repoRoot)
}

// LogLevel returns the configured log level.
func LogLevel() string {
	return viper.GetString(KeyLogLevel)
}
