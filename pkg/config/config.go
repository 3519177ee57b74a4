// Package config loads and validates the changegate configuration. The
// code-path pattern list lives here exactly once: every consumer (the
// evaluate, run, and serve commands) goes through Load, so there are no
// duplicated pattern lists to drift out of sync.
package config

import (
	"os"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/changegate/pkg/gate"
)

// Config is the top-level changegate configuration.
type Config struct {
	Gate    GateConfig    `mapstructure:"gate" yaml:"gate"`
	GitHub  GitHubConfig  `mapstructure:"github" yaml:"github"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

// GateConfig describes what counts as code, which branches the gate
// applies to, and what happens downstream of the decision.
type GateConfig struct {
	// CodePaths is the authoritative list of glob patterns identifying
	// code locations. `*` matches within a path segment, `**` across
	// segments.
	CodePaths []string `mapstructure:"code_paths" yaml:"code_paths"`
	// Branches optionally scopes the gate to base branches. Empty means
	// every branch. Single-segment glob syntax (e.g. "v1.*").
	Branches []string `mapstructure:"branches" yaml:"branches"`
	// Checks are the check names reported as successful when no code
	// changed. They must match the branch-protection check names exactly.
	Checks []string `mapstructure:"checks" yaml:"checks"`
	// Workflow is the workflow file dispatched when code did change.
	Workflow string `mapstructure:"workflow" yaml:"workflow"`
}

// GitHubConfig holds credentials and repository coordinates for the
// check-reporting and workflow-dispatch collaborators.
type GitHubConfig struct {
	Token string `mapstructure:"token" yaml:"token,omitempty"`
	Owner string `mapstructure:"owner" yaml:"owner"`
	Repo  string `mapstructure:"repo" yaml:"repo"`
}

// HistoryConfig configures the local decision-history store.
type HistoryConfig struct {
	// Path to the sqlite database. Empty selects the default under
	// ~/.changegate.
	Path string `mapstructure:"path" yaml:"path,omitempty"`
	// Disabled turns off history recording entirely.
	Disabled bool `mapstructure:"disabled" yaml:"disabled,omitempty"`
}

// DefaultCodePaths is the starter pattern list written by `changegate
// config init`. Projects are expected to replace it with their own.
var DefaultCodePaths = []string{
	"src/**",
	"test/**",
	"go.mod",
	"go.sum",
}

// Load reads the configuration from viper (config file, environment, and
// bound flags) and validates it. Malformed glob patterns fail here, fast,
// before any evaluation happens.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for load-time errors: empty or
// malformed code-path globs and malformed branch globs. All problems are
// aggregated so a broken config surfaces every issue at once.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if _, err := gate.Compile(c.Gate.CodePaths); err != nil {
		errs = multierror.Append(errs, errors.Wrap(err, "gate.code_paths"))
	}

	for _, b := range c.Gate.Branches {
		if _, err := glob.Compile(b); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "gate.branches: invalid pattern %q", b))
		}
	}

	for _, check := range c.Gate.Checks {
		if strings.TrimSpace(check) == "" {
			errs = multierror.Append(errs, errors.New("gate.checks: empty check name"))
		}
	}

	return errs.ErrorOrNil()
}

// PatternSet compiles the code-path patterns. Call only after Validate
// has passed; Compile cannot fail on a validated config.
func (c *Config) PatternSet() (*gate.PatternSet, error) {
	return gate.Compile(c.Gate.CodePaths)
}

// AppliesTo reports whether the gate is in scope for the given base
// branch. An empty branch filter matches everything.
func (g *GateConfig) AppliesTo(branch string) bool {
	if len(g.Branches) == 0 {
		return true
	}
	for _, pattern := range g.Branches {
		matcher, err := glob.Compile(pattern)
		if err != nil {
			// Validated at load time; an invalid pattern here means the
			// config was never validated, so fail closed.
			continue
		}
		if matcher.Match(branch) {
			return true
		}
	}
	return false
}

// Starter returns a commented starter configuration for `config init`.
func Starter() *Config {
	return &Config{
		Gate: GateConfig{
			CodePaths: DefaultCodePaths,
			Checks:    []string{"tests"},
			Workflow:  "tests.yml",
		},
	}
}

// MarshalYAML renders the config as a yaml document suitable for writing
// to a config file.
func MarshalYAML(c *Config) ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal configuration")
	}
	return out, nil
}
