// Package config loads and validates the run settings from flags, the
// environment, and an optional config file, in that precedence order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Settings is the complete configuration surface of one run.
type Settings struct {
	Organization string   `mapstructure:"organization"`
	Project      string   `mapstructure:"project"`
	Repositories []string `mapstructure:"repositories"`
	PAT          string   `mapstructure:"pat"`
	Days         int      `mapstructure:"days"`
	Output       string   `mapstructure:"output"`

	BotNames []string `mapstructure:"bot_names"`
	BotIDs   []string `mapstructure:"bot_ids"`

	Authors   []string `mapstructure:"authors"`
	AuthorIDs []string `mapstructure:"author_ids"`

	MaxPRs        int  `mapstructure:"max_prs"`
	NoCache       bool `mapstructure:"no_cache"`
	ClearCache    bool `mapstructure:"clear_cache"`
	IncludeBuilds bool `mapstructure:"include_builds"`
	Concurrency   int  `mapstructure:"concurrency"`
}

// Load resolves settings from the given viper instance. Environment variables
// use the PRSTATS_ prefix; a pr-stats.{yaml,toml,json} file in the working
// directory is read when present. The PAT additionally falls back to the
// conventional AZDO_PAT variable.
func Load(v *viper.Viper) (*Settings, error) {
	v.SetDefault("days", 90)
	v.SetDefault("output", "pr-report.json")
	v.SetDefault("concurrency", 5)

	v.SetEnvPrefix("PRSTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("pr-stats")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if s.PAT == "" {
		s.PAT = os.Getenv("AZDO_PAT")
	}

	s.Organization = strings.TrimRight(strings.TrimSpace(s.Organization), "/")
	s.Project = strings.TrimSpace(s.Project)

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks that the settings are sufficient to run.
func (s *Settings) Validate() error {
	if s.Organization == "" {
		return fmt.Errorf("organization URL is required (--org or PRSTATS_ORGANIZATION)")
	}
	if s.Project == "" {
		return fmt.Errorf("project is required (--project or PRSTATS_PROJECT)")
	}
	if s.PAT == "" && !s.ClearCache {
		return fmt.Errorf("personal access token is required (--pat, PRSTATS_PAT, or AZDO_PAT)")
	}
	if s.Days < 1 {
		return fmt.Errorf("days must be at least 1, got %d", s.Days)
	}
	return nil
}

// RepositoryDisplayName is the human-readable repository scope for the report
// header.
func (s *Settings) RepositoryDisplayName() string {
	switch len(s.Repositories) {
	case 0:
		return "All Repositories"
	case 1:
		return s.Repositories[0]
	default:
		return strings.Join(s.Repositories, ", ")
	}
}
