package main

import (
	"context"
	"strings"

	"github.com/jingkaihe/skillserver/pkg/skills"
	"github.com/jingkaihe/skillserver/pkg/telemetry"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultSkillsDir       = "./skills"
	defaultManifestName    = skills.DefaultManifestName
	defaultDuplicatePolicy = string(skills.DuplicateOverwrite)
	defaultTransport       = "stdio"
	defaultAddr            = "127.0.0.1:8765"
)

func setConfigDefaults() {
	viper.SetDefault("skills.dir", defaultSkillsDir)
	viper.SetDefault("skills.manifest", defaultManifestName)
	viper.SetDefault("skills.duplicates", defaultDuplicatePolicy)
	viper.SetDefault("transport", defaultTransport)
	viper.SetDefault("addr", defaultAddr)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "fmt")
}

// SkillsConfig holds the settings that shape the skill cache
type SkillsConfig struct {
	Dir          string
	Manifest     string
	Ignore       []string
	Allowed      []string
	Duplicates   string
	Interpreters map[string]string
}

func getSkillsConfigFromViper() SkillsConfig {
	return SkillsConfig{
		Dir:          viper.GetString("skills.dir"),
		Manifest:     viper.GetString("skills.manifest"),
		Ignore:       viper.GetStringSlice("skills.ignore"),
		Allowed:      viper.GetStringSlice("skills.allowed"),
		Duplicates:   viper.GetString("skills.duplicates"),
		Interpreters: viper.GetStringMapString("scripts.interpreters"),
	}
}

func (c SkillsConfig) cacheOptions() ([]skills.Option, error) {
	policy, err := skills.ParseDuplicatePolicy(c.Duplicates)
	if err != nil {
		return nil, err
	}

	opts := []skills.Option{skills.WithDuplicatePolicy(policy)}
	if c.Manifest != "" {
		opts = append(opts, skills.WithManifestName(c.Manifest))
	}
	if len(c.Ignore) > 0 {
		opts = append(opts, skills.WithIgnorePatterns(c.Ignore...))
	}
	if len(c.Allowed) > 0 {
		opts = append(opts, skills.WithAllowlist(c.Allowed...))
	}
	return opts, nil
}

func (c SkillsConfig) runnerOptions() []skills.RunnerOption {
	opts := make([]skills.RunnerOption, 0, len(c.Interpreters))
	for ext, command := range c.Interpreters {
		opts = append(opts, skills.WithInterpreter(strings.TrimSpace(ext), command))
	}
	return opts
}

func buildCache(ctx context.Context, config SkillsConfig) (*skills.Cache, error) {
	opts, err := config.cacheOptions()
	if err != nil {
		return nil, errors.Wrap(err, "invalid skills configuration")
	}

	var cache *skills.Cache
	err = telemetry.WithSpan(ctx, "skills.build_cache", func(ctx context.Context) error {
		var err error
		cache, err = skills.Build(ctx, config.Dir, opts...)
		return err
	}, attribute.String("skills.dir", config.Dir))
	if err != nil {
		return nil, errors.Wrap(err, "invalid skills configuration")
	}
	return cache, nil
}

func newRunner(config SkillsConfig) (*skills.Runner, error) {
	runner, err := skills.NewRunner(config.runnerOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "invalid interpreter configuration")
	}
	return runner, nil
}
