package commands

import (
	"github.com/spf13/cobra"

	"github.com/basecamp/prismctl/internal/appctx"
	"github.com/basecamp/prismctl/internal/config"
	"github.com/basecamp/prismctl/internal/output"
)

// ConfigEntry is one effective setting and where it came from.
type ConfigEntry struct {
	Key    string `json:"key"`
	Value  any    `json:"value"`
	Source string `json:"source"`
}

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration",
		Long: `Show the effective configuration with source information.

Configuration is loaded from multiple sources with the following precedence:
  flags > env > .env > local > global > defaults

Config locations:
  - Global: $XDG_CONFIG_HOME/prismctl/config.yaml (or --config)
  - Local:  ./.prismctl.yaml (cannot set base_url or token)
  - Dotenv: ./.env (PRISMCTL_* variables)`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})
	return cmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	app := appctx.FromContext(cmd.Context())
	cfg := app.Config

	token := ""
	if cfg.Token != "" {
		token = "(set)"
	}
	entries := []ConfigEntry{
		entry(cfg, "base_url", cfg.BaseURL),
		entry(cfg, "token", token),
		entry(cfg, "page_rate", cfg.PageRate),
		entry(cfg, "fresh_ttl", cfg.FreshTTL.String()),
		entry(cfg, "schedule", cfg.Schedule),
		entry(cfg, "metrics_addr", cfg.MetricsAddr),
		entry(cfg, "cache_dir", cfg.CacheDir),
		entry(cfg, "format", cfg.Format),
		entry(cfg, "verbose", cfg.VerboseLevel()),
		entry(cfg, "resilience", cfg.Resilience),
	}
	return app.OK(entries,
		output.WithSummary("Effective configuration"),
		output.WithMeta("files", cfg.Files),
	)
}

func entry(cfg *config.Config, key string, value any) ConfigEntry {
	source := cfg.Sources[key]
	if source == "" {
		source = string(config.SourceDefault)
	}
	return ConfigEntry{Key: key, Value: value, Source: source}
}
