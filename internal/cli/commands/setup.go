package commands

import (
	"log/slog"

	"github.com/leapstack-labs/stache/internal/cli/config"
	"github.com/leapstack-labs/stache/internal/cli/output"
	"github.com/leapstack-labs/stache/internal/loader"
	"github.com/leapstack-labs/stache/internal/template"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded config and the
// logger stored on the command context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		mode = output.ModeAuto
	}
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// CompileOptions returns the engine options for this invocation.
func (c *CommandContext) CompileOptions() []template.Option {
	return append(c.Cfg.CompileOptions(), template.WithLogger(c.Logger))
}

// Delimiters returns the configured delimiters, or the Mustache defaults.
func (c *CommandContext) Delimiters() template.Delimiters {
	return c.Cfg.Delimiters.Delimiters()
}

// LoadVars builds the global variable context. Layers, lowest first:
// vars files in order, the config file's set map, then --set flags.
func (c *CommandContext) LoadVars(cmd *cobra.Command) (template.Map, error) {
	vars, err := loader.NewVarsLoader(c.Logger).Load(c.Cfg.Vars...)
	if err != nil {
		return nil, err
	}
	vars = template.Merge(vars, template.NewContext(c.Cfg.Set))

	sets, err := loader.ParseSet(setFlags(cmd))
	if err != nil {
		return nil, err
	}
	return template.Merge(vars, sets), nil
}

// setFlags returns the --set assignments, or nil when the command runs
// without the root's persistent flags.
func setFlags(cmd *cobra.Command) []string {
	if cmd.Flags().Lookup("set") == nil {
		return nil
	}
	sets, _ := cmd.Flags().GetStringArray("set")
	return sets
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		TemplatesDir: config.DefaultTemplatesDir,
		MaxDepth:     config.DefaultMaxDepth,
		OutputFormat: config.DefaultOutput,
	}
}
