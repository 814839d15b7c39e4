package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/stache/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/stache/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new stache project",
		Long: `Initialize a new stache project with a config file, an example
template and example variable files.

This creates:
  - stache.yaml configuration file
  - templates/ with an example template
  - vars/ with a YAML and a Starlark vars file`,
		Example: `  # Initialize in current directory
  stache init

  # Initialize in a new directory
  stache init my-site

  # Overwrite existing files
  stache init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(NewCommandContext(cmd).Renderer, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if existing := sharedcfg.FindConfigFile(dir); existing != "" && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", filepath.Base(existing))
	}

	if err := copyScaffold("project", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listScaffoldFiles("project")
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("stache project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Edit vars/site.yaml")
	r.Println("  2. Run 'stache render templates/hello.mustache'")
	r.Println("  3. Run 'stache check' to validate every template")
	r.Println("  4. Run 'stache serve --watch' to render over HTTP")

	return nil
}
