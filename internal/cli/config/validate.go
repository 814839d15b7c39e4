package config

import (
	"fmt"
	"os"
)

// ValidateDirectories checks that the templates directory exists.
// Only commands that read the whole directory call this, so single-file
// commands work without one.
func (c *Config) ValidateDirectories() error {
	info, err := os.Stat(c.TemplatesDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("templates directory does not exist: %s\nHint: Create the directory or use --templates-dir to specify a different path", c.TemplatesDir)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("templates path is not a directory: %s", c.TemplatesDir)
	}
	return nil
}
