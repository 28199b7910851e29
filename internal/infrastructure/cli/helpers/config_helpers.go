package helpers

import (
	"fmt"
	"os"

	"github.com/doeshing/shexec/internal/app"
	configapp "github.com/doeshing/shexec/internal/application/config"
	"github.com/doeshing/shexec/internal/domain"
)

// SaveConfigWithValidation validates cfg, backs up the current file and saves.
func SaveConfigWithValidation(container *app.Container, cfg domain.Config) error {
	loader := container.ConfigLoader
	if loader == nil {
		return fmt.Errorf("config loader unavailable")
	}

	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if _, err := os.Stat(loader.Path()); err == nil {
		if _, err := loader.Backup(); err != nil {
			return fmt.Errorf("failed to create configuration backup: %w", err)
		}
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}
