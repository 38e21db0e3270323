package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"roleflow/internal/errors"
	"roleflow/internal/models"
)

// LoadConfig reads and validates the config file. Legacy single-runner
// configs are migrated in memory; the file is rewritten in the new shape
// on the next save.
func (s *Storage) LoadConfig() (*models.Config, error) {
	content, err := os.ReadFile(s.ConfigPath())
	if err != nil {
		return nil, errors.StorageError("read config", err)
	}

	var config models.Config
	if err := json.Unmarshal(content, &config); err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("invalid JSON in %s", s.ConfigPath())).
			WithDetails(err.Error())
	}
	if err := config.Normalize(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig validates and atomically writes the config file.
func (s *Storage) SaveConfig(config *models.Config) error {
	if err := config.Normalize(); err != nil {
		return err
	}

	content, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return errors.StorageError("serialize config", err)
	}
	content = append(content, '\n')

	if err := os.MkdirAll(s.ConfigDir(), 0755); err != nil {
		return errors.StorageError("create config directory", err)
	}
	if err := writeFileAtomic(s.ConfigPath(), content); err != nil {
		return errors.StorageError("write config", err)
	}
	return nil
}
