package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flynn/json5"
)

func writeJSON(v any, path string) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return nil
}

// readJSON5 accepts comments and the other JSON5 relaxations, for files
// people edit by hand
func readJSON5(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json5.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return nil
}

func SaveToFile(configuration *DeviceConfig, path string) error {
	return writeJSON(configuration, path)
}

func LoadFromFile(path string) (*DeviceConfig, error) {
	var configuration DeviceConfig
	if err := readJSON(path, &configuration); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// SaveSettings validates and writes a settings file
func SaveSettings(settings *Settings, path string) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return writeJSON(settings, path)
}

// LoadSettings reads a JSON5 settings file. Missing sections and fields
// keep their defaults.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()
	if err := readJSON5(path, settings); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return settings, nil
}

func GetConfigPath(name string) string {
	return filepath.Join("etc", "cc1101", fmt.Sprintf("%s.json", name))
}

func GetSettingsPath(name string) string {
	return filepath.Join("etc", "cc1101", fmt.Sprintf("%s.settings.json", name))
}
