package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"payrollctl/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/payrollctl"
	configFileName = "config.yaml"
	sessionDirName = "session"
)

var yamlLine = regexp.MustCompile(`line (\d+)`)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// SessionDir returns the file backend's directory for a configuration loaded
// from configPath.
func (c Config) SessionDir(configPath string) string {
	if c.Storage.Dir != "" {
		return c.Storage.Dir
	}
	return filepath.Join(configPath, sessionDirName)
}

// LoadConfig loads configuration from a single specified directory.
// A missing config.yaml yields the defaults.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return Config{}, &ConfigurationError{Path: configFilePath, Kind: KindRead, Err: err}
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, &ConfigurationError{
			Path:  configFilePath,
			Kind:  KindParse,
			Line:  lineOf(err),
			Err:   err,
			Hints: []string{"Durations take a unit, e.g. 30s or 2m", "Check indentation under storage: and logging:"},
		}
	}

	if errs := config.Validate(); errs.HasErrors() {
		return Config{}, &ConfigurationError{
			Path:  configFilePath,
			Kind:  KindInvalid,
			Err:   errs,
			Hints: hintsFor(errs),
		}
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

func lineOf(err error) int {
	m := yamlLine.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func hintsFor(errs ValidationErrors) []string {
	var out []string
	for _, e := range errs {
		switch e.Field {
		case "apiBaseURL":
			out = append(out, "Set apiBaseURL to the API root, e.g. "+DefaultAPIBaseURL)
		case "storage.backend":
			out = append(out, "Use file for a workstation, redis for shared sessions, memory for throwaway runs")
		case "storage.redis.addr":
			out = append(out, "Set storage.redis.addr to host:port of the Redis server")
		}
	}
	return out
}
