// Package config loads the settings of the three binaries from a YAML file,
// environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const defaultConfigName = "config"

// newViper wires the shared lookup rules: an optional YAML file (explicit
// path, or config.yaml in the working directory) and prefixed env vars with
// '.' replaced by '_'.
func newViper(envPrefix, path string) *viper.Viper {
	v := viper.New()
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(strings.TrimSpace(path))
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func readAndDecode(v *viper.Viper, out interface{}) error {
	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read config file failed: %w", err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("decode config failed: %w", err)
	}
	return nil
}

// secretFromFile returns value, or the trimmed content of path when value is
// empty.
func secretFromFile(value, path, key string) (string, error) {
	if strings.TrimSpace(value) != "" || strings.TrimSpace(path) == "" {
		return strings.TrimSpace(value), nil
	}

	// #nosec G304 -- path is provided by operator config.
	raw, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("read %s failed: %w", key, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}
