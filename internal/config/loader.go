package config

import (
	"bytes"
	"os"
	"regexp"

	"github.com/spf13/viper"

	"github.com/elliotttmiller/sentinel/internal/types"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load loads configuration from the given YAML file. ${VAR} references are
// interpolated from the environment before parsing; unset variables are left
// verbatim so validation can catch them.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "read config file", err)
	}

	interpolated := envVarPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		if value, ok := os.LookupEnv(string(name)); ok {
			return []byte(value)
		}
		return match
	})

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(interpolated)); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "parse config file", err)
	}

	// Start from defaults so a partial file only overrides what it names.
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "unmarshal config", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration from path, or returns the defaults
// when path is empty or the file does not exist.
func LoadWithDefaults(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return Load(path)
}
