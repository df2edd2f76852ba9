package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const maxWalkDepth = 25

// Config is the content of nestql.yaml.
type Config struct {
	Schema      string         `mapstructure:"schema"`
	Mapping     string         `mapstructure:"mapping"`
	Dialect     string         `mapstructure:"dialect"`
	Minify      bool           `mapstructure:"minify"`
	Concurrency int            `mapstructure:"concurrency"`
	Database    DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is the database/sql driver name: postgres, mysql or sqlite.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// LoadConfig loads configuration with precedence flags > env > config file >
// defaults.
func LoadConfig(explicitPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NESTQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"schema":          "schema",
		"mapping":         "mapping",
		"dialect":         "dialect",
		"minify":          "minify",
		"concurrency":     "concurrency",
		"database.driver": "driver",
		"database.dsn":    "dsn",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", flag, err)
			}
		}
	}

	path, err := findConfigFile(explicitPath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema", "schema.graphql")
	v.SetDefault("mapping", "mapping.yaml")
	v.SetDefault("dialect", "")
	v.SetDefault("minify", false)
	v.SetDefault("concurrency", 0)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
}

// findConfigFile returns explicitPath, or walks up from the working
// directory looking for nestql.yaml, stopping at a .git directory.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"nestql.yaml", "nestql.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}
