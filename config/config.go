package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Configuration struct {
	ApiPort string `mapstructure:"api_port"`
	LogPath string `mapstructure:"log_path"`
	LogMode string `mapstructure:"log_mode"` // "production" ou "development"

	Database    string `mapstructure:"database"` // "sqlite3" ou "postgres"
	DbHost      string `mapstructure:"db_host"`
	DbPort      string `mapstructure:"db_port"`
	DbUser      string `mapstructure:"db_user"`
	DbName      string `mapstructure:"db_name"`
	DbPass      string `mapstructure:"db_pass"`
	DbPath      string `mapstructure:"db_path"`
	AutoMigrate bool   `mapstructure:"automigrate"`

	Evolution struct {
		ApiURL         string `mapstructure:"api_url"`
		ApiKey         string `mapstructure:"api_key"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"evolution"`

	Security struct {
		JwtSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"security"`

	Cors struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`

	Reconcile struct {
		Schedule    string `mapstructure:"schedule"`
		Concurrency int    `mapstructure:"concurrency"`
	} `mapstructure:"reconcile"`

	Amqp struct {
		URL      string `mapstructure:"url"`
		Exchange string `mapstructure:"exchange"`
	} `mapstructure:"amqp"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_port", "8080")
	v.SetDefault("log_path", "")
	v.SetDefault("log_mode", "development")
	v.SetDefault("database", "sqlite3")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "")
	v.SetDefault("db_name", "")
	v.SetDefault("db_pass", "")
	v.SetDefault("db_path", "db/database.db")
	v.SetDefault("automigrate", true)
	v.SetDefault("evolution.api_url", "")
	v.SetDefault("evolution.api_key", "")
	v.SetDefault("evolution.timeout_seconds", 30)
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("reconcile.schedule", "@every 5m")
	v.SetDefault("reconcile.concurrency", 4)
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "zapdesk.changes")
}

// Load lê o arquivo JSON (opcional) e aplica overrides de ambiente:
// evolution.api_url -> EVOLUTION_API_URL, api_port -> API_PORT, etc.
func Load(path string) (Configuration, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return Configuration{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Configuration{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return Configuration{}, fmt.Errorf("config: decode: %w", err)
	}

	// defaults (pra evitar nil/zero chato)
	c.Evolution.ApiURL = strings.TrimRight(strings.TrimSpace(c.Evolution.ApiURL), "/")
	if c.Evolution.TimeoutSeconds <= 0 {
		c.Evolution.TimeoutSeconds = 30
	}
	if c.Reconcile.Concurrency <= 0 {
		c.Reconcile.Concurrency = 1
	}
	if c.Database == "postgresql" {
		c.Database = "postgres"
	}

	return c, nil
}

// Validate rejeita configurações que não conseguem falar com o gateway ou validar tokens.
func (c Configuration) Validate() error {
	var missing []string
	if c.Evolution.ApiURL == "" {
		missing = append(missing, "evolution.api_url")
	}
	if c.Evolution.ApiKey == "" {
		missing = append(missing, "evolution.api_key")
	}
	if c.Security.JwtSecret == "" {
		missing = append(missing, "security.jwt_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	if c.Database != "sqlite3" && c.Database != "postgres" {
		return fmt.Errorf("config: unsupported database %q", c.Database)
	}
	return nil
}
