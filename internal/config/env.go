package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ServerEnv holds the server's environment defaults. Command-line flags
// override these.
type ServerEnv struct {
	Addr       string `env:"DEVOTIONS_ADDR"         envDefault:":8080"`
	DataDir    string `env:"DEVOTIONS_DATA_DIR"     envDefault:"./data"`
	TuningPath string `env:"DEVOTIONS_TUNING"       envDefault:"./configs/tuning.yaml"`
	WorldID    string `env:"DEVOTIONS_WORLD"        envDefault:"world_1"`
	DisableDB  bool   `env:"DEVOTIONS_DISABLE_DB"`
	Starter    bool   `env:"DEVOTIONS_STARTER_AREA" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadServerEnv() (ServerEnv, error) {
	var cfg ServerEnv
	if err := ParseEnv(&cfg); err != nil {
		return ServerEnv{}, err
	}
	return cfg, nil
}
