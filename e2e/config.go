package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_PUSH_TIMEOUT bounds how long a client waits for a single push
	PushTimeout time.Duration `envconfig:"E2E_PUSH_TIMEOUT" default:"3s"`
	TokenSecret string        `envconfig:"E2E_TOKEN_SECRET" default:"e2e-secret"`
	BufferSize  int           `envconfig:"E2E_BUFFER_SIZE" default:"64"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
