package notifier

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Host     string `envconfig:"EMAIL_HOST"`
	Port     int    `envconfig:"EMAIL_PORT" default:"587"`
	User     string `envconfig:"EMAIL_USER"`
	Password string `envconfig:"EMAIL_PASS"`
	To       string `envconfig:"EMAIL_TO"`
	FromName string `envconfig:"EMAIL_FROM_NAME" default:"Crypto Broker"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Configured reports whether enough SMTP settings are present to send.
func (c Config) Configured() bool {
	return c.Host != "" && c.User != "" && c.Password != "" && c.To != ""
}
