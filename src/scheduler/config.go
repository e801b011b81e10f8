package scheduler

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Timezone string `envconfig:"SCHEDULER_TZ" default:"Europe/Madrid"`

	DeepScanSpec string `envconfig:"SCHEDULE_DEEP_SCAN" default:"30 7 * * *"`
	RescoreSpec  string `envconfig:"SCHEDULE_RESCORE" default:"0 13,22 * * *"`
	WatchSpec    string `envconfig:"SCHEDULE_WATCH" default:"0 * * * *"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
