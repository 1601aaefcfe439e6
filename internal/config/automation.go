package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type AutomationConfig struct {
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	TickInterval  time.Duration `env:"TICK_INTERVAL" envDefault:"500ms"`
	SettlingDelay time.Duration `env:"SETTLING_DELAY" envDefault:"1500ms"`
	RetryBackoff  time.Duration `env:"RETRY_BACKOFF" envDefault:"3s"`
	StuckAfter    time.Duration `env:"STUCK_AFTER" envDefault:"5s"`
	MaxRetries    int           `env:"MAX_RETRIES" envDefault:"3"`
	SettleRetries int           `env:"SETTLE_RETRIES" envDefault:"5"`

	ApprovalAttempts int           `env:"APPROVAL_ATTEMPTS" envDefault:"5"`
	ApprovalBackoff  time.Duration `env:"APPROVAL_BACKOFF" envDefault:"2s"`
}

func LoadAutomation() (AutomationConfig, error) {
	var cfg AutomationConfig
	err := env.Parse(&cfg)
	return cfg, err
}
