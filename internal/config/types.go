package config

import "time"

const (
	DefaultPollInterval = 600 * time.Second
	DefaultPollTimeout  = 30 * time.Second
	DefaultOpsAddr      = "127.0.0.1:9090"
)

// Config is the optional file configuration. Secrets never live here; see Secrets.
type Config struct {
	Poll     PollConfig     `json:"poll"`
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Ops      OpsConfig      `json:"ops"`
}

// PollConfig controls the status API poll loop.
//
// Schedule accepts a Go duration ("600s"), HH:MM ("00:10") or a cron
// expression ("*/10 * * * *"). Timeout is a Go duration string.
type PollConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	Schedule string `json:"schedule,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

type TelegramConfig struct {
	// GroupLog is the operator chat id that receives mirrored error logs.
	GroupLog string `json:"group_log,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// OpsConfig controls the optional HTTP server exposing /metrics, /healthz and pprof.
// Prefer a loopback address.
type OpsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Poll: PollConfig{
			Schedule: DefaultPollInterval.String(),
			Timeout:  DefaultPollTimeout.String(),
		},
		Logging: LoggingConfig{Level: "INFO", Console: true},
	}
}

// Validate rejects values that would fail at apply time.
func (c *Config) Validate() error {
	if _, err := ParseSchedule(c.Poll.Schedule); err != nil {
		return err
	}
	if _, err := ParseDurationField("poll.timeout", c.Poll.Timeout); err != nil {
		return err
	}
	if c.Logging.Telegram.RatePerSec < 0 {
		return errorf("logging.telegram.rate_per_sec must be >= 0")
	}
	if _, err := c.GroupLogID(); err != nil {
		return err
	}
	return nil
}

// PollTimeout returns the effective request timeout.
func (c *Config) PollTimeout() time.Duration {
	d, err := ParseDurationOrDefault("poll.timeout", c.Poll.Timeout, DefaultPollTimeout)
	if err != nil {
		return DefaultPollTimeout
	}
	return d
}

// OpsAddr returns the effective ops listen address.
func (c *Config) OpsAddr() string {
	if c.Ops.Addr == "" {
		return DefaultOpsAddr
	}
	return c.Ops.Addr
}
