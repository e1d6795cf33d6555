package app

import (
	"strings"

	"statusbot/internal/config"
	"statusbot/internal/observability/ops"
	"statusbot/internal/poller"
	logx "statusbot/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

// mapPollerConfig resolves the endpoint: env override, then file, then default.
func mapPollerConfig(sec *config.Secrets, cfg *config.Config) poller.Config {
	endpoint := strings.TrimSpace(sec.Endpoint)
	if endpoint == "" {
		endpoint = strings.TrimSpace(cfg.Poll.Endpoint)
	}
	if endpoint == "" {
		endpoint = poller.DefaultEndpoint
	}
	return poller.Config{
		Endpoint: endpoint,
		Token:    sec.PracticumToken,
		Timeout:  cfg.PollTimeout(),
	}
}

func mapOpsConfig(cfg *config.Config) ops.Config {
	return ops.Config{Enabled: cfg.Ops.Enabled, Addr: cfg.OpsAddr()}
}
