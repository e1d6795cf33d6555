package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
)

// Secrets are the credentials read from the environment at startup.
type Secrets struct {
	PracticumToken string `envconfig:"PRACTICUM_TOKEN"`
	TelegramToken  string `envconfig:"TELEGRAM_TOKEN"`
	TelegramChatID string `envconfig:"TELEGRAM_CHAT_ID"`
	// Endpoint overrides poll.endpoint when set.
	Endpoint string `envconfig:"STATUS_API_ENDPOINT"`
}

// LoadSecrets reads credentials from the environment and reports every
// missing or malformed one at once.
func LoadSecrets() (*Secrets, error) {
	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Secrets) Validate() error {
	var result *multierror.Error
	if strings.TrimSpace(s.PracticumToken) == "" {
		result = multierror.Append(result, fmt.Errorf("PRACTICUM_TOKEN is required"))
	}
	if strings.TrimSpace(s.TelegramToken) == "" {
		result = multierror.Append(result, fmt.Errorf("TELEGRAM_TOKEN is required"))
	}
	if strings.TrimSpace(s.TelegramChatID) == "" {
		result = multierror.Append(result, fmt.Errorf("TELEGRAM_CHAT_ID is required"))
	} else if _, err := s.ChatID(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// ChatID parses TELEGRAM_CHAT_ID.
func (s *Secrets) ChatID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s.TelegramChatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("TELEGRAM_CHAT_ID must be an integer chat id")
	}
	return id, nil
}

// Redacted returns a log-safe view.
func (s *Secrets) Redacted() map[string]bool {
	return map[string]bool{
		"practicum_token_set": s.PracticumToken != "",
		"telegram_token_set":  s.TelegramToken != "",
		"chat_id_set":         s.TelegramChatID != "",
	}
}
