package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if len(c.Symbols.List) == 0 {
		return fmt.Errorf("symbols.list requires at least one symbol")
	}
	if c.Forecast.RingCapacity < 1 {
		return fmt.Errorf("forecast.ring_capacity must be >= 1")
	}
	if c.Forecast.TiltCapacity < 1 {
		return fmt.Errorf("forecast.tilt_capacity must be >= 1")
	}
	if c.Source.PollSeconds < 1 {
		return fmt.Errorf("source.poll_seconds must be >= 1")
	}
	if c.Source.TimeoutSeconds < 1 {
		return fmt.Errorf("source.timeout_seconds must be >= 1")
	}
	if strings.TrimSpace(c.Source.APIURL) == "" {
		return fmt.Errorf("source.api_url is required")
	}
	if c.Store.Enabled && strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path is required when the archive is enabled")
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if !tg.Enabled {
		return nil
	}
	if strings.TrimSpace(tg.BotToken) == "" {
		return fmt.Errorf("notify.telegram.bot_token is required when telegram is enabled")
	}
	if strings.TrimSpace(tg.ChatID) == "" {
		return fmt.Errorf("notify.telegram.chat_id is required when telegram is enabled")
	}
	return nil
}
