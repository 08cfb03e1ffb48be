// Package config provides configuration loading for the message
// sender channels.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SendersConfig is the structure of the senders.yaml file.
type SendersConfig struct {
	Line  LineConfig  `yaml:"line"`
	Email EmailConfig `yaml:"email"`
	SMS   SMSConfig   `yaml:"sms"`
}

// LineConfig configures the LINE Messaging API channel.
type LineConfig struct {
	ChannelToken string `yaml:"channel_token"`
	APIBase      string `yaml:"api_base"`
}

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// SMSConfig configures the HTTP SMS gateway channel.
type SMSConfig struct {
	GatewayURL string `yaml:"gateway_url"`
	APIKey     string `yaml:"api_key"`
	From       string `yaml:"from"`
}

// LoadSendersConfig loads sender configuration from a YAML file.
// Environment variables override file values so deployments can keep
// credentials out of the file.
func LoadSendersConfig(filepath string) (SendersConfig, error) {
	var config SendersConfig

	if filepath != "" {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return SendersConfig{}, fmt.Errorf("failed to read config file %s: %w", filepath, err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return SendersConfig{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if token := os.Getenv("LINE_CHANNEL_TOKEN"); token != "" {
		config.Line.ChannelToken = token
	}

	if host := os.Getenv("SMTP_HOST"); host != "" {
		config.Email.Host = host
	}

	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		config.Email.Password = password
	}

	if url := os.Getenv("SMS_GATEWAY_URL"); url != "" {
		config.SMS.GatewayURL = url
	}

	if key := os.Getenv("SMS_API_KEY"); key != "" {
		config.SMS.APIKey = key
	}

	if config.Line.APIBase == "" {
		config.Line.APIBase = "https://api.line.me"
	}

	if config.Email.Port == 0 {
		config.Email.Port = 587
	}

	return config, nil
}
