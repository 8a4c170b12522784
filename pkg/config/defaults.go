package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultIntervalSeconds     = 300
	DefaultFetchTimeoutSeconds = 20
	DefaultHeartbeatHour       = 7
	DefaultSMTPPort            = 587
	DefaultSubject             = "Watched page update"
	DefaultUserAgent           = "vahti/1.0 (+https://github.com/yairfalse/vahti)"
)

// DefaultConfig returns a configuration with sensible defaults. Targets and
// notification channels have no defaults.
func DefaultConfig() *Config {
	return &Config{
		IntervalSeconds:     DefaultIntervalSeconds,
		FetchTimeoutSeconds: DefaultFetchTimeoutSeconds,
		UserAgent:           DefaultUserAgent,
		Heartbeat: HeartbeatConfig{
			Enabled:  true,
			Hour:     DefaultHeartbeatHour,
			Timezone: "UTC",
		},
		SMTP: SMTPConfig{
			Port: DefaultSMTPPort,
		},
		Notify: NotifyConfig{
			Subject:          DefaultSubject,
			DeploymentNotice: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// setDefaults registers every key with viper so AutomaticEnv can resolve it
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("targets", []string{})
	v.SetDefault("interval_seconds", d.IntervalSeconds)
	v.SetDefault("fetch_timeout_seconds", d.FetchTimeoutSeconds)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("recipients", []string{})

	v.SetDefault("heartbeat.enabled", d.Heartbeat.Enabled)
	v.SetDefault("heartbeat.hour", d.Heartbeat.Hour)
	v.SetDefault("heartbeat.timezone", d.Heartbeat.Timezone)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", d.SMTP.Port)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")

	v.SetDefault("webhook.url", "")

	v.SetDefault("notify.subject", d.Notify.Subject)
	v.SetDefault("notify.deployment_notice", d.Notify.DeploymentNotice)

	v.SetDefault("aws.region", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("gcs.credentials_file", "")
	v.SetDefault("azure.account_name", "")
	v.SetDefault("azure.account_key", "")
	v.SetDefault("kubernetes.kubeconfig", "")
	v.SetDefault("kubernetes.context", "")

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// InitConfigFile writes a starter config file. It refuses to overwrite.
func InitConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	starter := DefaultConfig()
	starter.Targets = []string{
		"https://example.com/",
		"https://example.com/status.html",
	}
	starter.Recipients = []string{"ops@example.com"}
	starter.SMTP.Host = "smtp.example.com"
	starter.SMTP.Username = "watcher@example.com"

	data, err := yaml.Marshal(starter)
	if err != nil {
		return fmt.Errorf("failed to encode starter config: %w", err)
	}

	header := "# vahti configuration\n# smtp.password is best supplied via VAHTI_SMTP_PASSWORD or EMAIL_APP_PASSWORD\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
