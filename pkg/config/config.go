package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
)

// MinInterval is the shortest poll interval accepted.
const MinInterval = 5 * time.Second

// Config represents the complete vahti configuration. It is read once at
// startup and treated as immutable afterwards.
type Config struct {
	Targets             []string        `mapstructure:"targets" yaml:"targets"`
	IntervalSeconds     int             `mapstructure:"interval_seconds" yaml:"interval_seconds"`
	FetchTimeoutSeconds int             `mapstructure:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds"`
	UserAgent           string          `mapstructure:"user_agent" yaml:"user_agent"`
	Recipients          []string        `mapstructure:"recipients" yaml:"recipients"`
	Heartbeat           HeartbeatConfig `mapstructure:"heartbeat" yaml:"heartbeat"`
	SMTP                SMTPConfig      `mapstructure:"smtp" yaml:"smtp"`
	Webhook             WebhookConfig   `mapstructure:"webhook" yaml:"webhook"`
	Notify              NotifyConfig    `mapstructure:"notify" yaml:"notify"`
	AWS                 AWSConfig       `mapstructure:"aws" yaml:"aws"`
	GCS                 GCSConfig       `mapstructure:"gcs" yaml:"gcs"`
	Azure               AzureConfig     `mapstructure:"azure" yaml:"azure"`
	Kubernetes          K8sConfig       `mapstructure:"kubernetes" yaml:"kubernetes"`
	Logging             LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// HeartbeatConfig controls the daily liveness message
type HeartbeatConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Hour     int    `mapstructure:"hour" yaml:"hour"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// SMTPConfig contains mail delivery settings
type SMTPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	From     string `mapstructure:"from" yaml:"from,omitempty"`
}

// WebhookConfig contains the optional webhook channel
type WebhookConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NotifyConfig contains message wording and the startup notice toggle
type NotifyConfig struct {
	Subject          string `mapstructure:"subject" yaml:"subject"`
	DeploymentNotice bool   `mapstructure:"deployment_notice" yaml:"deployment_notice"`
}

// AWSConfig is used for s3:// targets
type AWSConfig struct {
	Region  string `mapstructure:"region" yaml:"region,omitempty"`
	Profile string `mapstructure:"profile" yaml:"profile,omitempty"`
}

// GCSConfig is used for gs:// targets
type GCSConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file,omitempty"`
}

// AzureConfig is used for azblob:// targets
type AzureConfig struct {
	AccountName string `mapstructure:"account_name" yaml:"account_name,omitempty"`
	AccountKey  string `mapstructure:"account_key" yaml:"account_key,omitempty"`
}

// K8sConfig is used for k8s:// targets
type K8sConfig struct {
	Kubeconfig string `mapstructure:"kubeconfig" yaml:"kubeconfig,omitempty"`
	Context    string `mapstructure:"context" yaml:"context,omitempty"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load reads configuration from file and environment into a validated Config.
// An empty path searches ./vahti.yaml, $HOME/.vahti/vahti.yaml and /etc/vahti/vahti.yaml.
func Load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vahti")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".vahti"))
		}
		v.AddConfigPath("/etc/vahti")
	}

	v.SetEnvPrefix("VAHTI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy .env variable names
	v.BindEnv("smtp.username", "VAHTI_SMTP_USERNAME", "EMAIL_ADDRESS")
	v.BindEnv("smtp.password", "VAHTI_SMTP_PASSWORD", "EMAIL_APP_PASSWORD")
	v.BindEnv("smtp.host", "VAHTI_SMTP_HOST", "SMTP_SERVER")
	v.BindEnv("smtp.port", "VAHTI_SMTP_PORT", "SMTP_PORT")
	v.BindEnv("recipients", "VAHTI_RECIPIENTS", "RECIPIENTS")
	v.BindEnv("logging.level", "VAHTI_LOGGING_LEVEL", "LOG_LEVEL")
	v.BindEnv("azure.account_name", "VAHTI_AZURE_ACCOUNT_NAME", "AZURE_STORAGE_ACCOUNT")
	v.BindEnv("azure.account_key", "VAHTI_AZURE_ACCOUNT_KEY", "AZURE_STORAGE_KEY")
	v.BindEnv("kubernetes.kubeconfig", "VAHTI_KUBERNETES_KUBECONFIG", "KUBECONFIG")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, vahtierrors.ConfigError("failed to read config file").WithCause(err.Error())
		}
		// Config file not found is fine, env vars may carry everything
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, vahtierrors.ConfigError("failed to decode configuration").WithCause(err.Error())
	}

	cfg.Targets = splitList(cfg.Targets)
	cfg.Recipients = splitList(cfg.Recipients)
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return vahtierrors.ConfigError("no targets configured")
	}

	for _, target := range c.Targets {
		if err := validateTarget(target); err != nil {
			return err
		}
	}

	if c.Interval() < MinInterval {
		return vahtierrors.ConfigError("interval_seconds must be at least %d", int(MinInterval.Seconds()))
	}

	if c.FetchTimeoutSeconds <= 0 {
		return vahtierrors.ConfigError("fetch_timeout_seconds must be positive")
	}

	if c.Heartbeat.Hour < 0 || c.Heartbeat.Hour > 23 {
		return vahtierrors.ConfigError("heartbeat.hour must be between 0 and 23, got %d", c.Heartbeat.Hour)
	}

	if _, err := time.LoadLocation(c.Heartbeat.Timezone); err != nil {
		return vahtierrors.ConfigError("unknown heartbeat.timezone %q", c.Heartbeat.Timezone)
	}

	if c.SMTP.Host == "" && c.Webhook.URL == "" {
		return vahtierrors.ConfigError("no notification channel configured").
			WithSolutions("Set smtp.host (SMTP_SERVER) or webhook.url")
	}

	if c.SMTP.Host != "" {
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			return vahtierrors.ConfigError("smtp.port %d is out of range", c.SMTP.Port)
		}
		if c.SMTP.From == "" {
			return vahtierrors.ConfigError("smtp.username (EMAIL_ADDRESS) is required when smtp.host is set")
		}
		if len(c.Recipients) == 0 {
			return vahtierrors.ConfigError("recipients (RECIPIENTS) is required when smtp.host is set")
		}
	}

	if c.Webhook.URL != "" {
		u, err := url.Parse(c.Webhook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return vahtierrors.ConfigError("webhook.url %q is not an http(s) URL", c.Webhook.URL)
		}
	}

	return nil
}

// Interval returns the poll interval
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// FetchTimeout returns the per-request fetch timeout
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// Location returns the time zone heartbeat dates are evaluated in.
// Validate guarantees the name loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Heartbeat.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TargetSchemes returns the distinct URL schemes among the targets
func (c *Config) TargetSchemes() []string {
	seen := make(map[string]bool)
	var schemes []string
	for _, target := range c.Targets {
		u, err := url.Parse(target)
		if err != nil || seen[u.Scheme] {
			continue
		}
		seen[u.Scheme] = true
		schemes = append(schemes, u.Scheme)
	}
	return schemes
}

func validateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return vahtierrors.ConfigError("target %q is not a valid URL", target).WithCause(err.Error())
	}

	switch u.Scheme {
	case "http", "https", "s3", "gs", "azblob", "k8s":
	default:
		return vahtierrors.ConfigError("target %q has unsupported scheme %q", target, u.Scheme).
			WithSolutions("Supported schemes: http, https, s3, gs, azblob, k8s")
	}

	if u.Host == "" {
		return vahtierrors.ConfigError("target %q has no host or bucket", target)
	}

	return nil
}

// splitList flattens comma separated entries, trims them and drops blanks
// and duplicates while keeping the first-seen order.
func splitList(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}
