package app

import (
	"io"
	"os"

	"github.com/yairfalse/vahti/internal/clock"
	"github.com/yairfalse/vahti/internal/fetcher"
	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/internal/notifier"
	"github.com/yairfalse/vahti/internal/watcher"
	"github.com/yairfalse/vahti/pkg/config"
)

// AppFactory assembles an App from a validated configuration
type AppFactory struct {
	output io.Writer
	clock  clock.Clock
}

// NewAppFactory creates a factory logging to stderr with the system clock
func NewAppFactory() *AppFactory {
	return &AppFactory{output: os.Stderr, clock: clock.Real{}}
}

// WithOutput redirects log output
func (f *AppFactory) WithOutput(w io.Writer) *AppFactory {
	f.output = w
	return f
}

// WithClock replaces the clock handed to the watcher
func (f *AppFactory) WithClock(c clock.Clock) *AppFactory {
	f.clock = c
	return f
}

// Create builds the logger, fetch router, notification channels and watcher
func (f *AppFactory) Create(cfg *config.Config, version string) (*App, error) {
	log, err := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: f.output,
	})
	if err != nil {
		return nil, err
	}

	router := NewRouter(cfg)
	multi := notifier.NewMulti(log, newChannels(cfg, version)...)

	w, err := watcher.New(watcher.Config{
		Targets:          cfg.Targets,
		Interval:         cfg.Interval(),
		FetchTimeout:     cfg.FetchTimeout(),
		HeartbeatEnabled: cfg.Heartbeat.Enabled,
		HeartbeatHour:    cfg.Heartbeat.Hour,
		Location:         cfg.Location(),
		Subject:          cfg.Notify.Subject,
		DeploymentNotice: cfg.Notify.DeploymentNotice,
	}, router, multi, watcher.WithClock(f.clock), watcher.WithLogger(log))
	if err != nil {
		return nil, err
	}

	return &App{
		config:   cfg,
		logger:   log,
		notifier: multi,
		watcher:  w,
	}, nil
}

// NewRouter maps every supported target scheme to its fetcher
func NewRouter(cfg *config.Config) *fetcher.Router {
	router := fetcher.NewRouter()
	router.Handle(fetcher.NewHTTP(fetcher.HTTPConfig{
		Timeout:   cfg.FetchTimeout(),
		UserAgent: cfg.UserAgent,
	}), "http", "https")

	// cloud clients are only built once a target of that scheme is polled
	router.HandleLazy("s3", fetcher.S3Factory(fetcher.S3Config{
		Region:  cfg.AWS.Region,
		Profile: cfg.AWS.Profile,
	}))
	router.HandleLazy("gs", fetcher.GCSFactory(fetcher.GCSConfig{
		CredentialsFile: cfg.GCS.CredentialsFile,
	}))
	router.HandleLazy("azblob", fetcher.AzureBlobFactory(fetcher.AzureConfig{
		AccountName: cfg.Azure.AccountName,
		AccountKey:  cfg.Azure.AccountKey,
	}))
	router.HandleLazy("k8s", fetcher.KubernetesFactory(fetcher.KubernetesConfig{
		Kubeconfig: cfg.Kubernetes.Kubeconfig,
		Context:    cfg.Kubernetes.Context,
	}))

	return router
}

func newChannels(cfg *config.Config, version string) []notifier.Channel {
	var channels []notifier.Channel

	if cfg.SMTP.Host != "" {
		channels = append(channels, notifier.Channel{
			Name: "smtp",
			Notifier: notifier.NewSMTP(notifier.SMTPConfig{
				Host:       cfg.SMTP.Host,
				Port:       cfg.SMTP.Port,
				Username:   cfg.SMTP.Username,
				Password:   cfg.SMTP.Password,
				From:       cfg.SMTP.From,
				Recipients: cfg.Recipients,
			}),
		})
	}

	if cfg.Webhook.URL != "" {
		channels = append(channels, notifier.Channel{
			Name:     "webhook",
			Notifier: notifier.NewWebhook(cfg.Webhook.URL, "vahti/"+version),
		})
	}

	return channels
}
