package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yairfalse/vahti/internal/app"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/fetcher"
	"github.com/yairfalse/vahti/pkg/config"
)

var (
	checkFetch bool
	checkQuiet bool
)

// awsIdentity is replaced in tests
var awsIdentity = fetcher.AWSIdentity

func newCheckConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate configuration and cloud credentials",
		Long: `Check the vahti configuration without starting the watcher.

This command helps diagnose configuration issues by:
- Validating targets, interval and notification settings
- Looking for cloud credentials when s3://, gs://, azblob:// or k8s:// targets are used
- Optionally fetching every target once and asking AWS STS who the
  s3:// credentials belong to (--probe)

With --quiet only failures are printed, to stderr.

Examples:
  vahti check-config
  vahti check-config --probe
  vahti check-config --config ./staging.yaml`,
		Args: cobra.NoArgs,
		RunE: runCheckConfig,
	}

	cmd.Flags().BoolVar(&checkFetch, "probe", false, "fetch every target once and verify AWS credentials")
	cmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "only show errors")

	return cmd
}

func runCheckConfig(cmd *cobra.Command, args []string) error {
	if viper.GetBool("output.no_color") {
		color.NoColor = true
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errOut := out
	if checkQuiet {
		out = io.Discard
		errOut = cmd.ErrOrStderr()
	}

	printSummary(out, cfg)
	printCredentials(out, config.NewCredentialDetector().DetectFor(cfg))

	failures := 0
	if checkFetch {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		failures += checkAWSIdentity(ctx, out, errOut, cfg)
		failures += fetchTargets(ctx, out, errOut, cfg)
	}

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}

	fmt.Fprintf(out, "\n%s configuration is valid\n", color.GreenString("[OK]"))
	return nil
}

func printSummary(w io.Writer, cfg *config.Config) {
	ok := color.GreenString("[OK]")

	fmt.Fprintln(w, "Checking vahti configuration...")
	fmt.Fprintln(w)

	if file := viper.ConfigFileUsed(); file != "" {
		fmt.Fprintf(w, "Config file: %s %s\n", file, ok)
	} else {
		fmt.Fprintf(w, "Config file: none, using environment %s\n", ok)
	}

	fmt.Fprintf(w, "Targets: %d %s\n", len(cfg.Targets), ok)
	for _, target := range cfg.Targets {
		fmt.Fprintf(w, "  - %s\n", target)
	}

	fmt.Fprintf(w, "Interval: %s, fetch timeout: %s\n", cfg.Interval(), cfg.FetchTimeout())

	if cfg.Heartbeat.Enabled {
		fmt.Fprintf(w, "Heartbeat: daily from %02d:00 %s\n", cfg.Heartbeat.Hour, cfg.Heartbeat.Timezone)
	} else {
		fmt.Fprintln(w, "Heartbeat: disabled")
	}

	if cfg.SMTP.Host != "" {
		fmt.Fprintf(w, "SMTP: %s:%d as %s to %s %s\n",
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, strings.Join(cfg.Recipients, ", "), ok)
		if cfg.SMTP.Password == "" {
			vahtierrors.DisplayWarning(w, "no smtp password set, sending without authentication")
		}
	}
	if cfg.Webhook.URL != "" {
		fmt.Fprintf(w, "Webhook: %s %s\n", cfg.Webhook.URL, ok)
	}
}

// Missing credentials only warn: instance roles and metadata servers are not visible here.
func printCredentials(w io.Writer, results []config.DetectionResult) {
	for _, r := range results {
		if !r.Available {
			vahtierrors.DisplayWarning(w, fmt.Sprintf("credentials for %s://: %s", r.Scheme, r.Source))
			continue
		}
		fmt.Fprintf(w, "Credentials for %s://: %s %s\n", r.Scheme, r.Source, color.GreenString("[OK]"))
	}
}

// checkAWSIdentity runs only when an s3:// target is configured
func checkAWSIdentity(ctx context.Context, out, errOut io.Writer, cfg *config.Config) int {
	if !hasScheme(cfg.Targets, "s3") {
		return 0
	}

	fmt.Fprintln(out)
	arn, err := awsIdentity(ctx, fetcher.S3Config{Region: cfg.AWS.Region, Profile: cfg.AWS.Profile})
	if err != nil {
		fmt.Fprintf(errOut, "  %s AWS identity: %v\n", color.RedString("[FAIL]"), err)
		return 1
	}
	fmt.Fprintf(out, "AWS identity: %s %s\n", arn, color.GreenString("[OK]"))
	return 0
}

func hasScheme(targets []string, scheme string) bool {
	for _, target := range targets {
		if strings.HasPrefix(target, scheme+"://") {
			return true
		}
	}
	return false
}

func fetchTargets(ctx context.Context, w, errOut io.Writer, cfg *config.Config) int {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Fetching targets:")

	router := app.NewRouter(cfg)
	failures := 0
	for _, target := range cfg.Targets {
		fetchCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout())
		content, err := router.Fetch(fetchCtx, target)
		cancel()

		if err != nil {
			failures++
			fmt.Fprintf(errOut, "  %s %s: %v\n", color.RedString("[FAIL]"), target, err)
			continue
		}
		fmt.Fprintf(w, "  %s %s (%d bytes)\n", color.GreenString("[OK]"), target, len(content))
	}
	return failures
}
