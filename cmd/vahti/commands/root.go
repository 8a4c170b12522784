package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/pkg/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vahti",
	Short: "Watch web pages and mail you when they change",
	Long: `vahti polls a fixed list of pages on an interval and sends one
notification per cycle listing every page whose content changed.

A daily heartbeat confirms the watcher is still alive.

QUICK START:
  vahti init                 # Write a starter vahti.yaml
  vahti check-config         # Validate configuration and credentials
  vahti run                  # Capture baselines and start watching

TARGETS:
  http:// and https://       Fetched with GET
  s3://bucket/key            Read with the AWS SDK
  gs://bucket/object         Read with the Cloud Storage client
  azblob://account/c/blob    Read from Azure Blob Storage
  k8s://ns/configmap/name    Read a ConfigMap, optionally /key`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			runVersion(cmd, []string{})
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the root command and exits with a code matching the error type
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		vahtierrors.DisplayError(err)
		os.Exit(vahtierrors.GetExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./vahti.yaml, $HOME/.vahti, /etc/vahti)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.Flags().Bool("version", false, "show version information")

	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("output.no_color", rootCmd.PersistentFlags().Lookup("no-color"))

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newCheckConfigCommand())
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newVersionCommand())
}

// loadConfig reads the config file and environment through the global viper
// instance, so bound flags take precedence.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper(), cfgFile)
}
