package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"twcollector/pkg/auth"
	"twcollector/pkg/config"
	"twcollector/pkg/ui"
)

const defaultConfigPath = "twcollector.yaml"

// exampleConfig is written by 'config init'
const exampleConfig = `# twcollector configuration file
#
# Every value can also be set with an environment variable prefixed with
# TWCOLLECTOR_, for example TWCOLLECTOR_CONSUMER_KEY or TWCOLLECTOR_OUTPUT_FILE.
# Command line flags take precedence over both.

# Twitter API access (OAuth 1.0a user context)
twitter:
  # Leave the credentials empty to use a profile stored with 'twcollector auth login'
  consumer_key: ""
  consumer_secret: ""
  access_token: ""
  access_secret: ""

  base_url: "https://api.twitter.com/1.1"
  request_timeout: 30s

  # Check the credentials before the first account is fetched
  verify_credentials: false

# Collection loop
collection:
  # Posts requested per account, 1-200
  posts_per_account: 200

  # End-of-run lists and per-error logging
  print_failed: true
  print_unauthorized: true
  print_errors: true

# Client-side pacing and retries
rate_limit:
  # user_timeline allows 900 requests per 15 minutes
  requests_per_window: 900
  window: 15m

  # Wait after a rate limited request: constant, linear or exponential
  retry_delay: 20s
  backoff: constant
  backoff_multiplier: 2.0
  max_delay: 15m
  max_retries: 15

  # Network failures are retried after this delay
  network_retry_delay: 0s
  max_network_retries: 5

# Output
output:
  # json or hashtags
  format: json
  file: timelines.jsonl

  # Optional JSON run summary
  summary_file: ""

# Prometheus textfile export (optional)
metrics:
  textfile: ""

# Logging
logging:
  # debug, info, warn, error, disabled
  level: info

  # Optional log file in addition to stderr
  file: ""
`

func newConfigCmd(global *globalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage twcollector configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (TWCOLLECTOR_*)
  - .env files
  - Configuration file
  - Default values`,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create an example configuration file",
		Long: `Create an example configuration file with all available options.

The file is created as 'twcollector.yaml' in the current directory unless a
different path is given with --config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := global.configFile
			if path == "" {
				path = defaultConfigPath
			}
			return runConfigInit(path, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging every source.

Credentials are masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.configFile, nil)
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(maskConfig(cfg))
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Validate the configuration file and environment.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Whether complete credentials are configured`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := global.configFile
			if path == "" {
				path = config.FindConfigFile()
			}

			cfg, err := config.Load(path, nil)
			if err != nil {
				return err
			}

			if path == "" {
				ui.PrintInfo("Config file", "none found, using defaults")
			} else {
				ui.PrintInfo("Config file", path)
			}
			if !cfg.Twitter.HasCredentials() {
				ui.PrintWarning("No complete credentials in config or environment; a stored profile will be needed")
			}
			ui.PrintSuccess("Configuration is valid")
			return nil
		},
	}

	configCmd.AddCommand(initCmd, showCmd, validateCmd)
	return configCmd
}

func runConfigInit(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check configuration file: %w", err)
	}

	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	ui.PrintInfo("Next", "add credentials or run 'twcollector auth login', then 'twcollector config validate'")
	return nil
}

// maskConfig returns a copy of cfg with the credentials masked
func maskConfig(cfg *config.Config) *config.Config {
	masked := *cfg
	masked.Twitter.ConsumerKey = auth.MaskString(cfg.Twitter.ConsumerKey)
	masked.Twitter.ConsumerSecret = auth.MaskString(cfg.Twitter.ConsumerSecret)
	masked.Twitter.AccessToken = auth.MaskString(cfg.Twitter.AccessToken)
	masked.Twitter.AccessSecret = auth.MaskString(cfg.Twitter.AccessSecret)
	return &masked
}
