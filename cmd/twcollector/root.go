package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"twcollector/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configFile string
	logLevel   string
	quiet      bool
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	global := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "twcollector",
		Short: "Collect the most recent posts of Twitter accounts",
		Long: `twcollector fetches the newest posts (up to 200) of every account in a list
through the Twitter REST API and writes them to one file, either as raw
JSON records or as a CSV of account hashtags.

Features:
  - OAuth 1.0a credentials from the system keychain, an encrypted file or env
  - Client-side pacing within the API rate limit window
  - Bounded waits and retries on rate limiting and network failures
  - Atomic output files and a JSON run summary
  - Prometheus textfile export of run metrics`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if global.quiet || global.logLevel == "error" || global.logLevel == "disabled" {
				ui.SetQuietMode(true)
			}
			if cmd.Name() != "version" && cmd.Name() != "help" {
				ui.PrintLogo()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&global.configFile, "config", "c", "", "config file (default is ./twcollector.yaml or ~/.config/twcollector/config.yaml)")
	pf.StringVar(&global.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	pf.BoolVarP(&global.quiet, "quiet", "q", false, "suppress all output except errors and the account lists")

	rootCmd.SetVersionTemplate(versionText())
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newCollectCmd(global),
		newAuthCmd(global),
		newConfigCmd(global),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), versionText())
		},
	}
}

func versionText() string {
	return fmt.Sprintf("twcollector %s (commit: %s, built: %s)\nGo Version: %s\nOS/Arch: %s/%s\n",
		version, gitCommit, buildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
