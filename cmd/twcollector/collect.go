package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"twcollector/pkg/auth"
	"twcollector/pkg/collector"
	"twcollector/pkg/config"
	"twcollector/pkg/logger"
	"twcollector/pkg/metrics"
	"twcollector/pkg/ratelimit"
	"twcollector/pkg/report"
	"twcollector/pkg/twitter"
	"twcollector/pkg/ui"
	"twcollector/pkg/writer"
)

// newCredentialManager is replaced in tests
var newCredentialManager = auth.NewManager

type collectOptions struct {
	accountsFile        string
	output              string
	summary             string
	metricsTextfile     string
	baseURL             string
	profile             string
	verify              bool
	noPrintFailed       bool
	noPrintUnauthorized bool
	noPrintErrors       bool
	rateLimitDelay      time.Duration
	maxRetries          int
	notify              bool
}

func newCollectCmd(global *globalOptions) *cobra.Command {
	opts := &collectOptions{}

	collectCmd := &cobra.Command{
		Use:   "collect <json|hashtags> [accounts...]",
		Short: "Collect the newest posts of a list of accounts",
		Long: `Collect the newest posts (up to 200) of every account and write them to one file.

Formats:
  json      one raw post object per line, in API order
  hashtags  one CSV row per account: the account name and a JSON array of
            every hashtag in its posts, duplicates kept

Accounts are processed in order. Rate limited requests wait and retry, network
failures retry immediately; both are bounded. Accounts that fail are listed at
the end of the run and recorded in the summary file.

Exit status is 0 when every account succeeded, 2 when some did not and 1 when
the run could not start or its output could not be written.`,
		Example: `  # Dump raw posts of two accounts
  twcollector collect json nasa esa --output space.jsonl

  # Hashtags of every account in a file, with a run summary
  twcollector collect hashtags --accounts-file accounts.txt --output tags.csv --summary run.json

  # Use a stored credential profile and check it first
  twcollector collect json nasa --profile research --verify`,
		ValidArgs: formatNames(),
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("requires an output format (%s)", strings.Join(formatNames(), ", "))
			}
			_, err := writer.ParseFormat(args[0])
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, global, opts, args)
		},
	}

	f := collectCmd.Flags()
	f.StringVarP(&opts.accountsFile, "accounts-file", "f", "", "file with one account per line ('-' for stdin)")
	f.StringVarP(&opts.output, "output", "o", "", "output file (default from config)")
	f.StringVar(&opts.summary, "summary", "", "write the run summary as JSON to this file")
	f.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write run metrics in Prometheus text format to this file")
	f.StringVar(&opts.baseURL, "base-url", "", "Twitter API base URL")
	f.StringVarP(&opts.profile, "profile", "p", "", "use a stored credential profile")
	f.BoolVar(&opts.verify, "verify", false, "verify credentials before collecting")
	f.BoolVar(&opts.noPrintFailed, "no-print-failed", false, "do not print the failed account list")
	f.BoolVar(&opts.noPrintUnauthorized, "no-print-unauthorized", false, "do not print the unauthorized account list")
	f.BoolVar(&opts.noPrintErrors, "no-print-errors", false, "do not log individual fetch errors")
	f.DurationVar(&opts.rateLimitDelay, "rate-limit-delay", 0, "wait after a rate limited request (default from config)")
	f.IntVar(&opts.maxRetries, "max-retries", 0, "rate limit retries per account (default from config)")
	f.BoolVar(&opts.notify, "notify", false, "send a desktop notification when the run finishes")

	return collectCmd
}

// flagMap returns the flags the user set, keyed as config.MergeCommandLineFlags expects
func (o *collectOptions) flagMap(cmd *cobra.Command, global *globalOptions, format writer.Format) map[string]interface{} {
	flags := map[string]interface{}{
		"format": string(format),
	}
	changed := cmd.Flags().Changed

	if o.output != "" {
		flags["output"] = o.output
	}
	if o.summary != "" {
		flags["summary"] = o.summary
	}
	if o.metricsTextfile != "" {
		flags["metrics-textfile"] = o.metricsTextfile
	}
	if o.baseURL != "" {
		flags["base-url"] = o.baseURL
	}
	if changed("verify") {
		flags["verify"] = o.verify
	}
	if changed("no-print-failed") {
		flags["print-failed"] = !o.noPrintFailed
	}
	if changed("no-print-unauthorized") {
		flags["print-unauthorized"] = !o.noPrintUnauthorized
	}
	if changed("no-print-errors") {
		flags["print-errors"] = !o.noPrintErrors
	}
	if changed("rate-limit-delay") {
		flags["rate-limit-delay"] = o.rateLimitDelay
	}
	if changed("max-retries") {
		flags["max-retries"] = o.maxRetries
	}
	if global.logLevel != "" {
		flags["log-level"] = global.logLevel
	}
	return flags
}

func runCollect(cmd *cobra.Command, global *globalOptions, opts *collectOptions, args []string) error {
	format, err := writer.ParseFormat(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.Load(global.configFile, opts.flagMap(cmd, global, format))
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger().WithField("version", version)

	accounts, err := gatherAccounts(args[1:], opts.accountsFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return errors.New("no accounts given: pass names as arguments or use --accounts-file")
	}
	for _, account := range accounts {
		if !twitter.IsValidScreenName(account) {
			log.WithField("account", account).Warn("Not a valid screen name, the API will likely reject it")
		}
	}

	creds, source, err := resolveCredentials(cfg, opts.profile)
	if err != nil {
		return err
	}
	log.WithField("source", source).Info("Using credentials")

	ctx := cmd.Context()

	client, err := twitter.Authenticate(ctx, creds, twitter.Options{
		BaseURL: cfg.Twitter.BaseURL,
		Timeout: cfg.Twitter.RequestTimeout,
		Verify:  cfg.Twitter.VerifyCredentials,
		Limiter: ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window),
		Logger:  log,
	})
	if err != nil {
		return err
	}

	runOpts, err := collector.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	recorder, err := metrics.New()
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}
	runOpts.Out = cmd.OutOrStdout()
	runOpts.Logger = log
	runOpts.Metrics = recorder
	if !ui.IsQuietMode() {
		runOpts.Progress = ui.NewStatusTracker(cmd.ErrOrStderr())
	}

	ui.PrintInfo("Format", string(format))
	ui.PrintInfo("Accounts", strconv.Itoa(len(accounts)))
	ui.PrintInfo("Output", cfg.Output.File)
	ui.PrintHighlight("[COLLECTING]")

	summary, runErr := collector.New(client, runOpts).Collect(ctx, accounts, format, cfg.Output.File)

	if summary != nil {
		if !ui.IsQuietMode() {
			if err := report.PrintTable(cmd.ErrOrStderr(), summary.Rows()); err != nil {
				log.WithError(err).Warn("Failed to print result table")
			}
		}
		if cfg.Output.SummaryFile != "" {
			if err := report.SaveJSON(cfg.Output.SummaryFile, summary); err != nil {
				log.WithError(err).Error("Failed to save run summary")
			} else {
				ui.PrintInfo("Summary", cfg.Output.SummaryFile)
			}
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.WithError(err).Error("Failed to write metrics textfile")
		}
	}

	if opts.notify && summary != nil {
		if err := ui.NewNotifier().RunFinished(len(summary.Succeeded), summary.Processed(), cfg.Output.File); err != nil {
			log.WithError(err).Debug("Desktop notification failed")
		}
	}

	if runErr != nil {
		return runErr
	}

	if !summary.AllSucceeded() {
		return &exitError{
			code: exitPartial,
			err: fmt.Errorf("%d of %d accounts did not succeed",
				summary.Processed()-len(summary.Succeeded), summary.Processed()),
		}
	}

	ui.PrintSuccess(fmt.Sprintf("[COLLECTED %d POSTS FROM %d ACCOUNTS IN %s]",
		summary.PostsWritten, summary.Processed(), summary.Duration().Round(time.Millisecond)))
	return nil
}

// gatherAccounts joins the command line accounts with those read from
// file, keeping order. path "-" reads from stdin.
func gatherAccounts(args []string, path string, stdin io.Reader) ([]string, error) {
	var accounts []string
	for _, arg := range args {
		if name := twitter.SanitizeScreenName(arg); name != "" {
			accounts = append(accounts, name)
		}
	}

	if path == "" {
		return accounts, nil
	}

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open accounts file: %w", err)
		}
		defer f.Close()
		r = f
	}

	fromFile, err := readAccounts(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}
	return append(accounts, fromFile...), nil
}

// readAccounts reads one account per line. Blank lines and lines starting
// with '#' are skipped.
func readAccounts(r io.Reader) ([]string, error) {
	var accounts []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if name := twitter.SanitizeScreenName(line); name != "" {
			accounts = append(accounts, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// resolveCredentials picks the credentials for a run. A named profile must
// exist. Otherwise complete credentials from config or environment win, then
// the default stored profile. When nothing is complete the config values are
// returned as they are and Authenticate reports what is missing.
func resolveCredentials(cfg *config.Config, profile string) (twitter.Credentials, string, error) {
	fromConfig := twitter.Credentials{
		ConsumerKey:    cfg.Twitter.ConsumerKey,
		ConsumerSecret: cfg.Twitter.ConsumerSecret,
		AccessToken:    cfg.Twitter.AccessToken,
		AccessSecret:   cfg.Twitter.AccessSecret,
	}

	if profile == "" && cfg.Twitter.HasCredentials() {
		return fromConfig, "config", nil
	}

	manager, err := newCredentialManager()
	if err != nil {
		if profile != "" {
			return twitter.Credentials{}, "", fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		return fromConfig, "config", nil
	}

	if profile != "" {
		account, err := manager.Retrieve(profile)
		if err != nil {
			return twitter.Credentials{}, "", fmt.Errorf("profile %q: %w (run 'twcollector auth list')", profile, err)
		}
		return account.Credentials(), "profile:" + account.Name, nil
	}

	account, err := manager.RetrieveDefault()
	if err != nil {
		return fromConfig, "config", nil
	}
	return account.Credentials(), "profile:" + account.Name, nil
}

func formatNames() []string {
	names := make([]string, 0, len(writer.Formats))
	for _, f := range writer.Formats {
		names = append(names, string(f))
	}
	return names
}
