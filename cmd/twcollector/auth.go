package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"twcollector/pkg/auth"
	"twcollector/pkg/config"
	"twcollector/pkg/twitter"
	"twcollector/pkg/ui"
)

func newAuthCmd(global *globalOptions) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Twitter API credentials",
		Long: `Manage stored Twitter API credential profiles.

A profile holds the four OAuth 1.0a values of a developer app: consumer key,
consumer secret, access token and access secret. Profiles are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - TWCOLLECTOR_* environment variables (read only)

Never share your credentials or config files!`,
	}

	authCmd.AddCommand(
		newLoginCmd(global),
		newListCmd(),
		newLogoutCmd(),
		newVerifyCmd(global),
		&cobra.Command{
			Use:   "guide",
			Short: "Show how to obtain API credentials",
			Run: func(cmd *cobra.Command, args []string) {
				auth.ShowKeysGuide(cmd.OutOrStdout())
			},
		},
	)
	return authCmd
}

func newLoginCmd(global *globalOptions) *cobra.Command {
	var verify bool

	loginCmd := &cobra.Command{
		Use:   "login [profile]",
		Short: "Store Twitter API credentials securely",
		Long: `Store a credential profile in the system keychain or encrypted file.

You will be prompted for the consumer key, consumer secret, access token and
access secret. Secrets are hidden as you type. The profile name defaults to
"default", which collect uses when no --profile is given.`,
		Example: `  # Store the default profile
  twcollector auth login

  # Store and verify a named profile
  twcollector auth login research --verify`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := auth.DefaultProfile
			if len(args) > 0 {
				name = strings.TrimSpace(args[0])
			}
			return runLogin(cmd, global, name, verify)
		},
	}
	loginCmd.Flags().BoolVar(&verify, "verify", true, "check the credentials against the API before storing")
	return loginCmd
}

func runLogin(cmd *cobra.Command, global *globalOptions, name string, verify bool) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)
	fd := -1
	if f, ok := in.(*os.File); ok {
		fd = int(f.Fd())
	}

	auth.ShowQuickKeysGuide(out)
	fmt.Fprintln(out)

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Fprintf(out, "⚠️  Profile '%s' already exists. Replace it? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Fprintln(out, "🔐 Enter your credentials (secrets are hidden as you type):")
	account := &auth.Account{Name: name}
	prompts := []struct {
		label  string
		target *string
	}{
		{"Consumer key (API Key)", &account.ConsumerKey},
		{"Consumer secret (API Key Secret)", &account.ConsumerSecret},
		{"Access token", &account.AccessToken},
		{"Access secret (Access Token Secret)", &account.AccessSecret},
	}
	for _, p := range prompts {
		value, err := readSecret(out, reader, fd, p.label)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", strings.ToLower(p.label), err)
		}
		*p.target = value
	}

	if err := account.Validate(); err != nil {
		return err
	}

	if verify {
		user, err := verifyAccount(cmd, global, account)
		if err != nil {
			return err
		}
		account.ScreenName = user.ScreenName
		ui.PrintInfo("Authenticated as", "@"+user.ScreenName)
	}

	if err := manager.Store(account); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Profile saved: %s", name))
	fmt.Fprintln(out, "\n📖 Collect with this profile:")
	if name == auth.DefaultProfile {
		fmt.Fprintln(out, "   $ twcollector collect json <account>...")
	} else {
		fmt.Fprintf(out, "   $ twcollector collect json <account>... --profile %s\n", name)
	}
	return nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored profiles",
		Long:  `List stored credential profiles with their secrets masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newCredentialManager()
			if err != nil {
				return fmt.Errorf("failed to initialize credential manager: %w", err)
			}

			accounts, err := manager.List()
			if err != nil {
				return fmt.Errorf("failed to list profiles: %w", err)
			}
			if len(accounts) == 0 {
				ui.PrintInfo("No stored profiles", "Use 'twcollector auth login' to add one")
				return nil
			}

			out := cmd.OutOrStdout()
			for i, account := range accounts {
				printProfile(out, i+1, auth.SanitizeAccount(account))
			}
			return nil
		},
	}
}

func printProfile(out io.Writer, n int, account *auth.Account) {
	fmt.Fprintf(out, "%d. Profile: %s\n", n, account.Name)
	if account.ScreenName != "" {
		fmt.Fprintf(out, "   Screen name: @%s\n", account.ScreenName)
	}
	fmt.Fprintf(out, "   Consumer key: %s\n", account.ConsumerKey)
	fmt.Fprintf(out, "   Consumer secret: %s\n", account.ConsumerSecret)
	fmt.Fprintf(out, "   Access token: %s\n", account.AccessToken)
	fmt.Fprintf(out, "   Access secret: %s\n", account.AccessSecret)
	if !account.LastModified.IsZero() {
		fmt.Fprintf(out, "   Last modified: %s\n", account.LastModified.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(out)
}

func newLogoutCmd() *cobra.Command {
	var all bool

	logoutCmd := &cobra.Command{
		Use:   "logout [profile]",
		Short: "Remove stored credentials",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newCredentialManager()
			if err != nil {
				return fmt.Errorf("failed to initialize credential manager: %w", err)
			}

			if all {
				accounts, err := manager.List()
				if err != nil {
					return fmt.Errorf("failed to list profiles: %w", err)
				}
				var errs []error
				for _, account := range accounts {
					if err := manager.Delete(account.Name); err != nil {
						errs = append(errs, err)
						continue
					}
					ui.PrintSuccess("Profile removed: " + account.Name)
				}
				return errors.Join(errs...)
			}

			name := auth.DefaultProfile
			if len(args) > 0 {
				name = args[0]
			}
			if err := manager.Delete(name); err != nil {
				return err
			}
			ui.PrintSuccess("Profile removed: " + name)
			return nil
		},
	}
	logoutCmd.Flags().BoolVar(&all, "all", false, "remove every stored profile")
	return logoutCmd
}

func newVerifyCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [profile]",
		Short: "Check stored credentials against the API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newCredentialManager()
			if err != nil {
				return fmt.Errorf("failed to initialize credential manager: %w", err)
			}

			var account *auth.Account
			if len(args) > 0 {
				account, err = manager.Retrieve(args[0])
			} else {
				account, err = manager.RetrieveDefault()
			}
			if err != nil {
				return err
			}

			user, err := verifyAccount(cmd, global, account)
			if err != nil {
				return err
			}
			ui.PrintSuccess(fmt.Sprintf("Profile %s authenticates as @%s", account.Name, user.ScreenName))
			return nil
		},
	}
}

// verifyAccount authenticates account against the configured API
func verifyAccount(cmd *cobra.Command, global *globalOptions, account *auth.Account) (*twitter.User, error) {
	cfg, err := config.Load(global.configFile, nil)
	if err != nil {
		return nil, err
	}

	client, err := twitter.Authenticate(cmd.Context(), account.Credentials(), twitter.Options{
		BaseURL: cfg.Twitter.BaseURL,
		Timeout: cfg.Twitter.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}

	user, err := client.VerifyCredentials(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("credential verification failed: %w", err)
	}
	return user, nil
}

// readSecret prompts for a value, hiding input when fd is a terminal
func readSecret(out io.Writer, reader *bufio.Reader, fd int, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)

	if fd >= 0 && reader.Buffered() == 0 && term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
