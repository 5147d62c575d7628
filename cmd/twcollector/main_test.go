package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"twcollector/pkg/auth"
	"twcollector/pkg/config"
	"twcollector/pkg/twitter"
	"twcollector/pkg/ui"
)

const alicePosts = `[
  {"id":2,"id_str":"2","full_text":"second #go #api","entities":{"hashtags":[{"text":"go"},{"text":"api"}]},"user":{"screen_name":"alice"}},
  {"id":1,"id_str":"1","full_text":"first #go","entities":{"hashtags":[{"text":"go"}]},"user":{"screen_name":"alice"}}
]`

// isolate points every config and credential source at empty temp
// locations and silences terminal output
func isolate(t *testing.T) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, key := range []string{auth.EnvConsumerKey, auth.EnvConsumerSecret, auth.EnvAccessToken, auth.EnvAccessSecret} {
		t.Setenv(key, "")
	}

	ui.SetOutput(io.Discard)
	t.Cleanup(func() { ui.SetOutput(os.Stdout) })

	orig := newCredentialManager
	manager, _ := auth.NewMockManager()
	newCredentialManager = func() (*auth.Manager, error) { return manager, nil }
	t.Cleanup(func() { newCredentialManager = orig })
}

func setEnvCredentials(t *testing.T) {
	t.Helper()
	t.Setenv(auth.EnvConsumerKey, "ck")
	t.Setenv(auth.EnvConsumerSecret, "cs")
	t.Setenv(auth.EnvAccessToken, "at")
	t.Setenv(auth.EnvAccessSecret, "as")
}

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(twitter.UserTimelineEndpoint, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("screen_name") {
		case "alice":
			_, _ = io.WriteString(w, alicePosts)
		case "bob":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"request":"/1.1/statuses/user_timeline.json","error":"Not authorized."}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"errors":[{"code":34,"message":"Sorry, that page does not exist."}]}`)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String()
}

func TestCollectHashtagsPartialFailure(t *testing.T) {
	isolate(t)
	setEnvCredentials(t)
	srv := newFakeAPI(t)

	dir := t.TempDir()
	output := filepath.Join(dir, "tags.csv")
	summaryPath := filepath.Join(dir, "run.json")
	metricsPath := filepath.Join(dir, "run.prom")

	code, stdout := run(t, "collect", "hashtags", "alice", "@bob",
		"--output", output,
		"--summary", summaryPath,
		"--metrics-textfile", metricsPath,
		"--base-url", srv.URL,
		"--log-level", "disabled")

	assert.Equal(t, exitPartial, code)
	assert.Contains(t, stdout, "Failed (0): none")
	assert.Contains(t, stdout, "Unauthorized (1): bob")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "alice,\"[\"\"go\"\",\"\"api\"\",\"\"go\"\"]\"\n", string(data))

	raw, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	var summary struct {
		Format       string   `json:"format"`
		Succeeded    []string `json:"succeeded"`
		Unauthorized []string `json:"unauthorized"`
		PostsWritten int      `json:"posts_written"`
	}
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, "hashtags", summary.Format)
	assert.Equal(t, []string{"alice"}, summary.Succeeded)
	assert.Equal(t, []string{"bob"}, summary.Unauthorized)
	assert.Equal(t, 2, summary.PostsWritten)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `twcollector_accounts_total{disposition="unauthorized"} 1`)
}

func TestCollectJSONAllSucceed(t *testing.T) {
	isolate(t)
	setEnvCredentials(t)
	srv := newFakeAPI(t)

	output := filepath.Join(t.TempDir(), "posts.jsonl")
	code, _ := run(t, "collect", "json", "alice",
		"--output", output,
		"--base-url", srv.URL,
		"--no-print-failed", "--no-print-unauthorized",
		"--log-level", "disabled")
	require.Equal(t, exitOK, code)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"id":2`)
	assert.Contains(t, lines[1], `"id":1`)
}

func TestCollectPrintSwitchesOff(t *testing.T) {
	isolate(t)
	setEnvCredentials(t)
	srv := newFakeAPI(t)

	code, stdout := run(t, "collect", "json", "bob", "carol",
		"--output", filepath.Join(t.TempDir(), "posts.jsonl"),
		"--base-url", srv.URL,
		"--no-print-failed", "--no-print-unauthorized",
		"--log-level", "disabled")

	assert.Equal(t, exitPartial, code)
	assert.NotContains(t, stdout, "Failed")
	assert.NotContains(t, stdout, "Unauthorized")
}

func TestCollectMissingCredentials(t *testing.T) {
	isolate(t)
	t.Setenv(auth.EnvConsumerKey, "only-this-one")
	output := filepath.Join(t.TempDir(), "posts.jsonl")

	code, _ := run(t, "collect", "json", "alice", "--output", output, "--log-level", "disabled")
	assert.Equal(t, exitFailure, code)

	_, err := os.Stat(output)
	assert.True(t, os.IsNotExist(err), "no output is created before authentication")
}

func TestCollectArgumentErrors(t *testing.T) {
	isolate(t)
	setEnvCredentials(t)

	code, _ := run(t, "collect", "xml", "alice", "--log-level", "disabled")
	assert.Equal(t, exitFailure, code)

	code, _ = run(t, "collect", "--log-level", "disabled")
	assert.Equal(t, exitFailure, code)

	code, _ = run(t, "collect", "json", "--log-level", "disabled")
	assert.Equal(t, exitFailure, code, "no accounts")
}

func TestReadAccounts(t *testing.T) {
	input := "# research list\nalice\n\n  @bob  \n#carol\ndave/\n"
	accounts, err := readAccounts(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "dave"}, accounts)
}

func TestGatherAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.txt")
	require.NoError(t, os.WriteFile(path, []byte("carol\n@dave\n"), 0644))

	accounts, err := gatherAccounts([]string{"@alice", " ", "bob"}, path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, accounts)

	accounts, err = gatherAccounts(nil, "-", strings.NewReader("erin\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"erin"}, accounts)

	_, err = gatherAccounts(nil, filepath.Join(t.TempDir(), "missing.txt"), nil)
	assert.Error(t, err)
}

func TestResolveCredentials(t *testing.T) {
	stored := &auth.Account{
		Name:           "research",
		ConsumerKey:    "stored-ck",
		ConsumerSecret: "stored-cs",
		AccessToken:    "stored-at",
		AccessSecret:   "stored-as",
	}

	withManager := func(t *testing.T, accounts ...*auth.Account) {
		manager, _ := auth.NewMockManager()
		for _, a := range accounts {
			require.NoError(t, manager.Store(a))
		}
		orig := newCredentialManager
		newCredentialManager = func() (*auth.Manager, error) { return manager, nil }
		t.Cleanup(func() { newCredentialManager = orig })
	}

	complete := config.DefaultConfig()
	complete.Twitter.ConsumerKey = "ck"
	complete.Twitter.ConsumerSecret = "cs"
	complete.Twitter.AccessToken = "at"
	complete.Twitter.AccessSecret = "as"

	t.Run("config wins without profile", func(t *testing.T) {
		withManager(t, stored)
		creds, source, err := resolveCredentials(complete, "")
		require.NoError(t, err)
		assert.Equal(t, "config", source)
		assert.Equal(t, "ck", creds.ConsumerKey)
	})

	t.Run("named profile", func(t *testing.T) {
		withManager(t, stored)
		creds, source, err := resolveCredentials(complete, "research")
		require.NoError(t, err)
		assert.Equal(t, "profile:research", source)
		assert.Equal(t, "stored-ck", creds.ConsumerKey)
	})

	t.Run("missing profile", func(t *testing.T) {
		withManager(t)
		_, _, err := resolveCredentials(complete, "nope")
		assert.ErrorIs(t, err, auth.ErrCredentialsNotFound)
	})

	t.Run("default profile when config incomplete", func(t *testing.T) {
		withManager(t, stored)
		creds, source, err := resolveCredentials(config.DefaultConfig(), "")
		require.NoError(t, err)
		assert.Equal(t, "profile:research", source)
		assert.Equal(t, "stored-as", creds.AccessSecret)
	})

	t.Run("nothing stored", func(t *testing.T) {
		withManager(t)
		creds, source, err := resolveCredentials(config.DefaultConfig(), "")
		require.NoError(t, err)
		assert.Equal(t, "config", source)
		assert.Len(t, creds.Missing(), 4)
	})

	t.Run("manager unavailable", func(t *testing.T) {
		orig := newCredentialManager
		newCredentialManager = func() (*auth.Manager, error) { return nil, errors.New("no config dir") }
		t.Cleanup(func() { newCredentialManager = orig })

		_, source, err := resolveCredentials(config.DefaultConfig(), "")
		require.NoError(t, err)
		assert.Equal(t, "config", source)

		_, _, err = resolveCredentials(config.DefaultConfig(), "research")
		assert.Error(t, err)
	})
}

func TestConfigInitWritesValidExample(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "twcollector.yaml")

	code, _ := run(t, "config", "init", "--config", path)
	require.Equal(t, exitOK, code)

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 900, cfg.RateLimit.RequestsPerWindow)

	code, _ = run(t, "config", "init", "--config", path)
	assert.Equal(t, exitFailure, code, "refuses to overwrite")

	code, _ = run(t, "config", "init", "--config", path, "--force")
	assert.Equal(t, exitOK, code)
}

func TestConfigShowMasksCredentials(t *testing.T) {
	isolate(t)
	t.Setenv(auth.EnvConsumerSecret, "super-secret-consumer")

	code, stdout := run(t, "config", "show")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "supe...umer")
	assert.NotContains(t, stdout, "super-secret-consumer")
}

func TestAuthLoginListLogout(t *testing.T) {
	isolate(t)

	var stdout bytes.Buffer
	root := newRootCmd()
	root.SetArgs([]string{"auth", "login", "research", "--verify=false"})
	root.SetIn(strings.NewReader("ck-123456789\ncs-123456789\nat-123456789\nas-123456789\n"))
	root.SetOut(&stdout)
	require.NoError(t, root.ExecuteContext(context.Background()))

	code, listed := run(t, "auth", "list")
	require.Equal(t, exitOK, code)
	assert.Contains(t, listed, "Profile: research")
	assert.Contains(t, listed, "ck-1...6789")
	assert.NotContains(t, listed, "ck-123456789")

	code, _ = run(t, "auth", "logout", "research")
	assert.Equal(t, exitOK, code)

	code, _ = run(t, "auth", "logout", "research")
	assert.Equal(t, exitFailure, code)
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	code, stdout := run(t, "version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "twcollector "+version)
}
