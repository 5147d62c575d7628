package twitter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	errs "twcollector/pkg/errors"
	"twcollector/pkg/logger"
	"twcollector/pkg/ratelimit"
)

// Credentials are the four OAuth 1.0a secrets of a Twitter app and user
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// Missing returns the names of the empty credentials
func (c Credentials) Missing() []string {
	var missing []string
	if c.ConsumerKey == "" {
		missing = append(missing, "consumer key")
	}
	if c.ConsumerSecret == "" {
		missing = append(missing, "consumer secret")
	}
	if c.AccessToken == "" {
		missing = append(missing, "access token")
	}
	if c.AccessSecret == "" {
		missing = append(missing, "access secret")
	}
	return missing
}

// Options tune an authenticated client
type Options struct {
	// BaseURL defaults to DefaultBaseURL
	BaseURL string
	// Timeout bounds a single request; defaults to 30s
	Timeout time.Duration
	// Verify checks the credentials against the API before returning
	Verify bool
	// Limiter paces requests; nil disables client-side pacing
	Limiter ratelimit.Limiter
	// HTTPClient supplies the transport requests are signed on top of
	HTTPClient *http.Client
	Logger     logger.Logger
}

// Client is an authenticated handle to the Twitter REST API
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// Authenticate builds a client that signs every request with creds.
// Missing credentials, or a failed verification when opts.Verify is set,
// are reported as KindSetupFailure and no client is returned.
func Authenticate(ctx context.Context, creds Credentials, opts Options) (*Client, error) {
	if missing := creds.Missing(); len(missing) > 0 {
		return nil, errs.New(errs.KindSetupFailure, 0, "missing credentials: %s", strings.Join(missing, ", "))
	}

	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	// the oauth1 transport wraps the base client's transport
	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := config.Client(context.WithValue(ctx, oauth1.HTTPClient, base), token)
	httpClient.Timeout = opts.Timeout

	client := &Client{
		httpClient: httpClient,
		baseURL:    opts.BaseURL,
		limiter:    opts.Limiter,
		logger:     log,
	}

	if opts.Verify {
		user, err := client.VerifyCredentials(ctx)
		if err != nil {
			return nil, errs.Wrap(errs.KindSetupFailure, err, "credential verification failed")
		}
		log.InfoWithFields("authenticated", map[string]interface{}{
			"screen_name": user.ScreenName,
		})
	}

	return client, nil
}

// FetchRecentPosts returns up to limit of the account's newest posts,
// most recent first. Failures carry an errs.Kind.
func (c *Client) FetchRecentPosts(ctx context.Context, account string, limit int) ([]Post, error) {
	screenName := SanitizeScreenName(account)
	if screenName == "" {
		return nil, errs.New(errs.KindOther, 0, "empty screen name")
	}

	url := UserTimelineURL(c.baseURL, screenName, limit)

	c.logger.DebugWithFields("fetching timeline", map[string]interface{}{
		"account": screenName,
		"limit":   limit,
	})

	var posts []Post
	if err := c.getJSON(ctx, url, &posts); err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("fetched timeline", map[string]interface{}{
		"account": screenName,
		"posts":   len(posts),
	})

	return posts, nil
}

// VerifyCredentials returns the user the credentials belong to
func (c *Client) VerifyCredentials(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, VerifyCredentialsURL(c.baseURL), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// getJSON performs a paced, signed GET and decodes a 200 response into target
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.Wrap(errs.KindOther, err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":      req.URL.Path,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return errs.Wrap(errs.KindTransientNetwork, err, "Failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errs.Wrap(errs.KindTransientNetwork, err, "Failed to send request: reading response body")
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      req.URL.Path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if err := checkResponse(resp.StatusCode, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          req.URL.Path,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.Wrap(errs.KindOther, err, "failed to parse response")
	}

	return nil
}

// checkResponse maps a non-200 response to a typed error.
// Status and API code decide first; the message text decides the rest.
func checkResponse(status int, body []byte) error {
	if status == http.StatusOK {
		return nil
	}

	var apiResp errorResponse
	_ = json.Unmarshal(body, &apiResp)
	reason, code := apiResp.reason()
	if reason == "" {
		reason = http.StatusText(status)
	}

	var kind errs.Kind
	switch {
	case status == http.StatusTooManyRequests || apiResp.hasCode(rateLimitCode):
		kind = errs.KindRateLimited
		code = rateLimitCode
	case status == http.StatusUnauthorized:
		kind = errs.KindUnauthorized
	default:
		kind = ClassifyReason(reason)
	}

	if code == 0 {
		code = status
	}
	return &errs.Error{Kind: kind, Message: reason, Code: code}
}

// ClassifyReason maps a free-text failure reason to an error kind
func ClassifyReason(reason string) errs.Kind {
	switch {
	case reason == "Not authorized.":
		return errs.KindUnauthorized
	case strings.Contains(reason, "Failed ot send request"),
		strings.Contains(reason, "Failed to send request"):
		return errs.KindTransientNetwork
	default:
		return errs.KindOther
	}
}
