package twitter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the REST v1.1 API root
	DefaultBaseURL = "https://api.twitter.com/1.1"

	// UserTimelineEndpoint returns the most recent tweets of one account
	UserTimelineEndpoint = "/statuses/user_timeline.json"

	// VerifyCredentialsEndpoint returns the authenticating user
	VerifyCredentialsEndpoint = "/account/verify_credentials.json"

	// MaxPostsPerRequest is the largest page the timeline endpoint serves
	MaxPostsPerRequest = 200

	// maxScreenNameLength is Twitter's limit on handle length
	maxScreenNameLength = 15

	// rateLimitCode is the API error code for "Rate limit exceeded"
	rateLimitCode = 88
)

// UserTimelineURL constructs the URL for the newest posts of screenName.
// count is clamped to 1..MaxPostsPerRequest.
func UserTimelineURL(baseURL, screenName string, count int) string {
	if count <= 0 || count > MaxPostsPerRequest {
		count = MaxPostsPerRequest
	}

	params := url.Values{}
	params.Set("screen_name", screenName)
	params.Set("count", strconv.Itoa(count))
	params.Set("tweet_mode", "extended")

	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), UserTimelineEndpoint, params.Encode())
}

// VerifyCredentialsURL constructs the credential check URL
func VerifyCredentialsURL(baseURL string) string {
	params := url.Values{}
	params.Set("skip_status", "true")
	params.Set("include_entities", "false")

	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), VerifyCredentialsEndpoint, params.Encode())
}

// ProfileURL returns the public profile page of an account
func ProfileURL(screenName string) string {
	if screenName == "" {
		return ""
	}
	return "https://twitter.com/" + screenName
}

// IsValidScreenName checks a handle against Twitter's rules:
// 1 to 15 letters, digits or underscores.
func IsValidScreenName(screenName string) bool {
	if screenName == "" || len(screenName) > maxScreenNameLength {
		return false
	}

	for _, char := range screenName {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}
	return true
}

// SanitizeScreenName trims whitespace and a leading '@'
func SanitizeScreenName(screenName string) string {
	screenName = strings.TrimSpace(screenName)
	screenName = strings.TrimPrefix(screenName, "@")
	return strings.TrimRight(screenName, "/ ")
}
