package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowKeysGuide writes step-by-step instructions for obtaining the four
// OAuth 1.0a credentials from the developer portal
func ShowKeysGuide(w io.Writer) {
	rule := strings.Repeat("=", 80)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "🔑 TWITTER API CREDENTIALS GUIDE")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "twcollector signs its requests with OAuth 1.0a user context and needs")
	fmt.Fprintln(w, "four values from a Twitter developer app.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🌐 STEP 1: Open the developer portal")
	fmt.Fprintln(w, "   - Go to https://developer.twitter.com/en/portal/dashboard")
	fmt.Fprintln(w, "   - Sign in with the account the requests should be made as")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "📦 STEP 2: Create or select a project and app")
	fmt.Fprintln(w, "   - The app needs at least Read permissions")
	fmt.Fprintln(w, "   - v1.1 statuses/user_timeline must be available on your access tier")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🗝  STEP 3: Open 'Keys and tokens' and generate:")
	fmt.Fprintln(w, "   ┌──────────────────────┬───────────────────────────────────────────┐")
	fmt.Fprintln(w, "   │ Portal label         │ twcollector prompt                        │")
	fmt.Fprintln(w, "   ├──────────────────────┼───────────────────────────────────────────┤")
	fmt.Fprintln(w, "   │ API Key              │ Consumer key                              │")
	fmt.Fprintln(w, "   │ API Key Secret       │ Consumer secret                           │")
	fmt.Fprintln(w, "   │ Access Token         │ Access token                              │")
	fmt.Fprintln(w, "   │ Access Token Secret  │ Access secret                             │")
	fmt.Fprintln(w, "   └──────────────────────┴───────────────────────────────────────────┘")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "💡 TIPS:")
	fmt.Fprintln(w, "   • Secrets are shown only once; regenerate them if lost")
	fmt.Fprintln(w, "   • Regenerating the access token invalidates the previous pair")
	fmt.Fprintln(w, "   • 'twcollector auth verify' checks a stored profile against the API")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "⚠️  SECURITY WARNING:")
	fmt.Fprintln(w, "   • These values act on behalf of your account")
	fmt.Fprintln(w, "   • NEVER commit them to a repository")
	fmt.Fprintln(w, "   • Stored profiles are kept in the system keyring or an encrypted file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}

// ShowQuickKeysGuide writes a condensed version for experienced users
func ShowQuickKeysGuide(w io.Writer) {
	fmt.Fprintln(w, "\n🔑 Quick Guide: developer portal → your app → Keys and tokens")
	fmt.Fprintln(w, "   Need: API Key, API Key Secret, Access Token, Access Token Secret")
	fmt.Fprintln(w, "   Type 'help' for detailed instructions")
}
