package twitter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostKeepsRawPayload(t *testing.T) {
	input := `{"id":7, "full_text":"hi #go", "lang":"en",
		"entities":{"hashtags":[{"text":"go","indices":[3,6]}],"urls":[]}}`

	var post Post
	require.NoError(t, json.Unmarshal([]byte(input), &post))

	assert.Equal(t, int64(7), post.ID)
	assert.Equal(t, []string{"go"}, post.Hashtags())
	assert.JSONEq(t, input, string(post.Raw))

	out, err := json.Marshal(post)
	require.NoError(t, err)
	assert.Equal(t, string(post.Raw), string(out), "unknown fields survive a round trip")
	assert.Contains(t, string(out), `"lang":"en"`)
}

func TestPostMarshalWithoutRaw(t *testing.T) {
	post := Post{ID: 1, IDStr: "1", Text: "built by hand"}

	out, err := json.Marshal(post)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"text":"built by hand"`)
	assert.NotContains(t, string(out), "Raw")
}

func TestPostHashtagsEmpty(t *testing.T) {
	var post Post
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"entities":{"hashtags":[]}}`), &post))
	assert.Empty(t, post.Hashtags())
	assert.NotNil(t, post.Hashtags())
}

func TestErrorResponseReason(t *testing.T) {
	var resp errorResponse
	require.NoError(t, json.Unmarshal([]byte(`{"errors":[{"code":88,"message":"Rate limit exceeded"}]}`), &resp))
	reason, code := resp.reason()
	assert.Equal(t, "Rate limit exceeded", reason)
	assert.Equal(t, 88, code)
	assert.True(t, resp.hasCode(88))

	resp = errorResponse{}
	require.NoError(t, json.Unmarshal([]byte(`{"request":"/1.1/statuses/user_timeline.json","error":"Not authorized."}`), &resp))
	reason, code = resp.reason()
	assert.Equal(t, "Not authorized.", reason)
	assert.Equal(t, 0, code)
}
