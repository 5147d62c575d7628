package twitter

import (
	"bytes"
	"encoding/json"
)

// Post is one tweet as returned by the timeline endpoint.
// The decoded fields cover what the collector needs; Raw keeps the complete
// object so it can be written out unchanged.
type Post struct {
	ID        int64    `json:"id"`
	IDStr     string   `json:"id_str"`
	CreatedAt string   `json:"created_at"`
	Text      string   `json:"text,omitempty"`
	FullText  string   `json:"full_text,omitempty"`
	User      User     `json:"user"`
	Entities  Entities `json:"entities"`

	Raw json.RawMessage `json:"-"`
}

// Entities holds the entities parsed out of a tweet's text
type Entities struct {
	Hashtags []Hashtag `json:"hashtags"`
}

// Hashtag is a single #tag occurrence, without the leading '#'
type Hashtag struct {
	Text    string `json:"text"`
	Indices []int  `json:"indices,omitempty"`
}

// User is the subset of a Twitter user object used here
type User struct {
	ID         int64  `json:"id"`
	IDStr      string `json:"id_str"`
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
	Protected  bool   `json:"protected"`
}

type postFields Post

// UnmarshalJSON decodes the known fields and keeps a compacted copy of the object
func (p *Post) UnmarshalJSON(data []byte) error {
	var fields postFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw bytes.Buffer
	if err := json.Compact(&raw, data); err != nil {
		return err
	}

	*p = Post(fields)
	p.Raw = json.RawMessage(raw.Bytes())
	return nil
}

// MarshalJSON returns the decoded payload unchanged when there is one
func (p Post) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	return json.Marshal(postFields(p))
}

// Body returns the tweet text, preferring the untruncated form
func (p Post) Body() string {
	if p.FullText != "" {
		return p.FullText
	}
	return p.Text
}

// Hashtags returns the tag texts of the post in order of appearance
func (p Post) Hashtags() []string {
	tags := make([]string, 0, len(p.Entities.Hashtags))
	for _, h := range p.Entities.Hashtags {
		tags = append(tags, h.Text)
	}
	return tags
}

// apiError is a single entry of the v1.1 "errors" array
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// errorResponse covers both error shapes the v1.1 API returns:
// {"errors":[{"code":88,"message":"..."}]} and {"request":"...","error":"Not authorized."}
type errorResponse struct {
	Errors []apiError `json:"errors"`
	Error  string     `json:"error"`
}

// reason returns the first human readable message and API code in the response
func (r errorResponse) reason() (string, int) {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message, r.Errors[0].Code
	}
	return r.Error, 0
}

func (r errorResponse) hasCode(code int) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}
