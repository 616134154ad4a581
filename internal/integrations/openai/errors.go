package openai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HTTPStatusError is a non-2xx reply from the completion API. Message and
// Type come from the API's error envelope when the body carries one.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Type       string
	Message    string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.Body
	}
	if e.Type != "" {
		return fmt.Sprintf("openai: unexpected status %d (%s) from %s: %s", e.StatusCode, e.Type, e.URL, detail)
	}
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, detail)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// RateLimited reports whether the API refused the call for quota or rate reasons.
func (e *HTTPStatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

type apiErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func newHTTPStatusError(status int, url string, body []byte) *HTTPStatusError {
	e := &HTTPStatusError{
		StatusCode: status,
		URL:        url,
		Body:       strings.TrimSpace(string(body)),
	}
	var env apiErrorEnvelope
	if json.Unmarshal(body, &env) == nil {
		e.Message = env.Error.Message
		e.Type = env.Error.Type
	}
	return e
}
