package llm

import (
	"fmt"
	"net/http"
	"strings"
)

// StatusError reports a non-2xx response from the completion endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, snippet(e.Body))
}

// Auth reports whether the endpoint rejected the credentials.
func (e *StatusError) Auth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// EmptyContentError reports a well-formed response carrying no content.
type EmptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *EmptyContentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: empty content (finish_reason=%q", e.Op, e.FinishReason)
	if e.Refusal != "" {
		fmt.Fprintf(&b, ", refusal=%q", e.Refusal)
	}
	fmt.Fprintf(&b, ", response_snippet=%s)", e.Snippet)
	return b.String()
}

// ResponseError reports a 2xx response that is not a usable chat completion
// envelope, such as an HTML gateway page or an embedded error object.
type ResponseError struct {
	Reason  string
	Snippet string
	Err     error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v (response_snippet=%s)", e.Reason, e.Err, e.Snippet)
	}
	return fmt.Sprintf("%s (response_snippet=%s)", e.Reason, e.Snippet)
}

func (e *ResponseError) Unwrap() error { return e.Err }
