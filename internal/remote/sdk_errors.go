package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req/v3"
)

var (
	ErrNetwork  = errors.New("remote: network error")
	ErrNotFound = errors.New("remote: not found")
	ErrParse    = errors.New("remote: malformed response")
)

// APIError is returned when an upstream service answers with a non-success status.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("remote: %s: %d %s", e.Op, e.StatusCode, e.Message)
}

// githubError is the error body shape used by the GitHub REST API.
type githubError struct {
	Message string `json:"message"`
}

func networkError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNetwork, op, err)
}

// checkResponse maps transport failures and non-2xx statuses onto the
// package error taxonomy. body may be nil when the response was not read.
func checkResponse(resp *req.Response, requestErr error, op string, body []byte) error {
	if requestErr != nil {
		return networkError(op, requestErr)
	}

	code := resp.GetStatusCode()
	if code >= 200 && code < 300 {
		return nil
	}

	apiErr := &APIError{Op: op, StatusCode: code}
	if len(body) > 0 {
		var ghErr githubError
		if err := jsonUnmarshal(body, &ghErr); err == nil && ghErr.Message != "" {
			apiErr.Message = ghErr.Message
		} else if len(body) < 256 {
			apiErr.Message = strings.TrimSpace(string(body))
		}
	}
	return apiErr
}
