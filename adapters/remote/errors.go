package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrSessionExpired is returned when the session could not be refreshed and
// the stored tokens were cleared.
var ErrSessionExpired = errors.New("session expired")

// FieldDetail is one field error reported by the API. Field uses the API's
// snake_case naming, with dots between path segments.
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError represents a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Details    []FieldDetail
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d", e.StatusCode)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// TransportError represents a request that never got a response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsServerError returns true for transport failures and 5xx responses.
func IsServerError(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusInternalServerError
}

// legacyDetail is one entry of the validation list FastAPI emits by default.
type legacyDetail struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// parseAPIError decodes the error body of a failed response. It understands
// the API's {"error": {...}} envelope and FastAPI's {"detail": ...} shapes.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope struct {
		Error *struct {
			Type    string        `json:"type"`
			Message string        `json:"message"`
			Details []FieldDetail `json:"details"`
		} `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}

	if err := json.Unmarshal(body, &envelope); err != nil {
		apiErr.Message = fallbackMessage(status, body)
		return apiErr
	}

	switch {
	case envelope.Error != nil:
		apiErr.Type = envelope.Error.Type
		apiErr.Message = envelope.Error.Message
		apiErr.Details = envelope.Error.Details
	case len(envelope.Detail) > 0:
		var text string
		if err := json.Unmarshal(envelope.Detail, &text); err == nil {
			apiErr.Message = text
			break
		}
		var list []legacyDetail
		if err := json.Unmarshal(envelope.Detail, &list); err == nil && len(list) > 0 {
			apiErr.Type = list[0].Type
			apiErr.Message = list[0].Msg
			for _, d := range list {
				apiErr.Details = append(apiErr.Details, FieldDetail{
					Field:   joinLoc(d.Loc),
					Message: d.Msg,
				})
			}
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = fallbackMessage(status, nil)
	}
	return apiErr
}

// joinLoc drops the request part prefix and joins the rest with dots.
func joinLoc(loc []any) string {
	if len(loc) > 0 {
		switch loc[0] {
		case "body", "query", "path":
			loc = loc[1:]
		}
	}
	parts := make([]string, 0, len(loc))
	for _, p := range loc {
		switch v := p.(type) {
		case string:
			parts = append(parts, v)
		case float64:
			parts = append(parts, fmt.Sprintf("%d", int(v)))
		}
	}
	return strings.Join(parts, ".")
}

func fallbackMessage(status int, body []byte) string {
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	return http.StatusText(status)
}
