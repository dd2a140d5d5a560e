package authapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Endpoint   string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s returned %d %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unauthorized reports whether the backend rejected the presented credentials.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// errorBody is the backend's error envelope. detail is either a string or a
// list of validation errors.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationError struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

// NewAPIError builds an APIError for endpoint from a response body that was
// already read.
func NewAPIError(endpoint string, status int, body []byte) *APIError {
	return &APIError{Endpoint: endpoint, StatusCode: status, Detail: parseDetail(body)}
}

func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}

	var list []validationError
	if err := json.Unmarshal(eb.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, v := range list {
			if len(v.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", v.Loc[len(v.Loc)-1], v.Msg))
			} else {
				msgs = append(msgs, v.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
