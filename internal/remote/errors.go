package remote

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-200 answer from the product API.
type APIError struct {
	Status  int
	Code    any
	Message string
	Body    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	return fmt.Sprintf("remote: api error: status=%d code=%v message=%s", e.Status, e.Code, msg)
}

// ParseAPIError builds an APIError, lifting code and message out of a JSON body when present.
func ParseAPIError(status int, body []byte) *APIError {
	out := &APIError{Status: status, Body: string(body)}

	var m map[string]any
	if json.Unmarshal(body, &m) == nil {
		if v, ok := m["code"]; ok {
			out.Code = v
		}
		if v, ok := m["message"].(string); ok {
			out.Message = v
		} else if v, ok := m["error"].(string); ok {
			out.Message = v
		}
	}
	return out
}
