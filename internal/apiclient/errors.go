package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

var (
	// ErrUnauthorized matches any upstream 401 response.
	ErrUnauthorized = errors.New("apiclient: unauthorized")
	// ErrTransport marks calls that never produced a response.
	ErrTransport = fmt.Errorf("apiclient: upstream unreachable: %w", httpx.ErrBadGateway)
)

// Error is a non-2xx upstream response.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// HTTPStatus mirrors client errors and reports server errors as a bad gateway.
func (e *Error) HTTPStatus() int {
	if e.Status >= 500 || e.Status < 400 {
		return http.StatusBadGateway
	}
	return e.Status
}

// PublicMessage returns the upstream message verbatim.
func (e *Error) PublicMessage() string {
	return e.Message
}

// Message returns the upstream message carried by err, or fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
	Detail  json.RawMessage `json:"detail"`
}

// extractMessage reads message, error or detail from a JSON body. Validation
// failures arrive as a list of strings.
func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		if strings.HasPrefix(trimmed, "<") {
			return ""
		}
		return truncate(trimmed, 300)
	}
	for _, raw := range []json.RawMessage{parsed.Message, parsed.Error, parsed.Detail} {
		if msg := rawText(raw); msg != "" {
			return msg
		}
	}
	return ""
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
