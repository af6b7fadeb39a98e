package erp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// RemoteError is any failure talking to the ERP server: transport errors,
// server validation errors and permission errors alike. Error returns the
// server's own message so it can be shown to the user as-is.
type RemoteError struct {
	StatusCode int
	ExcType    string
	Message    string
	Err        error
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Unwrap() error { return e.Err }

// PermissionDenied reports whether the server refused the call for lack of
// permission.
func (e *RemoteError) PermissionDenied() bool {
	return e.StatusCode == http.StatusForbidden || e.ExcType == "PermissionError"
}

var htmlTag = regexp.MustCompile(`<[^>]+>`)

// parseAPIResponse decodes a Frappe response body and turns error responses
// into a RemoteError.
func parseAPIResponse(status int, body []byte) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		if status >= 400 {
			return nil, &RemoteError{StatusCode: status, Message: statusMessage(status, body)}
		}
		return nil, &RemoteError{StatusCode: status, Message: fmt.Sprintf("failed to parse response: %s", truncate(string(body), 200)), Err: err}
	}

	_, hasExc := result["exception"]
	_, hasExcType := result["exc_type"]
	if status < 400 && !hasExc && !hasExcType {
		return result, nil
	}

	rerr := &RemoteError{StatusCode: status}
	rerr.ExcType, _ = result["exc_type"].(string)
	switch {
	case serverMessages(result) != "":
		rerr.Message = serverMessages(result)
	case hasExc:
		rerr.Message = exceptionMessage(fmt.Sprintf("%v", result["exception"]))
	case rerr.ExcType != "":
		rerr.Message = rerr.ExcType
	default:
		rerr.Message = statusMessage(status, nil)
	}
	return nil, rerr
}

// serverMessages extracts frappe.throw messages. Frappe double-encodes them:
// a JSON string holding a list of JSON strings, each an object with a
// "message" member.
func serverMessages(result map[string]interface{}) string {
	raw, ok := result["_server_messages"].(string)
	if !ok || raw == "" {
		return ""
	}
	var encoded []string
	if err := json.Unmarshal([]byte(raw), &encoded); err != nil {
		return ""
	}

	var msgs []string
	for _, e := range encoded {
		var m struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(e), &m); err != nil || m.Message == "" {
			continue
		}
		msgs = append(msgs, strings.TrimSpace(htmlTag.ReplaceAllString(m.Message, "")))
	}
	return strings.Join(msgs, "\n")
}

// exceptionMessage strips the "module.ExceptionType: " prefix Frappe puts on
// the exception member.
func exceptionMessage(exc string) string {
	exc = strings.TrimSpace(exc)
	if i := strings.Index(exc, ": "); i > 0 && !strings.Contains(exc[:i], " ") {
		return exc[i+2:]
	}
	return exc
}

func statusMessage(status int, body []byte) string {
	msg := fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	if len(body) > 0 {
		msg += ": " + truncate(strings.TrimSpace(string(body)), 200)
	}
	return msg
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
