package vamiapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed backend call. Callers branch on Kind instead of
// inspecting status codes or message text.
type Kind int

const (
	// KindTransient covers network failures, 5xx responses and anything unrecognised.
	KindTransient Kind = iota
	// KindValidation is a 4xx business-rule or validation failure with a detail message.
	KindValidation
	// KindConflict means the account already has an agent.
	KindConflict
	// KindNotFound is a 404; for GET /agents it means no agent exists yet.
	KindNotFound
	// KindUnauthorized is a 401. The client's unauthorized hook has already run.
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "transient"
	}
}

// AgentExistsCode is the machine-readable code for the one-agent-per-account rule.
const AgentExistsCode = "agent_exists"

// agentExistsPhrase is matched when the backend sends no code.
const agentExistsPhrase = "already has an agent"

// Error is returned for every failed backend call.
type Error struct {
	Kind   Kind
	Status int
	Detail string
	Code   string
	Method string
	Path   string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", e.Method, e.Path, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err. Errors not produced by the client are transient.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}

// IsKind reports whether err is a client error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsUnauthorized reports whether err came from a 401 response.
func IsUnauthorized(err error) bool {
	return IsKind(err, KindUnauthorized)
}

// Message returns the backend detail carried by err, or fallback when there is none.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// errorBody covers the error shapes the backend produces: FastAPI's
// {"detail": "..."} and {"detail": [{"msg": "..."}]}, plus {"error": "..."}.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Code   string          `json:"code"`
	Error  string          `json:"error"`
}

func parseErrorBody(body []byte) (detail, code string) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", ""
	}
	code = eb.Code
	if len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil {
			return s, code
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(eb.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; "), code
		}
		var obj struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		if err := json.Unmarshal(eb.Detail, &obj); err == nil {
			if code == "" {
				code = obj.Code
			}
			return obj.Message, code
		}
	}
	return eb.Error, code
}

// classify maps an HTTP status and error body onto a Kind.
func classify(status int, detail, code string) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case (status == http.StatusBadRequest || status == http.StatusConflict) && isAgentExists(detail, code):
		return KindConflict
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindTransient
	}
}

func isAgentExists(detail, code string) bool {
	if code != "" {
		return code == AgentExistsCode
	}
	return strings.Contains(strings.ToLower(detail), agentExistsPhrase)
}
