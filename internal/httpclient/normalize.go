package httpclient

import (
	"encoding/json"
	"net/http"

	pkgerrors "github.com/solarmart/solarmart-client/pkg/errors"
)

// messageFieldPriority is the fixed probe order for the server's message
// field; the first non-empty string wins.
var messageFieldPriority = []string{"message", "error", "detail", "error_description"}

const genericErrorMessage = "request failed"

// normalizeError folds a heterogeneous server error body into the uniform
// {message, status, data} shape.
func normalizeError(status int, body []byte) error {
	message := genericErrorMessage
	var data any

	var payload map[string]any
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		for _, field := range messageFieldPriority {
			if value, ok := payload[field].(string); ok && value != "" {
				message = value
				break
			}
		}
		if nested, ok := payload["data"]; ok {
			data = nested
		} else if details, ok := payload["details"]; ok {
			data = details
		}
	}

	return pkgerrors.New(codeForStatus(status), message).WithStatus(status).WithData(data)
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	default:
		return pkgerrors.CodeServer
	}
}
