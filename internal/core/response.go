// AngelaMos | 2026
// response.go

package core

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response write
	_ = json.NewEncoder(w).Encode(body)
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Response{Success: true, Data: data})
}

// JSONError writes err using the status mapped from its kind. Infrastructure
// failures are logged and never leak their cause to the client.
func JSONError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	status := HTTPStatus(kind)

	body := &ErrorBody{Code: string(kind), Message: http.StatusText(status)}
	if appErr, ok := AsAppError(err); ok && kind != KindInfrastructure {
		body.Code = appErr.Code
		body.Message = appErr.Message
		body.Details = appErr.Details
	} else if kind != KindInfrastructure {
		body.Message = err.Error()
	}

	if kind == KindInfrastructure {
		slog.Error("request failed", "error", err)
		body.Code = "INTERNAL_ERROR"
	}

	JSON(w, status, Response{Success: false, Error: body})
}

func BadRequest(w http.ResponseWriter, message string) {
	JSONError(w, InvalidInputError(message))
}

func NotFound(w http.ResponseWriter, resource string) {
	JSONError(w, NotFoundError(resource))
}
