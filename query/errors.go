package query

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-qrsync/core"
)

func queryDependencyError(msgType string, dependencies ...string) error {
	return goerrors.New("query: handler for "+msgType+" is not wired", goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ServiceErrorInternal).
		WithMetadata(map[string]any{"message_type": msgType, "dependencies": dependencies})
}

func queryValidationError(msgType string, field string, message string) error {
	return goerrors.NewValidation("query: invalid "+msgType, goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ServiceErrorBadInput).
		WithMetadata(map[string]any{"message_type": msgType})
}
