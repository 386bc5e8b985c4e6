package command

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-qrsync/core"
)

// commandDependencyError reports a handler constructed without one of its
// collaborators.
func commandDependencyError(msgType string, dependency string) error {
	return goerrors.New("command: "+dependency+" is required", goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ServiceErrorInternal).
		WithMetadata(map[string]any{"message_type": msgType, "dependency": dependency})
}

func commandValidationError(msgType string, field string, message string) error {
	return goerrors.NewValidation("command: invalid "+msgType, goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ServiceErrorBadInput).
		WithMetadata(map[string]any{"message_type": msgType})
}
