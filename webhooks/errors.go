package webhooks

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-qrsync/core"
)

func authenticityError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ServiceErrorAuthenticityFailure)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func authenticityWrapError(source error, message string) error {
	if source == nil {
		return authenticityError(message, nil)
	}
	return goerrors.Wrap(source, goerrors.CategoryAuth, message).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ServiceErrorAuthenticityFailure)
}

func malformedEventError(source error, message string, metadata map[string]any) error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryBadInput, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryBadInput)
	}
	err = err.WithCode(http.StatusBadRequest).WithTextCode(core.ServiceErrorMalformedEvent)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func ingressInternalError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ServiceErrorInternal)
}
