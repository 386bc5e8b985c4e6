package qrsync

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-qrsync/core"
)

func runtimeError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ServiceErrorInternal)
}

func configError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "qrsync: configuration incomplete").
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ServiceErrorBadInput)
}
