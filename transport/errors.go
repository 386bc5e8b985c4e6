package transport

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-qrsync/core"
)

func transportError(message string, category goerrors.Category, code int, metadata map[string]any) error {
	return transportWrapError(nil, category, message, code, metadata)
}

// transportWrapError builds the envelope returned by every adapter here.
// A nil source yields a fresh error instead of a wrapped one.
func transportWrapError(source error, category goerrors.Category, message string, code int, metadata map[string]any) error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, category, message)
	} else {
		err = goerrors.New(message, category)
	}
	err = err.WithCode(code).WithTextCode(core.TextCodeFor(category))
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

func misconfiguredError(kind string, message string) error {
	return transportError(message, goerrors.CategoryInternal, http.StatusInternalServerError, map[string]any{"adapter": kind})
}
