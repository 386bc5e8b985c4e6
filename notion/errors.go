package notion

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-qrsync/core"
)

func notionError(message string, category goerrors.Category, code int, metadata map[string]any) error {
	return notionWrapError(nil, category, message, code, metadata)
}

// notionWrapError tags failures with the text code of their category so
// callers can tell bad input from remote failure.
func notionWrapError(source error, category goerrors.Category, message string, code int, metadata map[string]any) error {
	err := goerrors.New(message, category)
	if source != nil {
		err = goerrors.Wrap(source, category, message)
	}
	err = err.WithCode(code).WithTextCode(core.TextCodeFor(category))
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}
