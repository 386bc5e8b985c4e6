package pipeline

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-qrsync/core"
)

func pipelineError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ServiceErrorInternal)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
