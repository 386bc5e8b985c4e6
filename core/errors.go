package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ServiceErrorBadInput        = "QRSYNC_BAD_INPUT"
	ServiceErrorUnauthorized    = "QRSYNC_UNAUTHORIZED"
	ServiceErrorNotFound        = "QRSYNC_NOT_FOUND"
	ServiceErrorRateLimited     = "QRSYNC_RATE_LIMITED"
	ServiceErrorExternalFailure = "QRSYNC_EXTERNAL_FAILURE"
	ServiceErrorInternal        = "QRSYNC_INTERNAL_ERROR"

	ServiceErrorDataError             = "QRSYNC_DATA_ERROR"
	ServiceErrorSlotReservationFailed = "QRSYNC_SLOT_RESERVATION_FAILED"
	ServiceErrorEncodingFailed        = "QRSYNC_ENCODING_FAILED"
	ServiceErrorTransmissionFailed    = "QRSYNC_TRANSMISSION_FAILED"
	ServiceErrorBindingFailed         = "QRSYNC_BINDING_FAILED"
	ServiceErrorResolutionFailed      = "QRSYNC_RESOLUTION_FAILED"

	ServiceErrorAuthenticityFailure = "QRSYNC_AUTHENTICITY_FAILURE"
	ServiceErrorMalformedEvent      = "QRSYNC_MALFORMED_EVENT"
)

// ErrorKind classifies the terminal failure of one record.
type ErrorKind string

const (
	KindDataError             ErrorKind = "data_error"
	KindSlotReservationFailed ErrorKind = "slot_reservation_failed"
	KindEncodingFailed        ErrorKind = "encoding_failed"
	KindTransmissionFailed    ErrorKind = "transmission_failed"
	KindBindingFailed         ErrorKind = "binding_failed"
	KindResolutionFailed      ErrorKind = "resolution_failed"
)

type ProcessingError struct {
	Kind         ErrorKind
	RecordID     string
	ExternalKey  string
	UploadSlotID string
	FileID       string
	Message      string
	Err          error
}

func NewProcessingError(kind ErrorKind, ref RecordReference, err error) *ProcessingError {
	return &ProcessingError{
		Kind:        kind,
		RecordID:    strings.TrimSpace(ref.RecordID),
		ExternalKey: strings.TrimSpace(ref.ExternalKey),
		Err:         err,
	}
}

func NewDataError(recordID string, message string) *ProcessingError {
	return &ProcessingError{
		Kind:     KindDataError,
		RecordID: strings.TrimSpace(recordID),
		Message:  strings.TrimSpace(message),
	}
}

func (e *ProcessingError) Error() string {
	if e == nil {
		return ""
	}
	parts := []string{string(e.Kind)}
	if e.RecordID != "" {
		parts = append(parts, fmt.Sprintf("record %q", e.RecordID))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ProcessingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ProcessingError) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	metadata := map[string]any{
		"kind":      string(e.Kind),
		"record_id": e.RecordID,
	}
	if e.ExternalKey != "" {
		metadata["external_key"] = e.ExternalKey
	}
	if e.UploadSlotID != "" {
		metadata["upload_slot_id"] = e.UploadSlotID
	}
	if e.FileID != "" {
		metadata["file_id"] = e.FileID
	}
	category := goerrors.CategoryExternal
	code := http.StatusBadGateway
	switch e.Kind {
	case KindDataError:
		category = goerrors.CategoryValidation
		code = http.StatusUnprocessableEntity
	case KindEncodingFailed:
		category = goerrors.CategoryInternal
		code = http.StatusInternalServerError
	}
	var err *goerrors.Error
	if e.Err != nil {
		err = goerrors.Wrap(e.Err, category, e.Error())
	} else {
		err = goerrors.New(e.Error(), category)
	}
	return err.
		WithCode(code).
		WithTextCode(kindTextCode(e.Kind)).
		WithMetadata(metadata)
}

// KindOf returns the processing classification carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var processingErr *ProcessingError
	if errors.As(err, &processingErr) && processingErr != nil {
		return processingErr.Kind, true
	}
	return "", false
}

func IsKind(err error, kind ErrorKind) bool {
	got, ok := KindOf(err)
	return ok && got == kind
}

func kindTextCode(kind ErrorKind) string {
	switch kind {
	case KindDataError:
		return ServiceErrorDataError
	case KindSlotReservationFailed:
		return ServiceErrorSlotReservationFailed
	case KindEncodingFailed:
		return ServiceErrorEncodingFailed
	case KindTransmissionFailed:
		return ServiceErrorTransmissionFailed
	case KindBindingFailed:
		return ServiceErrorBindingFailed
	case KindResolutionFailed:
		return ServiceErrorResolutionFailed
	default:
		return ServiceErrorInternal
	}
}

type serviceErrorConverter interface {
	ToServiceError() *goerrors.Error
}

// MapError converts any error into the go-errors envelope used in logs.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var converter serviceErrorConverter
	if errors.As(err, &converter) && converter != nil {
		if mapped := converter.ToServiceError(); mapped != nil {
			return ensureServiceErrorEnvelope(mapped)
		}
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = TextCodeFor(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

// TextCodeFor returns the service text code reported for an error category.
func TextCodeFor(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorBadInput
	case goerrors.CategoryNotFound:
		return ServiceErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ServiceErrorUnauthorized
	case goerrors.CategoryRateLimit:
		return ServiceErrorRateLimited
	case goerrors.CategoryExternal:
		return ServiceErrorExternalFailure
	default:
		return ServiceErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
