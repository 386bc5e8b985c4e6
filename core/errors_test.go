package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestProcessingError_MapsKindToEnvelope(t *testing.T) {
	ref := RecordReference{RecordID: "page-1", ExternalKey: "INV-1", StableUUID: "u-1"}
	cases := []struct {
		kind     ErrorKind
		category goerrors.Category
		code     int
		textCode string
	}{
		{KindSlotReservationFailed, goerrors.CategoryExternal, http.StatusBadGateway, ServiceErrorSlotReservationFailed},
		{KindEncodingFailed, goerrors.CategoryInternal, http.StatusInternalServerError, ServiceErrorEncodingFailed},
		{KindTransmissionFailed, goerrors.CategoryExternal, http.StatusBadGateway, ServiceErrorTransmissionFailed},
		{KindBindingFailed, goerrors.CategoryExternal, http.StatusBadGateway, ServiceErrorBindingFailed},
		{KindResolutionFailed, goerrors.CategoryExternal, http.StatusBadGateway, ServiceErrorResolutionFailed},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			err := NewProcessingError(tc.kind, ref, errors.New("remote said no"))
			err.UploadSlotID = "slot-1"
			mapped := MapError(fmt.Errorf("sweep: %w", err))
			if mapped.Category != tc.category || mapped.Code != tc.code || mapped.TextCode != tc.textCode {
				t.Fatalf("unexpected envelope %q %d %q", mapped.Category, mapped.Code, mapped.TextCode)
			}
			if mapped.Metadata["upload_slot_id"] != "slot-1" || mapped.Metadata["external_key"] != "INV-1" {
				t.Fatalf("unexpected metadata %#v", mapped.Metadata)
			}
		})
	}
}

func TestNewDataError_IsValidationKind(t *testing.T) {
	err := NewDataError(" page-2 ", "uuid property is empty")
	if !IsKind(err, KindDataError) {
		t.Fatalf("expected data error kind")
	}
	if err.Error() != `data_error: record "page-2": uuid property is empty` {
		t.Fatalf("unexpected message %q", err.Error())
	}
	mapped := MapError(err)
	if mapped.Category != goerrors.CategoryValidation || mapped.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected envelope %q %d", mapped.Category, mapped.Code)
	}
}

func TestKindOf_PlainErrorHasNoKind(t *testing.T) {
	if _, ok := KindOf(errors.New("boom")); ok {
		t.Fatalf("expected no kind for plain error")
	}
	mapped := MapError(errors.New("boom"))
	if mapped == nil || mapped.TextCode == "" || mapped.Code == 0 {
		t.Fatalf("expected envelope defaults, got %#v", mapped)
	}
	if MapError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestRecordReference_ValidateListsMissingFields(t *testing.T) {
	err := RecordReference{RecordID: "page-3"}.Validate()
	if !IsKind(err, KindDataError) {
		t.Fatalf("expected data error, got %v", err)
	}
	want := `data_error: record "page-3": core: record reference missing external_key, stable_uuid`
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
