package encoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-qrsync/core"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize     = 256
	FileExtension   = ".png"
	PNGContentType  = "image/png"
	defaultRecovery = qrcode.Medium
)

// Payload is the encoded content. Field order is part of the wire format.
type Payload struct {
	ID   string `json:"id"`
	UUID string `json:"uuid"`
}

// PayloadFor copies the identifiers verbatim. Surrounding whitespace is
// part of the value and survives into the code.
func PayloadFor(ref core.RecordReference) Payload {
	return Payload{ID: ref.ExternalKey, UUID: ref.StableUUID}
}

// BuildPayload serializes the reference into the exact text stored in the
// code: {"id": <key>, "uuid": <uuid>} with ": " and ", " separators.
func BuildPayload(ref core.RecordReference) (string, error) {
	payload := PayloadFor(ref)
	if strings.TrimSpace(payload.ID) == "" || strings.TrimSpace(payload.UUID) == "" {
		return "", fmt.Errorf("encoder: external key and stable uuid are required")
	}
	id, err := marshalString(payload.ID)
	if err != nil {
		return "", err
	}
	uuid, err := marshalString(payload.UUID)
	if err != nil {
		return "", err
	}
	return `{"id": ` + id + `, "uuid": ` + uuid + `}`, nil
}

func marshalString(value string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", fmt.Errorf("encoder: marshal payload: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Filename is the attachment name used for the uploaded artifact.
func Filename(ref core.RecordReference) string {
	return strings.TrimSpace(ref.ExternalKey) + FileExtension
}

type QREncoder struct {
	Level qrcode.RecoveryLevel
	Size  int
}

func NewQREncoder(size int) QREncoder {
	if size <= 0 {
		size = DefaultSize
	}
	return QREncoder{Level: defaultRecovery, Size: size}
}

func (e QREncoder) Encode(payload string) ([]byte, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("encoder: payload is required")
	}
	size := e.Size
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(payload, e.Level, size)
	if err != nil {
		return nil, fmt.Errorf("encoder: render qr code: %w", err)
	}
	return png, nil
}

// Encode renders payload with the default recovery level and size.
func Encode(payload string) ([]byte, error) {
	return NewQREncoder(DefaultSize).Encode(payload)
}

var _ core.ArtifactEncoder = QREncoder{}
