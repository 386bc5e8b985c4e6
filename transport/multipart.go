package transport

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeMultipartFile builds a multipart/form-data body holding one file part.
// The returned content type carries the boundary.
func EncodeMultipartFile(field string, filename string, contentType string, data []byte) ([]byte, string, error) {
	field = strings.TrimSpace(field)
	filename = strings.TrimSpace(filename)
	if field == "" || filename == "" {
		return nil, "", transportError(
			"transport: multipart field and filename are required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"field": field, "filename": filename},
		)
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(
		`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field),
		quoteEscaper.Replace(filename),
	))
	header.Set("Content-Type", strings.TrimSpace(contentType))
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", transportWrapError(err, goerrors.CategoryInternal, "transport: create multipart part", http.StatusInternalServerError, nil)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", transportWrapError(err, goerrors.CategoryInternal, "transport: write multipart part", http.StatusInternalServerError, nil)
	}
	if err := writer.Close(); err != nil {
		return nil, "", transportWrapError(err, goerrors.CategoryInternal, "transport: close multipart body", http.StatusInternalServerError, nil)
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}
