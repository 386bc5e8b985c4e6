package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/goliatone/go-qrsync/core"
)

const notionSignaturePrefix = "sha256="

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

// NotionVerifier checks "sha256=<hex>" signatures: an HMAC-SHA256 of the raw
// body keyed by the subscription verification token.
type NotionVerifier struct {
	Header string
	Secret string
}

// NewNotionVerifier reads core.DefaultSignatureHeader unless header is set.
func NewNotionVerifier(secret string, header string) NotionVerifier {
	header = strings.TrimSpace(header)
	if header == "" {
		header = core.DefaultSignatureHeader
	}
	return NotionVerifier{Header: header, Secret: strings.TrimSpace(secret)}
}

func (v NotionVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	if v.Secret == "" {
		return authenticityError("webhooks: verification token is not configured", nil)
	}
	header := core.HeaderValue(req.Headers, v.Header)
	if header == "" {
		return authenticityError("webhooks: signature header is required", map[string]any{"header": v.Header})
	}
	encoded, found := strings.CutPrefix(header, notionSignaturePrefix)
	if !found || strings.TrimSpace(encoded) == "" {
		return authenticityError("webhooks: signature must look like sha256=<hex>", map[string]any{"header": v.Header})
	}
	signature, err := hex.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return authenticityWrapError(err, "webhooks: decode signature")
	}
	if !hmac.Equal(signature, v.mac(req.Body)) {
		return authenticityError("webhooks: signature verification failed", nil)
	}
	return nil
}

// Sign returns the header value Notion would attach to body.
func (v NotionVerifier) Sign(body []byte) string {
	return notionSignaturePrefix + hex.EncodeToString(v.mac(body))
}

func (v NotionVerifier) mac(body []byte) []byte {
	h := hmac.New(sha256.New, []byte(v.Secret))
	h.Write(body)
	return h.Sum(nil)
}

var _ Verifier = NotionVerifier{}
