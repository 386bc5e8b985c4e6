package webhooks

import (
	"context"
	"testing"

	"github.com/goliatone/go-qrsync/core"
)

func TestNotionVerifier_KnownVector(t *testing.T) {
	verifier := NewNotionVerifier(" key ", "")
	body := []byte("The quick brown fox jumps over the lazy dog")
	expected := "sha256=f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"
	if got := verifier.Sign(body); got != expected {
		t.Fatalf("unexpected signature %s", got)
	}
	err := verifier.Verify(context.Background(), core.InboundRequest{
		Headers: map[string]string{"x-notion-signature": expected},
		Body:    body,
	})
	if err != nil {
		t.Fatalf("expected signature to verify: %v", err)
	}
}

func TestNotionVerifier_Rejections(t *testing.T) {
	verifier := NewNotionVerifier("key", "")
	body := []byte(`{"type":"page.created"}`)
	valid := verifier.Sign(body)

	cases := map[string]core.InboundRequest{
		"missing prefix":  {Headers: map[string]string{"X-Notion-Signature": valid[len("sha256="):]}, Body: body},
		"not hex":         {Headers: map[string]string{"X-Notion-Signature": "sha256=zz"}, Body: body},
		"other secret":    {Headers: map[string]string{"X-Notion-Signature": NewNotionVerifier("other", "").Sign(body)}, Body: body},
		"empty signature": {Headers: map[string]string{"X-Notion-Signature": "sha256="}, Body: body},
		"missing header":  {Headers: map[string]string{"X-Other": valid}, Body: body},
		"tampered body":   {Headers: map[string]string{"X-Notion-Signature": valid}, Body: []byte(`{"type":"page.deleted"}`)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if err := verifier.Verify(context.Background(), req); err == nil {
				t.Fatalf("expected rejection")
			}
		})
	}

	if err := NewNotionVerifier("", "").Verify(context.Background(), core.InboundRequest{
		Headers: map[string]string{"X-Notion-Signature": valid},
		Body:    body,
	}); err == nil {
		t.Fatalf("expected missing secret to reject")
	}
}
