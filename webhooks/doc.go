// Package webhooks receives record-creation events and feeds them to the
// upload pipeline.
//
// An inbound request moves through handshake, signature check, parsing,
// filtering, record resolution and processing. Each stage either ends the
// request with a status or hands over to the next one.
package webhooks
