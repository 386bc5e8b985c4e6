// Package encoder renders the record artifact: a PNG QR code whose content is
// the JSON payload {"id": <external key>, "uuid": <stable uuid>}.
package encoder
