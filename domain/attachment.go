package domain

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"threadly/errors"
)

// SniffImage validates an inline attachment before any state mutates.
// The payload is a base64 string, optionally wrapped in a data URI as
// browsers produce them. Detection relies on content sniffing, never on the
// client-declared media type.
func SniffImage(payload string) (string, error) {
	raw := payload
	if strings.HasPrefix(raw, "data:") {
		_, rest, ok := strings.Cut(raw, ",")
		if !ok {
			return "", errors.ErrNotAnImage
		}
		raw = rest
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", errors.ErrNotAnImage
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", errors.ErrNotAnImage
	}
	return mime.String(), nil
}
