// Package media normalizes inbound image payloads to a canonical data-URI
// form. Formatting utility only; no image decoding happens here.
package media

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const jpegPrefix = "data:image/jpeg;base64,"

// NormalizeImage strips the JPEG data-URI prefix if present, removes
// whitespace and newlines from the base64 payload, and re-adds the prefix.
// Returns an error only when the cleaned payload is not valid base64.
func NormalizeImage(payload string) (string, error) {
	encoded := strings.TrimPrefix(payload, jpegPrefix)
	encoded = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, encoded)

	if encoded == "" {
		return "", fmt.Errorf("empty image payload")
	}
	if _, err := base64.StdEncoding.DecodeString(encoded); err != nil {
		return "", fmt.Errorf("invalid base64 image data: %w", err)
	}

	return jpegPrefix + encoded, nil
}

// DecodeDataURI splits a data URI into its MIME type and decoded bytes.
func DecodeDataURI(uri string) (mimeType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI")
	}
	mimeType = strings.TrimSuffix(meta, ";base64")

	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URI payload: %w", err)
	}
	return mimeType, data, nil
}

// EncodeImage wraps raw image bytes as a base64 string (no prefix), the shape
// the photo endpoint returns.
func EncodeImage(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
