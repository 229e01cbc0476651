// Package datauri encodes note attachments as base64 data URIs, the form they are stored in.
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned for strings that are not base64 data URIs.
var ErrInvalid = errors.New("datauri: invalid data uri")

// Encode returns data as "data:<mime>;base64,<payload>".
func Encode(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Decode splits a base64 data URI into its MIME type and content.
func Decode(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrInvalid
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalid
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalid)
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return mimeType, data, nil
}

// FormatSize renders a byte count as "N B", "x.xx KB" or "x.xx MB".
func FormatSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.2f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
	}
}
