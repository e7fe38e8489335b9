// Package qr encodes hosted-view URLs as QR images.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the rendered PNG edge length in pixels.
const DefaultSize = 256

// Encode returns a PNG encoding of url at medium error recovery.
func Encode(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty url")
	}
	png, err := qrcode.Encode(url, qrcode.Medium, DefaultSize)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return png, nil
}
