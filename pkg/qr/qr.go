package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 320
	minSize     = 64
	maxSize     = 1024
)

// PNG encodes content as a QR code image, clamping size to a printable range.
func PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content empty")
	}
	switch {
	case size <= 0:
		size = DefaultSize
	case size < minSize:
		size = minSize
	case size > maxSize:
		size = maxSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
