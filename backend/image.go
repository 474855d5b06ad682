package backend

import (
	"bytes"
	"fmt"
	"image/png"
)

// PNG magic bytes for file identification.
var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// IsPNG checks if the given data starts with PNG magic bytes.
func IsPNG(data []byte) bool {
	if len(data) < len(pngMagic) {
		return false
	}
	return bytes.Equal(data[:len(pngMagic)], pngMagic)
}

// ValidateImageData validates that data is a decodable PNG image, so a
// broken backend never hands corrupt bytes back to the caller.
func ValidateImageData(data []byte) error {
	if len(data) == 0 {
		return ErrImageEmpty
	}

	if !IsPNG(data) {
		return ErrImageNotPNG
	}

	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrImageDecodeFail, err)
	}

	return nil
}
