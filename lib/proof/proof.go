package proof

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrEmpty    = errors.New("payment proof is empty")
	ErrTooLarge = errors.New("payment proof is too large")
	ErrNotImage = errors.New("payment proof must be an image")
	ErrEncoding = errors.New("payment proof is not valid base64")
)

// Validate checks size and sniffs the content; the declared content type is
// never trusted. It returns the detected mime type.
func Validate(content []byte, maxSize int64) (string, error) {
	if len(content) == 0 {
		return "", ErrEmpty
	}
	if maxSize > 0 && int64(len(content)) > maxSize {
		return "", fmt.Errorf("%w: %d bytes, limit is %d", ErrTooLarge, len(content), maxSize)
	}
	mtype := mimetype.Detect(content)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: got %s", ErrNotImage, mtype.String())
	}
	return mtype.String(), nil
}

// DataURL renders content as a data: URL.
func DataURL(mimeType string, content []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// DecodeBase64 accepts a bare base64 string or a data URL.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		_, payload, found := strings.Cut(s, ",")
		if !found {
			return nil, ErrEncoding
		}
		s = payload
	}
	content, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return content, nil
}
