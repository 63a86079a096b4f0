package proof

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header plus IHDR chunk is enough for sniffing
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func TestValidatePNG(t *testing.T) {
	mtype, err := Validate(pngBytes, 1024)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mtype)
}

func TestValidateRejectsNonImage(t *testing.T) {
	_, err := Validate([]byte("%PDF-1.4\n%âãÏÓ\n1 0 obj"), 1024)
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = Validate([]byte("just some text"), 1024)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestValidateSize(t *testing.T) {
	big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 2048)...)
	_, err := Validate(big, 1024)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = Validate(nil, 1024)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestDecodeBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes)

	content, err := DecodeBase64(encoded)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, content)

	content, err = DecodeBase64(DataURL("image/png", pngBytes))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, content)

	_, err = DecodeBase64("data:image/png;base64")
	assert.ErrorIs(t, err, ErrEncoding)
	_, err = DecodeBase64("!!!")
	assert.ErrorIs(t, err, ErrEncoding)
}
