package datauri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	uri := Encode("application/pdf", []byte("%PDF-1.4"))
	assert.Equal(t, "data:application/pdf;base64,JVBERi0xLjQ=", uri)

	mimeType, data, err := Decode(uri)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mimeType)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestDecodeWithParameters(t *testing.T) {
	mimeType, data, err := Decode("data:text/plain;charset=utf-8;base64,aGk=")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mimeType)
	assert.Equal(t, "hi", string(data))
}

func TestDecodeRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"", "hello", "data:image/png,raw", "data:image/png;base64,@@@"} {
		_, _, err := Decode(raw)
		assert.ErrorIs(t, err, ErrInvalid, raw)
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(0))
	assert.Equal(t, "1023 B", FormatSize(1023))
	assert.Equal(t, "1.00 KB", FormatSize(1024))
	assert.Equal(t, "1.50 KB", FormatSize(1536))
	assert.Equal(t, "1.00 MB", FormatSize(1024*1024))
	assert.Equal(t, "10.00 MB", FormatSize(10*1024*1024))
}
