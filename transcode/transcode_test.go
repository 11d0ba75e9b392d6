package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultHeaderWordDecoderPlainASCII(t *testing.T) {
	assert.Equal(t, "buy viagra now", DefaultHeaderWordDecoder("buy viagra now"))
}

func TestDefaultHeaderWordDecoderEncodedWord(t *testing.T) {
	// =?UTF-8?B?aGVsbG8=?= is base64 for "hello" in an RFC 2047 word.
	assert.Equal(t, "hello", DefaultHeaderWordDecoder("=?UTF-8?B?aGVsbG8=?="))
}

func TestDefaultHeaderWordDecoderInvalidReturnsEmptyString(t *testing.T) {
	malformed := "=?UTF-8?X?not-a-real-encoding?="
	assert.Equal(t, "", DefaultHeaderWordDecoder(malformed))
}

func TestDefaultTransferDecoderIdentity(t *testing.T) {
	assert.Equal(t, "hello body", DefaultTransferDecoder([]byte("hello body"), ""))
	assert.Equal(t, "hello body", DefaultTransferDecoder([]byte("hello body"), "7bit"))
}

func TestDefaultTransferDecoderBase64(t *testing.T) {
	assert.Equal(t, "hello", DefaultTransferDecoder([]byte("aGVsbG8="), "base64"))
}

func TestDefaultTransferDecoderQuotedPrintable(t *testing.T) {
	assert.Equal(t, "hello=world", DefaultTransferDecoder([]byte("hello=3Dworld"), "quoted-printable"))
}

func TestDefaultTransferDecoderUnknownEncodingIsIdentity(t *testing.T) {
	assert.Equal(t, "raw", DefaultTransferDecoder([]byte("raw"), "x-unknown-encoding"))
}

func TestDefaultTransferDecoderInvalidBase64ReturnsEmptyString(t *testing.T) {
	assert.Equal(t, "", DefaultTransferDecoder([]byte("not-valid-base64!!"), "base64"))
}
