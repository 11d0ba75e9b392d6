// Package transcode provides reference implementations of the two external
// collaborators spec.md §6 names but deliberately leaves unspecified:
// decode_encoded_words (RFC 2047 header decoding) and decode_transfer
// (Content-Transfer-Encoding decoding). Filters accept these as function
// values so a host embedding spamchain can substitute its own MIME stack;
// these defaults make the library usable without one.
package transcode

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/quotedprintable"
	"strings"

	"golang.org/x/net/html/charset"
)

// HeaderWordDecoder decodes an RFC 2047 "encoded word" header value (e.g. a
// Subject) into its decoded text. It never returns an error: on failure it
// returns "", matching spec.md §7's DecodeError policy of "treated as empty
// string" — filters that call this still produce a valid verdict, just
// without that token's contribution.
type HeaderWordDecoder func(value string) string

// TransferDecoder decodes body given the raw value of its
// Content-Transfer-Encoding header (empty string means identity).
type TransferDecoder func(body []byte, encoding string) string

// DefaultHeaderWordDecoder decodes RFC 2047 encoded words using the standard
// library's mime.WordDecoder, with a CharsetReader backed by
// golang.org/x/net/html/charset so non-UTF-8, non-ASCII charsets (koi8-r,
// windows-1251, etc., common in the spam corpus this filter targets)
// decode correctly instead of being left mangled or empty.
func DefaultHeaderWordDecoder(value string) string {
	dec := &mime.WordDecoder{
		CharsetReader: func(cs string, input io.Reader) (io.Reader, error) {
			return charset.NewReaderLabel(cs, input)
		},
	}
	// DecodeHeader passes a malformed encoded word (e.g. an unknown encoding
	// letter) through verbatim; check each whitespace-separated word first so
	// that such a word counts as a decoding failure.
	for _, field := range strings.Fields(value) {
		if strings.HasPrefix(field, "=?") && strings.HasSuffix(field, "?=") {
			if _, err := dec.Decode(field); err != nil {
				return ""
			}
		}
	}
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return ""
	}
	return decoded
}

// DefaultTransferDecoder decodes body according to encoding using the
// standard library's encoding/base64 and mime/quotedprintable packages —
// the same primitives the ecosystem's own MIME libraries (including the
// teacher's go-message dependency) use internally for this, so there is no
// third-party library in the pack that does it better.
//
// Unrecognized or empty encodings are treated as identity. Decode failures
// return "", matching spec.md §7's DecodeError policy of "treated as empty
// string".
func DefaultTransferDecoder(body []byte, encoding string) string {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "7bit", "8bit", "binary":
		return string(body)
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(body)))
		if err != nil {
			return ""
		}
		return string(decoded)
	case "base64":
		decoded, err := io.ReadAll(base64.NewDecoder(base64.StdEncoding, bytes.NewReader(body)))
		if err != nil {
			return ""
		}
		return string(decoded)
	default:
		return string(body)
	}
}
