package transcode

import (
	"io"

	"github.com/emersion/go-message"

	"github.com/sievemail/spamchain/filter"
)

// ParseMIME builds a filter.Message from a raw RFC 5322 message, using
// github.com/emersion/go-message the same way the teacher parses submitted
// messages (see submission.go's message.Read call): Header.Get returns the
// raw, still RFC-2047-encoded value, matching filter.Message's contract
// that Subject stays undecoded until a filter calls a HeaderWordDecoder
// itself. peerAddress is supplied by the caller, since it comes from the
// transport (SMTP/IMAP session), not the message body.
//
// go-message already decodes the body according to Content-Transfer-
// Encoding while parsing the entity, so the returned Message deliberately
// omits that header: it would otherwise claim an encoding the body no
// longer has, and a filter's TransferDecoder would try to decode it a
// second time. Callers that need the untouched wire bytes should read the
// message themselves instead of going through ParseMIME.
func ParseMIME(r io.Reader, peerAddress []string) (filter.Message, error) {
	entity, err := message.Read(r)
	if err != nil {
		return filter.Message{}, &filter.DecodeError{Collaborator: "go-message", Err: err}
	}

	headers := filter.NewHeaders(nil)
	if subject := entity.Header.Get("Subject"); subject != "" {
		headers.Set("Subject", subject)
	}

	body, err := io.ReadAll(entity.Body)
	if err != nil {
		return filter.Message{}, &filter.DecodeError{Collaborator: "go-message", Err: err}
	}

	return filter.Message{
		Headers:     headers,
		Body:        body,
		PeerAddress: peerAddress,
	}, nil
}
