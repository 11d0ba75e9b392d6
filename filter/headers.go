package filter

import "net/textproto"

// Headers is a case-insensitive mapping from header name to raw header
// value, matching spec.md's data model for Message.headers. Keys are stored
// canonicalized the same way net/http and net/textproto do it, so Get/Set
// agree on "Subject", "subject" and "SUBJECT" alike.
type Headers map[string]string

// NewHeaders builds a Headers value from a plain map, canonicalizing keys.
func NewHeaders(raw map[string]string) Headers {
	h := make(Headers, len(raw))
	for k, v := range raw {
		h[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	return h
}

// Get returns the header value for name, or "" if absent.
func (h Headers) Get(name string) string {
	if h == nil {
		return ""
	}
	return h[textproto.CanonicalMIMEHeaderKey(name)]
}

// Set stores value under name, canonicalizing the key.
func (h Headers) Set(name, value string) {
	h[textproto.CanonicalMIMEHeaderKey(name)] = value
}

// Has reports whether name is present.
func (h Headers) Has(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h[textproto.CanonicalMIMEHeaderKey(name)]
	return ok
}
