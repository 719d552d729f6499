package sigauth

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// FromHeader reads a Challenge from request headers. X-Auth-Message is
// base64 encoded on the wire because the canonical message spans lines.
// A value that isn't valid base64 is used as is.
func FromHeader(h http.Header) Challenge {
	c := Challenge{
		Address:   strings.TrimSpace(h.Get(HeaderAddress)),
		Signature: strings.TrimSpace(h.Get(HeaderSignature)),
		Timestamp: strings.TrimSpace(h.Get(HeaderTimestamp)),
	}
	if raw := h.Get(HeaderMessage); raw != "" {
		if dec, err := base64.StdEncoding.DecodeString(raw); err == nil {
			c.Message = string(dec)
		} else {
			c.Message = raw
		}
	}
	return c
}

// HasChallenge reports whether any of the signature headers are present.
func HasChallenge(h http.Header) bool {
	return h.Get(HeaderAddress) != "" || h.Get(HeaderSignature) != "" || h.Get(HeaderTimestamp) != ""
}

// SetHeader writes c onto h.
func (c Challenge) SetHeader(h http.Header) {
	h.Set(HeaderAddress, c.Address)
	h.Set(HeaderSignature, c.Signature)
	h.Set(HeaderTimestamp, c.Timestamp)
	if c.Message != "" {
		h.Set(HeaderMessage, base64.StdEncoding.EncodeToString([]byte(c.Message)))
	}
}
