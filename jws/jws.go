// Package jws extracts the payload from a JOSE JWS envelope
// (application/jose+json) without verifying its signature, implementing
// entity.JOSEUnwrapper. It is grounded on the teacher's use of
// github.com/docker/libtrust for manifest signing in
// manifest/schema1/sign.go and manifest.go, adapted from libtrust's legacy
// "pretty signature" manifest format to its standard JOSE JWS parser,
// since SPEC_FULL.md §4.5/§9 names application/jose+json rather than
// Docker's schema1 signature envelope.
package jws

import (
	"github.com/docker/libtrust"
)

// Unwrapper extracts the opaque payload from a JWS envelope via libtrust,
// leaving signature verification to a future, explicitly out-of-scope
// concern (SPEC_FULL.md §9).
type Unwrapper struct{}

// Payload parses envelope as a JOSE JWS and returns its payload bytes.
func (Unwrapper) Payload(envelope []byte) ([]byte, error) {
	jsig, err := libtrust.ParseJWS(envelope)
	if err != nil {
		return nil, err
	}
	return jsig.Payload()
}
