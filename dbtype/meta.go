package dbtype

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/distribution/drawbridge/digestengine"
)

// Meta is the triple recorded in every entity's meta.json: a non-empty
// digest-set, a byte-count size, and an IANA media type.
type Meta struct {
	Digest    digestengine.Set `json:"digest"`
	MediaType string           `json:"mediaType"`
	Size      int64            `json:"size"`
}

// FromHeaders decodes a Meta from the three PUT-mandatory headers
// (Content-Digest, Content-Length, Content-Type). An empty digest-set is
// rejected, matching the dispatcher's bad-request contract.
func FromHeaders(h http.Header) (Meta, error) {
	digestHeader := h.Get("Content-Digest")
	if digestHeader == "" {
		return Meta{}, fmt.Errorf("dbtype: missing Content-Digest header")
	}
	set, err := digestengine.ParseSet(digestHeader)
	if err != nil {
		return Meta{}, err
	}

	lengthHeader := h.Get("Content-Length")
	if lengthHeader == "" {
		return Meta{}, fmt.Errorf("dbtype: missing Content-Length header")
	}
	size, err := strconv.ParseInt(lengthHeader, 10, 64)
	if err != nil || size < 0 {
		return Meta{}, fmt.Errorf("dbtype: invalid Content-Length %q", lengthHeader)
	}

	mediaType := h.Get("Content-Type")
	if mediaType == "" {
		return Meta{}, fmt.Errorf("dbtype: missing Content-Type header")
	}

	return Meta{Digest: set, Size: size, MediaType: mediaType}, nil
}

// SetHeaders writes m's three fields onto a response header set, in the
// form HEAD/GET re-emit them.
func (m Meta) SetHeaders(h http.Header) error {
	digestHeader, err := m.Digest.Format()
	if err != nil {
		return err
	}
	h.Set("Content-Digest", digestHeader)
	h.Set("Content-Length", strconv.FormatInt(m.Size, 10))
	h.Set("Content-Type", m.MediaType)
	return nil
}

// Marshal produces the canonical (minified, lexically key-sorted) JSON form
// stored as meta.json, so that client-computed digests of the bytes match
// what the server persists.
func (m Meta) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalMeta parses a stored meta.json payload.
func UnmarshalMeta(b []byte) (Meta, error) {
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, err
	}
	if len(m.Digest) == 0 {
		return Meta{}, fmt.Errorf("dbtype: stored meta has empty digest-set")
	}
	return m, nil
}
