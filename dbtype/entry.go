package dbtype

import (
	"encoding/json"

	"github.com/distribution/drawbridge/digestengine"
)

// Media types recognized by the dispatcher's PUT-time content negotiation
// (SPEC_FULL.md §4.5, §6).
const (
	MediaTypeEntry     = "application/vnd.drawbridge.entry.v1+json"
	MediaTypeDirectory = "application/vnd.drawbridge.directory.v1+json"
	MediaTypeJOSE      = "application/jose+json"
)

// Entry is a tree-entry reference: the expected digest of a tree node, plus
// whatever custom fields a client attached.
type Entry struct {
	Digest digestengine.Set       `json:"digest"`
	Extra  map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Extra alongside the digest field.
func (e Entry) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(e.Extra)+1)
	for k, v := range e.Extra {
		m[k] = v
	}
	m["digest"] = e.Digest
	return json.Marshal(m)
}

// UnmarshalJSON extracts the digest field and keeps the rest as Extra.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if raw, ok := m["digest"]; ok {
		if err := json.Unmarshal(raw, &e.Digest); err != nil {
			return err
		}
		delete(m, "digest")
	}
	extra := make(map[string]interface{}, len(m))
	for k, raw := range m {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		extra[k] = v
	}
	e.Extra = extra
	return nil
}

// Directory is a directory node's manifest: the set of admissible child
// names mapped to their expected entry references (invariant 3).
type Directory map[TreeEntryName]Entry

// RepositoryConfig is a repository's content: currently a single visibility
// flag.
type RepositoryConfig struct {
	Public bool `json:"public"`
}

// UserRecord is a user's content: the OIDC subject this account is linked
// to.
type UserRecord struct {
	Subject  string `json:"subject"`
	Provider string `json:"provider"`
}

// TagPayloadKind distinguishes an unsigned tag body from a JWS-wrapped one,
// selected by the PUT request's Content-Type per SPEC_FULL.md §4.5.
type TagPayloadKind int

const (
	// TagUnsigned means the tag body is a bare Entry reference.
	TagUnsigned TagPayloadKind = iota
	// TagSigned means the tag body is a JOSE JWS envelope wrapping an Entry.
	TagSigned
)

// TagPayloadKindForMediaType maps a PUT's Content-Type to a payload kind,
// or ok=false if the media type is not recognized for tag bodies.
func TagPayloadKindForMediaType(mediaType string) (kind TagPayloadKind, ok bool) {
	switch mediaType {
	case MediaTypeEntry:
		return TagUnsigned, true
	case MediaTypeJOSE:
		return TagSigned, true
	default:
		return 0, false
	}
}
