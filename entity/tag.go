package entity

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/distribution/drawbridge/dbtype"
)

// JOSEUnwrapper extracts the opaque payload bytes from a JWS envelope
// without verifying its signature (SPEC_FULL.md §9: signature
// verification is an out-of-scope, read-side concern).
type JOSEUnwrapper interface {
	Payload(envelope []byte) ([]byte, error)
}

// CreateTag creates a tag entity. body is the raw PUT payload; mediaType
// selects unsigned vs JWS-wrapped per dbtype.TagPayloadKindForMediaType.
// For a signed tag, unwrapper extracts the entry reference from the JOSE
// envelope; the envelope itself is stored verbatim as the tag's content,
// matching the reference design's choice to keep signed bodies opaque.
func (ix *Index) CreateTag(ctx dbtype.TagContext, meta dbtype.Meta, body []byte, unwrapper JOSEUnwrapper) error {
	kind, ok := dbtype.TagPayloadKindForMediaType(meta.MediaType)
	if !ok {
		return badRequest("unsupported tag media type %q", meta.MediaType)
	}

	var entryBytes []byte
	switch kind {
	case dbtype.TagUnsigned:
		entryBytes = body
	case dbtype.TagSigned:
		payload, err := unwrapper.Payload(body)
		if err != nil {
			return badRequest("invalid JWS envelope: %v", err)
		}
		entryBytes = payload
	}

	var entry dbtype.Entry
	if err := json.Unmarshal(entryBytes, &entry); err != nil {
		return badRequest("invalid tag entry reference: %v", err)
	}

	if _, err := ix.Store.GetMeta(ctx.Repository.StorePath()); err != nil {
		return notFound("owning repository %s does not exist", ctx.Repository.Name)
	}

	// The "tree" directory is not pre-created here: it comes into being
	// only when the client PUTs the tree root node, which exclusively
	// creates it the same way any other tree node is created.
	return recordCreate("tag", ctx.StorePath(), ix.Store.Create(ctx.StorePath(), meta, bytes.NewReader(body)))
}

// GetTag returns the tag's Meta and raw stored content (either the bare
// entry reference or the JWS envelope, verbatim).
func (ix *Index) GetTag(ctx dbtype.TagContext) (dbtype.Meta, []byte, error) {
	meta, rc, err := ix.Store.Get(ctx.StorePath())
	if err != nil {
		return dbtype.Meta{}, nil, fromStoreGetError(ctx.StorePath(), err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return dbtype.Meta{}, nil, internal(err, "read tag content")
	}
	return meta, b, nil
}

// TagMeta returns only the tag's Meta, for HEAD requests.
func (ix *Index) TagMeta(ctx dbtype.TagContext) (dbtype.Meta, error) {
	meta, err := ix.Store.GetMeta(ctx.StorePath())
	if err != nil {
		return dbtype.Meta{}, fromStoreGetError(ctx.StorePath(), err)
	}
	return meta, nil
}
