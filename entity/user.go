package entity

import (
	"bytes"
	"encoding/json"
	"io"
	"path"
	"strings"

	"github.com/distribution/drawbridge/dbtype"
	"github.com/distribution/drawbridge/digestengine"
	"github.com/distribution/drawbridge/store"
)

// Index is the typed entry point onto an Entity Store: it owns a
// store.Store and knows how to compose users, repositories, tags and tree
// nodes out of it.
type Index struct {
	Store *store.Store
}

// New wraps an already-opened Entity Store.
func New(s *store.Store) *Index { return &Index{Store: s} }

// defaultAlgorithms is the digest-set used for entities the server itself
// computes a digest for (e.g. the tag-index JSON response).
var defaultAlgorithms = []digestengine.Algorithm{digestengine.SHA256}

// CreateUser creates a user entity and installs its OIDC subject index
// entry (invariant 4). Per the design notes on multi-step create, the two
// writes are not transactional; the link is only written after the user
// entity exists, so a failure partway leaves the user entity present but
// unlinked.
func (ix *Index) CreateUser(ctx dbtype.UserContext, provider, subject string) error {
	record := dbtype.UserRecord{Subject: subject, Provider: provider}
	body, err := json.Marshal(record)
	if err != nil {
		return internal(err, "encode user record")
	}
	meta, err := metaFor(body, "application/json")
	if err != nil {
		return internal(err, "compute user meta")
	}

	if err := recordCreate("user", ctx.StorePath(), ix.Store.Create(ctx.StorePath(), meta, bytes.NewReader(body), "repos")); err != nil {
		return err
	}

	linkPath := path.Join("oidc", provider, subject)
	target := relativeTarget(linkPath, ctx.StorePath())
	if err := ix.Store.Symlink(linkPath, target); err != nil {
		return fromStoreCreateError(linkPath, err)
	}
	return nil
}

// GetUser returns the stored user record.
func (ix *Index) GetUser(ctx dbtype.UserContext) (dbtype.Meta, dbtype.UserRecord, error) {
	meta, rc, err := ix.Store.Get(ctx.StorePath())
	if err != nil {
		return dbtype.Meta{}, dbtype.UserRecord{}, fromStoreGetError(ctx.StorePath(), err)
	}
	defer rc.Close()
	var record dbtype.UserRecord
	if err := json.NewDecoder(rc).Decode(&record); err != nil {
		return dbtype.Meta{}, dbtype.UserRecord{}, internal(err, "decode user record")
	}
	return meta, record, nil
}

// UserMeta returns only the user's Meta, for HEAD requests.
func (ix *Index) UserMeta(ctx dbtype.UserContext) (dbtype.Meta, error) {
	meta, err := ix.Store.GetMeta(ctx.StorePath())
	if err != nil {
		return dbtype.Meta{}, fromStoreGetError(ctx.StorePath(), err)
	}
	return meta, nil
}

// UserBySubject resolves the reverse OIDC index: provider+subject to the
// linked user name.
func (ix *Index) UserBySubject(provider, subject string) (dbtype.UserName, error) {
	linkPath := path.Join("oidc", provider, subject)
	name, err := ix.Store.ReadLink(linkPath)
	if err != nil {
		return "", fromStoreGetError(linkPath, err)
	}
	return dbtype.UserName(name), nil
}

// metaFor computes the default-algorithm digest-set for server-authored
// content (e.g. a user record or the tag index JSON).
func metaFor(body []byte, mediaType string) (dbtype.Meta, error) {
	w, err := digestengine.NewWriter(io.Discard, defaultAlgorithms)
	if err != nil {
		return dbtype.Meta{}, err
	}
	if _, err := w.Write(body); err != nil {
		return dbtype.Meta{}, err
	}
	return dbtype.Meta{Digest: w.Digests(), Size: int64(len(body)), MediaType: mediaType}, nil
}

// relativeTarget computes the relative symlink target from the directory
// containing linkPath to entityPath, both store-root-relative slash
// paths.
func relativeTarget(linkPath, entityPath string) string {
	dir := path.Clean(path.Dir(linkPath))
	depth := len(strings.Split(dir, "/"))
	return strings.Repeat("../", depth) + entityPath
}
