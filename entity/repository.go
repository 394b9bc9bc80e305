package entity

import (
	"bytes"
	"encoding/json"
	"path"

	"github.com/distribution/drawbridge/dbtype"
)

// CreateRepository creates a repository entity under its owning user.
// Invariant 2 (parent-before-child) is enforced explicitly here because a
// multi-segment repository name may need intermediate namespace
// directories that are not themselves entities.
func (ix *Index) CreateRepository(ctx dbtype.RepositoryContext, config dbtype.RepositoryConfig) error {
	ownerPath := ctx.Owner.StorePath()
	if _, err := ix.Store.GetMeta(ownerPath); err != nil {
		return notFound("owning user %s does not exist", ctx.Owner.Name)
	}

	if len(ctx.Name.Path) > 1 {
		groupDir := path.Join(append([]string{ownerPath, "repos"}, ctx.Name.Path[:len(ctx.Name.Path)-1]...)...)
		if err := ix.Store.MkdirNamespace(groupDir); err != nil {
			return internal(err, "create repository namespace")
		}
	}

	body, err := json.Marshal(config)
	if err != nil {
		return internal(err, "encode repository config")
	}
	meta, err := metaFor(body, "application/json")
	if err != nil {
		return internal(err, "compute repository meta")
	}

	return recordCreate("repository", ctx.StorePath(), ix.Store.Create(ctx.StorePath(), meta, bytes.NewReader(body), "tags"))
}

// GetRepository returns the stored repository config.
func (ix *Index) GetRepository(ctx dbtype.RepositoryContext) (dbtype.Meta, dbtype.RepositoryConfig, error) {
	meta, rc, err := ix.Store.Get(ctx.StorePath())
	if err != nil {
		return dbtype.Meta{}, dbtype.RepositoryConfig{}, fromStoreGetError(ctx.StorePath(), err)
	}
	defer rc.Close()
	var config dbtype.RepositoryConfig
	if err := json.NewDecoder(rc).Decode(&config); err != nil {
		return dbtype.Meta{}, dbtype.RepositoryConfig{}, internal(err, "decode repository config")
	}
	return meta, config, nil
}

// RepositoryMeta returns only the repository's Meta, for HEAD requests.
func (ix *Index) RepositoryMeta(ctx dbtype.RepositoryContext) (dbtype.Meta, error) {
	meta, err := ix.Store.GetMeta(ctx.StorePath())
	if err != nil {
		return dbtype.Meta{}, fromStoreGetError(ctx.StorePath(), err)
	}
	return meta, nil
}

// IsPublic reads the repository's public flag. SPEC_FULL.md §9 allows
// caching this with invalidation at create time, since repositories are
// never mutated; this implementation re-reads on every call for
// simplicity and correctness and leaves caching as a future optimization.
func (ix *Index) IsPublic(ctx dbtype.RepositoryContext) (bool, error) {
	_, config, err := ix.GetRepository(ctx)
	if err != nil {
		return false, err
	}
	return config.Public, nil
}

// ListTags lists every tag semver string under a repository.
func (ix *Index) ListTags(ctx dbtype.RepositoryContext) ([]string, error) {
	names, err := ix.Store.ReadDir(path.Join(ctx.StorePath(), "tags"))
	if err != nil {
		return nil, fromStoreGetError(ctx.StorePath(), err)
	}
	return names, nil
}
