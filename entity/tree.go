package entity

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/distribution/drawbridge/dbtype"
)

// CreateTree creates a tree node, file or directory, at ctx.Path. For a
// non-root path it first re-reads the parent directory node's manifest and
// enforces invariant 3 (the SPEC_FULL.md §9 open question resolved in
// favor of targeting correctness): the child's name must be listed in the
// parent manifest, and the child's own digest must match what the manifest
// declares for it.
func (ix *Index) CreateTree(ctx dbtype.TreeContext, meta dbtype.Meta, body []byte) error {
	if !ctx.Path.IsRoot() {
		parentPath, name, _ := ctx.Path.Parent()
		parentCtx := dbtype.TreeContext{Tag: ctx.Tag, Path: parentPath}

		parentMeta, parentBody, err := ix.getTreeRaw(parentCtx)
		if err != nil {
			return err
		}
		if parentMeta.MediaType != dbtype.MediaTypeDirectory {
			return badRequest("parent of %s is not a directory node", ctx.Path.String())
		}

		var manifest dbtype.Directory
		if err := json.Unmarshal(parentBody, &manifest); err != nil {
			return internal(err, "decode parent directory manifest")
		}

		entryName, err := dbtype.ParseTreeEntryName(name)
		if err != nil {
			return badRequest("invalid tree entry name %q: %v", name, err)
		}
		expected, ok := manifest[entryName]
		if !ok {
			return badRequest("%s is not listed in parent directory manifest", ctx.Path.String())
		}
		if !expected.Digest.Equal(meta.Digest) {
			return badRequest("digest of %s does not match parent manifest entry", ctx.Path.String())
		}
	}

	if meta.MediaType == dbtype.MediaTypeDirectory {
		var manifest dbtype.Directory
		if err := json.Unmarshal(body, &manifest); err != nil {
			return badRequest("invalid directory manifest: %v", err)
		}
		return recordCreate("tree", ctx.StorePath(), ix.Store.Create(ctx.StorePath(), meta, bytes.NewReader(body), "entries"))
	}

	return recordCreate("tree", ctx.StorePath(), ix.Store.Create(ctx.StorePath(), meta, bytes.NewReader(body)))
}

// GetTree returns a tree node's Meta and raw content: a directory manifest
// for a directory node, or opaque file bytes otherwise.
func (ix *Index) GetTree(ctx dbtype.TreeContext) (dbtype.Meta, []byte, error) {
	return ix.getTreeRaw(ctx)
}

// TreeMeta returns only the tree node's Meta, for HEAD requests.
func (ix *Index) TreeMeta(ctx dbtype.TreeContext) (dbtype.Meta, error) {
	meta, err := ix.Store.GetMeta(ctx.StorePath())
	if err != nil {
		return dbtype.Meta{}, fromStoreGetError(ctx.StorePath(), err)
	}
	return meta, nil
}

func (ix *Index) getTreeRaw(ctx dbtype.TreeContext) (dbtype.Meta, []byte, error) {
	meta, rc, err := ix.Store.Get(ctx.StorePath())
	if err != nil {
		return dbtype.Meta{}, nil, fromStoreGetError(ctx.StorePath(), err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return dbtype.Meta{}, nil, internal(err, "read tree node content")
	}
	return meta, b, nil
}
