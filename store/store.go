// Package store implements the Entity Store (C2): a filesystem-backed,
// hierarchical, content-addressed object store. It knows nothing about
// users, repositories, tags or trees — those compositions live in package
// entity — only about creating, reading and listing entities at opaque
// slash-separated paths under a root directory.
//
// The on-disk layout and atomicity story are grounded on the teacher's
// storagedriver/filesystem driver: every path is resolved relative to a
// root directory via path.Join/filepath.Join, confining it beneath the
// root exactly like storagedriver/filesystem/filesystem.go's fullPath
// helper did for blob paths.
package store

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/distribution/drawbridge/dbtype"
	"github.com/distribution/drawbridge/digestengine"
)

// entityDirMode is the restrictive mode SPEC_FULL.md §4.2 requires for
// every entity directory.
const entityDirMode = 0o700

// metaFileName and contentFileName are the two files every entity
// directory carries.
const (
	metaFileName    = "meta.json"
	contentFileName = "content"
)

// Store is the root of an Entity Store rooted at a single directory.
type Store struct {
	root string
}

// topLevelNamespaces are the two fixed, non-entity directories every
// store root has from the start: "users" is the parent of every top-level
// user entity, "oidc" is the parent of the provider subdirectories the
// OIDC reverse index lives under. Unlike "repos"/"tags"/"entries", which
// come into being only as a side effect of creating the entity that owns
// them, these two have no owning entity of their own, so Store.Create's
// exclusive os.Mkdir (which requires its immediate parent to already
// exist) would otherwise reject the very first user or symlink ever
// written to a fresh store.
var topLevelNamespaces = []string{"users", "oidc"}

// New opens (creating if necessary) an Entity Store rooted at dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, entityDirMode); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	s := &Store{root: abs}
	for _, ns := range topLevelNamespaces {
		if err := s.MkdirNamespace(ns); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// resolve confines path beneath the store root. Callers pass paths built
// from already-validated dbtype identifiers, so this is defense in depth
// rather than the primary guard against traversal.
func (s *Store) resolve(path string) (string, error) {
	cleaned := filepath.Clean("/" + path)
	full := filepath.Join(s.root, cleaned)
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) && full != s.root {
		return "", &GetError{Kind: GetIO, Path: path, Err: os.ErrInvalid}
	}
	return full, nil
}

// MkdirNamespace ensures the (non-entity) namespacing directories leading
// up to path exist, without requiring or affecting anything at path
// itself. It is used only for the group segments of a multi-segment
// repository name, which are plain folders rather than addressable
// entities.
func (s *Store) MkdirNamespace(path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, entityDirMode)
}

// Create atomically creates the entity at path: an exclusive directory
// create serializes concurrent writers (exactly one observes success, the
// rest Occupied), followed by a digest-verified copy of body into content,
// then meta.json, and finally any empty container subdirectories the
// entity kind requires for its children (e.g. "repos", "tags",
// "entries"). meta.json is written only after content has been streamed
// and verified, per SPEC_FULL.md §9's design note: visibility of the
// complete entity depends on the last write, and GetMeta/Get treat a
// missing meta.json as NotFound, so a digest or size mismatch never
// exposes a half-written entity as present.
func (s *Store) Create(path string, meta dbtype.Meta, body io.Reader, containers ...string) error {
	full, err := s.resolve(path)
	if err != nil {
		return &CreateError{Kind: CreateIO, Path: path, Err: err}
	}

	if err := os.Mkdir(full, entityDirMode); err != nil {
		if os.IsExist(err) {
			return &CreateError{Kind: CreateOccupied, Path: path}
		}
		if os.IsNotExist(err) {
			return &CreateError{Kind: CreateParentMissing, Path: path, Err: err}
		}
		return &CreateError{Kind: CreateIO, Path: path, Err: err}
	}

	contentFile, err := os.OpenFile(filepath.Join(full, contentFileName), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return &CreateError{Kind: CreateIO, Path: path, Err: err}
	}
	defer contentFile.Close()

	verifier, err := digestengine.NewVerifier(body, meta.Digest)
	if err != nil {
		return &CreateError{Kind: CreateIO, Path: path, Err: err}
	}

	written, err := io.Copy(contentFile, verifier)
	if err != nil {
		var mismatch *digestengine.ErrDigestMismatch
		if asDigestMismatch(err, &mismatch) {
			return &CreateError{Kind: CreateDigestMismatch, Path: path, Err: err}
		}
		return &CreateError{Kind: CreateIO, Path: path, Err: err}
	}
	if written != meta.Size {
		return &CreateError{Kind: CreateSizeMismatch, Path: path, Err: err}
	}

	metaBytes, err := meta.Marshal()
	if err != nil {
		return &CreateError{Kind: CreateIO, Path: path, Err: err}
	}
	if err := os.WriteFile(filepath.Join(full, metaFileName), metaBytes, 0o600); err != nil {
		return &CreateError{Kind: CreateIO, Path: path, Err: err}
	}

	for _, c := range containers {
		if err := os.Mkdir(filepath.Join(full, c), entityDirMode); err != nil && !os.IsExist(err) {
			return &CreateError{Kind: CreateIO, Path: path, Err: err}
		}
	}

	return nil
}

func asDigestMismatch(err error, target **digestengine.ErrDigestMismatch) bool {
	for err != nil {
		if m, ok := err.(*digestengine.ErrDigestMismatch); ok {
			*target = m
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// GetMeta reads and decodes the entity's meta.json.
func (s *Store) GetMeta(path string) (dbtype.Meta, error) {
	full, err := s.resolve(path)
	if err != nil {
		return dbtype.Meta{}, &GetError{Kind: GetIO, Path: path, Err: err}
	}
	b, err := os.ReadFile(filepath.Join(full, metaFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return dbtype.Meta{}, &GetError{Kind: GetNotFound, Path: path}
		}
		return dbtype.Meta{}, &GetError{Kind: GetIO, Path: path, Err: err}
	}
	meta, err := dbtype.UnmarshalMeta(b)
	if err != nil {
		return dbtype.Meta{}, &GetError{Kind: GetIO, Path: path, Err: err}
	}
	return meta, nil
}

// Get returns the entity's Meta and a fresh content file handle opened at
// the time of the call; the caller owns closing it.
func (s *Store) Get(path string) (dbtype.Meta, io.ReadCloser, error) {
	meta, err := s.GetMeta(path)
	if err != nil {
		return dbtype.Meta{}, nil, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return dbtype.Meta{}, nil, &GetError{Kind: GetIO, Path: path, Err: err}
	}
	f, err := os.Open(filepath.Join(full, contentFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return dbtype.Meta{}, nil, &GetError{Kind: GetNotFound, Path: path}
		}
		return dbtype.Meta{}, nil, &GetError{Kind: GetIO, Path: path, Err: err}
	}
	return meta, f, nil
}

// ReadDir lists the immediate child directory names under path, sorted.
func (s *Store) ReadDir(path string) ([]string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, &GetError{Kind: GetIO, Path: path, Err: err}
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &GetError{Kind: GetNotFound, Path: path}
		}
		return nil, &GetError{Kind: GetIO, Path: path, Err: err}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Symlink creates the OIDC index entry at path, pointing to destRelative
// (a path relative to path's own directory). AlreadyExists is reported as
// CreateOccupied.
func (s *Store) Symlink(path, destRelative string) error {
	full, err := s.resolve(path)
	if err != nil {
		return &CreateError{Kind: CreateIO, Path: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(full), entityDirMode); err != nil {
		return &CreateError{Kind: CreateIO, Path: path, Err: err}
	}
	if err := os.Symlink(destRelative, full); err != nil {
		if os.IsExist(err) {
			return &CreateError{Kind: CreateOccupied, Path: path}
		}
		return &CreateError{Kind: CreateIO, Path: path, Err: err}
	}
	return nil
}

// ReadLink resolves the OIDC index entry at path back to the final path
// component of its target (the user name).
func (s *Store) ReadLink(path string) (string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", &GetError{Kind: GetIO, Path: path, Err: err}
	}
	target, err := os.Readlink(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &GetError{Kind: GetNotFound, Path: path}
		}
		return "", &GetError{Kind: GetIO, Path: path, Err: err}
	}
	return filepath.Base(target), nil
}
