// Package entity composes package store's generic filesystem primitives
// with package dbtype's typed identifiers into the User/Repository/Tag/
// Tree operations the dispatcher's handlers call directly. It is grounded
// on the split between the teacher's generic storagedriver.StorageDriver
// and its typed registry/storage.Repository: store is the byte-level
// layer, entity is the typed composition on top of it.
package entity

import (
	"errors"
	"fmt"

	"github.com/distribution/drawbridge/metrics"
	"github.com/distribution/drawbridge/store"
)

// Kind is the six-member error taxonomy from SPEC_FULL.md §7, shared by
// every entity operation and translated to HTTP status codes one layer up
// in package errcode.
type Kind int

const (
	KindNotFound Kind = iota
	KindOccupied
	KindBadRequest
	KindUnauthorized
	KindMethodNotAllowed
	KindInternal
)

// Error is a tagged entity-layer error. Handlers switch on Kind, never on
// the message text.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func notFound(msg string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(msg, args...)}
}

func occupied(msg string, args ...interface{}) error {
	return &Error{Kind: KindOccupied, Message: fmt.Sprintf(msg, args...)}
}

func badRequest(msg string, args ...interface{}) error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(msg, args...)}
}

func internal(err error, msg string, args ...interface{}) error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(msg, args...), Err: err}
}

// fromStoreCreateError translates a store.CreateError into an entity Error.
func fromStoreCreateError(path string, err error) error {
	var ce *store.CreateError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case store.CreateOccupied:
			return occupied("%s already exists", path)
		case store.CreateDigestMismatch:
			return badRequest("content digest mismatch for %s", path)
		case store.CreateSizeMismatch:
			return badRequest("content length mismatch for %s", path)
		case store.CreateParentMissing:
			return notFound("parent of %s does not exist", path)
		}
	}
	return internal(err, "failed to create %s", path)
}

// recordCreate reports createErr (the raw error from Store.Create, nil on
// success) to the StoreNamespace counters for kind, then translates it the
// same way fromStoreCreateError does.
func recordCreate(kind, path string, createErr error) error {
	if createErr == nil {
		metrics.EntitiesCreated.WithValues(kind).Inc(1)
		return nil
	}
	var ce *store.CreateError
	if errors.As(createErr, &ce) && ce.Kind == store.CreateDigestMismatch {
		metrics.DigestMismatches.WithValues(kind).Inc(1)
	}
	return fromStoreCreateError(path, createErr)
}

// fromStoreGetError translates a store.GetError into an entity Error.
func fromStoreGetError(path string, err error) error {
	var ge *store.GetError
	if errors.As(err, &ge) {
		if ge.Kind == store.GetNotFound {
			return notFound("%s not found", path)
		}
	}
	return internal(err, "failed to read %s", path)
}
