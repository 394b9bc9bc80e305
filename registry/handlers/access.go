package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/distribution/drawbridge/auth"
	"github.com/distribution/drawbridge/dbtype"
	"github.com/distribution/drawbridge/entity"
	"github.com/distribution/drawbridge/errcode"
)

// checkAccess implements the three access rules from spec §4.5 against the
// already-parsed route. User and Repository resources are readable by
// anyone (their existence and public flag are what a caller needs in order
// to decide whether to authenticate at all); writes to them, and all
// access to a repository's tags and tree, are gated.
func (app *App) checkAccess(r *http.Request, route Route) error {
	switch route.Kind {
	case ResourceUser:
		if r.Method == http.MethodPut {
			// Bootstrapping: the user being created has no prior owner to
			// match against, so only a valid bearer token is required, not
			// subject-equals-owner.
			return app.requireBearer(r)
		}
		return nil
	case ResourceRepository:
		if r.Method == http.MethodPut {
			return app.requireOwner(r, route.Repository.Owner.Name)
		}
		return nil
	case ResourceTagIndex:
		return app.requireOwnerUnlessPublic(r, route.Repository, false)
	case ResourceTag:
		return app.requireOwnerUnlessPublic(r, route.Tag.Repository, r.Method == http.MethodPut)
	case ResourceTree:
		return app.requireOwnerUnlessPublicOrCert(r, route.Tree.Tag.Repository, r.Method == http.MethodPut)
	default:
		return nil
	}
}

// verifyBearer validates the request's bearer token against the configured
// identity provider and returns the provider+subject it names, without
// requiring any user already be linked to it. This is the only check
// available for a user-create request, since the link invariant 4
// describes is exactly what that request is about to install; requireOwner
// and subjectUser layer the OIDC reverse-index lookup on top of it for
// every other resource.
func (app *App) verifyBearer(r *http.Request) (provider, subject string, err error) {
	token, ok := auth.BearerToken(r)
	if !ok {
		return "", "", errcode.ErrorCodeUnauthorized.WithDetail("missing bearer token")
	}
	if app.Verifier == nil {
		return "", "", errcode.ErrorCodeUnauthorized.WithDetail("no identity provider configured")
	}
	provider, subject, verr := app.Verifier.Verify(r.Context(), token)
	if verr != nil {
		return "", "", errcode.ErrorCodeUnauthorized.WithDetail("invalid bearer token")
	}
	return provider, subject, nil
}

// subjectUser resolves the caller's bearer token to a linked user name via
// the external verifier and the store's reverse OIDC index.
func (app *App) subjectUser(r *http.Request) (dbtype.UserName, error) {
	provider, subject, err := app.verifyBearer(r)
	if err != nil {
		return "", err
	}
	name, err := app.Index.UserBySubject(provider, subject)
	if err != nil {
		var ee *entity.Error
		if errors.As(err, &ee) && ee.Kind == entity.KindNotFound {
			return "", errcode.ErrorCodeUnauthorized.WithDetail("no user linked to this identity")
		}
		return "", errcode.ErrorCodeInternal.WithDetail("storage backend failure")
	}
	return name, nil
}

// requireBearer enforces that the request carries a bearer token valid for
// the configured identity provider, without requiring it already be linked
// to a user. Used only to gate user-create (spec §4.5 bootstrapping note):
// the first PUT for a user has no prior link for subjectUser to resolve.
func (app *App) requireBearer(r *http.Request) error {
	_, _, err := app.verifyBearer(r)
	return err
}

// requireOwner enforces the "resolved username MUST equal the context's
// owner" rule (spec §4.5), producing the diagnostic the end-to-end
// scenario in §8.5 names ("relogin as <owner>").
func (app *App) requireOwner(r *http.Request, owner dbtype.UserName) error {
	resolved, err := app.subjectUser(r)
	if err != nil {
		return err
	}
	if resolved != owner {
		return errcode.ErrorCodeUnauthorized.WithDetail(
			fmt.Sprintf("request authenticated as %q; relogin as %q", resolved, owner))
	}
	return nil
}

// requireOwnerUnlessPublic implements the public-read bypass: a read on a
// public repository's tag or tree needs no credentials at all; every write,
// and every read on a private repository, falls through to requireOwner.
func (app *App) requireOwnerUnlessPublic(r *http.Request, repo dbtype.RepositoryContext, write bool) error {
	if !write {
		public, err := app.Index.IsPublic(repo)
		if err != nil {
			var ee *entity.Error
			if errors.As(err, &ee) {
				return errcode.FromEntityError(ee)
			}
			return errcode.ErrorCodeInternal.WithDetail("storage backend failure")
		}
		if public {
			return nil
		}
	}
	return app.requireOwner(r, repo.Owner.Name)
}

// requireOwnerUnlessPublicOrCert adds the TLS client-certificate bypass,
// which applies only to tree reads (spec §4.5): a verified client
// certificate skips the OIDC check entirely, but never for writes.
func (app *App) requireOwnerUnlessPublicOrCert(r *http.Request, repo dbtype.RepositoryContext, write bool) error {
	if !write && r.TLS != nil && auth.HasVerifiedClientCert(r.TLS.VerifiedChains) {
		return nil
	}
	return app.requireOwnerUnlessPublic(r, repo, write)
}
