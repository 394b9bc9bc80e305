package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/distribution/drawbridge/dbtype"
	"github.com/distribution/drawbridge/errcode"
)

// headUser implements HEAD on a user resource: meta headers, empty body.
func (app *App) headUser(ctx *Context, w http.ResponseWriter, r *http.Request) error {
	meta, err := app.Index.UserMeta(ctx.Route.User)
	if err != nil {
		return err
	}
	if err := meta.SetHeaders(w.Header()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

// getUser implements GET: meta headers plus the stored user record.
func (app *App) getUser(ctx *Context, w http.ResponseWriter, r *http.Request) error {
	meta, record, err := app.Index.GetUser(ctx.Route.User)
	if err != nil {
		return err
	}
	body, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := meta.SetHeaders(w.Header()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	_, writeErr := w.Write(body)
	return writeErr
}

// putUser implements PUT: create a user entity. The Meta headers are
// validated for protocol compliance per spec §4.5 step 1; the stored
// content itself is the server's own canonical encoding of the user
// record (entity.CreateUser composes that and its digest internally). The
// client's declared subject is checked against the bearer token's own
// subject claim rather than trusted outright, and the provider that gets
// linked is the one the token was actually verified against, not whatever
// the client's request body claims: record.Provider is otherwise
// unauthenticated input and would let a client symlink itself into a
// different provider's namespace.
func (app *App) putUser(ctx *Context, w http.ResponseWriter, r *http.Request) error {
	if _, perr := dbtype.FromHeaders(r.Header); perr != nil {
		return badRequestf("%v", perr)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return internalf(err, "read request body")
	}
	var record dbtype.UserRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return badRequestf("invalid user record: %v", err)
	}
	if record.Subject == "" {
		return badRequestf("user record missing subject")
	}

	provider, subject, verr := app.verifyBearer(r)
	if verr != nil {
		return verr
	}
	if record.Subject != subject {
		return errcode.ErrorCodeUnauthorized.WithDetail("user record subject does not match authenticated token")
	}

	if err := app.Index.CreateUser(ctx.Route.User, provider, subject); err != nil {
		return err
	}
	w.WriteHeader(http.StatusCreated)
	return nil
}
