package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/distribution/drawbridge/dbtype"
)

func (app *App) headRepository(ctx *Context, w http.ResponseWriter, r *http.Request) error {
	meta, err := app.Index.RepositoryMeta(ctx.Route.Repository)
	if err != nil {
		return err
	}
	if err := meta.SetHeaders(w.Header()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func (app *App) getRepository(ctx *Context, w http.ResponseWriter, r *http.Request) error {
	meta, config, err := app.Index.GetRepository(ctx.Route.Repository)
	if err != nil {
		return err
	}
	body, err := json.Marshal(config)
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

// putRepository implements PUT, as putUser does: the repository's stored
// content is the server's canonical encoding of the {public: bool} config
// it decodes from the client's body (entity.CreateRepository computes its
// own meta).
func (app *App) putRepository(ctx *Context, w http.ResponseWriter, r *http.Request) error {
	if _, perr := dbtype.FromHeaders(r.Header); perr != nil {
		return badRequestf("%v", perr)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return internalf(err, "read request body")
	}
	var config dbtype.RepositoryConfig
	if err := json.Unmarshal(body, &config); err != nil {
		return badRequestf("invalid repository config: %v", err)
	}

	if err := app.Index.CreateRepository(ctx.Route.Repository, config); err != nil {
		return err
	}
	w.WriteHeader(http.StatusCreated)
	return nil
}
