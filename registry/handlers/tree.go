package handlers

import (
	"io"
	"net/http"

	"github.com/distribution/drawbridge/dbtype"
)

func (app *App) headTree(ctx *Context, w http.ResponseWriter, r *http.Request) error {
	meta, err := app.Index.TreeMeta(ctx.Route.Tree)
	if err != nil {
		return err
	}
	if err := meta.SetHeaders(w.Header()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func (app *App) getTree(ctx *Context, w http.ResponseWriter, r *http.Request) error {
	meta, body, err := app.Index.GetTree(ctx.Route.Tree)
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

// putTree implements PUT for a tree node, file or directory. Media-type
// dispatch (directory manifest vs opaque file) and parent-manifest
// validation both live in entity.CreateTree; this handler only enforces
// the header contract and the declared content length before handing the
// bytes down.
func (app *App) putTree(ctx *Context, w http.ResponseWriter, r *http.Request) error {
	meta, perr := dbtype.FromHeaders(r.Header)
	if perr != nil {
		return badRequestf("%v", perr)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, meta.Size+1))
	if err != nil {
		return internalf(err, "read request body")
	}
	if int64(len(body)) != meta.Size {
		return badRequestf("content length mismatch: expected %d bytes, got %d", meta.Size, len(body))
	}

	if err := app.Index.CreateTree(ctx.Route.Tree, meta, body); err != nil {
		return err
	}
	w.WriteHeader(http.StatusCreated)
	return nil
}
