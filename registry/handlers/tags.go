package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/distribution/drawbridge/dbtype"
	"github.com/distribution/drawbridge/digestengine"
	"github.com/distribution/drawbridge/jws"
)

func (app *App) headTag(ctx *Context, w http.ResponseWriter, r *http.Request) error {
	meta, err := app.Index.TagMeta(ctx.Route.Tag)
	if err != nil {
		return err
	}
	if err := meta.SetHeaders(w.Header()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func (app *App) getTag(ctx *Context, w http.ResponseWriter, r *http.Request) error {
	meta, body, err := app.Index.GetTag(ctx.Route.Tag)
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

// putTag implements PUT for a tag: a genuinely content-addressed entity.
// The client's Meta headers are what gets verified against the bytes it
// sends, per spec §4.5 step 3.
func (app *App) putTag(ctx *Context, w http.ResponseWriter, r *http.Request) error {
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

	if err := app.Index.CreateTag(ctx.Route.Tag, meta, body, jws.Unwrapper{}); err != nil {
		return err
	}
	w.WriteHeader(http.StatusCreated)
	return nil
}

// queryTagIndex implements GET on the tag index (spec §4.4's method
// allowlist table lists this operation as "QUERY" to distinguish it from a
// GET on a single tag, but it is dispatched on the ordinary GET method):
// it lists every tag under the repository and returns the list as the
// response's own server-authored content.
func (app *App) queryTagIndex(ctx *Context, w http.ResponseWriter, r *http.Request) error {
	names, err := app.Index.ListTags(ctx.Route.Repository)
	if err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	body, err := json.Marshal(names)
	if err != nil {
		return err
	}

	wr, err := digestengine.NewWriter(io.Discard, []digestengine.Algorithm{digestengine.SHA256})
	if err != nil {
		return err
	}
	if _, err := wr.Write(body); err != nil {
		return err
	}
	meta := dbtype.Meta{Digest: wr.Digests(), Size: int64(len(body)), MediaType: "application/json"}
	if err := meta.SetHeaders(w.Header()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	_, writeErr := w.Write(body)
	return writeErr
}
