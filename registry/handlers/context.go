package handlers

import (
	"github.com/distribution/drawbridge/internal/dcontext"
)

// Context carries the parsed, typed view of one request from the
// dispatcher into its operation handler. Grounded on the teacher's
// registry/context.go Context type, trimmed to what a typed dispatch
// needs: the old Context's mux vars/urlBuilder/auth.UserInfo have no
// equivalent here since Route already carries typed identifiers and
// access.go resolves identity on demand rather than caching it on Context.
type Context struct {
	Route     Route
	RequestID string
	Logger    dcontext.Logger
}
