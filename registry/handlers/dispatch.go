package handlers

import (
	"net/http"
)

// operationFunc is an operation handler bound to one resource kind and
// method; it writes the response itself on success and returns a non-nil
// error (ideally an *entity.Error or errcode.Error) otherwise.
type operationFunc func(app *App, ctx *Context, w http.ResponseWriter, r *http.Request) error

// methodTable implements the method allowlist from spec §4.4: which
// operationFunc, if any, handles a given method for a given ResourceKind.
var methodTable = map[ResourceKind]map[string]operationFunc{
	ResourceUser: {
		http.MethodHead: (*App).headUser,
		http.MethodGet:  (*App).getUser,
		http.MethodPut:  (*App).putUser,
	},
	ResourceRepository: {
		http.MethodHead: (*App).headRepository,
		http.MethodGet:  (*App).getRepository,
		http.MethodPut:  (*App).putRepository,
	},
	ResourceTagIndex: {
		http.MethodGet: (*App).queryTagIndex,
	},
	ResourceTag: {
		http.MethodHead: (*App).headTag,
		http.MethodGet:  (*App).getTag,
		http.MethodPut:  (*App).putTag,
	},
	ResourceTree: {
		http.MethodHead: (*App).headTree,
		http.MethodGet:  (*App).getTree,
		http.MethodPut:  (*App).putTree,
	},
}

// operationHandler looks up the handler for kind+method, reporting
// allowed=false if the method is outside the allowlist for that kind.
func (app *App) operationHandler(kind ResourceKind, method string) (operationFunc, bool) {
	fn, ok := methodTable[kind][method]
	return fn, ok
}

// allowedMethods renders the Allow header value for a 405 response.
func allowedMethods(kind ResourceKind) string {
	switch kind {
	case ResourceTagIndex:
		return "GET"
	default:
		return "HEAD, GET, PUT"
	}
}
