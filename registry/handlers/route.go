// Package handlers implements the Resource Dispatcher (C4) and Operation
// Handlers (C5): it parses the versioned URL grammar into a typed Route,
// runs the access check, and dispatches to the per-entity-kind operation
// handler. It is grounded on the teacher's registry/app.go and
// registry/context.go: the App/Context split, the singleStatusResponseWriter
// trick and the dispatcher-wraps-dispatch-function shape survive, but the
// gorilla/mux named-route table they used does not fit the spec's
// variable-length, sentinel-delimited grammar, so routing here is a
// hand-written left-to-right parser over the request path instead.
package handlers

import (
	"fmt"
	"strings"

	"github.com/distribution/drawbridge/dbtype"
)

// ResourceKind identifies which of the five addressable resource shapes a
// request path resolved to.
type ResourceKind int

const (
	ResourceUser ResourceKind = iota
	ResourceRepository
	ResourceTagIndex
	ResourceTag
	ResourceTree
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceUser:
		return "user"
	case ResourceRepository:
		return "repository"
	case ResourceTagIndex:
		return "tag index"
	case ResourceTag:
		return "tag"
	case ResourceTree:
		return "tree node"
	default:
		return "unknown"
	}
}

// Route is the typed result of parsing a request path against the grammar
// in spec §4.4. Only the fields relevant to Kind are populated; deeper
// contexts embed the shallower ones (a Tree route's Tag.Repository.Owner is
// always set, for instance), so a handler for a shallow kind can always
// read its context straight off the embedded value.
type Route struct {
	Kind       ResourceKind
	Version    dbtype.SemVer
	User       dbtype.UserContext
	Repository dbtype.RepositoryContext
	Tag        dbtype.TagContext
	Tree       dbtype.TreeContext
}

// routeError is a parse failure naming the field that failed, per §4.4's
// "short message naming the field that failed" requirement. notFound
// distinguishes a shape that doesn't match the grammar at all (404) from a
// shape that matches but has an invalid component (400).
type routeError struct {
	field    string
	detail   string
	notFound bool
}

func (e *routeError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.detail)
}

func badField(field string, err error) *routeError {
	return &routeError{field: field, detail: err.Error()}
}

func noMatch() *routeError {
	return &routeError{field: "path", detail: "no resource at this path", notFound: true}
}

// apiPrefix is the fixed, non-versioned lead-in every resource path starts
// with (spec §4.4, §6).
const apiPrefix = "/api/v"

// parseRoute parses an HTTP request path against the URL grammar:
//
//	/api/v<ver>/<user>
//	/api/v<ver>/<user>/<repo...>
//	/api/v<ver>/<user>/<repo...>/_tag
//	/api/v<ver>/<user>/<repo...>/_tag/<semver>
//	/api/v<ver>/<user>/<repo...>/_tag/<semver>/tree<path>
//
// Parsing is left-to-right: the version comes first, then the user, then
// every segment up to the "_tag" sentinel belongs to the repository name,
// then an optional tag name, then an optional "tree" sub-path. The
// sentinel itself can never collide with a real repository segment: repo
// segments match `[0-9a-zA-Z-]+`, which excludes the leading underscore
// "_tag" requires.
func parseRoute(path string) (Route, error) {
	if !strings.HasPrefix(path, apiPrefix) {
		return Route{}, noMatch()
	}
	rest := strings.TrimPrefix(path, apiPrefix)
	rest = strings.TrimPrefix(rest, "/")

	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return Route{}, noMatch()
	}

	version, err := dbtype.ParseSemVer(segments[0])
	if err != nil {
		return Route{}, badField("version", err)
	}
	segments = segments[1:]

	if len(segments) == 0 {
		return Route{}, noMatch()
	}
	userName, err := dbtype.ParseUserName(segments[0])
	if err != nil {
		return Route{}, badField("user", err)
	}
	userCtx := dbtype.UserContext{Name: userName}

	repoSegments := segments[1:]
	if len(repoSegments) == 0 {
		return Route{Kind: ResourceUser, Version: version, User: userCtx}, nil
	}

	sentinelIdx := -1
	for i, seg := range repoSegments {
		if seg == "_tag" {
			sentinelIdx = i
			break
		}
	}

	var repoNameSegments []string
	var afterSentinel []string
	if sentinelIdx == -1 {
		repoNameSegments = repoSegments
	} else {
		repoNameSegments = repoSegments[:sentinelIdx]
		afterSentinel = repoSegments[sentinelIdx+1:]
	}

	if len(repoNameSegments) == 0 {
		return Route{}, badField("repository", fmt.Errorf("dbtype: repository name is missing"))
	}
	repoName, err := dbtype.ParseRepositoryName(strings.Join(append([]string{string(userName)}, repoNameSegments...), "/"))
	if err != nil {
		return Route{}, badField("repository", err)
	}
	repoCtx := dbtype.RepositoryContext{Owner: userCtx, Name: repoName}

	if sentinelIdx == -1 {
		return Route{Kind: ResourceRepository, Version: version, User: userCtx, Repository: repoCtx}, nil
	}

	if len(afterSentinel) == 0 {
		return Route{Kind: ResourceTagIndex, Version: version, User: userCtx, Repository: repoCtx}, nil
	}

	tagName, err := dbtype.ParseTagName(afterSentinel[0])
	if err != nil {
		return Route{}, badField("tag", err)
	}
	tagCtx := dbtype.TagContext{Repository: repoCtx, Name: tagName}
	afterTag := afterSentinel[1:]

	if len(afterTag) == 0 {
		return Route{Kind: ResourceTag, Version: version, User: userCtx, Repository: repoCtx, Tag: tagCtx}, nil
	}

	if afterTag[0] != "tree" {
		return Route{}, noMatch()
	}
	treePath, err := dbtype.ParseTreePath(strings.Join(afterTag[1:], "/"))
	if err != nil {
		return Route{}, badField("tree path", err)
	}
	treeCtx := dbtype.TreeContext{Tag: tagCtx, Path: treePath}

	return Route{Kind: ResourceTree, Version: version, User: userCtx, Repository: repoCtx, Tag: tagCtx, Tree: treeCtx}, nil
}
