package handlers

import (
	"net/http"
	"time"

	"github.com/distribution/drawbridge/auth"
	"github.com/distribution/drawbridge/dbtype"
	"github.com/distribution/drawbridge/entity"
	"github.com/distribution/drawbridge/errcode"
	"github.com/distribution/drawbridge/internal/dcontext"
	"github.com/distribution/drawbridge/internal/requestutil"
	"github.com/distribution/drawbridge/internal/uuid"
	"github.com/distribution/drawbridge/metrics"
	"github.com/distribution/drawbridge/tracing"
	"github.com/distribution/drawbridge/utils"
)

// App is the registry application object: the set of shared, immutable
// resources every request handler reads from. Grounded on the teacher's
// registry/app.go App struct, with the storage driver/services/layer
// handler fields replaced by a single *entity.Index and the auth access
// controller replaced by auth.SubjectVerifier.
type App struct {
	Index    *entity.Index
	Verifier auth.SubjectVerifier
	Version  dbtype.SemVer
}

// NewApp constructs an App ready to serve requests.
func NewApp(index *entity.Index, verifier auth.SubjectVerifier, version dbtype.SemVer) *App {
	return &App{Index: index, Verifier: verifier, Version: version}
}

// ServeHTTP implements http.Handler. It is the sole entry point: parse the
// route, check the version gate, run the access check, and dispatch to the
// operation handler for the resolved ResourceKind and method.
func (app *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	log := dcontext.GetLoggerWithFields(r.Context(), map[any]any{
		"http.request.id":         requestID,
		"http.request.remoteaddr": requestutil.RemoteAddr(r),
	})

	span, spanCtx := tracing.StartSpan(r.Context(), "drawbridge.request")
	defer tracing.StopSpan(span)
	r = r.WithContext(spanCtx)

	route, rerr := parseRoute(r.URL.Path)
	if rerr != nil {
		if rerr.notFound {
			http.NotFound(w, r)
		} else {
			_ = errcode.ServeJSON(w, errcode.ErrorCodeBadRequest.WithDetail(rerr.Error()))
		}
		return
	}

	if !app.Version.CompatibleWith(route.Version) {
		_ = errcode.ServeJSON(w, errcode.ErrorCodeNotImplemented.WithDetail(
			"server is at "+app.Version.String()+"; request version "+route.Version.String()+" is outside the compatibility window"))
		return
	}

	ctx := &Context{Route: route, RequestID: requestID, Logger: log}
	defer utils.PrometheusObserveDuration(start, metrics.RequestDurationSeconds, route.Kind.String(), r.Method)

	if err := app.checkAccess(r, route); err != nil {
		if errc, ok := err.(errcode.Error); ok && errc.Code == errcode.ErrorCodeUnauthorized {
			metrics.UnauthorizedAttempts.WithValues(route.Kind.String()).Inc(1)
		}
		_ = errcode.ServeJSON(w, err)
		return
	}

	ssrw := &singleStatusResponseWriter{ResponseWriter: w}
	handler, allowed := app.operationHandler(route.Kind, r.Method)
	if !allowed {
		ssrw.Header().Set("Allow", allowedMethods(route.Kind))
		_ = errcode.ServeJSON(ssrw, errcode.ErrorCodeMethodNotAllowed.WithDetail(
			r.Method+" is not allowed on a "+route.Kind.String()))
		return
	}

	if err := handler(app, ctx, ssrw, r); err != nil {
		if entErr, ok := asEntityError(err); ok {
			if entErr.Kind == entity.KindInternal {
				log.WithError(entErr).Error("internal error serving request")
			}
			err = errcode.FromEntityError(entErr)
		}
		_ = errcode.ServeJSON(ssrw, err)
	}

	entry := dcontext.GetLoggerWithFields(r.Context(), map[any]any{
		"http.request.id":        requestID,
		"http.response.status":   ssrw.status,
		"http.response.duration": time.Since(start),
	})
	switch {
	case ssrw.status >= 500:
		entry.Error("handled request")
	case ssrw.status >= 400:
		entry.Warn("handled request")
	default:
		entry.Info("handled request")
	}
}

// asEntityError unwraps err to an *entity.Error, if it is one.
func asEntityError(err error) (*entity.Error, bool) {
	ee, ok := err.(*entity.Error)
	return ee, ok
}

// singleStatusResponseWriter only allows the first status written to take
// effect, matching the teacher's registry/app.go helper of the same name:
// an operation handler may write a success header before an error is
// discovered deeper in the call, and only the first WriteHeader should
// stick.
type singleStatusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *singleStatusResponseWriter) WriteHeader(status int) {
	if w.status != 0 {
		return
	}
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
