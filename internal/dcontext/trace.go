package dcontext

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// DoneFunc closes out a trace started with WithTrace, logging format/a
// along with the elapsed duration.
type DoneFunc func(format string, a ...interface{})

// WithTrace allocates a traced section of code, returning a context
// carrying a trace id and the calling function, file and line, plus a
// DoneFunc that logs the elapsed time when called. If ctx already carries
// a trace id, it is propagated on the new context as the parent trace id.
func WithTrace(ctx context.Context) (context.Context, DoneFunc) {
	if ctx == nil {
		ctx = Background()
	}

	pc, file, line, _ := runtime.Caller(1)
	f := runtime.FuncForPC(pc)

	id := uuid.NewString()
	start := time.Now()

	if parentID, ok := ctx.Value("trace.id").(string); ok && parentID != "" {
		ctx = context.WithValue(ctx, "trace.parent.id", parentID)
	}

	ctx = context.WithValue(ctx, "trace.id", id)
	ctx = context.WithValue(ctx, "trace.start", start)
	ctx = context.WithValue(ctx, "trace.func", f.Name())
	ctx = context.WithValue(ctx, "trace.file", file)
	ctx = context.WithValue(ctx, "trace.line", line)

	logger := GetLoggerWithFields(ctx, map[interface{}]interface{}{
		"trace.id":   id,
		"trace.func": f.Name(),
		"trace.file": file,
		"trace.line": line,
	})
	logger.Debug("start trace")

	return ctx, func(format string, a ...interface{}) {
		logger.WithField("trace.duration", time.Since(start)).Debugf(format, a...)
	}
}
