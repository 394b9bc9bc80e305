package tracing

import (
	"context"
	"fmt"

	"github.com/distribution/drawbridge/internal/dcontext"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// loggerWriter is a custom writer that implements the io.Writer interface.
// It redirects log messages to the Logger interface; writerExporter writes
// finished spans through it.
type loggerWriter struct {
	logger dcontext.Logger // Use the Logger interface
}

// Write logs the data using the Debug level of the provided logger.
func (lw *loggerWriter) Write(p []byte) (n int, err error) {
	lw.logger.Debug(string(p))
	return len(p), nil
}

// Handle logs the error using the Error level of the provided logger.
func (lw *loggerWriter) Handle(err error) {
	lw.logger.Error(err)
}

// writerExporter is the default, no-op-from-the-outside-world span
// exporter: it writes each finished span's name and duration through a
// loggerWriter instead of shipping it anywhere.
type writerExporter struct {
	writer loggerWriter
}

func (w *writerExporter) logger() dcontext.Logger {
	if w.writer.logger == nil {
		return dcontext.GetLogger(dcontext.Background())
	}
	return w.writer.logger
}

// ExportSpans implements sdktrace.SpanExporter.
func (w *writerExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	lw := loggerWriter{logger: w.logger()}
	for _, span := range spans {
		fmt.Fprintf(&lw, "span %q finished in %s", span.Name(), span.EndTime().Sub(span.StartTime()))
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (w *writerExporter) Shutdown(context.Context) error {
	return nil
}
