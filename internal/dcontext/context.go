package dcontext

import "context"

// Background returns a non-nil, empty root context, exactly like
// context.Background, named for parity with the rest of this package's
// With*/Get* accessor pairs.
func Background() context.Context {
	return context.Background()
}

type versionKey struct{}

func (versionKey) String() string { return "version" }

// WithVersion stores the running server's version string on ctx.
func WithVersion(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, versionKey{}, version)
}

// GetVersion returns the version set by WithVersion, or the empty string.
func GetVersion(ctx context.Context) string {
	return GetStringValue(ctx, versionKey{})
}
