package handlers

import (
	"fmt"

	"github.com/distribution/drawbridge/entity"
)

// badRequestf builds a dispatcher-level bad-request error in the same
// *entity.Error shape the entity package itself returns, so app.go's
// single error-translation path (asEntityError -> errcode.FromEntityError)
// handles both uniformly.
func badRequestf(format string, args ...interface{}) error {
	return &entity.Error{Kind: entity.KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

func internalf(err error, format string, args ...interface{}) error {
	return &entity.Error{Kind: entity.KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}
