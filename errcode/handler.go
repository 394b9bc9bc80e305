package errcode

import (
	"encoding/json"
	"net/http"
)

// ServeJSON writes err to w as the standard error envelope, setting the
// response status code from err itself or, for an Errors list, from its
// first element (500 if that carries no error code).
func ServeJSON(w http.ResponseWriter, err error) error {
	w.Header().Set("Content-Type", "application/json")
	var sc int

	switch errs := err.(type) {
	case Errors:
		if len(errs) > 0 {
			if coder, ok := errs[0].(ErrorCoder); ok {
				sc = coder.ErrorCode().Descriptor().HTTPStatusCode
			}
		}
	case ErrorCoder:
		sc = errs.ErrorCode().Descriptor().HTTPStatusCode
		err = Errors{err}
	default:
		err = Errors{err}
	}

	if sc == 0 {
		sc = http.StatusInternalServerError
	}

	w.WriteHeader(sc)
	return json.NewEncoder(w).Encode(err)
}
