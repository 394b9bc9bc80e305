package errcode

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/distribution/drawbridge/entity"
)

var (
	errorCodeToDescriptors = map[ErrorCode]ErrorDescriptor{}
	idToDescriptors        = map[string]ErrorDescriptor{}
	groupToDescriptors     = map[string][]ErrorDescriptor{}
)

// ErrorCodeUnknown is the fallback for any error without a more specific
// classification.
var ErrorCodeUnknown = register("errcode", ErrorDescriptor{
	Value:          "UNKNOWN",
	Message:        "unknown error",
	Description:    "Generic error returned when the error does not have an API classification.",
	HTTPStatusCode: http.StatusInternalServerError,
})

// ErrorCodeUnavailable is used by the health-check middleware, outside the
// entity error taxonomy proper.
var ErrorCodeUnavailable = register("errcode", ErrorDescriptor{
	Value:          "UNAVAILABLE",
	Message:        "service unavailable",
	Description:    "Returned when a health check is currently failing.",
	HTTPStatusCode: http.StatusServiceUnavailable,
})

// ErrorCodeNotImplemented is the dispatcher-level version-gate rejection
// (spec §4.4, §6): a request version outside the server's compatibility
// window.
var ErrorCodeNotImplemented = register("errcode", ErrorDescriptor{
	Value:          "NOT_IMPLEMENTED",
	Message:        "unsupported API version",
	Description:    "The requested API version is outside the server's compatibility window.",
	HTTPStatusCode: http.StatusNotImplemented,
})

const errGroup = "drawbridge.entity"

// The six codes below are the HTTP-facing rendering of entity.Kind
// (SPEC_FULL.md §7): every entity-layer error is translated to exactly one
// of these before being written to the response.
var (
	ErrorCodeNotFound = register(errGroup, ErrorDescriptor{
		Value:          "NOT_FOUND",
		Message:        "entity not found",
		Description:    "No entity exists at the requested path.",
		HTTPStatusCode: http.StatusNotFound,
	})

	ErrorCodeOccupied = register(errGroup, ErrorDescriptor{
		Value:          "OCCUPIED",
		Message:        "entity already exists",
		Description:    "An entity already exists at the requested path; entities are immutable once created.",
		HTTPStatusCode: http.StatusConflict,
	})

	ErrorCodeBadRequest = register(errGroup, ErrorDescriptor{
		Value:          "BAD_REQUEST",
		Message:        "malformed request",
		Description:    "The request body, identifier, digest or media type failed validation.",
		HTTPStatusCode: http.StatusBadRequest,
	})

	ErrorCodeUnauthorized = register(errGroup, ErrorDescriptor{
		Value:          "UNAUTHORIZED",
		Message:        "authentication required",
		Description:    "The request lacked, or presented invalid, credentials for a non-public resource.",
		HTTPStatusCode: http.StatusUnauthorized,
	})

	ErrorCodeMethodNotAllowed = register(errGroup, ErrorDescriptor{
		Value:          "METHOD_NOT_ALLOWED",
		Message:        "method not allowed",
		Description:    "The HTTP method is not defined for this resource kind.",
		HTTPStatusCode: http.StatusMethodNotAllowed,
	})

	ErrorCodeInternal = register(errGroup, ErrorDescriptor{
		Value:          "INTERNAL",
		Message:        "internal error",
		Description:    "An unexpected failure occurred while serving the request.",
		HTTPStatusCode: http.StatusInternalServerError,
	})
)

var (
	nextCode     = 1000
	registerLock sync.Mutex
)

// Register makes a new error condition known to the package, returning its
// assigned ErrorCode. It exists for callers outside this package that need
// to define additional, situational error conditions (e.g. dispatcher-level
// URL grammar failures) without changing this file.
func Register(group string, descriptor ErrorDescriptor) ErrorCode {
	return register(group, descriptor)
}

func register(group string, descriptor ErrorDescriptor) ErrorCode {
	registerLock.Lock()
	defer registerLock.Unlock()

	descriptor.Code = ErrorCode(nextCode)

	if _, ok := idToDescriptors[descriptor.Value]; ok {
		panic(fmt.Sprintf("errcode: value %q is already registered", descriptor.Value))
	}
	if _, ok := errorCodeToDescriptors[descriptor.Code]; ok {
		panic(fmt.Sprintf("errcode: code %v is already registered", descriptor.Code))
	}

	groupToDescriptors[group] = append(groupToDescriptors[group], descriptor)
	errorCodeToDescriptors[descriptor.Code] = descriptor
	idToDescriptors[descriptor.Value] = descriptor

	nextCode++
	return descriptor.Code
}

type byValue []ErrorDescriptor

func (a byValue) Len() int           { return len(a) }
func (a byValue) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byValue) Less(i, j int) bool { return a[i].Value < a[j].Value }

// GetGroupNames returns the registered group names.
func GetGroupNames() []string {
	keys := make([]string, 0, len(groupToDescriptors))
	for k := range groupToDescriptors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetErrorCodeGroup returns the descriptors registered under name.
func GetErrorCodeGroup(name string) []ErrorDescriptor {
	desc := groupToDescriptors[name]
	sort.Sort(byValue(desc))
	return desc
}

// GetErrorAllDescriptors returns every registered descriptor.
func GetErrorAllDescriptors() []ErrorDescriptor {
	var result []ErrorDescriptor
	for _, group := range GetGroupNames() {
		result = append(result, GetErrorCodeGroup(group)...)
	}
	sort.Sort(byValue(result))
	return result
}

// FromEntityKind maps an entity.Kind onto its registered ErrorCode, the
// single source of truth for the entity-layer-to-HTTP mapping.
func FromEntityKind(kind entity.Kind) ErrorCode {
	switch kind {
	case entity.KindNotFound:
		return ErrorCodeNotFound
	case entity.KindOccupied:
		return ErrorCodeOccupied
	case entity.KindBadRequest:
		return ErrorCodeBadRequest
	case entity.KindUnauthorized:
		return ErrorCodeUnauthorized
	case entity.KindMethodNotAllowed:
		return ErrorCodeMethodNotAllowed
	default:
		return ErrorCodeInternal
	}
}

// FromEntityError converts an *entity.Error into a response-ready Error.
// For every kind but Internal, the entity error's own message is safe to
// surface as client-facing detail. Internal errors never reach the
// client: the response carries only the fixed "storage backend failure"
// message (spec §7); callers are expected to log err.Error() themselves
// for the structured debug record.
func FromEntityError(err *entity.Error) Error {
	if err.Kind == entity.KindInternal {
		return ErrorCodeInternal.WithMessage("storage backend failure")
	}
	return FromEntityKind(err.Kind).WithDetail(err.Message)
}
