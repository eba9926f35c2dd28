package errs

// Failure kinds. Every engine/gateway error resolves to one of these;
// the HTTP layer maps them to statuses and the ws layer puts them in
// denial frames.
const (
	ServerInternalError = 500

	InvalidArgumentError = 1001
	NotFoundError        = 1002
	ForbiddenError       = 1003
	ConflictError        = 1004
	UnauthenticatedError = 1005
)

var (
	ErrInternal        = NewCodeError(ServerInternalError, "server internal error")
	ErrInvalidArgument = NewCodeError(InvalidArgumentError, "invalid argument")
	ErrNotFound        = NewCodeError(NotFoundError, "record not found")
	ErrForbidden       = NewCodeError(ForbiddenError, "forbidden")
	ErrConflict        = NewCodeError(ConflictError, "conflict")
	ErrUnauthenticated = NewCodeError(UnauthenticatedError, "unauthenticated")
)

// HTTPStatus maps a failure kind to the status the API surface returns.
func HTTPStatus(code int) int {
	switch code {
	case InvalidArgumentError:
		return 400
	case UnauthenticatedError:
		return 401
	case ForbiddenError:
		return 403
	case NotFoundError:
		return 404
	case ConflictError:
		return 409
	default:
		return 500
	}
}
