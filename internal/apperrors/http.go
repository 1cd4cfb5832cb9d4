package apperrors

import "net/http"

// HTTPStatus maps a failure kind to its response status. Anything outside
// the taxonomy is an internal error.
func HTTPStatus(err error) int {
	switch kindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindPrecondition:
		return http.StatusUnprocessableEntity
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
