package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/qrbind/internal/common"
)

// errorBody is the JSON shape of every non-2xx answer.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type apiError struct {
	status  int
	code    string
	message string
}

var (
	errMalformed    = apiError{http.StatusBadRequest, "malformed_token", "malformed token"}
	errNotFound     = apiError{http.StatusNotFound, "token_not_found", "replica token not found"}
	errExhausted    = apiError{http.StatusNotFound, "category_exhausted", "no available original for this brand/type"}
	errGone         = apiError{http.StatusGone, "linked_original_missing", "original missing"}
	errUnavailable  = apiError{http.StatusInternalServerError, "store_unavailable", "temporarily unavailable, retry later"}
	errUnauthorized = apiError{http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token"}
	errBadCategory  = apiError{http.StatusBadRequest, "bad_category", "brand and type must be UUIDs"}
	errNoCategory   = apiError{http.StatusNotFound, "category_not_found", "no originals or replicas in this category"}
	errNotReady     = apiError{http.StatusServiceUnavailable, "store_unavailable", "database is not reachable"}
)

// classify maps service errors onto HTTP answers. Each error kind keeps its
// own code so clients can tell them apart.
func classify(err error) apiError {
	switch {
	case errors.Is(err, common.ErrMalformedToken):
		return errMalformed
	case errors.Is(err, common.ErrTokenNotFound):
		return errNotFound
	case errors.Is(err, common.ErrCategoryExhausted):
		return errExhausted
	case errors.Is(err, common.ErrLinkedOriginalMissing):
		return errGone
	default:
		return errUnavailable
	}
}

func writeError(w http.ResponseWriter, e apiError) {
	if e.code == errUnavailable.code {
		w.Header().Set("Retry-After", "1")
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, e.status, errorBody{Error: e.code, Message: e.message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
