package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/qrbind/internal/common"
	"github.com/dmitrijs2005/qrbind/internal/logging"
	"github.com/dmitrijs2005/qrbind/internal/server/auth"
)

// logRequests attaches the request id to the context so every log line of
// the request carries it, then logs the finished request.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.IntoContext(r.Context(), "request_id", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error(ctx, "request", args...)
			return
		}
		h.logger.Info(ctx, "request", args...)
	})
}

// requireAdmin accepts only requests carrying a valid bearer token.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeader)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			writeError(w, errUnauthorized)
			return
		}

		subject, err := auth.GetSubjectFromToken(strings.TrimPrefix(header, common.BearerPrefix), h.secretKey)
		if err != nil {
			h.logger.Warn(r.Context(), "admin token rejected", "error", err)
			writeError(w, errUnauthorized)
			return
		}

		ctx := logging.IntoContext(r.Context(), "subject", subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors lets scanner web apps on other origins call the resolve routes.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
