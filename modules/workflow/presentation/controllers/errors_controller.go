package controllers

import (
	"net/http"

	"github.com/proseed/proseed/pkg/httpapi"
)

// NotFound answers unmatched routes in the API error shape.
func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteRequestError(w, r, http.StatusNotFound, "NOT_FOUND", "not found", map[string]string{
			"path": r.URL.Path,
		})
	}
}

func MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteRequestError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", map[string]string{
			"path":   r.URL.Path,
			"method": r.Method,
		})
	}
}
