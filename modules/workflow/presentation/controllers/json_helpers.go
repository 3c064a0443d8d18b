package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"

	"github.com/proseed/proseed/modules/workflow/presentation/controllers/dtos"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/composables"
	"github.com/proseed/proseed/pkg/httpapi"
)

const idPattern = "{id:[0-9]+}"

type validatable interface {
	Ok() error
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		panic(err)
	}
}

// writeServiceError renders err in the API error shape. Internal errors are
// logged and their cause is not exposed.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	se := services.AsServiceError(err)
	message := se.Message
	if se.Status >= http.StatusInternalServerError {
		composables.UseLogger(r.Context()).WithError(err).Error("request failed")
		message = "internal error"
	} else if se.Cause != nil && se.Kind == services.KindInvalid {
		message = se.Error()
	}
	_ = httpapi.WriteRequestError(w, r, se.Status, se.Code, message, map[string]string{
		"kind": string(se.Kind),
	})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	meta := map[string]string{"kind": string(services.KindInvalid)}
	var verr *dtos.ValidationError
	if errors.As(err, &verr) {
		for field, msg := range verr.Fields {
			meta[field] = msg
		}
	}
	_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, services.CodeInvalidRequest, err.Error(), meta)
}

// decode reads the body into dto and validates it. On failure the 400 has
// already been written.
func decode(w http.ResponseWriter, r *http.Request, dto validatable) bool {
	if err := httpapi.DecodeJSON(r, dto); err != nil {
		writeBadRequest(w, r, errors.Wrap(err, "malformed body"))
		return false
	}
	if err := dto.Ok(); err != nil {
		writeBadRequest(w, r, err)
		return false
	}
	return true
}

// decodeIDs reads a bare JSON array of positive ids.
func decodeIDs(w http.ResponseWriter, r *http.Request) ([]int64, bool) {
	var ids []int64
	if err := httpapi.DecodeJSON(r, &ids); err != nil {
		writeBadRequest(w, r, errors.Wrap(err, "expected an array of ids"))
		return nil, false
	}
	for _, id := range ids {
		if id <= 0 {
			writeBadRequest(w, r, errors.Errorf("invalid id %d", id))
			return nil, false
		}
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, r, errors.Errorf("invalid %s", name))
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive id from the query string.
func queryID(w http.ResponseWriter, r *http.Request, name string) (*int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, r, errors.Errorf("invalid query parameter %s", name))
		return nil, false
	}
	return &id, true
}

func requireQueryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, ok := queryID(w, r, name)
	if !ok {
		return 0, false
	}
	if id == nil {
		writeBadRequest(w, r, errors.Errorf("query parameter %s is required", name))
		return 0, false
	}
	return *id, true
}

// subrouter mounts prefix on r. A subrouter without its own
// MethodNotAllowedHandler reports a method mismatch as not found.
func subrouter(r *mux.Router, prefix string) *mux.Router {
	router := r.PathPrefix(prefix).Subrouter()
	router.MethodNotAllowedHandler = r.MethodNotAllowedHandler
	return router
}
