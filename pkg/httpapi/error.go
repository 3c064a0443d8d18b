// Package httpapi holds the JSON response helpers shared by every API
// controller.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/proseed/proseed/pkg/composables"
)

// ErrorEnvelope is the body of every API error response.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

const maxBodyBytes = 4 << 20

var ErrEmptyBody = errors.New("request body is empty")

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteRequestError writes an error carrying the request id of r in meta.
func WriteRequestError(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) error {
	if meta == nil {
		meta = map[string]string{}
	}
	if id := composables.UseRequestID(r.Context()); id != "" {
		meta["request_id"] = id
	}
	return WriteError(w, status, code, message, meta)
}

// DecodeJSON reads a bounded JSON body into v.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	return nil
}

// ReadBody reads a bounded raw body.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, ErrEmptyBody
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}
