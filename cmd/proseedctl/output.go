package main

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return withCode(exitInternal, errors.Wrap(err, "json encode"))
	}
	return nil
}
