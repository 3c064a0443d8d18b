package controllers

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-faster/errors"
	"github.com/gorilla/mux"

	"github.com/proseed/proseed/pkg/application"
)

//go:embed openapi.yaml
var openAPISource []byte

// LoadOpenAPI parses and validates the embedded API description. prefix,
// when set, becomes the document's server URL.
func LoadOpenAPI(ctx context.Context, prefix string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISource)
	if err != nil {
		return nil, errors.Wrap(err, "load openapi document")
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, errors.Wrap(err, "invalid openapi document")
	}
	if prefix != "" {
		doc.Servers = openapi3.Servers{{URL: prefix}}
	}
	return doc, nil
}

type OpenAPIController struct {
	app      application.Application
	document []byte
	basePath string
}

func NewOpenAPIController(app application.Application, prefix string) (application.Controller, error) {
	doc, err := LoadOpenAPI(context.Background(), prefix)
	if err != nil {
		return nil, err
	}
	document, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "marshal openapi document")
	}
	return &OpenAPIController{
		app:      app,
		document: document,
		basePath: prefix + "/openapi.json",
	}, nil
}

func (c *OpenAPIController) Key() string {
	return c.basePath
}

func (c *OpenAPIController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath, c.Get).Methods(http.MethodGet)
}

func (c *OpenAPIController) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(c.document); err != nil {
		c.app.Logger().WithError(err).Warn("write openapi document")
	}
}
