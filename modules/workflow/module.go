// Package workflow wires the task hierarchy services, their HTTP surface
// and the event handlers into an application.
package workflow

import (
	"github.com/go-faster/errors"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/handlers"
	"github.com/proseed/proseed/modules/workflow/presentation/controllers"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/application"
)

type ModuleOptions struct {
	Repositories services.Repositories
	Tasks        services.TaskOptions
	// APIPrefix is prepended to every route, e.g. "/api".
	APIPrefix string
	// Backend names the store in health responses.
	Backend string
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{opts: opts}
}

type Module struct {
	opts *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	repos := m.opts.Repositories
	bus := app.EventPublisher()
	app.RegisterServices(
		services.NewTaskService(repos, bus, m.opts.Tasks),
		services.NewProcessService(repos, bus),
		services.NewEmployeeService(repos, bus),
		services.NewCatalogService(repos),
		services.NewCheckService(repos),
	)

	handlers.RegisterAuditHandler(app)
	handlers.RegisterBroadcastHandler(app)

	prefix := m.opts.APIPrefix
	openAPI, err := controllers.NewOpenAPIController(app, prefix)
	if err != nil {
		return errors.Wrap(err, "workflow: openapi")
	}
	app.RegisterControllers(
		controllers.NewTaskController(app, prefix),
		controllers.NewProcessController(app, prefix),
		controllers.NewEmployeeController(app, prefix),
		controllers.NewHealthController(app, prefix, m.opts.Backend),
		openAPI,
	)
	for _, kind := range catalog.Kinds {
		app.RegisterControllers(controllers.NewCatalogController(app, prefix, kind))
	}
	if app.Websocket() != nil {
		app.RegisterControllers(controllers.NewWebsocketController(app, prefix))
	}
	return nil
}

func (m *Module) Name() string {
	return "workflow"
}
