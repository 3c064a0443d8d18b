package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/proseed/proseed/internal/store"
	"github.com/proseed/proseed/modules/workflow"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/application"
	"github.com/proseed/proseed/pkg/configuration"
	"github.com/proseed/proseed/pkg/eventbus"
)

type session struct {
	conf    *configuration.Configuration
	backend *store.Backend
	app     application.Application
	ctx     context.Context
}

// openSession loads the configuration from the environment and wires the
// workflow module over the configured store. The memory store is empty on
// every run, so commands reading data need badger or postgres.
func openSession(ctx context.Context) (*session, error) {
	conf, err := configuration.Load()
	if err != nil {
		return nil, withCode(exitInvalid, errors.Wrap(err, "load configuration"))
	}
	logger := conf.Logger()
	backend, err := store.Open(ctx, conf, logger)
	if err != nil {
		conf.Unload()
		return nil, withCode(exitInternal, err)
	}
	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	module := workflow.NewModule(&workflow.ModuleOptions{
		Repositories: backend.Repositories,
		Tasks: services.TaskOptions{
			CascadeProcessOnReparent: conf.Workflow.CascadeProcessOnReparent,
			MaxPayloadNodes:          conf.Workflow.MaxPayloadNodes,
			SearchLimit:              conf.Workflow.SearchLimit,
		},
		Backend: backend.Name,
	})
	if err := module.Register(app); err != nil {
		_ = backend.Close()
		conf.Unload()
		return nil, withCode(exitInternal, err)
	}
	return &session{conf: conf, backend: backend, app: app, ctx: backend.Context(ctx)}, nil
}

func (s *session) Close() {
	if err := s.backend.Close(); err != nil {
		s.conf.Logger().WithError(err).Warn("close store")
	}
	s.conf.Unload()
}
