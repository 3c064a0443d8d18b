package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/proseed/proseed/internal/server"
	"github.com/proseed/proseed/internal/store"
	"github.com/proseed/proseed/modules/workflow"
	"github.com/proseed/proseed/modules/workflow/services"
	"github.com/proseed/proseed/pkg/application"
	"github.com/proseed/proseed/pkg/configuration"
	"github.com/proseed/proseed/pkg/eventbus"
	"github.com/proseed/proseed/pkg/logging"
	"github.com/proseed/proseed/pkg/metrics"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up OpenTelemetry if enabled
	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.Endpoint)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to " + conf.OpenTelemetry.Endpoint)
	}

	backend, err := store.Open(ctx, conf, logger)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", conf.Store.Backend, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.WithError(err).Error("failed to close store")
		}
	}()

	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
		Huber: application.NewHub(&application.HuberOptions{
			Logger: logger,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		}),
	})
	module := workflow.NewModule(&workflow.ModuleOptions{
		Repositories: backend.Repositories,
		Tasks: services.TaskOptions{
			CascadeProcessOnReparent: conf.Workflow.CascadeProcessOnReparent,
			MaxPayloadNodes:          conf.Workflow.MaxPayloadNodes,
			SearchLimit:              conf.Workflow.SearchLimit,
		},
		APIPrefix: conf.APIPrefix,
		Backend:   backend.Name,
	})
	if err := module.Register(app); err != nil {
		log.Fatalf("failed to load module %s: %v", module.Name(), err)
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          backend.Pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Listening on: %s", conf.SocketAddress)
		return serverInstance.Start(conf.SocketAddress)
	})

	var metricsServer *http.Server
	if conf.Prometheus.Enabled {
		metricsServer = &http.Server{
			Addr:              conf.MetricsAddress(),
			Handler:           metrics.NewRouter(conf.Prometheus.Path),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Infof("Metrics on: %s%s", conf.MetricsAddress(), conf.Prometheus.Path)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("metrics listener shutdown")
			}
		}
		return serverInstance.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server stopped")
		conf.Unload()
		os.Exit(1)
	}
}
