package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	domsvc "DemandCast/internal/domain/service"
	"DemandCast/internal/usecase"
	pkgch "DemandCast/pkg/clickhouse"
	"DemandCast/pkg/config"
	xhttp "DemandCast/pkg/http"
	pkgkafka "DemandCast/pkg/kafka"
	applogger "DemandCast/pkg/logger"
	pkgqueue "DemandCast/pkg/queue"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server

	svc       *usecase.ForecastService
	model     domsvc.Predictor
	collector *usecase.SalesCollector // nil when ingest is disabled
	consumer  *pkgkafka.Consumer      // nil unless the kafka->clickhouse bridge runs
	kh        pkgkafka.MessageHandler
	jobQueue  *pkgqueue.RedisQueue // nil without redis
	chClient  *pkgch.Client

	SalesProc *usecase.SalesProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpHandler xhttp.Handler,
	svc *usecase.ForecastService,
	model domsvc.Predictor,
	collector *usecase.SalesCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	jobQueue *pkgqueue.RedisQueue,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		httpHandler: httpHandler,
		svc:         svc,
		model:       model,
		collector:   collector,
		consumer:    consumer,
		kh:          kh,
		jobQueue:    jobQueue,
		chClient:    chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsEndpoint(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
		xhttp.WithSlowRequestLogging(a.log, time.Second),
	)
	a.httpServer.Echo().GET("/health", a.healthHandler)

	// Live ingest is optional; the forecast API serves from the loaded snapshot
	// either way.
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.log.Error("sales collector error", applogger.Error(err))
			}
		}()
		a.log.Info("sales collector started", applogger.Strings("stores", a.cfg.Ingest.Stores))
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			a.log.Error("job queue start error", applogger.Error(err))
		} else {
			a.log.Info("forecast job queue started", applogger.Int("workers", a.cfg.Batch.Workers))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(shutdownCtx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.SalesProc != nil {
		a.SalesProc.Close()
	}

	a.log.Info("shutdown complete")
	return nil
}

func (a *App) healthHandler(c echo.Context) error {
	status := map[string]interface{}{
		"status":      "ok",
		"environment": a.cfg.Environment,
		"time":        time.Now().UTC(),
	}
	if a.model != nil {
		status["model"] = a.model.Name()
		status["model_loaded"] = true
	} else {
		status["model_loaded"] = false
		status["status"] = "degraded"
	}
	if a.svc != nil {
		status["series"] = len(a.svc.Keys())
	}
	if a.collector != nil {
		status["feed_connected"] = a.collector.IsConnected()
	}
	if a.chClient != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := a.chClient.DB().PingContext(ctx); err != nil {
			status["status"] = "degraded"
			status["clickhouse"] = err.Error()
		} else {
			status["clickhouse"] = "ok"
		}
	}
	code := http.StatusOK
	if status["status"] != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
