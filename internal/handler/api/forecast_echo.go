package api

import (
	"errors"
	"net/http"

	models "DemandCast/internal/domain/models"
	"DemandCast/internal/forecast"
	"DemandCast/internal/service/ratelimit"
	"DemandCast/internal/usecase"
	xhttp "DemandCast/pkg/http"
	xlogger "DemandCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

const serviceVersion = "1.0.0"

// ForecastEchoHandler exposes the forecasting usecases over HTTP.
type ForecastEchoHandler struct {
	logger  *xlogger.Logger
	svc     *usecase.ForecastService
	batch   *usecase.BatchRunner
	limiter *ratelimit.Limiter
	rateRPS float64
}

func NewForecastEchoHandler(logger *xlogger.Logger, svc *usecase.ForecastService, batch *usecase.BatchRunner, rateRPS int) *ForecastEchoHandler {
	h := &ForecastEchoHandler{logger: logger, svc: svc, batch: batch, rateRPS: float64(rateRPS)}
	if rateRPS > 0 {
		h.limiter = ratelimit.New()
	}
	return h
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)

	g := e.Group("/api")
	g.POST("/forecast", h.Forecast)
	g.POST("/forecast/batch", h.ForecastBatch)
	g.GET("/history", h.History)
	g.GET("/items", h.Items)
	g.GET("/stores", h.Stores)
}

// Root describes the service and its endpoints.
func (h *ForecastEchoHandler) Root(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"service": "demandcast",
		"version": serviceVersion,
		"endpoints": map[string]string{
			"forecast":       "POST /api/forecast",
			"forecast_batch": "POST /api/forecast/batch",
			"history":        "GET /api/history",
			"items":          "GET /api/items",
			"stores":         "GET /api/stores",
			"health":         "GET /health",
		},
	})
}

func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	if !h.allow(c) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}

	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	horizon := h.svc.DefaultHorizon()
	if req.Horizon != nil {
		horizon = *req.Horizon
	}

	res, err := h.svc.Forecast(c.Request().Context(), req.ItemID, req.StoreID, horizon)
	if err != nil {
		h.logger.Error("forecast usecase error",
			xlogger.String("item_id", req.ItemID),
			xlogger.String("store_id", req.StoreID),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapForecastError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) ForecastBatch(c echo.Context) error {
	if h.batch == nil {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_BATCH_DISABLED", "", "batch forecasting requires the job queue", http.StatusServiceUnavailable))
	}

	req := &models.BatchForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	horizon := h.svc.DefaultHorizon()
	if req.Horizon != nil {
		horizon = *req.Horizon
	}

	n, err := h.batch.Enqueue(c.Request().Context(), horizon, req.StoreID)
	if err != nil {
		h.logger.Error("batch enqueue error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("batch enqueue failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"enqueued": n,
		"horizon":  horizon,
	})
}

func (h *ForecastEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pts, err := h.svc.History(c.Request().Context(), req.ItemID, req.StoreID, req.Days)
	if err != nil {
		h.logger.Error("history usecase error",
			xlogger.String("item_id", req.ItemID),
			xlogger.String("store_id", req.StoreID),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapForecastError(err))
	}
	return xhttp.ListResponse(c, pts, int64(len(pts)))
}

func (h *ForecastEchoHandler) Items(c echo.Context) error {
	items := h.svc.Items()
	total := int64(len(items))
	if limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return xhttp.ListResponse(c, items, total)
}

func (h *ForecastEchoHandler) Stores(c echo.Context) error {
	stores := h.svc.Stores()
	total := int64(len(stores))
	if limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && limit < len(stores) {
		stores = stores[:limit]
	}
	return xhttp.ListResponse(c, stores, total)
}

func (h *ForecastEchoHandler) allow(c echo.Context) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(c.RealIP(), h.rateRPS, h.rateRPS)
}

// mapForecastError translates domain errors to transport errors.
func mapForecastError(err error) error {
	switch {
	case errors.Is(err, forecast.ErrUnknownSeries):
		return xhttp.NotFoundError("unknown item/store series").WithError(err)
	case errors.Is(err, forecast.ErrInsufficientHistory):
		return xhttp.BadRequestError("insufficient history for requested forecast").WithError(err)
	case errors.Is(err, forecast.ErrCalendarRange):
		return xhttp.BadRequestError("requested horizon exceeds the loaded calendar").WithError(err)
	case errors.Is(err, forecast.ErrModelUnavailable):
		return xhttp.NewAppError("ERR_MODEL_UNAVAILABLE", "", "prediction model unavailable", http.StatusServiceUnavailable).WithError(err)
	default:
		return xhttp.InternalError("forecast failed").WithError(err)
	}
}
