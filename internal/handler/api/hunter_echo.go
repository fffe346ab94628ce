package api

import (
	"net/http"
	"time"

	"FlowHunter/internal/domain/models"
	domsvc "FlowHunter/internal/domain/service"
	"FlowHunter/internal/service/exchange"
	"FlowHunter/internal/service/halt"
	"FlowHunter/internal/service/ratelimit"
	xhttp "FlowHunter/pkg/http"
	xlogger "FlowHunter/pkg/logger"
	"FlowHunter/pkg/util"

	"github.com/labstack/echo/v4"
)

// StreamHealth is one venue connection as seen by the API.
type StreamHealth interface {
	Health() exchange.Health
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Halt      halt.Status       `json:"halt"`
	Streams   map[string]string `json:"streams"`
	Watchlist int               `json:"watchlist"`
}

// HunterEchoHandler serves the read-only state of the hunter and the
// operator halt switch.
type HunterEchoHandler struct {
	logger    *xlogger.Logger
	streams   []StreamHealth
	flows     domsvc.FlowSource
	holograms domsvc.HologramSource
	halt      *halt.Switch
	rl        *ratelimit.Limiter
}

func NewHunterEchoHandler(logger *xlogger.Logger, streams []StreamHealth, flows domsvc.FlowSource, holograms domsvc.HologramSource, sw *halt.Switch, rl *ratelimit.Limiter) *HunterEchoHandler {
	return &HunterEchoHandler{logger: logger, streams: streams, flows: flows, holograms: holograms, halt: sw, rl: rl}
}

func (h *HunterEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", h.limit)
	g.GET("/health", h.Health)
	g.GET("/streams", h.Streams)
	g.GET("/cvd", h.CVD)
	g.GET("/watchlist", h.Watchlist)
	g.GET("/hologram/:symbol", h.Hologram)
	g.POST("/halt", h.SetHalt)
}

// limit applies the per-client request budget.
func (h *HunterEchoHandler) limit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.rl != nil && !h.rl.Allow(c.RealIP()) {
			h.logger.Warn("api rate limited", xlogger.String("remote", c.RealIP()), xlogger.String("path", c.Path()))
			return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
		}
		return next(c)
	}
}

func (h *HunterEchoHandler) Health(c echo.Context) error {
	res := HealthResponse{
		Status:    "ok",
		Halt:      h.halt.Status(),
		Streams:   make(map[string]string, len(h.streams)),
		Watchlist: len(h.holograms.Watchlist()),
	}
	connected := 0
	for _, s := range h.streams {
		hs := s.Health()
		res.Streams[string(hs.Venue)+"/"+string(hs.Product)] = hs.State.String()
		if hs.State == exchange.StateConnected {
			connected++
		}
	}
	if connected < len(h.streams) {
		res.Status = "degraded"
	}
	if res.Halt.Halted {
		res.Status = "halted"
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *HunterEchoHandler) Streams(c echo.Context) error {
	rows := make([]exchange.Health, 0, len(h.streams))
	for _, s := range h.streams {
		rows = append(rows, s.Health())
	}
	return xhttp.ListResponse(c, rows, len(rows))
}

func (h *HunterEchoHandler) CVD(c echo.Context) error {
	req := &models.CVDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	window, err := time.ParseDuration(req.Window)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("window", err.Error()))
	}
	symbol := util.CanonicalSymbol(req.Symbol)
	snap, ok := h.flows.Snapshot(symbol, window)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no flow for %s over %s", symbol, req.Window))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, snap)
}

func (h *HunterEchoHandler) Watchlist(c echo.Context) error {
	req := &models.WatchlistRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	list := h.holograms.Watchlist()
	total := len(list)
	if len(list) > req.Limit {
		list = list[:req.Limit]
	}
	return xhttp.ListResponse(c, list, total)
}

func (h *HunterEchoHandler) Hologram(c echo.Context) error {
	req := &models.HologramRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := util.CanonicalSymbol(req.Symbol)
	st, ok := h.holograms.State(symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no hologram for %s", symbol))
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *HunterEchoHandler) SetHalt(c echo.Context) error {
	req := &models.HaltRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.halt.Set(*req.Halted, req.Reason) {
		h.logger.Info("halt switched via api",
			xlogger.Bool("halted", *req.Halted),
			xlogger.String("reason", req.Reason),
			xlogger.String("remote", c.RealIP()))
	}
	return xhttp.SuccessResponse(c, h.halt.Status())
}
