// Package server exposes plot passes over HTTP.
package server

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"survey-plan/internal/db"
	"survey-plan/internal/export"
	"survey-plan/internal/plan"
	"survey-plan/internal/render"
	"survey-plan/internal/survey"
)

// MaxUploadBytes bounds an uploaded station table.
const MaxUploadBytes = 2 << 20

// Handler serves plot passes. DB may be nil, in which case lot routes
// answer 503.
type Handler struct {
	runner   *plan.Runner
	db       *sql.DB
	defaults render.Options
	logger   *logrus.Logger
}

func NewHandler(runner *plan.Runner, database *sql.DB, defaults render.Options, logger *logrus.Logger) *Handler {
	return &Handler{runner: runner, db: database, defaults: defaults, logger: logger}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PlanResponse is the body of POST /api/v1/plans.
type PlanResponse struct {
	Status  string            `json:"status"`
	Metrics map[string]string `json:"metrics"`
	Result  *plan.Result      `json:"result"`
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/themes", h.Themes)
		v1.POST("/plans", h.CreatePlan)
		v1.POST("/plans/geojson", h.DownloadGeoJSON)
		v1.POST("/plans/svg", h.RenderSVG)
		v1.GET("/lots", h.ListLots)
		v1.GET("/lots/:lot/plan", h.LotPlan)
		v1.GET("/lots/:lot/geojson", h.LotGeoJSON)
	}
	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	}
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": h.db != nil})
}

// Themes handles GET /api/v1/themes
func (h *Handler) Themes(c *gin.Context) {
	out := make(map[render.Theme]render.Colors, 3)
	for _, t := range render.Themes() {
		out[t] = t.Colors()
	}
	c.JSON(http.StatusOK, gin.H{"themes": out, "default": h.defaults.Theme})
}

// CreatePlan handles POST /api/v1/plans
func (h *Handler) CreatePlan(c *gin.Context) {
	res, ok := h.runUpload(c)
	if !ok {
		return
	}
	h.respondPlan(c, res)
}

// DownloadGeoJSON handles POST /api/v1/plans/geojson
func (h *Handler) DownloadGeoJSON(c *gin.Context) {
	res, ok := h.runUpload(c)
	if !ok {
		return
	}
	h.respondGeoJSON(c, res)
}

// RenderSVG handles POST /api/v1/plans/svg
func (h *Handler) RenderSVG(c *gin.Context) {
	res, ok := h.runUpload(c)
	if !ok {
		return
	}
	var sb strings.Builder
	if err := render.WriteSVG(&sb, res.Plan, res.Options); err != nil {
		h.logger.WithError(err).Error("render svg")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Status: "error", Message: "failed to render plot"})
		return
	}
	c.Header("X-Plot-Status", res.Summary.Status)
	c.Data(http.StatusOK, "image/svg+xml", []byte(sb.String()))
}

// ListLots handles GET /api/v1/lots
func (h *Handler) ListLots(c *gin.Context) {
	if !h.requireDB(c) {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Status: "error", Message: "limit must be a positive integer"})
		return
	}
	lots, err := db.ListLots(c.Request.Context(), h.db, limit)
	if err != nil {
		h.logger.WithError(err).Error("list lots")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Status: "error", Message: "failed to list lots"})
		return
	}
	if lots == nil {
		lots = []db.Lot{}
	}
	c.JSON(http.StatusOK, gin.H{"lots": lots})
}

// LotPlan handles GET /api/v1/lots/:lot/plan
func (h *Handler) LotPlan(c *gin.Context) {
	res, ok := h.runLot(c)
	if !ok {
		return
	}
	h.respondPlan(c, res)
}

// LotGeoJSON handles GET /api/v1/lots/:lot/geojson
func (h *Handler) LotGeoJSON(c *gin.Context) {
	res, ok := h.runLot(c)
	if !ok {
		return
	}
	h.respondGeoJSON(c, res)
}

func (h *Handler) runLot(c *gin.Context) (*plan.Result, bool) {
	if !h.requireDB(c) {
		return nil, false
	}
	opts, err := h.options(c)
	if err != nil {
		h.fail(c, &plan.PassError{Kind: plan.KindInput, Err: err})
		return nil, false
	}
	lot := c.Param("lot")
	if lot == "latest" {
		lot, err = db.LatestLot(c.Request.Context(), h.db)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, ErrorResponse{Status: "error", Message: "no lots surveyed yet"})
			return nil, false
		}
		if err != nil {
			h.fail(c, &plan.PassError{Kind: plan.KindSource, Err: err})
			return nil, false
		}
	}
	return h.run(c, db.LotSource{DB: h.db, Lot: lot}, opts)
}

func (h *Handler) runUpload(c *gin.Context) (*plan.Result, bool) {
	opts, err := h.options(c)
	if err != nil {
		h.fail(c, &plan.PassError{Kind: plan.KindInput, Err: err})
		return nil, false
	}
	data, err := readUpload(c)
	if err != nil {
		h.fail(c, &plan.PassError{Kind: plan.KindInput, Err: err})
		return nil, false
	}
	return h.run(c, survey.CSVSource{Data: data}, opts)
}

func (h *Handler) run(c *gin.Context, src survey.Source, opts render.Options) (*plan.Result, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	res, err := h.runner.Run(ctx, src, opts)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return res, true
}

func (h *Handler) respondPlan(c *gin.Context, res *plan.Result) {
	c.JSON(http.StatusOK, PlanResponse{Status: "success", Metrics: res.Summary.Metrics(), Result: res})
}

func (h *Handler) respondGeoJSON(c *gin.Context, res *plan.Result) {
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	c.Header("X-Plot-Status", res.Summary.Status)
	c.Data(http.StatusOK, export.ContentType, res.GeoJSON)
}

func (h *Handler) requireDB(c *gin.Context) bool {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Status: "error", Message: "no station database configured"})
		return false
	}
	return true
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var pe *plan.PassError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case plan.KindInput:
			status = http.StatusBadRequest
		case plan.KindSource:
			status = http.StatusBadGateway
		}
	}
	if errors.Is(err, survey.ErrEmptyTable) && c.Param("lot") != "" {
		status = http.StatusNotFound
	}
	c.JSON(status, ErrorResponse{Status: "error", Message: err.Error()})
}

// readUpload accepts a multipart "file" field or a raw CSV body.
func readUpload(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, errors.New(`multipart upload needs a "file" field`)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, survey.ErrEmptyTable
	}
	return data, nil
}

// options starts from the configured defaults and applies query overrides:
// theme, grid, interval, station_size, edge_size, offset.
func (h *Handler) options(c *gin.Context) (render.Options, error) {
	o := h.defaults
	if v := c.Query("theme"); v != "" {
		t, ok := render.ParseTheme(v)
		if !ok {
			return o, errors.New("unknown theme " + strconv.Quote(v))
		}
		o.Theme = t
	}
	if v := c.Query("grid"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return o, errors.New("grid must be a boolean")
		}
		o.ShowGrid = b
	}
	floats := []struct {
		key string
		dst *float64
	}{
		{"interval", &o.GridInterval},
		{"station_size", &o.StationLabelSize},
		{"edge_size", &o.EdgeLabelSize},
		{"offset", &o.StationLabelOffset},
	}
	for _, f := range floats {
		v := c.Query(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return o, errors.New(f.key + " must be a number")
		}
		*f.dst = n
	}
	return o, nil
}
