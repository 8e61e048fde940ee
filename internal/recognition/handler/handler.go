package handler

import (
	"bytes"
	"image"
	"io"
	"net/http"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/go-chi/chi/v5"
	"github.com/plateflow/plateflow-backend/internal/recognition/domain"
	"github.com/plateflow/plateflow-backend/internal/recognition/pipeline"
	"github.com/plateflow/plateflow-backend/pkg/errors"
	"github.com/plateflow/plateflow-backend/pkg/httputil"
	"github.com/plateflow/plateflow-backend/pkg/logger"
)

const maxUploadSize = 10 << 20 // 10MB

// recognizeRequest holds the non-file form fields of a recognition request.
type recognizeRequest struct {
	Mode string `validate:"omitempty,oneof=single_shot realtime"`
}

// Handler handles HTTP requests for plate recognition.
// Single-shot and realtime requests run through separate pipelines
// that share the cache, limiter and suppressor.
type Handler struct {
	singleShot *pipeline.Pipeline
	realtime   *pipeline.Pipeline
	log        *logger.Logger
}

// NewHandler creates a recognition handler.
func NewHandler(singleShot, realtime *pipeline.Pipeline, log *logger.Logger) *Handler {
	return &Handler{
		singleShot: singleShot,
		realtime:   realtime,
		log:        log,
	}
}

// Routes registers the recognition endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/recognitions", h.Recognize)
	r.Get("/recognitions/stats", h.Stats)
}

// Recognize handles POST /api/v1/recognitions.
// Accepts multipart form with:
// - file: the captured frame (JPEG or PNG)
// - mode: single_shot (default) or realtime
func (h *Handler) Recognize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httputil.Error(w, errors.BadRequest("file too large or invalid multipart form"))
		return
	}

	req := recognizeRequest{Mode: r.FormValue("mode")}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing file in request"))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		httputil.Error(w, errors.Internal("failed to read uploaded file"))
		return
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		httputil.Error(w, errors.BadRequest("file is not a decodable JPEG or PNG image"))
		return
	}

	captured := domain.NewCapturedImage(img, raw, time.Now().UTC())

	p := h.singleShot
	if req.Mode == string(pipeline.ModeRealtime) {
		p = h.realtime
	}

	result, err := p.Recognize(r.Context(), captured)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// Stats handles GET /api/v1/recognitions/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	// Both pipelines share the same cache and limiter instances, so
	// reading through either reports service-wide numbers.
	cacheStats, limiterStats := h.singleShot.Stats()
	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"cache":      cacheStats,
		"rate_limit": limiterStats,
	})
}
