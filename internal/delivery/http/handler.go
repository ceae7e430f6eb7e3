package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/foodlog/backend/internal/domain"
	"github.com/foodlog/backend/internal/usecase"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerUserID  = "X-User-ID"
	headerRegion  = "X-Region"
	defaultUserID = "default"
	maxImageBytes = 10 << 20
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	diary         *usecase.Diary
	defaultRegion string
	logger        *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(diary *usecase.Diary, defaultRegion string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{diary: diary, defaultRegion: defaultRegion, logger: logger}
}

type resolveRequest struct {
	Query string      `json:"query" binding:"required"`
	Mode  domain.Mode `json:"mode"`
}

type previewRequest struct {
	Food     domain.FoodReference `json:"food"`
	Quantity float64              `json:"quantity"`
	Unit     string               `json:"unit"`
}

type entryRequest struct {
	Food *domain.FoodReference `json:"food"`
	usecase.LogRequest
}

type editRequest struct {
	Food *domain.FoodReference `json:"food"`
	usecase.EditRequest
}

type goalsResponse struct {
	Computed  *domain.Goal        `json:"computed,omitempty"`
	Override  domain.GoalOverride `json:"override"`
	Effective domain.Goal         `json:"effective"`
}

func (h *Handler) session(c *gin.Context) usecase.Session {
	user := strings.TrimSpace(c.GetHeader(headerUserID))
	if user == "" {
		user = defaultUserID
	}
	region := strings.ToLower(strings.TrimSpace(c.GetHeader(headerRegion)))
	if region == "" {
		region = h.defaultRegion
	}
	return usecase.Session{UserID: user, Region: region}
}

// writeError maps domain errors onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "internal server error"

	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrIncompatibleUnits),
		errors.Is(err, domain.ErrInvalidProfile):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrEntryNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "no results"
	case errors.Is(err, domain.ErrEstimatorDisabled):
		status, msg = http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, err.Error()
	case errors.Is(err, domain.ErrUpstreamTimeout):
		status, msg = http.StatusGatewayTimeout, "upstream lookup timed out"
	case errors.Is(err, domain.ErrMalformedEstimate), errors.Is(err, domain.ErrUpstreamFailure):
		status, msg = http.StatusBadGateway, "upstream lookup failed"
	}

	if status >= 500 {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	var tiers []string
	if h.diary != nil {
		tiers = h.diary.Tiers()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "foodlog-backend",
		"version": "1.0.0",
		"tiers":   tiers,
	})
}

// ResolveFood runs the lookup chain for a barcode or free-text query
func (h *Handler) ResolveFood(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if req.Mode == "" {
		req.Mode = domain.ModeText
	}

	results, err := h.diary.Resolve(c.Request.Context(), h.session(c), req.Query, req.Mode)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// PreviewFood scales a reference to a quantity without persisting anything
func (h *Handler) PreviewFood(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	scaled, err := h.diary.Preview(req.Food, req.Quantity, domain.ParseUnit(req.Unit))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, scaled)
}

// EstimateImage identifies food in an uploaded photo
func (h *Handler) EstimateImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image"})
		return
	}
	if file.Size > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		h.writeError(c, err)
		return
	}

	ref, err := h.diary.EstimateImage(c.Request.Context(), h.session(c), data, file.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

// CreateEntry logs a food at a quantity
func (h *Handler) CreateEntry(c *gin.Context) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if req.Food == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "food is required"})
		return
	}
	req.Unit = domain.ParseUnit(string(req.Unit))

	entry, err := h.diary.LogFood(c.Request.Context(), h.session(c), *req.Food, req.LogRequest)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// UpdateEntry replaces an entry. Without a food the stored base is rescaled;
// omitted fields keep their stored values.
func (h *Handler) UpdateEntry(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	req.Unit = domain.ParseUnit(string(req.Unit))

	entry, err := h.diary.EditEntry(c.Request.Context(), h.session(c), c.Param("id"), req.Food, req.EditRequest)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// GetEntryBase returns the reference an entry was scaled from
func (h *Handler) GetEntryBase(c *gin.Context) {
	ref, err := h.diary.EntryBase(c.Request.Context(), h.session(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

// DeleteEntry removes an entry
func (h *Handler) DeleteEntry(c *gin.Context) {
	if err := h.diary.DeleteEntry(c.Request.Context(), h.session(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetDay returns a day's entries and totals. "today" means the current date.
func (h *Handler) GetDay(c *gin.Context) {
	date := c.Param("date")
	if date == "today" {
		date = ""
	}
	view, err := h.diary.Day(c.Request.Context(), h.session(c), date)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetHistory returns per-day totals for an inclusive date range
func (h *Handler) GetHistory(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return
	}
	days, err := h.diary.History(c.Request.Context(), h.session(c), from, to)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// GetProfile returns the stored body profile
func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.diary.Profile(c.Request.Context(), h.session(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProfile stores a profile and recomputes the goal
func (h *Handler) UpdateProfile(c *gin.Context) {
	var p domain.BodyProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	settings, err := h.diary.UpdateProfile(c.Request.Context(), h.session(c), p)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toGoalsResponse(settings))
}

// GetGoals returns computed, overridden and effective targets
func (h *Handler) GetGoals(c *gin.Context) {
	settings, err := h.diary.Goals(c.Request.Context(), h.session(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toGoalsResponse(settings))
}

// SetGoalOverride replaces the manual goal override
func (h *Handler) SetGoalOverride(c *gin.Context) {
	var o domain.GoalOverride
	if err := c.ShouldBindJSON(&o); err != nil {
		h.badRequest(c, err)
		return
	}
	settings, err := h.diary.SetGoalOverride(c.Request.Context(), h.session(c), o)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toGoalsResponse(settings))
}

func toGoalsResponse(s *domain.GoalSettings) goalsResponse {
	return goalsResponse{Computed: s.Computed, Override: s.Override, Effective: s.Effective()}
}

// ListFavorites returns the saved foods
func (h *Handler) ListFavorites(c *gin.Context) {
	favs, err := h.diary.ListFavorites(c.Request.Context(), h.session(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if favs == nil {
		favs = []domain.Favorite{}
	}
	c.JSON(http.StatusOK, gin.H{"favorites": favs})
}

// AddFavorite saves a food reference
func (h *Handler) AddFavorite(c *gin.Context) {
	var ref domain.FoodReference
	if err := c.ShouldBindJSON(&ref); err != nil {
		h.badRequest(c, err)
		return
	}
	fav, err := h.diary.AddFavorite(c.Request.Context(), h.session(c), ref)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fav)
}

// RemoveFavorite deletes a saved food
func (h *Handler) RemoveFavorite(c *gin.Context) {
	if err := h.diary.RemoveFavorite(c.Request.Context(), h.session(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
