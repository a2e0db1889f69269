package handler

import (
	"errors"
	"net/http"
	"strconv"

	"sweetswap/internal/models"
	"sweetswap/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProviderInfo reports the state of the text-generation chain
type ProviderInfo interface {
	GetProvidersInfo() []map[string]interface{}
}

// Handler handles HTTP requests
type Handler struct {
	resolver  *service.Resolver
	providers ProviderInfo
	logger    *zap.Logger
}

// NewHandler creates a new API handler. providers may be nil when no
// generation provider is configured.
func NewHandler(resolver *service.Resolver, providers ProviderInfo, logger *zap.Logger) *Handler {
	return &Handler{
		resolver:  resolver,
		providers: providers,
		logger:    logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/substitute", h.Substitute)
		api.GET("/substitute/:id", h.GetSubstitution)
		api.GET("/drinks/:name/substitutions", h.GetDrinkHistory)
		api.GET("/stats", h.GetStats)
		api.GET("/providers", h.GetProviders)
	}

	// Unversioned aliases used by the existing frontend
	r.POST("/substitute", h.Substitute)
	r.GET("/substitute/:id", h.GetSubstitution)

	r.GET("/health", h.HealthCheck)
}

// Substitute resolves a drink name to a substitute
func (h *Handler) Substitute(c *gin.Context) {
	var req models.SubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.resolver.Resolve(c.Request.Context(), req.DrinkName, req.WantsNutrition())
	if err != nil {
		if errors.Is(err, service.ErrInvalidDrinkName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to resolve substitution",
			zap.String("drink", req.DrinkName),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "substitution failed"})
		return
	}

	if res.CacheHit {
		c.Header("X-Cache", "hit")
	} else {
		c.Header("X-Cache", "miss")
	}
	c.JSON(http.StatusOK, res.View)
}

// GetSubstitution returns a stored substitution by ID
func (h *Handler) GetSubstitution(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid substitution ID"})
		return
	}

	view, err := h.resolver.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "substitution not found"})
			return
		}
		h.logger.Error("Failed to get substitution", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get substitution"})
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetDrinkHistory lists every substitution recorded for a drink
func (h *Handler) GetDrinkHistory(c *gin.Context) {
	name := c.Param("name")

	views, err := h.resolver.History(c.Request.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "drink not found"})
		case errors.Is(err, service.ErrInvalidDrinkName):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to get drink history", zap.String("drink", name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get substitutions"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"drink_name":    name,
		"substitutions": views,
		"total":         len(views),
	})
}

// GetStats returns catalog statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.resolver.GetStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetProviders describes the generation provider chain
func (h *Handler) GetProviders(c *gin.Context) {
	if h.providers == nil {
		c.JSON(http.StatusOK, gin.H{"providers": []interface{}{}, "fallback_only": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"providers":     h.providers.GetProvidersInfo(),
		"fallback_only": false,
	})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "sweetswap",
		"version": "1.0.0",
	})
}
