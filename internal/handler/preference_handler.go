package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ataraxia/internal/errors"
	"ataraxia/internal/middleware"
	"ataraxia/internal/model"
	"ataraxia/internal/service"
)

type PreferenceHandler struct {
	preferenceService *service.PreferenceService
}

type putPreferencesRequest struct {
	model.LocalSnapshot
	MigratedAt  *time.Time `json:"migratedAt"`
	BaseVersion int        `json:"baseVersion"`
}

func NewPreferenceHandler(preferenceService *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferenceService: preferenceService}
}

// Head answers whether the caller already has a stored record.
func (h *PreferenceHandler) Head(c *gin.Context) {
	exists, apiErr := h.preferenceService.Exists(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		c.Status(apiErr.Status)
		return
	}
	if !exists {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

func (h *PreferenceHandler) Get(c *gin.Context) {
	record, apiErr := h.preferenceService.Get(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}

func (h *PreferenceHandler) Put(c *gin.Context) {
	merge, err := strconv.ParseBool(c.DefaultQuery("merge", "false"))
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_merge", "merge must be true or false"))
		return
	}

	var req putPreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	if req.BaseVersion < 0 {
		writeError(c, apperrors.BadRequest("invalid_base_version", "baseVersion must not be negative"))
		return
	}

	record, apiErr := h.preferenceService.Put(c.Request.Context(), middleware.UserID(c), service.PutInput{
		Snapshot:    req.LocalSnapshot,
		MigratedAt:  req.MigratedAt,
		BaseVersion: req.BaseVersion,
		Merge:       merge,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}
