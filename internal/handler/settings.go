package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/storefront/internal/dto"
	"github.com/flicky/storefront/internal/service"
)

type SettingsHandler struct {
	settingsService *service.SettingsService
	maxUpload       int64
}

func NewSettingsHandler(settingsService *service.SettingsService, maxUpload int64) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, maxUpload: maxUpload}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	resp, err := h.settingsService.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.settingsService.Update(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SettingsHandler) SetBackground(c *gin.Context) {
	limitBody(c, h.maxUpload)

	image, closer, err := formImage(c, "background_image")
	if err != nil {
		bindError(c, err)
		return
	}
	defer closer.Close()

	resp, err := h.settingsService.SetBackground(c.Request.Context(), image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
