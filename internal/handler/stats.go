package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flicky/storefront/internal/service"
)

type StatsHandler struct {
	statsService *service.StatsService
}

func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// Daily serves the counters for ?date=YYYY-MM-DD, today by default.
func (h *StatsHandler) Daily(c *gin.Context) {
	day, err := service.ParseDay(c.Query("date"), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := h.statsService.Daily(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
