package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/homecare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/service"
)

// DashboardHandler отдаёт агрегаты главного экрана по роли пользователя.
type DashboardHandler struct {
	dashboards   *service.DashboardService
	achievements *service.AchievementService
}

// NewDashboardHandler создаёт новый хэндлер.
func NewDashboardHandler(dashboards *service.DashboardService, achievements *service.AchievementService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, achievements: achievements}
}

// Get обрабатывает GET /api/dashboard: состав ответа зависит от роли.
func (h *DashboardHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	var (
		payload interface{}
		buildErr error
	)
	switch role {
	case models.RoleContractor:
		payload, buildErr = h.dashboards.ForContractor(c.Request.Context(), userID)
	case models.RoleHomeowner:
		payload, buildErr = h.dashboards.ForHomeowner(c.Request.Context(), userID)
	case models.RoleAgent:
		payload, buildErr = h.dashboards.ForAgent(c.Request.Context(), userID)
	default:
		common.RespondBadRequest(c, "неизвестная роль пользователя")
		return
	}

	if buildErr != nil {
		respondError(c, buildErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"role": role, "dashboard": payload})
}

// ListAchievements обрабатывает GET /api/achievements.
func (h *DashboardHandler) ListAchievements(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	achievements, err := h.achievements.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"achievements": achievements})
}
