package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/homecare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/homecare-backend/internal/service"
)

// MaintenanceHandler обслуживает план обслуживания дома.
type MaintenanceHandler struct {
	maintenance *service.MaintenanceService
}

// NewMaintenanceHandler создаёт новый хэндлер.
func NewMaintenanceHandler(maintenance *service.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenance: maintenance}
}

// Plan обрабатывает GET /api/properties/:id/maintenance?month=8.
// Без параметра month берётся текущий месяц.
func (h *MaintenanceHandler) Plan(c *gin.Context) {
	userID, propertyID, ok := h.subject(c)
	if !ok {
		return
	}

	month := time.Now().Month()
	if raw := common.ParseIntQuery(c, "month", int(month)); raw >= 1 && raw <= 12 {
		month = time.Month(raw)
	} else {
		common.RespondBadRequest(c, "месяц должен быть от 1 до 12")
		return
	}

	plan, err := h.maintenance.PlanForMonth(c.Request.Context(), userID, propertyID, month)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"month": int(month), "tasks": plan})
}

// Complete обрабатывает POST /api/properties/:id/maintenance/:taskId/complete.
func (h *MaintenanceHandler) Complete(c *gin.Context) {
	userID, propertyID, ok := h.subject(c)
	if !ok {
		return
	}

	taskID, err := common.ParseUUIDParam(c, "taskId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	completion, err := h.maintenance.MarkCompleted(c.Request.Context(), userID, propertyID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, completion)
}

type visibilityRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}

// SetVisibility обрабатывает PUT /api/properties/:id/maintenance/:taskId/visibility.
func (h *MaintenanceHandler) SetVisibility(c *gin.Context) {
	userID, propertyID, ok := h.subject(c)
	if !ok {
		return
	}

	taskID, err := common.ParseUUIDParam(c, "taskId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req visibilityRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.maintenance.SetHidden(c.Request.Context(), userID, propertyID, taskID, *req.Hidden); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MaintenanceHandler) subject(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return uuid.Nil, uuid.Nil, false
	}

	propertyID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return uuid.Nil, uuid.Nil, false
	}

	return userID, propertyID, true
}
