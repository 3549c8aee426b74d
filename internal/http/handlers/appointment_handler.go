package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/homecare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/homecare-backend/internal/service"
)

// AppointmentHandler обслуживает запланированные визиты.
type AppointmentHandler struct {
	appointments *service.AppointmentService
}

// NewAppointmentHandler создаёт новый хэндлер.
func NewAppointmentHandler(appointments *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

type appointmentRequest struct {
	HomeownerID  uuid.UUID  `json:"homeowner_id" binding:"required"`
	ContractorID uuid.UUID  `json:"contractor_id" binding:"required"`
	ProposalID   *uuid.UUID `json:"proposal_id"`
	PropertyID   *uuid.UUID `json:"property_id"`
	Title        string     `json:"title" binding:"required"`
	Notes        *string    `json:"notes"`
	ScheduledAt  time.Time  `json:"scheduled_at" binding:"required"`
}

// Create обрабатывает POST /api/appointments.
func (h *AppointmentHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	var req appointmentRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	appointment, err := h.appointments.Create(c.Request.Context(), userID, service.AppointmentInput{
		HomeownerID:  req.HomeownerID,
		ContractorID: req.ContractorID,
		ProposalID:   req.ProposalID,
		PropertyID:   req.PropertyID,
		Title:        req.Title,
		Notes:        req.Notes,
		ScheduledAt:  req.ScheduledAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, appointment)
}

// List обрабатывает GET /api/appointments.
func (h *AppointmentHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	appointments, err := h.appointments.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appointments": appointments})
}

type appointmentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus обрабатывает PATCH /api/appointments/:id.
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	appointmentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req appointmentStatusRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	appointment, err := h.appointments.UpdateStatus(c.Request.Context(), userID, appointmentID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, appointment)
}

// Delete обрабатывает DELETE /api/appointments/:id.
func (h *AppointmentHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	appointmentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.appointments.Delete(c.Request.Context(), userID, appointmentID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
