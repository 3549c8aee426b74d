package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/homecare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/homecare-backend/internal/service"
)

// PropertyHandler обслуживает дома владельцев и журнал работ.
type PropertyHandler struct {
	properties *service.PropertyService
}

// NewPropertyHandler создаёт новый хэндлер.
func NewPropertyHandler(properties *service.PropertyService) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

type propertyRequest struct {
	Address       string   `json:"address" binding:"required"`
	City          string   `json:"city"`
	ClimateZone   string   `json:"climate_zone"`
	YearBuilt     *int     `json:"year_built"`
	SquareFootage *int     `json:"square_footage"`
	HomeSystems   []string `json:"home_systems"`
}

func (r *propertyRequest) toInput() service.PropertyInput {
	return service.PropertyInput{
		Address:       r.Address,
		City:          r.City,
		ClimateZone:   r.ClimateZone,
		YearBuilt:     r.YearBuilt,
		SquareFootage: r.SquareFootage,
		HomeSystems:   r.HomeSystems,
	}
}

// Create обрабатывает POST /api/properties.
func (h *PropertyHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	var req propertyRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	property, err := h.properties.Create(c.Request.Context(), userID, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, property)
}

// List обрабатывает GET /api/properties.
func (h *PropertyHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	properties, err := h.properties.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"properties": properties})
}

// Get обрабатывает GET /api/properties/:id.
func (h *PropertyHandler) Get(c *gin.Context) {
	userID, propertyID, ok := h.subject(c)
	if !ok {
		return
	}

	property, err := h.properties.Get(c.Request.Context(), userID, propertyID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, property)
}

// Update обрабатывает PUT /api/properties/:id.
func (h *PropertyHandler) Update(c *gin.Context) {
	userID, propertyID, ok := h.subject(c)
	if !ok {
		return
	}

	var req propertyRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	property, err := h.properties.Update(c.Request.Context(), userID, propertyID, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, property)
}

// Delete обрабатывает DELETE /api/properties/:id.
func (h *PropertyHandler) Delete(c *gin.Context) {
	userID, propertyID, ok := h.subject(c)
	if !ok {
		return
	}

	if err := h.properties.Delete(c.Request.Context(), userID, propertyID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type serviceRecordRequest struct {
	ContractorID *uuid.UUID `json:"contractor_id"`
	ProposalID   *uuid.UUID `json:"proposal_id"`
	ServiceType  string     `json:"service_type" binding:"required"`
	Description  string     `json:"description" binding:"required"`
	Cost         string     `json:"cost" binding:"required"`
	PerformedAt  *time.Time `json:"performed_at"`
}

// AddServiceRecord обрабатывает POST /api/properties/:id/records.
func (h *PropertyHandler) AddServiceRecord(c *gin.Context) {
	userID, propertyID, ok := h.subject(c)
	if !ok {
		return
	}

	var req serviceRecordRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	in := service.ServiceRecordInput{
		ContractorID: req.ContractorID,
		ProposalID:   req.ProposalID,
		ServiceType:  req.ServiceType,
		Description:  req.Description,
		Cost:         req.Cost,
	}
	if req.PerformedAt != nil {
		in.PerformedAt = *req.PerformedAt
	}

	record, err := h.properties.AddServiceRecord(c.Request.Context(), userID, propertyID, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// ListServiceRecords обрабатывает GET /api/properties/:id/records.
func (h *PropertyHandler) ListServiceRecords(c *gin.Context) {
	userID, propertyID, ok := h.subject(c)
	if !ok {
		return
	}

	records, err := h.properties.ListServiceRecords(c.Request.Context(), userID, propertyID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *PropertyHandler) subject(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
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
