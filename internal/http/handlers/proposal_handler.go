package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/homecare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/homecare-backend/internal/service"
	"github.com/ignatzorin/homecare-backend/internal/signature"
	"github.com/ignatzorin/homecare-backend/internal/storage"
	"github.com/ignatzorin/homecare-backend/internal/upload"
)

// ProposalHandler обслуживает жизненный цикл предложений: CRUD,
// отправку, решение заказчика, вложения, договор и подпись.
type ProposalHandler struct {
	proposals       *service.ProposalService
	attachmentsGate *upload.Gateway
	contractGate    *upload.Gateway
}

// NewProposalHandler создаёт новый хэндлер.
func NewProposalHandler(proposals *service.ProposalService, attachmentsGate, contractGate *upload.Gateway) *ProposalHandler {
	return &ProposalHandler{
		proposals:       proposals,
		attachmentsGate: attachmentsGate,
		contractGate:    contractGate,
	}
}

type createProposalRequest struct {
	HomeownerID       *uuid.UUID `json:"homeowner_id"`
	PropertyID        *uuid.UUID `json:"property_id"`
	Title             string     `json:"title" binding:"required"`
	Description       string     `json:"description"`
	ServiceType       string     `json:"service_type" binding:"required"`
	EstimatedCost     string     `json:"estimated_cost" binding:"required"`
	EstimatedDuration *string    `json:"estimated_duration"`
	Scope             *string    `json:"scope"`
	Materials         string     `json:"materials"`
	WarrantyPeriod    *string    `json:"warranty_period"`
	ValidUntil        *time.Time `json:"valid_until"`
	CustomerNotes     *string    `json:"customer_notes"`
	InternalNotes     *string    `json:"internal_notes"`
}

// Create обрабатывает POST /api/proposals.
func (h *ProposalHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	var req createProposalRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.proposals.Create(c.Request.Context(), userID, service.CreateProposalInput{
		HomeownerID:       req.HomeownerID,
		PropertyID:        req.PropertyID,
		Title:             req.Title,
		Description:       req.Description,
		ServiceType:       req.ServiceType,
		EstimatedCost:     req.EstimatedCost,
		EstimatedDuration: req.EstimatedDuration,
		Scope:             req.Scope,
		Materials:         req.Materials,
		WarrantyPeriod:    req.WarrantyPeriod,
		ValidUntil:        req.ValidUntil,
		CustomerNotes:     req.CustomerNotes,
		InternalNotes:     req.InternalNotes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List обрабатывает GET /api/proposals.
func (h *ProposalHandler) List(c *gin.Context) {
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

	proposals, err := h.proposals.ListForUser(c.Request.Context(), userID, role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

// Get обрабатывает GET /api/proposals/:id.
func (h *ProposalHandler) Get(c *gin.Context) {
	userID, proposalID, ok := h.subject(c)
	if !ok {
		return
	}

	proposal, err := h.proposals.Get(c.Request.Context(), userID, proposalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// Update обрабатывает PATCH /api/proposals/:id.
func (h *ProposalHandler) Update(c *gin.Context) {
	userID, proposalID, ok := h.subject(c)
	if !ok {
		return
	}

	var patch models.ProposalPatch
	if err := common.BindAndValidate(c, &patch); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.proposals.Update(c.Request.Context(), userID, proposalID, patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Delete обрабатывает DELETE /api/proposals/:id.
func (h *ProposalHandler) Delete(c *gin.Context) {
	userID, proposalID, ok := h.subject(c)
	if !ok {
		return
	}

	if err := h.proposals.Delete(c.Request.Context(), userID, proposalID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Send обрабатывает POST /api/proposals/:id/send.
func (h *ProposalHandler) Send(c *gin.Context) {
	userID, proposalID, ok := h.subject(c)
	if !ok {
		return
	}

	result, err := h.proposals.Send(c.Request.Context(), userID, proposalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Accept обрабатывает POST /api/proposals/:id/accept.
func (h *ProposalHandler) Accept(c *gin.Context) {
	userID, proposalID, ok := h.subject(c)
	if !ok {
		return
	}

	result, err := h.proposals.Accept(c.Request.Context(), userID, proposalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reject обрабатывает POST /api/proposals/:id/reject.
func (h *ProposalHandler) Reject(c *gin.Context) {
	userID, proposalID, ok := h.subject(c)
	if !ok {
		return
	}

	result, err := h.proposals.Reject(c.Request.Context(), userID, proposalID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type signRequest struct {
	SignerName string             `json:"signer_name" binding:"required"`
	Strokes    []signature.Stroke `json:"strokes" binding:"required"`
}

// Sign обрабатывает POST /api/proposals/:id/sign.
func (h *ProposalHandler) Sign(c *gin.Context) {
	userID, proposalID, ok := h.subject(c)
	if !ok {
		return
	}

	var req signRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	proposal, err := h.proposals.Sign(c.Request.Context(), userID, proposalID, req.Strokes, req.SignerName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// UploadAttachments обрабатывает POST /api/proposals/:id/attachments.
// Файлы принимаются multipart-формой в поле files и уходят в хранилище
// через предподписанные PUT. Пути успешно загруженных файлов
// добавляются к вложениям предложения.
func (h *ProposalHandler) UploadAttachments(c *gin.Context) {
	userID, proposalID, ok := h.subject(c)
	if !ok {
		return
	}

	proposal, err := h.proposals.Get(c.Request.Context(), userID, proposalID)
	if err != nil {
		respondError(c, err)
		return
	}

	files, err := readMultipartFiles(c, "files")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if len(files) == 0 {
		common.RespondBadRequest(c, "не переданы файлы")
		return
	}

	descriptors, failures := h.attachmentsGate.Upload(
		c.Request.Context(),
		storage.FileTypeProposal,
		len(proposal.Attachments),
		files,
		nil,
	)

	if len(descriptors) > 0 {
		paths := append([]string{}, proposal.Attachments...)
		for _, d := range descriptors {
			paths = append(paths, d.Path)
		}
		if proposal, err = h.proposals.SetAttachments(c.Request.Context(), userID, proposalID, paths); err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(uploadStatus(descriptors, failures), gin.H{
		"proposal": proposal,
		"uploaded": descriptors,
		"errors":   errorMessages(failures),
	})
}

// UploadContract обрабатывает POST /api/proposals/:id/contract.
// Принимается ровно один документ в поле file.
func (h *ProposalHandler) UploadContract(c *gin.Context) {
	userID, proposalID, ok := h.subject(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "не передан файл договора")
		return
	}

	file, err := readMultipartFile(fileHeader)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	descriptors, failures := h.contractGate.Upload(
		c.Request.Context(),
		storage.FileTypeContract,
		0,
		[]upload.File{*file},
		nil,
	)
	if len(descriptors) == 0 {
		msgs := errorMessages(failures)
		msg := "не удалось загрузить договор"
		if len(msgs) > 0 {
			msg = msgs[0]
		}
		respondError(c, apperror.New(apperror.ErrCodeValidation, msg))
		return
	}

	proposal, err := h.proposals.AttachContract(c.Request.Context(), userID, proposalID, descriptors[0].Path)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// subject достаёт пользователя из контекста и id из пути.
func (h *ProposalHandler) subject(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return uuid.Nil, uuid.Nil, false
	}

	proposalID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return uuid.Nil, uuid.Nil, false
	}

	return userID, proposalID, true
}

// readMultipartFiles читает все файлы поля формы в память.
func readMultipartFiles(c *gin.Context, field string) ([]upload.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	headers := form.File[field]
	files := make([]upload.File, 0, len(headers))
	for _, header := range headers {
		file, err := readMultipartFile(header)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	return files, nil
}

func readMultipartFile(header *multipart.FileHeader) (*upload.File, error) {
	src, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &upload.File{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// uploadStatus: полный успех — 200, частичный — 207, полный отказ — 400.
func uploadStatus(descriptors []upload.Descriptor, failures []error) int {
	switch {
	case len(failures) == 0:
		return http.StatusOK
	case len(descriptors) > 0:
		return http.StatusMultiStatus
	default:
		return http.StatusBadRequest
	}
}

func errorMessages(failures []error) []string {
	msgs := make([]string, 0, len(failures))
	for _, err := range failures {
		msgs = append(msgs, err.Error())
	}
	return msgs
}
