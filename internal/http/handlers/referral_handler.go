package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/homecare-backend/internal/http/handlers/common"
	"github.com/ignatzorin/homecare-backend/internal/service"
)

// ReferralHandler отдаёт агенту его приглашения, уровень и комиссии.
type ReferralHandler struct {
	referrals *service.ReferralService
}

// NewReferralHandler создаёт новый хэндлер.
func NewReferralHandler(referrals *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referrals: referrals}
}

// Progress обрабатывает GET /api/referrals/progress.
func (h *ReferralHandler) Progress(c *gin.Context) {
	agentID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	progress, err := h.referrals.Progress(c.Request.Context(), agentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// List обрабатывает GET /api/referrals.
func (h *ReferralHandler) List(c *gin.Context) {
	agentID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	referrals, err := h.referrals.ListReferrals(c.Request.Context(), agentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"referrals": referrals})
}

// ListCommissions обрабатывает GET /api/referrals/commissions.
func (h *ReferralHandler) ListCommissions(c *gin.Context) {
	agentID, err := common.CurrentUserID(c)
	if err != nil {
		abortUnauthorized(c)
		return
	}

	commissions, err := h.referrals.ListCommissions(c.Request.Context(), agentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"commissions": commissions})
}
