package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/jobmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobmarket-backend/internal/service"
)

type HiringHandler struct {
	hiring *service.HiringService
}

func NewHiringHandler(hiring *service.HiringService) *HiringHandler {
	return &HiringHandler{hiring: hiring}
}

// SendOffer POST /jobs/:id/offers
func (h *HiringHandler) SendOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		FreelancerID         uuid.UUID  `json:"freelancer_id" binding:"required"`
		BidID                *uuid.UUID `json:"bid_id"`
		Role                 string     `json:"role"`
		MilestoneTitle       string     `json:"milestone_title" binding:"required"`
		MilestoneDescription string     `json:"milestone_description"`
		MilestoneAmount      float64    `json:"milestone_amount" binding:"required,gt=0"`
		MilestoneDeadline    time.Time  `json:"milestone_deadline" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "фрилансер и шаблон первого этапа обязательны")
		return
	}

	offer, err := h.hiring.SendOffer(c.Request.Context(), jobID, userID, service.OfferInput{
		FreelancerID:         req.FreelancerID,
		BidID:                req.BidID,
		Role:                 req.Role,
		MilestoneTitle:       req.MilestoneTitle,
		MilestoneDescription: req.MilestoneDescription,
		MilestoneAmount:      req.MilestoneAmount,
		MilestoneDeadline:    req.MilestoneDeadline,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, offer)
}

// ListMyOffers GET /offers/my
func (h *HiringHandler) ListMyOffers(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	offers, err := h.hiring.ListMyOffers(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, offers)
}

// AcceptOffer POST /offers/:id/accept
func (h *HiringHandler) AcceptOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	offerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.hiring.AcceptOffer(c.Request.Context(), offerID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"offer":     result.Offer,
		"milestone": result.Milestone,
		"escrow":    result.Escrow,
	})
}

// RejectOffer POST /offers/:id/reject
func (h *HiringHandler) RejectOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	offerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	offer, err := h.hiring.RejectOffer(c.Request.Context(), offerID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, offer)
}
