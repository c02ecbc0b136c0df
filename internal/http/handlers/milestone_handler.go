package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/jobmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobmarket-backend/internal/service"
)

type MilestoneHandler struct {
	milestones *service.MilestoneService
}

func NewMilestoneHandler(milestones *service.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{milestones: milestones}
}

// AddMilestone POST /jobs/:id/milestones
func (h *MilestoneHandler) AddMilestone(c *gin.Context) {
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
		FreelancerID uuid.UUID `json:"freelancer_id" binding:"required"`
		Title        string    `json:"title" binding:"required"`
		Description  string    `json:"description"`
		Amount       float64   `json:"amount" binding:"required,gt=0"`
		Deadline     time.Time `json:"deadline" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "фрилансер, название, сумма и срок этапа обязательны")
		return
	}

	milestone, escrow, err := h.milestones.AddMilestone(c.Request.Context(), jobID, userID, service.MilestoneInput{
		FreelancerID: req.FreelancerID,
		Title:        req.Title,
		Description:  req.Description,
		Amount:       req.Amount,
		Deadline:     req.Deadline,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"milestone": milestone,
		"escrow":    escrow,
	})
}

// ApproveMilestone POST /milestones/:id/approve
func (h *MilestoneHandler) ApproveMilestone(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	milestoneID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	milestone, escrow, err := h.milestones.ApproveMilestone(c.Request.Context(), milestoneID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"milestone": milestone,
		"escrow":    escrow,
	})
}

// GetMilestone GET /milestones/:id
func (h *MilestoneHandler) GetMilestone(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	milestoneID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	milestone, err := h.milestones.GetMilestone(c.Request.Context(), milestoneID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, milestone)
}

// ListJobMilestones GET /jobs/:id/milestones
func (h *MilestoneHandler) ListJobMilestones(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	milestones, err := h.milestones.ListJobMilestones(c.Request.Context(), jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, milestones)
}

// ListMyMilestones GET /milestones/my
func (h *MilestoneHandler) ListMyMilestones(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	milestones, err := h.milestones.ListMyMilestones(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, milestones)
}
