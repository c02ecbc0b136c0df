package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/jobmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobmarket-backend/internal/repository"
	"github.com/ignatzorin/jobmarket-backend/internal/service"
)

type JobHandler struct {
	jobs *service.JobService
}

func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type jobRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Skills      []string `json:"skills"`
	Budget      float64  `json:"budget" binding:"required,gt=0"`
}

// CreateJob POST /jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "заголовок, описание и бюджет обязательны")
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), userID, service.CreateJobInput{
		Title:       req.Title,
		Description: req.Description,
		Skills:      req.Skills,
		Budget:      req.Budget,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// ListJobs GET /jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	result, err := h.jobs.ListJobs(c.Request.Context(), repository.ListJobsParams{
		Status: c.Query("status"),
		Skill:  c.Query("skill"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetJob GET /jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListMyJobs GET /jobs/my
func (h *JobHandler) ListMyJobs(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var jobs interface{}
	if c.Query("as") == "freelancer" {
		jobs, err = h.jobs.ListFreelancerJobs(c.Request.Context(), userID)
	} else {
		jobs, err = h.jobs.ListClientJobs(c.Request.Context(), userID)
	}
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// UpdateJob PUT /jobs/:id
func (h *JobHandler) UpdateJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "заголовок, описание и бюджет обязательны")
		return
	}

	job, err := h.jobs.UpdateJob(c.Request.Context(), id, userID, service.CreateJobInput{
		Title:       req.Title,
		Description: req.Description,
		Skills:      req.Skills,
		Budget:      req.Budget,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// CompleteJob POST /jobs/:id/complete
func (h *JobHandler) CompleteJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.jobs.CompleteJob(c.Request.Context(), id, userID); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "работа завершена", nil)
}

// CancelJob POST /jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.jobs.CancelJob(c.Request.Context(), id, userID); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "работа отменена", nil)
}

// EnableCrowdsourcing POST /jobs/:id/crowdsourcing
func (h *JobHandler) EnableCrowdsourcing(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Roles []struct {
			Title  string   `json:"title" binding:"required"`
			Skills []string `json:"skills"`
		} `json:"roles" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "нужен список ролей")
		return
	}

	roleInputs := make([]service.RoleInput, len(req.Roles))
	for i, r := range req.Roles {
		roleInputs[i] = service.RoleInput{Title: r.Title, Skills: r.Skills}
	}

	roles, conv, err := h.jobs.EnableCrowdsourcing(c.Request.Context(), id, userID, roleInputs)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"roles":              roles,
		"group_conversation": conv,
	})
}

// ListRoles GET /jobs/:id/roles
func (h *JobHandler) ListRoles(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	roles, err := h.jobs.ListRoles(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, roles)
}

// ListTeam GET /jobs/:id/team
func (h *JobHandler) ListTeam(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	team, err := h.jobs.ListTeam(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, team)
}
