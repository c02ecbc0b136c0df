package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/jobmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/service"
	"github.com/ignatzorin/jobmarket-backend/internal/storage"
)

type BidHandler struct {
	bids    *service.BidService
	storage *storage.AttachmentStorage
}

func NewBidHandler(bids *service.BidService, storage *storage.AttachmentStorage) *BidHandler {
	return &BidHandler{bids: bids, storage: storage}
}

type bidRequest struct {
	Budget           float64 `json:"budget" binding:"required,gt=0"`
	DeliveryTime     int     `json:"delivery_time" binding:"required,gt=0"`
	DeliveryTimeUnit string  `json:"delivery_time_unit" binding:"required"`
	Proposal         string  `json:"proposal" binding:"required"`
	Milestones       []struct {
		Title    string     `json:"title"`
		Amount   float64    `json:"amount"`
		Deadline *time.Time `json:"deadline"`
	} `json:"milestones"`
}

func (r bidRequest) toInput() service.BidInput {
	in := service.BidInput{
		Budget:           r.Budget,
		DeliveryTime:     r.DeliveryTime,
		DeliveryTimeUnit: r.DeliveryTimeUnit,
		Proposal:         r.Proposal,
	}
	for _, m := range r.Milestones {
		in.Milestones = append(in.Milestones, models.BidMilestone{
			Title:    m.Title,
			Amount:   m.Amount,
			Deadline: m.Deadline,
		})
	}
	return in
}

// SubmitBid POST /jobs/:id/bids
func (h *BidHandler) SubmitBid(c *gin.Context) {
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

	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "бюджет, срок и сопроводительное письмо обязательны")
		return
	}

	bid, err := h.bids.SubmitBid(c.Request.Context(), jobID, userID, req.toInput())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bid)
}

// ListJobBids GET /jobs/:id/bids
func (h *BidHandler) ListJobBids(c *gin.Context) {
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

	bids, err := h.bids.ListJobBids(c.Request.Context(), jobID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, bids)
}

// ListMyBids GET /bids/my
func (h *BidHandler) ListMyBids(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bids, err := h.bids.ListMyBids(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, bids)
}

// GetBid GET /bids/:id
func (h *BidHandler) GetBid(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	bid, err := h.bids.GetBid(c.Request.Context(), bidID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

// UpdateBid PUT /bids/:id
func (h *BidHandler) UpdateBid(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "бюджет, срок и сопроводительное письмо обязательны")
		return
	}

	bid, err := h.bids.UpdateBid(c.Request.Context(), bidID, userID, req.toInput())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, bid)
}

// WithdrawBid DELETE /bids/:id
func (h *BidHandler) WithdrawBid(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.bids.WithdrawBid(c.Request.Context(), bidID, userID); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "заявка отозвана", nil)
}

// LeaveFeedback POST /bids/:id/feedback
func (h *BidHandler) LeaveFeedback(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Feedback string `json:"feedback" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "текст отзыва обязателен")
		return
	}

	if err := h.bids.LeaveFeedback(c.Request.Context(), bidID, userID, req.Feedback); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "отзыв сохранён", nil)
}

// UploadAttachment POST /bids/:id/attachments
func (h *BidHandler) UploadAttachment(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "файл не передан")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}
	defer file.Close()

	head := make([]byte, 261)
	n, _ := file.Read(head)
	mimeType, err := storage.SniffMime(head[:n])
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}

	path, _, err := h.storage.Save(c.Request.Context(), bidID, fileHeader.Filename, file)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	attachment, err := h.bids.AttachFile(c.Request.Context(), bidID, userID, fileHeader.Filename, path, mimeType)
	if err != nil {
		if delErr := h.storage.Delete(c.Request.Context(), path); delErr != nil {
			_ = c.Error(delErr)
		}
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attachment)
}

// ListAttachments GET /bids/:id/attachments
func (h *BidHandler) ListAttachments(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	attachments, err := h.bids.ListAttachments(c.Request.Context(), bidID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, attachments)
}
