package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/jobmarket-backend/internal/config"
	"github.com/ignatzorin/jobmarket-backend/internal/http/handlers"
	"github.com/ignatzorin/jobmarket-backend/internal/http/middleware"
	"github.com/ignatzorin/jobmarket-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	jobHandler *handlers.JobHandler,
	bidHandler *handlers.BidHandler,
	hiringHandler *handlers.HiringHandler,
	milestoneHandler *handlers.MilestoneHandler,
	paymentHandler *handlers.PaymentHandler,
	notificationHandler *handlers.NotificationHandler,
	conversationHandler *handlers.ConversationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.StaticFS("/attachments", http.Dir(cfg.AttachmentsPath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Публичные маршруты
	api.GET("/jobs", jobHandler.ListJobs)
	api.GET("/jobs/:id", middleware.UUIDValidator("id"), jobHandler.GetJob)
	api.GET("/jobs/:id/roles", middleware.UUIDValidator("id"), jobHandler.ListRoles)
	api.GET("/jobs/:id/team", middleware.UUIDValidator("id"), jobHandler.ListTeam)
	api.GET("/users/:id", middleware.UUIDValidator("id"), profileHandler.GetUser)
	api.GET("/ws", wsHandler.Serve)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/profile", profileHandler.GetMe)
		protected.PUT("/profile", profileHandler.UpdateMe)

		protected.POST("/jobs", jobHandler.CreateJob)
		protected.GET("/jobs/my", jobHandler.ListMyJobs)
		protected.PUT("/jobs/:id", middleware.UUIDValidator("id"), jobHandler.UpdateJob)
		protected.POST("/jobs/:id/complete", middleware.UUIDValidator("id"), jobHandler.CompleteJob)
		protected.POST("/jobs/:id/cancel", middleware.UUIDValidator("id"), jobHandler.CancelJob)
		protected.POST("/jobs/:id/crowdsourcing", middleware.UUIDValidator("id"), jobHandler.EnableCrowdsourcing)

		protected.POST("/jobs/:id/bids", middleware.UUIDValidator("id"), bidHandler.SubmitBid)
		protected.GET("/jobs/:id/bids", middleware.UUIDValidator("id"), bidHandler.ListJobBids)
		protected.GET("/bids/my", bidHandler.ListMyBids)
		protected.GET("/bids/:id", middleware.UUIDValidator("id"), bidHandler.GetBid)
		protected.PUT("/bids/:id", middleware.UUIDValidator("id"), bidHandler.UpdateBid)
		protected.DELETE("/bids/:id", middleware.UUIDValidator("id"), bidHandler.WithdrawBid)
		protected.POST("/bids/:id/feedback", middleware.UUIDValidator("id"), bidHandler.LeaveFeedback)
		protected.POST("/bids/:id/attachments", middleware.UUIDValidator("id"), bidHandler.UploadAttachment)
		protected.GET("/bids/:id/attachments", middleware.UUIDValidator("id"), bidHandler.ListAttachments)

		protected.POST("/jobs/:id/offers", middleware.UUIDValidator("id"), hiringHandler.SendOffer)
		protected.GET("/offers/my", hiringHandler.ListMyOffers)
		protected.POST("/offers/:id/accept", middleware.UUIDValidator("id"), hiringHandler.AcceptOffer)
		protected.POST("/offers/:id/reject", middleware.UUIDValidator("id"), hiringHandler.RejectOffer)

		protected.POST("/jobs/:id/milestones", middleware.UUIDValidator("id"), milestoneHandler.AddMilestone)
		protected.GET("/jobs/:id/milestones", middleware.UUIDValidator("id"), milestoneHandler.ListJobMilestones)
		protected.GET("/milestones/my", milestoneHandler.ListMyMilestones)
		protected.GET("/milestones/:id", middleware.UUIDValidator("id"), milestoneHandler.GetMilestone)
		protected.POST("/milestones/:id/approve", middleware.UUIDValidator("id"), milestoneHandler.ApproveMilestone)
		protected.GET("/milestones/:id/payment", middleware.UUIDValidator("id"), paymentHandler.GetMilestonePayment)

		protected.GET("/balance", paymentHandler.GetBalance)
		protected.GET("/payments/my", paymentHandler.ListMyPayments)
		protected.GET("/jobs/:id/payments", middleware.UUIDValidator("id"), paymentHandler.ListJobPayments)
		protected.GET("/hires", paymentHandler.ListHires)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllRead)

		protected.POST("/conversations", conversationHandler.StartConversation)
		protected.GET("/conversations/my", conversationHandler.ListMyConversations)
		protected.GET("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.ListMessages)
		protected.POST("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.SendMessage)
	}

	return r
}
