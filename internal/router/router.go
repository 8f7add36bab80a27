package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "gstpipeline/docs"
	"gstpipeline/internal/config"
	"gstpipeline/internal/handler"
	"gstpipeline/internal/middleware"
)

// Handlers bundles the review API's handler set.
type Handlers struct {
	Health   *handler.HealthHandler
	Approval *handler.ApprovalHandler
	Run      *handler.RunHandler
}

// New wires the approval-review HTTP surface: health probes, swagger docs,
// and the authenticated run/approval endpoints.
func New(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())

	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(&cfg.JWT))
	{
		runs := api.Group("/runs")
		runs.GET("/:id", h.Run.Get)
		runs.GET("/:id/exceptions", h.Run.ListExceptions)
		runs.GET("/:id/audit", h.Run.AuditTrail)
		runs.GET("/:id/mis", h.Run.MISReport)
		runs.GET("/:id/approvals", h.Approval.ListPending)

		api.GET("/mis/compare", h.Run.CompareMIS)

		approvals := api.Group("/approvals")
		approvals.GET("", h.Approval.ListQueue)
		approvals.POST("/:id/decide",
			middleware.RequireRole("finance"), h.Approval.Decide)
	}

	return r
}
