package router

import (
	"github.com/gin-gonic/gin"

	"paperscan/internal/handler"
	"paperscan/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	assessmentH *handler.AssessmentHandler,
	bundleH *handler.BundleHandler,
	pageH *handler.PageHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Assessment routes
	assessments := v1.Group("/assessments")
	assessments.POST("", assessmentH.Create)
	assessments.GET("", assessmentH.List)
	assessments.GET("/:id", assessmentH.GetByID)
	assessments.GET("/:id/papers/:paper", assessmentH.PaperPages)
	assessments.GET("/:id/papers/:paper/pages/:page", assessmentH.SlotOccupant)

	// Bundle routes
	bundles := v1.Group("/bundles")
	bundles.POST("", bundleH.Upload)
	bundles.GET("", bundleH.List)
	bundles.GET("/:id", bundleH.GetByID)
	bundles.GET("/:id/pages", bundleH.Pages)
	bundles.POST("/:id/classify", bundleH.Classify)
	bundles.GET("/:id/collisions", bundleH.Collisions)
	bundles.POST("/:id/push", bundleH.Push)
	bundles.GET("/:id/report", bundleH.Report)

	// Page routes
	pages := v1.Group("/pages")
	pages.POST("/:id/cast", pageH.Cast)
	pages.POST("/:id/extra", pageH.AssignExtra)
	pages.GET("/:id/image", pageH.ImageURL)

	return r
}
